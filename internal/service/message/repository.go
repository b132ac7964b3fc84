package message

import (
	"context"
	"errors"

	"talkative-backend/internal/database"
	"talkative-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrNotFound = errors.New("message repository: not found")

type Repository interface {
	CreateMessage(ctx context.Context, msg model.MessageItem) error
	ListMessages(ctx context.Context, chatID string) ([]model.MessageItem, error)
	GetChat(ctx context.Context, chatID string) (model.ChatItem, error)
	SetLatestMessage(ctx context.Context, chatID string, latest model.LatestMessage, updatedAt string) error
	GetUsers(ctx context.Context, userIDs []string) ([]model.UserItem, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) CreateMessage(ctx context.Context, msg model.MessageItem) error {
	return r.db.Client.PutItem(ctx, model.MessagesTable, msg)
}

func (r *DynamoRepository) ListMessages(ctx context.Context, chatID string) ([]model.MessageItem, error) {
	items, err := r.db.Client.QueryItems(
		ctx,
		model.MessagesTable,
		nil,
		"chatId = :chat",
		map[string]types.AttributeValue{
			":chat": &types.AttributeValueMemberS{Value: chatID},
		},
		nil,
		nil,
	)
	if err != nil {
		return nil, err
	}

	messages := make([]model.MessageItem, 0, len(items))
	for _, item := range items {
		var msg model.MessageItem
		if err := attributevalue.UnmarshalMap(item, &msg); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (r *DynamoRepository) GetChat(ctx context.Context, chatID string) (model.ChatItem, error) {
	var chat model.ChatItem
	err := r.db.Client.GetItem(ctx, model.ChatsTable, map[string]types.AttributeValue{
		"chatId": &types.AttributeValueMemberS{Value: chatID},
	}, &chat)
	if errors.Is(err, database.ErrItemNotFound) {
		return model.ChatItem{}, ErrNotFound
	}
	if err != nil {
		return model.ChatItem{}, err
	}
	return chat, nil
}

func (r *DynamoRepository) SetLatestMessage(ctx context.Context, chatID string, latest model.LatestMessage, updatedAt string) error {
	snapshot, err := attributevalue.Marshal(latest)
	if err != nil {
		return err
	}

	return r.db.Client.UpdateItem(
		ctx,
		model.ChatsTable,
		map[string]types.AttributeValue{
			"chatId": &types.AttributeValueMemberS{Value: chatID},
		},
		"SET latestMessage = :latest, updatedAt = :at",
		map[string]types.AttributeValue{
			":latest": snapshot,
			":at":     &types.AttributeValueMemberS{Value: updatedAt},
		},
		nil,
		nil,
	)
}

func (r *DynamoRepository) GetUsers(ctx context.Context, userIDs []string) ([]model.UserItem, error) {
	items, err := r.db.Client.BatchGetByKeys(ctx, model.UsersTable, userIDs, "userId")
	if err != nil {
		return nil, err
	}

	users := make([]model.UserItem, 0, len(items))
	for _, item := range items {
		var user model.UserItem
		if err := attributevalue.UnmarshalMap(item, &user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}
