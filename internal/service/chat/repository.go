package chat

import (
	"context"
	"errors"

	"talkative-backend/internal/database"
	"talkative-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrNotFound = errors.New("chat repository: not found")

type Repository interface {
	CreateChat(ctx context.Context, chat model.ChatItem) error
	GetChat(ctx context.Context, chatID string) (model.ChatItem, error)
	RenameChat(ctx context.Context, chatID, chatName, updatedAt string) (model.ChatItem, error)
	SetChatMembers(ctx context.Context, chatID string, userIDs []string, updatedAt string) (model.ChatItem, error)
	ListChatsForUser(ctx context.Context, userID string) ([]model.ChatItem, error)
	FindDirectChat(ctx context.Context, userA, userB string) (model.ChatItem, error)
	GetUser(ctx context.Context, userID string) (model.UserItem, error)
	GetUsers(ctx context.Context, userIDs []string) ([]model.UserItem, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func chatKey(chatID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"chatId": &types.AttributeValueMemberS{Value: chatID},
	}
}

func (r *DynamoRepository) CreateChat(ctx context.Context, chat model.ChatItem) error {
	return r.db.Client.PutItem(ctx, model.ChatsTable, chat)
}

func (r *DynamoRepository) GetChat(ctx context.Context, chatID string) (model.ChatItem, error) {
	var chat model.ChatItem
	err := r.db.Client.GetItem(ctx, model.ChatsTable, chatKey(chatID), &chat)
	if errors.Is(err, database.ErrItemNotFound) {
		return model.ChatItem{}, ErrNotFound
	}
	if err != nil {
		return model.ChatItem{}, err
	}
	return chat, nil
}

func (r *DynamoRepository) RenameChat(ctx context.Context, chatID, chatName, updatedAt string) (model.ChatItem, error) {
	var chat model.ChatItem
	err := r.db.Client.UpdateItem(
		ctx,
		model.ChatsTable,
		chatKey(chatID),
		"SET chatName = :name, updatedAt = :at",
		map[string]types.AttributeValue{
			":name": &types.AttributeValueMemberS{Value: chatName},
			":at":   &types.AttributeValueMemberS{Value: updatedAt},
		},
		nil,
		&chat,
	)
	if err != nil {
		return model.ChatItem{}, err
	}
	return chat, nil
}

func (r *DynamoRepository) SetChatMembers(ctx context.Context, chatID string, userIDs []string, updatedAt string) (model.ChatItem, error) {
	members, err := attributevalue.Marshal(userIDs)
	if err != nil {
		return model.ChatItem{}, err
	}

	var chat model.ChatItem
	err = r.db.Client.UpdateItem(
		ctx,
		model.ChatsTable,
		chatKey(chatID),
		"SET userIds = :users, updatedAt = :at",
		map[string]types.AttributeValue{
			":users": members,
			":at":    &types.AttributeValueMemberS{Value: updatedAt},
		},
		nil,
		&chat,
	)
	if err != nil {
		return model.ChatItem{}, err
	}
	return chat, nil
}

func (r *DynamoRepository) ListChatsForUser(ctx context.Context, userID string) ([]model.ChatItem, error) {
	items, err := r.db.Client.ScanItems(
		ctx,
		model.ChatsTable,
		"contains(userIds, :uid)",
		map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		nil,
	)
	if err != nil {
		return nil, err
	}
	return unmarshalChats(items)
}

func (r *DynamoRepository) FindDirectChat(ctx context.Context, userA, userB string) (model.ChatItem, error) {
	items, err := r.db.Client.ScanItems(
		ctx,
		model.ChatsTable,
		"isGroupChat = :grp AND contains(userIds, :a) AND contains(userIds, :b)",
		map[string]types.AttributeValue{
			":grp": &types.AttributeValueMemberBOOL{Value: false},
			":a":   &types.AttributeValueMemberS{Value: userA},
			":b":   &types.AttributeValueMemberS{Value: userB},
		},
		nil,
	)
	if err != nil {
		return model.ChatItem{}, err
	}
	if len(items) == 0 {
		return model.ChatItem{}, ErrNotFound
	}

	var chat model.ChatItem
	if err := attributevalue.UnmarshalMap(items[0], &chat); err != nil {
		return model.ChatItem{}, err
	}
	return chat, nil
}

func (r *DynamoRepository) GetUser(ctx context.Context, userID string) (model.UserItem, error) {
	var user model.UserItem
	err := r.db.Client.GetItem(ctx, model.UsersTable, map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	}, &user)
	if errors.Is(err, database.ErrItemNotFound) {
		return model.UserItem{}, ErrNotFound
	}
	if err != nil {
		return model.UserItem{}, err
	}
	return user, nil
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

func unmarshalChats(items []map[string]types.AttributeValue) ([]model.ChatItem, error) {
	chats := make([]model.ChatItem, 0, len(items))
	for _, item := range items {
		var chat model.ChatItem
		if err := attributevalue.UnmarshalMap(item, &chat); err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, nil
}
