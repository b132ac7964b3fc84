package user

import (
	"context"
	"errors"

	"talkative-backend/internal/database"
	"talkative-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrNotFound = errors.New("user repository: not found")

type Repository interface {
	CreateUser(ctx context.Context, user model.UserItem) error
	GetUser(ctx context.Context, userID string) (model.UserItem, error)
	FindByEmail(ctx context.Context, email string) (model.UserItem, error)
	SearchUsers(ctx context.Context, query string) ([]model.UserItem, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) CreateUser(ctx context.Context, user model.UserItem) error {
	return r.db.Client.PutItem(ctx, model.UsersTable, user)
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

func (r *DynamoRepository) FindByEmail(ctx context.Context, email string) (model.UserItem, error) {
	items, err := r.db.Client.ScanItems(
		ctx,
		model.UsersTable,
		"email = :email",
		map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: email},
		},
		nil,
	)
	if err != nil {
		return model.UserItem{}, err
	}
	if len(items) == 0 {
		return model.UserItem{}, ErrNotFound
	}

	var user model.UserItem
	if err := attributevalue.UnmarshalMap(items[0], &user); err != nil {
		return model.UserItem{}, err
	}
	return user, nil
}

func (r *DynamoRepository) SearchUsers(ctx context.Context, query string) ([]model.UserItem, error) {
	items, err := r.db.Client.ScanItems(
		ctx,
		model.UsersTable,
		"contains(#name, :q) OR contains(email, :q)",
		map[string]types.AttributeValue{
			":q": &types.AttributeValueMemberS{Value: query},
		},
		map[string]string{
			"#name": "name",
		},
	)
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
