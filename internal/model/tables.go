package model

const (
	UsersTable    = "Users"
	ChatsTable    = "Chats"
	MessagesTable = "Messages"
)

type UserItem struct {
	UserID       string `dynamodbav:"userId"`
	Name         string `dynamodbav:"name"`
	Email        string `dynamodbav:"email"`
	Pic          string `dynamodbav:"pic,omitempty"`
	PasswordHash string `dynamodbav:"passwordHash"`
	CreatedAt    string `dynamodbav:"createdAt"`
}
