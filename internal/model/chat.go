package model

// LatestMessage is denormalised onto the chat item so the chat list can be
// rendered without a second round trip per chat.
type LatestMessage struct {
	MessageID string `dynamodbav:"messageId"`
	SenderID  string `dynamodbav:"senderId"`
	Content   string `dynamodbav:"content"`
	CreatedAt string `dynamodbav:"createdAt"`
}

type ChatItem struct {
	ChatID        string         `dynamodbav:"chatId"`
	ChatName      string         `dynamodbav:"chatName,omitempty"`
	IsGroupChat   bool           `dynamodbav:"isGroupChat"`
	UserIDs       []string       `dynamodbav:"userIds"`
	GroupAdminID  string         `dynamodbav:"groupAdminId,omitempty"`
	LatestMessage *LatestMessage `dynamodbav:"latestMessage,omitempty"`
	CreatedAt     string         `dynamodbav:"createdAt"`
	UpdatedAt     string         `dynamodbav:"updatedAt"`
}

// MessageItem lives in a table keyed by chatId with createdAt as the sort
// key, so listing a chat's history is a single ordered query.
type MessageItem struct {
	ChatID    string `dynamodbav:"chatId"`
	CreatedAt string `dynamodbav:"createdAt"`
	MessageID string `dynamodbav:"messageId"`
	SenderID  string `dynamodbav:"senderId"`
	Content   string `dynamodbav:"content"`
}
