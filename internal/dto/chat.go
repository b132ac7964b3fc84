package dto

// Wire DTOs keep Mongo-style `_id` keys; the realtime event payloads and the
// REST responses share these shapes.

type UserDTO struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Pic   string `json:"pic,omitempty"`
}

type ChatDTO struct {
	ID            string      `json:"_id"`
	ChatName      string      `json:"chatName,omitempty"`
	IsGroupChat   bool        `json:"isGroupChat"`
	Users         []UserDTO   `json:"users"`
	GroupAdmin    *UserDTO    `json:"groupAdmin,omitempty"`
	LatestMessage *MessageDTO `json:"latestMessage,omitempty"`
	CreatedAt     string      `json:"createdAt,omitempty"`
	UpdatedAt     string      `json:"updatedAt,omitempty"`
}

type MessageDTO struct {
	ID        string   `json:"_id"`
	Sender    UserDTO  `json:"sender"`
	Content   string   `json:"content"`
	Chat      *ChatDTO `json:"chat,omitempty"`
	CreatedAt string   `json:"createdAt,omitempty"`
}

type AccessChatRequest struct {
	UserID string `json:"userId"`
}

type CreateGroupRequest struct {
	Name  string   `json:"name"`
	Users []string `json:"users"`
}

type RenameGroupRequest struct {
	ChatID   string `json:"chatId"`
	ChatName string `json:"chatName"`
}

type GroupMemberRequest struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

type SendMessageRequest struct {
	ChatID  string `json:"chatId"`
	Content string `json:"content"`
}
