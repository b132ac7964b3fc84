package message

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"talkative-backend/internal/database"
	"talkative-backend/internal/dto"
	"talkative-backend/internal/model"

	"github.com/google/uuid"
)

// createdAtLayout is fixed-width so the stored strings sort
// lexicographically. RFC3339Nano trims trailing zeros and does not.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Notifier bridges newly created messages to the socket server. The realtime
// package's Redis notifier satisfies it.
type Notifier interface {
	MessageCreated(ctx context.Context, message dto.MessageDTO) error
}

type Service struct {
	repo     Repository
	notifier Notifier
	now      func() time.Time
}

func New(db *database.Database, notifier Notifier) *Service {
	return &Service{
		repo:     NewDynamoRepository(db),
		notifier: notifier,
		now:      time.Now,
	}
}

func NewWithRepository(repo Repository, notifier Notifier, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		now:      now,
	}
}

// Send stores a message, refreshes the chat's latest-message snapshot and
// publishes the populated message for socket fan-out.
func (s *Service) Send(ctx context.Context, senderID, chatID, content string) (dto.MessageDTO, error) {
	content = strings.TrimSpace(content)
	if chatID == "" || content == "" {
		return dto.MessageDTO{}, newError(ErrorCodeValidation, "chatId and content are required", nil)
	}

	chat, err := s.memberChat(ctx, senderID, chatID)
	if err != nil {
		return dto.MessageDTO{}, err
	}

	item := model.MessageItem{
		ChatID:    chatID,
		CreatedAt: s.now().UTC().Format(createdAtLayout),
		MessageID: uuid.NewString(),
		SenderID:  senderID,
		Content:   content,
	}
	if err := s.repo.CreateMessage(ctx, item); err != nil {
		return dto.MessageDTO{}, newError(ErrorCodeInternal, "failed to save message", err)
	}

	latest := model.LatestMessage{
		MessageID: item.MessageID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: item.CreatedAt,
	}
	if err := s.repo.SetLatestMessage(ctx, chatID, latest, item.CreatedAt); err != nil {
		return dto.MessageDTO{}, newError(ErrorCodeInternal, "failed to update chat", err)
	}
	chat.LatestMessage = &latest
	chat.UpdatedAt = item.CreatedAt

	populated, err := s.populate(ctx, item, chat)
	if err != nil {
		return dto.MessageDTO{}, err
	}

	if s.notifier != nil {
		// Delivery to connected clients is best effort; the message is
		// already durable.
		if err := s.notifier.MessageCreated(ctx, populated); err != nil {
			log.Printf("Failed to publish message %s: %v", item.MessageID, err)
		}
	}

	return populated, nil
}

// List returns a chat's full history in send order.
func (s *Service) List(ctx context.Context, callerID, chatID string) ([]dto.MessageDTO, error) {
	if chatID == "" {
		return nil, newError(ErrorCodeValidation, "chatId is required", nil)
	}

	chat, err := s.memberChat(ctx, callerID, chatID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListMessages(ctx, chatID)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to list messages", err)
	}

	senders, err := s.senderIndex(ctx, items)
	if err != nil {
		return nil, err
	}

	members, err := s.repo.GetUsers(ctx, chat.UserIDs)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to load chat members", err)
	}

	chatDTO := toChatDTO(chat)
	for _, u := range members {
		chatDTO.Users = append(chatDTO.Users, dto.UserDTO{ID: u.UserID, Name: u.Name, Email: u.Email, Pic: u.Pic})
	}
	messages := make([]dto.MessageDTO, 0, len(items))
	for _, item := range items {
		messages = append(messages, dto.MessageDTO{
			ID:        item.MessageID,
			Sender:    senders[item.SenderID],
			Content:   item.Content,
			Chat:      &chatDTO,
			CreatedAt: item.CreatedAt,
		})
	}
	return messages, nil
}

func (s *Service) memberChat(ctx context.Context, callerID, chatID string) (model.ChatItem, error) {
	chat, err := s.repo.GetChat(ctx, chatID)
	if errors.Is(err, ErrNotFound) {
		return model.ChatItem{}, newError(ErrorCodeNotFound, "chat not found", nil)
	} else if err != nil {
		return model.ChatItem{}, newError(ErrorCodeInternal, "failed to load chat", err)
	}

	for _, id := range chat.UserIDs {
		if id == callerID {
			return chat, nil
		}
	}
	return model.ChatItem{}, newError(ErrorCodeForbidden, "not a member of this chat", nil)
}

// populate expands a stored message into the wire shape the socket relays:
// sender and chat.users resolved to user DTOs.
func (s *Service) populate(ctx context.Context, item model.MessageItem, chat model.ChatItem) (dto.MessageDTO, error) {
	users, err := s.repo.GetUsers(ctx, chat.UserIDs)
	if err != nil {
		return dto.MessageDTO{}, newError(ErrorCodeInternal, "failed to load chat members", err)
	}

	chatDTO := toChatDTO(chat)
	var sender dto.UserDTO
	for _, u := range users {
		d := dto.UserDTO{ID: u.UserID, Name: u.Name, Email: u.Email, Pic: u.Pic}
		chatDTO.Users = append(chatDTO.Users, d)
		if u.UserID == item.SenderID {
			sender = d
		}
	}
	if sender.ID == "" {
		sender = dto.UserDTO{ID: item.SenderID}
	}

	return dto.MessageDTO{
		ID:        item.MessageID,
		Sender:    sender,
		Content:   item.Content,
		Chat:      &chatDTO,
		CreatedAt: item.CreatedAt,
	}, nil
}

func (s *Service) senderIndex(ctx context.Context, items []model.MessageItem) (map[string]dto.UserDTO, error) {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.SenderID]; ok {
			continue
		}
		seen[item.SenderID] = struct{}{}
		ids = append(ids, item.SenderID)
	}

	users, err := s.repo.GetUsers(ctx, ids)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to load senders", err)
	}

	index := make(map[string]dto.UserDTO, len(users))
	for _, u := range users {
		index[u.UserID] = dto.UserDTO{ID: u.UserID, Name: u.Name, Email: u.Email, Pic: u.Pic}
	}
	for _, id := range ids {
		if _, ok := index[id]; !ok {
			index[id] = dto.UserDTO{ID: id}
		}
	}
	return index, nil
}

// toChatDTO maps the stored chat without resolving members; callers fill
// Users when they need them.
func toChatDTO(chat model.ChatItem) dto.ChatDTO {
	return dto.ChatDTO{
		ID:          chat.ChatID,
		ChatName:    chat.ChatName,
		IsGroupChat: chat.IsGroupChat,
		CreatedAt:   chat.CreatedAt,
		UpdatedAt:   chat.UpdatedAt,
	}
}
