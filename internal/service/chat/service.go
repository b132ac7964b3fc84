package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"talkative-backend/internal/database"
	"talkative-backend/internal/dto"
	"talkative-backend/internal/model"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func New(db *database.Database) *Service {
	return &Service{
		repo: NewDynamoRepository(db),
		now:  time.Now,
	}
}

func NewWithRepository(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo: repo,
		now:  now,
	}
}

// AccessChat finds the 1:1 chat between the caller and the other user,
// creating it on first contact. The second return reports whether a chat was
// created, so the caller can publish a new-chat notification.
func (s *Service) AccessChat(ctx context.Context, callerID, otherUserID string) (dto.ChatDTO, bool, error) {
	otherUserID = strings.TrimSpace(otherUserID)
	if otherUserID == "" {
		return dto.ChatDTO{}, false, newError(ErrorCodeValidation, "userId is required", nil)
	}
	if otherUserID == callerID {
		return dto.ChatDTO{}, false, newError(ErrorCodeValidation, "cannot open a chat with yourself", nil)
	}

	if _, err := s.repo.GetUser(ctx, otherUserID); errors.Is(err, ErrNotFound) {
		return dto.ChatDTO{}, false, newError(ErrorCodeNotFound, "user not found", nil)
	} else if err != nil {
		return dto.ChatDTO{}, false, newError(ErrorCodeInternal, "failed to look up user", err)
	}

	existing, err := s.repo.FindDirectChat(ctx, callerID, otherUserID)
	if err == nil {
		populated, err := s.populate(ctx, existing)
		if err != nil {
			return dto.ChatDTO{}, false, err
		}
		return populated, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return dto.ChatDTO{}, false, newError(ErrorCodeInternal, "failed to look up chat", err)
	}

	now := s.now().UTC().Format(time.RFC3339)
	item := model.ChatItem{
		ChatID:      uuid.NewString(),
		ChatName:    "sender",
		IsGroupChat: false,
		UserIDs:     []string{callerID, otherUserID},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateChat(ctx, item); err != nil {
		return dto.ChatDTO{}, false, newError(ErrorCodeInternal, "failed to create chat", err)
	}

	populated, err := s.populate(ctx, item)
	if err != nil {
		return dto.ChatDTO{}, false, err
	}
	return populated, true, nil
}

// ListChats returns the caller's chats, most recently active first.
func (s *Service) ListChats(ctx context.Context, callerID string) ([]dto.ChatDTO, error) {
	items, err := s.repo.ListChatsForUser(ctx, callerID)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to list chats", err)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].UpdatedAt > items[j].UpdatedAt
	})

	chats := make([]dto.ChatDTO, 0, len(items))
	for _, item := range items {
		populated, err := s.populate(ctx, item)
		if err != nil {
			return nil, err
		}
		chats = append(chats, populated)
	}
	return chats, nil
}

func (s *Service) CreateGroup(ctx context.Context, callerID, name string, userIDs []string) (dto.ChatDTO, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return dto.ChatDTO{}, newError(ErrorCodeValidation, "group name is required", nil)
	}

	members := dedupe(append(userIDs, callerID))
	if len(members) < 3 {
		return dto.ChatDTO{}, newError(ErrorCodeValidation, "a group chat needs at least 2 other users", nil)
	}

	users, err := s.repo.GetUsers(ctx, members)
	if err != nil {
		return dto.ChatDTO{}, newError(ErrorCodeInternal, "failed to look up members", err)
	}
	if len(users) != len(members) {
		return dto.ChatDTO{}, newError(ErrorCodeNotFound, "one or more users do not exist", nil)
	}

	now := s.now().UTC().Format(time.RFC3339)
	item := model.ChatItem{
		ChatID:       uuid.NewString(),
		ChatName:     name,
		IsGroupChat:  true,
		UserIDs:      members,
		GroupAdminID: callerID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateChat(ctx, item); err != nil {
		return dto.ChatDTO{}, newError(ErrorCodeInternal, "failed to create group", err)
	}

	return s.populate(ctx, item)
}

func (s *Service) RenameGroup(ctx context.Context, callerID, chatID, chatName string) (dto.ChatDTO, error) {
	chatName = strings.TrimSpace(chatName)
	if chatID == "" || chatName == "" {
		return dto.ChatDTO{}, newError(ErrorCodeValidation, "chatId and chatName are required", nil)
	}

	item, err := s.memberChat(ctx, callerID, chatID)
	if err != nil {
		return dto.ChatDTO{}, err
	}
	if !item.IsGroupChat {
		return dto.ChatDTO{}, newError(ErrorCodeValidation, "only group chats can be renamed", nil)
	}

	updated, err := s.repo.RenameChat(ctx, chatID, chatName, s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return dto.ChatDTO{}, newError(ErrorCodeInternal, "failed to rename chat", err)
	}
	return s.populate(ctx, updated)
}

func (s *Service) AddToGroup(ctx context.Context, callerID, chatID, userID string) (dto.ChatDTO, error) {
	item, err := s.memberChat(ctx, callerID, chatID)
	if err != nil {
		return dto.ChatDTO{}, err
	}
	if !item.IsGroupChat {
		return dto.ChatDTO{}, newError(ErrorCodeValidation, "not a group chat", nil)
	}
	if item.GroupAdminID != callerID {
		return dto.ChatDTO{}, newError(ErrorCodeForbidden, "only the group admin can add users", nil)
	}
	if contains(item.UserIDs, userID) {
		return s.populate(ctx, item)
	}

	if _, err := s.repo.GetUser(ctx, userID); errors.Is(err, ErrNotFound) {
		return dto.ChatDTO{}, newError(ErrorCodeNotFound, "user not found", nil)
	} else if err != nil {
		return dto.ChatDTO{}, newError(ErrorCodeInternal, "failed to look up user", err)
	}

	updated, err := s.repo.SetChatMembers(ctx, chatID, append(item.UserIDs, userID), s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return dto.ChatDTO{}, newError(ErrorCodeInternal, "failed to add user", err)
	}
	return s.populate(ctx, updated)
}

// RemoveFromGroup removes a member. The admin can remove anyone; everyone
// else may only remove themselves (leaving the group).
func (s *Service) RemoveFromGroup(ctx context.Context, callerID, chatID, userID string) (dto.ChatDTO, error) {
	item, err := s.memberChat(ctx, callerID, chatID)
	if err != nil {
		return dto.ChatDTO{}, err
	}
	if !item.IsGroupChat {
		return dto.ChatDTO{}, newError(ErrorCodeValidation, "not a group chat", nil)
	}
	if item.GroupAdminID != callerID && callerID != userID {
		return dto.ChatDTO{}, newError(ErrorCodeForbidden, "only the group admin can remove other users", nil)
	}
	if !contains(item.UserIDs, userID) {
		return s.populate(ctx, item)
	}

	remaining := make([]string, 0, len(item.UserIDs)-1)
	for _, id := range item.UserIDs {
		if id != userID {
			remaining = append(remaining, id)
		}
	}

	updated, err := s.repo.SetChatMembers(ctx, chatID, remaining, s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return dto.ChatDTO{}, newError(ErrorCodeInternal, "failed to remove user", err)
	}
	return s.populate(ctx, updated)
}

// memberChat loads a chat and checks the caller belongs to it.
func (s *Service) memberChat(ctx context.Context, callerID, chatID string) (model.ChatItem, error) {
	item, err := s.repo.GetChat(ctx, chatID)
	if errors.Is(err, ErrNotFound) {
		return model.ChatItem{}, newError(ErrorCodeNotFound, "chat not found", nil)
	} else if err != nil {
		return model.ChatItem{}, newError(ErrorCodeInternal, "failed to load chat", err)
	}
	if !contains(item.UserIDs, callerID) {
		return model.ChatItem{}, newError(ErrorCodeForbidden, "not a member of this chat", nil)
	}
	return item, nil
}

// populate resolves member ids into user DTOs and expands the denormalised
// latest-message snapshot.
func (s *Service) populate(ctx context.Context, item model.ChatItem) (dto.ChatDTO, error) {
	users, err := s.repo.GetUsers(ctx, item.UserIDs)
	if err != nil {
		return dto.ChatDTO{}, newError(ErrorCodeInternal, "failed to load chat members", err)
	}

	byID := make(map[string]dto.UserDTO, len(users))
	members := make([]dto.UserDTO, 0, len(users))
	for _, u := range users {
		d := dto.UserDTO{ID: u.UserID, Name: u.Name, Email: u.Email, Pic: u.Pic}
		byID[u.UserID] = d
		members = append(members, d)
	}

	out := dto.ChatDTO{
		ID:          item.ChatID,
		ChatName:    item.ChatName,
		IsGroupChat: item.IsGroupChat,
		Users:       members,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}

	if item.GroupAdminID != "" {
		if admin, ok := byID[item.GroupAdminID]; ok {
			out.GroupAdmin = &admin
		}
	}

	if lm := item.LatestMessage; lm != nil {
		sender, ok := byID[lm.SenderID]
		if !ok {
			// The author may have left the group since.
			if u, err := s.repo.GetUser(ctx, lm.SenderID); err == nil {
				sender = dto.UserDTO{ID: u.UserID, Name: u.Name, Email: u.Email, Pic: u.Pic}
			} else {
				sender = dto.UserDTO{ID: lm.SenderID}
			}
		}
		out.LatestMessage = &dto.MessageDTO{
			ID:        lm.MessageID,
			Sender:    sender,
			Content:   lm.Content,
			CreatedAt: lm.CreatedAt,
		}
	}

	return out, nil
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
