package message

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"talkative-backend/internal/dto"
	"talkative-backend/internal/model"
)

type memoryRepository struct {
	mu       sync.Mutex
	messages []model.MessageItem
	chats    map[string]model.ChatItem
	users    map[string]model.UserItem
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		chats: make(map[string]model.ChatItem),
		users: make(map[string]model.UserItem),
	}
}

func (m *memoryRepository) addUser(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = model.UserItem{UserID: id, Name: name, Email: name + "@example.com"}
}

func (m *memoryRepository) addChat(chat model.ChatItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats[chat.ChatID] = chat
}

func (m *memoryRepository) CreateMessage(ctx context.Context, msg model.MessageItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *memoryRepository) ListMessages(ctx context.Context, chatID string) ([]model.MessageItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.MessageItem
	for _, msg := range m.messages {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	// Sorted like a range query over the sort key.
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

func (m *memoryRepository) GetChat(ctx context.Context, chatID string) (model.ChatItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[chatID]
	if !ok {
		return model.ChatItem{}, ErrNotFound
	}
	return chat, nil
}

func (m *memoryRepository) SetLatestMessage(ctx context.Context, chatID string, latest model.LatestMessage, updatedAt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[chatID]
	if !ok {
		return ErrNotFound
	}
	chat.LatestMessage = &latest
	chat.UpdatedAt = updatedAt
	m.chats[chatID] = chat
	return nil
}

func (m *memoryRepository) GetUsers(ctx context.Context, userIDs []string) ([]model.UserItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]model.UserItem, 0, len(userIDs))
	for _, id := range userIDs {
		if user, ok := m.users[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []dto.MessageDTO
}

func (n *recordingNotifier) MessageCreated(ctx context.Context, message dto.MessageDTO) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

func newTestService() (*Service, *memoryRepository, *recordingNotifier, *time.Time) {
	repo := newMemoryRepository()
	notifier := &recordingNotifier{}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := NewWithRepository(repo, notifier, func() time.Time { return now })
	return svc, repo, notifier, &now
}

func seedDirectChat(repo *memoryRepository) {
	repo.addUser("u1", "alice")
	repo.addUser("u2", "bob")
	repo.addChat(model.ChatItem{
		ChatID:  "c1",
		UserIDs: []string{"u1", "u2"},
	})
}

func TestSendStoresAndPopulates(t *testing.T) {
	svc, repo, notifier, _ := newTestService()
	seedDirectChat(repo)
	ctx := context.Background()

	msg, err := svc.Send(ctx, "u1", "c1", "hello bob")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.ID == "" {
		t.Fatal("expected a generated message id")
	}
	if msg.Sender.ID != "u1" || msg.Sender.Name != "alice" {
		t.Fatalf("sender not populated: %+v", msg.Sender)
	}
	if msg.Chat == nil || msg.Chat.ID != "c1" || len(msg.Chat.Users) != 2 {
		t.Fatalf("chat not populated: %+v", msg.Chat)
	}

	chat, err := repo.GetChat(ctx, "c1")
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	if chat.LatestMessage == nil || chat.LatestMessage.Content != "hello bob" {
		t.Fatalf("latest-message snapshot not updated: %+v", chat.LatestMessage)
	}
	if chat.UpdatedAt != msg.CreatedAt {
		t.Fatalf("chat activity not bumped: %s vs %s", chat.UpdatedAt, msg.CreatedAt)
	}

	if len(notifier.messages) != 1 || notifier.messages[0].ID != msg.ID {
		t.Fatalf("message not published, got %v", notifier.messages)
	}
}

func TestSendRequiresMembership(t *testing.T) {
	svc, repo, _, _ := newTestService()
	seedDirectChat(repo)
	repo.addUser("u3", "carol")
	ctx := context.Background()

	_, err := svc.Send(ctx, "u3", "c1", "let me in")
	if !isCode(err, ErrorCodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	_, err = svc.Send(ctx, "u1", "missing", "hi")
	if !isCode(err, ErrorCodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	_, err = svc.Send(ctx, "u1", "c1", "   ")
	if !isCode(err, ErrorCodeValidation) {
		t.Fatalf("blank content: expected validation error, got %v", err)
	}
}

func TestListReturnsSendOrder(t *testing.T) {
	svc, repo, _, now := newTestService()
	seedDirectChat(repo)
	ctx := context.Background()

	for i, content := range []string{"one", "two", "three"} {
		sender := "u1"
		if i%2 == 1 {
			sender = "u2"
		}
		if _, err := svc.Send(ctx, sender, "c1", content); err != nil {
			t.Fatalf("send %q: %v", content, err)
		}
		*now = now.Add(time.Millisecond)
	}

	messages, err := svc.List(ctx, "u2", "c1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	for i, want := range []string{"one", "two", "three"} {
		if messages[i].Content != want {
			t.Fatalf("message %d out of order: got %q want %q", i, messages[i].Content, want)
		}
	}
	if messages[1].Sender.Name != "bob" {
		t.Fatalf("sender not resolved: %+v", messages[1].Sender)
	}
	if messages[0].Chat == nil || len(messages[0].Chat.Users) != 2 {
		t.Fatalf("chat members not resolved: %+v", messages[0].Chat)
	}
}

func TestListRequiresMembership(t *testing.T) {
	svc, repo, _, _ := newTestService()
	seedDirectChat(repo)
	repo.addUser("u3", "carol")

	_, err := svc.List(context.Background(), "u3", "c1")
	if !isCode(err, ErrorCodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreatedAtSortsLexicographically(t *testing.T) {
	times := []time.Time{
		time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 1, 12, 0, 0, 100, time.UTC),
		time.Date(2024, 5, 1, 12, 0, 1, 0, time.UTC),
		time.Date(2024, 5, 1, 12, 0, 10, 0, time.UTC),
	}

	var previous string
	for _, ts := range times {
		formatted := ts.Format(createdAtLayout)
		if previous != "" && !(previous < formatted) {
			t.Fatalf("%q does not sort before %q", previous, formatted)
		}
		previous = formatted
	}
}

func isCode(err error, code ErrorCode) bool {
	var svcErr *Error
	return errors.As(err, &svcErr) && svcErr.Code == code
}
