package endpoints

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"talkative-backend/internal/api"
	"talkative-backend/internal/api/middleware"
	"talkative-backend/internal/dto"
	internaljwt "talkative-backend/internal/jwt"
	"talkative-backend/internal/model"
	"talkative-backend/internal/queue"
	chatsvc "talkative-backend/internal/service/chat"

	"github.com/prometheus/client_golang/prometheus"
)

type chatTestRepository struct {
	mu    sync.Mutex
	chats map[string]model.ChatItem
	users map[string]model.UserItem
}

func newChatTestRepository() *chatTestRepository {
	return &chatTestRepository{
		chats: make(map[string]model.ChatItem),
		users: make(map[string]model.UserItem),
	}
}

func (m *chatTestRepository) addUser(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = model.UserItem{UserID: id, Name: name, Email: name + "@example.com"}
}

func (m *chatTestRepository) CreateChat(ctx context.Context, chat model.ChatItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats[chat.ChatID] = chat
	return nil
}

func (m *chatTestRepository) GetChat(ctx context.Context, chatID string) (model.ChatItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[chatID]
	if !ok {
		return model.ChatItem{}, chatsvc.ErrNotFound
	}
	return chat, nil
}

func (m *chatTestRepository) RenameChat(ctx context.Context, chatID, chatName, updatedAt string) (model.ChatItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[chatID]
	if !ok {
		return model.ChatItem{}, chatsvc.ErrNotFound
	}
	chat.ChatName = chatName
	chat.UpdatedAt = updatedAt
	m.chats[chatID] = chat
	return chat, nil
}

func (m *chatTestRepository) SetChatMembers(ctx context.Context, chatID string, userIDs []string, updatedAt string) (model.ChatItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[chatID]
	if !ok {
		return model.ChatItem{}, chatsvc.ErrNotFound
	}
	chat.UserIDs = userIDs
	chat.UpdatedAt = updatedAt
	m.chats[chatID] = chat
	return chat, nil
}

func (m *chatTestRepository) ListChatsForUser(ctx context.Context, userID string) ([]model.ChatItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ChatItem
	for _, chat := range m.chats {
		for _, id := range chat.UserIDs {
			if id == userID {
				out = append(out, chat)
				break
			}
		}
	}
	return out, nil
}

func (m *chatTestRepository) FindDirectChat(ctx context.Context, userA, userB string) (model.ChatItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, chat := range m.chats {
		if chat.IsGroupChat {
			continue
		}
		var hasA, hasB bool
		for _, id := range chat.UserIDs {
			hasA = hasA || id == userA
			hasB = hasB || id == userB
		}
		if hasA && hasB {
			return chat, nil
		}
	}
	return model.ChatItem{}, chatsvc.ErrNotFound
}

func (m *chatTestRepository) GetUser(ctx context.Context, userID string) (model.UserItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return model.UserItem{}, chatsvc.ErrNotFound
	}
	return user, nil
}

func (m *chatTestRepository) GetUsers(ctx context.Context, userIDs []string) ([]model.UserItem, error) {
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

type recordingChatNotifier struct {
	mu    sync.Mutex
	chats []dto.ChatDTO
}

func (n *recordingChatNotifier) ChatCreated(ctx context.Context, chat dto.ChatDTO) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.chats = append(n.chats, chat)
	return nil
}

// bearerFor issues a real signed token, so the auth middleware resolves the
// same user id the services see.
func bearerFor(t *testing.T, userID string) map[string]string {
	t.Helper()
	token, err := internaljwt.CreateToken(internaljwt.User{Id: userID, Email: userID + "@example.com"}, 0)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

func setupChatHandler(t *testing.T, repo *chatTestRepository, notifier *recordingChatNotifier) (http.Handler, func()) {
	t.Helper()
	internaljwt.SetSecret("test-secret")
	t.Cleanup(func() { internaljwt.SetSecret("") })

	var nf ChatNotifier
	if notifier != nil {
		nf = notifier
	}

	svc := chatsvc.NewWithRepository(repo, func() time.Time { return fixedTime() })
	chatEndpoints := &chatEndpoints{service: svc, notifier: nf}

	queueManager := queue.NewRequestQueueManager(10, 1)
	server := api.NewAPIServerWithRegisterer(":0", queueManager, nil, nil, prometheus.NewRegistry())

	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", server.MakeHTTPHandleFunc(chatEndpoints.Chats, middleware.ValidateUserJWT))
	mux.HandleFunc("/api/chat/group", server.MakeHTTPHandleFunc(chatEndpoints.Group, middleware.ValidateUserJWT))
	mux.HandleFunc("/api/chat/rename", server.MakeHTTPHandleFunc(chatEndpoints.Rename, middleware.ValidateUserJWT))
	mux.HandleFunc("/api/chat/groupadd", server.MakeHTTPHandleFunc(chatEndpoints.GroupAdd, middleware.ValidateUserJWT))
	mux.HandleFunc("/api/chat/groupremove", server.MakeHTTPHandleFunc(chatEndpoints.GroupRemove, middleware.ValidateUserJWT))

	return mux, func() {
		queueManager.Shutdown()
	}
}

func doRawRequest(t *testing.T, handler http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestChatAccessPublishesNewChatOnce(t *testing.T) {
	repo := newChatTestRepository()
	repo.addUser("u1", "alice")
	repo.addUser("u2", "bob")
	notifier := &recordingChatNotifier{}

	handler, cleanup := setupChatHandler(t, repo, notifier)
	defer cleanup()

	headers := bearerFor(t, "u1")

	first := doJSONRequest[dto.ChatDTO](t, handler, http.MethodPost, "/api/chat", dto.AccessChatRequest{UserID: "u2"}, headers, http.StatusOK)
	if first.ID == "" || len(first.Users) != 2 {
		t.Fatalf("unexpected chat response: %+v", first)
	}

	second := doJSONRequest[dto.ChatDTO](t, handler, http.MethodPost, "/api/chat", dto.AccessChatRequest{UserID: "u2"}, headers, http.StatusOK)
	if second.ID != first.ID {
		t.Fatalf("expected the same chat, got %s and %s", first.ID, second.ID)
	}

	if len(notifier.chats) != 1 {
		t.Fatalf("expected one chat-created event, got %d", len(notifier.chats))
	}
}

func TestChatListRequiresToken(t *testing.T) {
	repo := newChatTestRepository()
	handler, cleanup := setupChatHandler(t, repo, nil)
	defer cleanup()

	rec := doRawRequest(t, handler, http.MethodGet, "/api/chat", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestGroupLifecycleOverHTTP(t *testing.T) {
	repo := newChatTestRepository()
	repo.addUser("u1", "alice")
	repo.addUser("u2", "bob")
	repo.addUser("u3", "carol")
	repo.addUser("u4", "dave")
	notifier := &recordingChatNotifier{}

	handler, cleanup := setupChatHandler(t, repo, notifier)
	defer cleanup()

	admin := bearerFor(t, "u1")
	member := bearerFor(t, "u2")

	group := doJSONRequest[dto.ChatDTO](t, handler, http.MethodPost, "/api/chat/group", dto.CreateGroupRequest{
		Name:  "team",
		Users: []string{"u2", "u3"},
	}, admin, http.StatusCreated)
	if !group.IsGroupChat || group.GroupAdmin == nil || group.GroupAdmin.ID != "u1" {
		t.Fatalf("unexpected group: %+v", group)
	}
	if len(notifier.chats) != 1 {
		t.Fatalf("expected group creation to publish, got %d events", len(notifier.chats))
	}

	renamed := doJSONRequest[dto.ChatDTO](t, handler, http.MethodPut, "/api/chat/rename", dto.RenameGroupRequest{
		ChatID:   group.ID,
		ChatName: "renamed",
	}, member, http.StatusOK)
	if renamed.ChatName != "renamed" {
		t.Fatalf("rename did not stick: %s", renamed.ChatName)
	}

	doJSONRequest[api.ApiError](t, handler, http.MethodPut, "/api/chat/groupadd", dto.GroupMemberRequest{
		ChatID: group.ID,
		UserID: "u4",
	}, member, http.StatusForbidden)

	grown := doJSONRequest[dto.ChatDTO](t, handler, http.MethodPut, "/api/chat/groupadd", dto.GroupMemberRequest{
		ChatID: group.ID,
		UserID: "u4",
	}, admin, http.StatusOK)
	if len(grown.Users) != 4 {
		t.Fatalf("expected 4 members, got %d", len(grown.Users))
	}

	left := doJSONRequest[dto.ChatDTO](t, handler, http.MethodPut, "/api/chat/groupremove", dto.GroupMemberRequest{
		ChatID: group.ID,
		UserID: "u2",
	}, member, http.StatusOK)
	for _, u := range left.Users {
		if u.ID == "u2" {
			t.Fatal("u2 still a member after leaving")
		}
	}
}
