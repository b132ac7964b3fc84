package endpoints

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"talkative-backend/internal/database"
	"talkative-backend/internal/dto"
	chatsvc "talkative-backend/internal/service/chat"
)

// ChatNotifier publishes chat-created events to the socket server so members
// see new conversations without refreshing.
type ChatNotifier interface {
	ChatCreated(ctx context.Context, chat dto.ChatDTO) error
}

type ChatEndpoints interface {
	Chats(http.ResponseWriter, *http.Request) error
	Group(http.ResponseWriter, *http.Request) error
	Rename(http.ResponseWriter, *http.Request) error
	GroupAdd(http.ResponseWriter, *http.Request) error
	GroupRemove(http.ResponseWriter, *http.Request) error
}

type chatEndpoints struct {
	service  *chatsvc.Service
	notifier ChatNotifier
}

func NewChatEndpoints(db *database.Database, notifier ChatNotifier) ChatEndpoints {
	return &chatEndpoints{
		service:  chatsvc.New(db),
		notifier: notifier,
	}
}

func (h *chatEndpoints) Chats(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleAccess,
		http.MethodGet:  h.handleList,
	})
}

func (h *chatEndpoints) Group(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleCreateGroup,
	})
}

func (h *chatEndpoints) Rename(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPut: h.handleRename,
	})
}

func (h *chatEndpoints) GroupAdd(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPut: h.handleGroupAdd,
	})
}

func (h *chatEndpoints) GroupRemove(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPut: h.handleGroupRemove,
	})
}

func (h *chatEndpoints) handleAccess(w http.ResponseWriter, r *http.Request) error {
	identity, err := callerIdentity(r)
	if err != nil {
		return err
	}

	var req dto.AccessChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode access chat request: %w", err),
		}
	}

	chat, created, err := h.service.AccessChat(r.Context(), identity.UserID, req.UserID)
	if err != nil {
		return h.serviceError(err)
	}

	if created {
		h.notifyChatCreated(r.Context(), chat)
	}

	return WriteJSON(w, http.StatusOK, chat)
}

func (h *chatEndpoints) handleList(w http.ResponseWriter, r *http.Request) error {
	identity, err := callerIdentity(r)
	if err != nil {
		return err
	}

	chats, err := h.service.ListChats(r.Context(), identity.UserID)
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, chats)
}

func (h *chatEndpoints) handleCreateGroup(w http.ResponseWriter, r *http.Request) error {
	identity, err := callerIdentity(r)
	if err != nil {
		return err
	}

	var req dto.CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode create group request: %w", err),
		}
	}

	chat, err := h.service.CreateGroup(r.Context(), identity.UserID, req.Name, req.Users)
	if err != nil {
		return h.serviceError(err)
	}

	h.notifyChatCreated(r.Context(), chat)

	return WriteJSON(w, http.StatusCreated, chat)
}

func (h *chatEndpoints) handleRename(w http.ResponseWriter, r *http.Request) error {
	identity, err := callerIdentity(r)
	if err != nil {
		return err
	}

	var req dto.RenameGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode rename request: %w", err),
		}
	}

	chat, err := h.service.RenameGroup(r.Context(), identity.UserID, req.ChatID, req.ChatName)
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, chat)
}

func (h *chatEndpoints) handleGroupAdd(w http.ResponseWriter, r *http.Request) error {
	identity, err := callerIdentity(r)
	if err != nil {
		return err
	}

	var req dto.GroupMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode group add request: %w", err),
		}
	}

	chat, err := h.service.AddToGroup(r.Context(), identity.UserID, req.ChatID, req.UserID)
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, chat)
}

func (h *chatEndpoints) handleGroupRemove(w http.ResponseWriter, r *http.Request) error {
	identity, err := callerIdentity(r)
	if err != nil {
		return err
	}

	var req dto.GroupMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode group remove request: %w", err),
		}
	}

	chat, err := h.service.RemoveFromGroup(r.Context(), identity.UserID, req.ChatID, req.UserID)
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, chat)
}

func (h *chatEndpoints) notifyChatCreated(ctx context.Context, chat dto.ChatDTO) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.ChatCreated(ctx, chat); err != nil {
		log.Printf("Failed to publish chat %s: %v", chat.ID, err)
	}
}

func (h *chatEndpoints) serviceError(err error) error {
	if err == nil {
		return nil
	}

	svcErr, ok := err.(*chatsvc.Error)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("chat service: %w", err),
		}
	}

	var errorLog error
	if svcErr.Err != nil {
		errorLog = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	} else {
		errorLog = svcErr
	}

	switch svcErr.Code {
	case chatsvc.ErrorCodeValidation:
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    svcErr.Message,
			ErrorLog:   errorLog,
		}
	case chatsvc.ErrorCodeForbidden:
		return &HTTPError{
			StatusCode: http.StatusForbidden,
			Message:    svcErr.Message,
			ErrorLog:   errorLog,
		}
	case chatsvc.ErrorCodeNotFound:
		return &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    svcErr.Message,
			ErrorLog:   errorLog,
		}
	default:
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   errorLog,
		}
	}
}
