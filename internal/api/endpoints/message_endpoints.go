package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"talkative-backend/internal/database"
	"talkative-backend/internal/dto"
	messagesvc "talkative-backend/internal/service/message"
)

type MessageEndpoints interface {
	Send(http.ResponseWriter, *http.Request) error
	History(http.ResponseWriter, *http.Request) error
}

type messageEndpoints struct {
	service *messagesvc.Service
}

func NewMessageEndpoints(db *database.Database, notifier messagesvc.Notifier) MessageEndpoints {
	return &messageEndpoints{
		service: messagesvc.New(db, notifier),
	}
}

func (h *messageEndpoints) Send(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleSend,
	})
}

func (h *messageEndpoints) History(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleHistory,
	})
}

func (h *messageEndpoints) handleSend(w http.ResponseWriter, r *http.Request) error {
	identity, err := callerIdentity(r)
	if err != nil {
		return err
	}

	var req dto.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode send message request: %w", err),
		}
	}

	message, err := h.service.Send(r.Context(), identity.UserID, req.ChatID, req.Content)
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusCreated, message)
}

// handleHistory serves GET <prefix>/message/{chatId}; the chat id is the last
// path segment.
func (h *messageEndpoints) handleHistory(w http.ResponseWriter, r *http.Request) error {
	identity, err := callerIdentity(r)
	if err != nil {
		return err
	}

	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	chatID := segments[len(segments)-1]
	if chatID == "" || chatID == "message" {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Chat id is required",
			ErrorLog:   fmt.Errorf("missing chat id in path %s", r.URL.Path),
		}
	}

	messages, err := h.service.List(r.Context(), identity.UserID, chatID)
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, messages)
}

func (h *messageEndpoints) serviceError(err error) error {
	if err == nil {
		return nil
	}

	svcErr, ok := err.(*messagesvc.Error)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("message service: %w", err),
		}
	}

	var errorLog error
	if svcErr.Err != nil {
		errorLog = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	} else {
		errorLog = svcErr
	}

	switch svcErr.Code {
	case messagesvc.ErrorCodeValidation:
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    svcErr.Message,
			ErrorLog:   errorLog,
		}
	case messagesvc.ErrorCodeForbidden:
		return &HTTPError{
			StatusCode: http.StatusForbidden,
			Message:    svcErr.Message,
			ErrorLog:   errorLog,
		}
	case messagesvc.ErrorCodeNotFound:
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
