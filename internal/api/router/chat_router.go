package router

import (
	"net/http"

	"talkative-backend/internal/api"
	"talkative-backend/internal/api/endpoints"
	"talkative-backend/internal/api/middleware"
)

func ChatRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		var notifier endpoints.ChatNotifier
		if n := s.Notifier(); n != nil {
			notifier = n
		}

		chatEndpoints := endpoints.NewChatEndpoints(s.Database(), notifier)
		mux.HandleFunc(prefix+"/chat", s.MakeHTTPHandleFunc(chatEndpoints.Chats, middleware.ValidateUserJWT))
		mux.HandleFunc(prefix+"/chat/group", s.MakeHTTPHandleFunc(chatEndpoints.Group, middleware.ValidateUserJWT))
		mux.HandleFunc(prefix+"/chat/rename", s.MakeHTTPHandleFunc(chatEndpoints.Rename, middleware.ValidateUserJWT))
		mux.HandleFunc(prefix+"/chat/groupadd", s.MakeHTTPHandleFunc(chatEndpoints.GroupAdd, middleware.ValidateUserJWT))
		mux.HandleFunc(prefix+"/chat/groupremove", s.MakeHTTPHandleFunc(chatEndpoints.GroupRemove, middleware.ValidateUserJWT))
	}
}
