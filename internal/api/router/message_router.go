package router

import (
	"net/http"

	"talkative-backend/internal/api"
	"talkative-backend/internal/api/endpoints"
	"talkative-backend/internal/api/middleware"
	messagesvc "talkative-backend/internal/service/message"
)

func MessageRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		var notifier messagesvc.Notifier
		if n := s.Notifier(); n != nil {
			notifier = n
		}

		messageEndpoints := endpoints.NewMessageEndpoints(s.Database(), notifier)
		mux.HandleFunc(prefix+"/message", s.MakeHTTPHandleFunc(messageEndpoints.Send, middleware.ValidateUserJWT))
		mux.HandleFunc(prefix+"/message/", s.MakeHTTPHandleFunc(messageEndpoints.History, middleware.ValidateUserJWT))
	}
}
