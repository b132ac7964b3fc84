package router

import (
	"net/http"

	"talkative-backend/internal/api"
	"talkative-backend/internal/api/endpoints"
)

func AuthRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		authEndpoints := endpoints.NewAuthEndpoints(s.Database())
		mux.HandleFunc(prefix+"/user", s.MakeHTTPHandleFunc(authEndpoints.Users))
		mux.HandleFunc(prefix+"/user/login", s.MakeHTTPHandleFunc(authEndpoints.Login))
		mux.HandleFunc(prefix+"/user/refresh", s.MakeHTTPHandleFunc(authEndpoints.Refresh))
	}
}
