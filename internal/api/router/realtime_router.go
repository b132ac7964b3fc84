package router

import (
	"net/http"

	"talkative-backend/internal/api"
	"talkative-backend/internal/realtime"
)

// RealtimeRoutes mounts the websocket endpoint directly: the upgrade
// hijacks the connection, so it cannot run through the request queue.
func RealtimeRoutes(handler *realtime.Handler) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		mux.HandleFunc("/ws", handler.Socket)
	}
}
