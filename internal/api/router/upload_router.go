package router

import (
	"net/http"

	"talkative-backend/internal/api"
	"talkative-backend/internal/api/endpoints"
	"talkative-backend/internal/env"
)

// UploadRoutes registers the profile-image upload endpoint and serves the
// stored files back under /uploads/. The file server bypasses the request
// queue; it never touches the database.
func UploadRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		uploadDir := env.GetOrDefault(env.UploadDir, "./uploads")

		uploadEndpoints := endpoints.NewUploadEndpoints(uploadDir)
		mux.HandleFunc(prefix+"/upload/profile-image", s.MakeHTTPHandleFunc(uploadEndpoints.ProfileImage))
		mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadDir))))
	}
}
