package endpoints

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"talkative-backend/internal/dto"

	"github.com/google/uuid"
)

// maxProfileImageBytes caps the accepted upload size; the frontend resizes
// avatars client-side well below this.
const maxProfileImageBytes = 5 << 20

var profileImageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

type UploadEndpoints interface {
	ProfileImage(http.ResponseWriter, *http.Request) error
}

type uploadEndpoints struct {
	uploadDir string
}

func NewUploadEndpoints(uploadDir string) UploadEndpoints {
	return &uploadEndpoints{uploadDir: uploadDir}
}

func (h *uploadEndpoints) ProfileImage(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleProfileImage,
	})
}

// handleProfileImage stores a multipart "image" part on disk and returns the
// URL it will be served from. The route is anonymous on purpose: the avatar
// is picked during registration, before any token exists.
func (h *uploadEndpoints) handleProfileImage(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxProfileImageBytes)

	file, _, err := r.FormFile("image")
	if err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Image file is required",
			ErrorLog:   fmt.Errorf("read multipart image: %w", err),
		}
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Could not read image",
			ErrorLog:   fmt.Errorf("sniff image content: %w", err),
		}
	}

	contentType := http.DetectContentType(head[:n])
	ext, ok := profileImageExtensions[contentType]
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Only JPEG and PNG images are accepted",
			ErrorLog:   fmt.Errorf("unsupported upload content type %s", contentType),
		}
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("create upload dir: %w", err),
		}
	}

	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(h.uploadDir, name))
	if err != nil {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("create upload file: %w", err),
		}
	}
	defer dst.Close()

	if _, err := dst.Write(head[:n]); err != nil {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("write upload file: %w", err),
		}
	}
	if _, err := io.Copy(dst, file); err != nil {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("write upload file: %w", err),
		}
	}

	return WriteJSON(w, http.StatusCreated, dto.UploadResponse{
		Pic: "/uploads/" + name,
	})
}
