package realtime

import (
	"errors"
	"log"
	"net/http"
	"strings"

	internaljwt "talkative-backend/internal/jwt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Verifier validates the bearer credential presented at connection time.
type Verifier func(token string) (internaljwt.Identity, error)

type Handler struct {
	hub    *Hub
	verify Verifier
}

func NewHandler(h *Hub, verify Verifier) *Handler {
	if verify == nil {
		verify = internaljwt.Verify
	}
	return &Handler{
		hub:    h,
		verify: verify,
	}
}

// Socket admits a websocket connection. All rejections happen before the
// upgrade, so a refused credential leaves no partial registry state behind.
func (h *Handler) Socket(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "Authentication error: No token provided", http.StatusUnauthorized)
		return
	}

	identity, err := h.verify(token)
	if err != nil {
		http.Error(w, authErrorMessage(err), http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		log.Printf("Upgrade failed for user %s: %v", identity.UserID, err)
		return
	}

	c := newConn(ws, uuid.NewString(), identity.UserID)
	h.hub.Attach(c)

	go c.keepAlive()
	go c.writePump()
	go c.readPump(h.hub)

	log.Printf("Connection %s admitted for user %s", c.ID, c.UserID)
}

// bearerToken reads the credential from the Authorization header or, since
// browser WebSocket clients cannot set headers, from the token query
// parameter.
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// authErrorMessage keeps the client-visible rejection strings stable:
// expired credentials prompt a refresh-and-retry, invalid ones a logout.
func authErrorMessage(err error) string {
	switch {
	case errors.Is(err, internaljwt.ErrTokenExpired):
		return "jwt expired"
	case errors.Is(err, internaljwt.ErrTokenInvalid):
		return "Invalid token"
	default:
		return "Authentication error: " + err.Error()
	}
}
