package dto

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Pic      string `json:"pic,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshResponse struct {
	Token string `json:"token"`
}

// AuthResponse mirrors the shape browser clients already consume:
// a flat user object with the access token alongside.
type AuthResponse struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Pic          string `json:"pic,omitempty"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
}
