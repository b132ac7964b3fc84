package dto

// UploadResponse carries the public URL of a stored image. Clients put it
// straight into the pic field when registering.
type UploadResponse struct {
	Pic string `json:"pic"`
}
