package authapi

import "fmt"

// Credentials is the authenticate request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// JWTResponse matches the backend JwtResponse DTO: both tokens plus user
// metadata.
type JWTResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Type         string `json:"type"`
	ID           string `json:"id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
}

// RefreshResponse is the refreshtoken response. The backend rotates only the
// access token; the refresh token in the store stays as issued at login.
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// AccountRequest covers the account creation and registration operations.
// The backend accepts a sparse body, so every field is optional.
type AccountRequest struct {
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	FullName string `json:"fullName,omitempty"`
	Role     string `json:"role,omitempty"`
	SSID     string `json:"ssid,omitempty"`
	NIN      string `json:"nin,omitempty"`
	RecordID string `json:"recordId,omitempty"`
}

// APIError is a non-2xx backend response.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}
