package dto

import "github.com/google/uuid"

type UpdateTimezoneRequest struct {
	Timezone string `json:"timezone" binding:"required,max=64"`
}

type MeResponse struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	Timezone string    `json:"timezone"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
