package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating an administrator.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email_simple"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and account info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        AdminInfo `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// AdminInfo describes the authenticated account in responses.
type AdminInfo struct {
	ID       string    `json:"id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Lastname string    `json:"lastname"`
	Role     AdminRole `json:"role"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string    `json:"user_id"`
	AuthID string    `json:"auth_id"`
	Role   AdminRole `json:"role"`
	Email  string    `json:"email"`
	jwt.RegisteredClaims
}
