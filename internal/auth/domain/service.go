package domain

import (
	"context"
	"time"

	identitydomain "github.com/quillform/quillform/internal/identity/domain"
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) error
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Authenticate(ctx context.Context, req AuthenticateRequest) (*AuthenticateResult, error)
	VerifyAccount(ctx context.Context, req VerifyAccountRequest) error
	SendVerification(ctx context.Context, email string) error
	CurrentUser(ctx context.Context, rawLoginToken string) (*identitydomain.User, error)
	OptionalCurrentUser(ctx context.Context, rawLoginToken string) *identitydomain.User
}

type RegisterRequest struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
	Name            string
}

type LoginRequest struct {
	Email    string
	Password string
}

// LoginResult carries the pre-auth credential for the _auths cookie.
type LoginResult struct {
	AuthSessionToken string
	ExpiresAt        time.Time
}

type AuthenticateRequest struct {
	AuthSessionToken string
	OTP              string
}

// AuthenticateResult carries the raw login token for the user_session_id
// cookie.
type AuthenticateResult struct {
	LoginToken string
	ExpiresAt  time.Time
}

type VerifyAccountRequest struct {
	SessionID string
	OTP       string
}
