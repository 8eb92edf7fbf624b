// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SessionState is derived, never stored. A session's validity is always
// recomputed from its flags, counters and the current time.
type SessionState string

const (
	StateActive    SessionState = "active"
	StateConsumed  SessionState = "consumed"
	StateExpired   SessionState = "expired"
	StateExhausted SessionState = "exhausted"
)

// DeriveState is the single state function for all session kinds. maxTries
// of zero disables the exhaustion rule (login sessions carry no counter).
func DeriveState(consumed bool, expiresAt time.Time, tries, maxTries int, now time.Time) SessionState {
	switch {
	case consumed:
		return StateConsumed
	case !now.Before(expiresAt):
		return StateExpired
	case maxTries > 0 && tries >= maxTries:
		return StateExhausted
	default:
		return StateActive
	}
}

// LoginSession is the final authenticated state. The raw token lives only in
// the user_session_id cookie; the store keeps its hash.
type LoginSession struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	TokenHash string       `gorm:"column:token_hash;type:text;not null;uniqueIndex"`
	UserID    snowflake.ID `gorm:"column:user_id;not null;index"`
	ExpiresAt time.Time    `gorm:"column:expires_at;not null;index"`
	Expired   bool         `gorm:"column:expired;not null;default:false"`
	CreatedAt time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
}

func (LoginSession) TableName() string { return "login_sessions" }

func (s LoginSession) State(now time.Time) SessionState {
	return DeriveState(s.Expired, s.ExpiresAt, 0, 0, now)
}

// AuthSession represents "password verified, OTP pending". Its opaque id is
// set as the _auths cookie; consuming it flips Expired and mints a
// LoginSession.
type AuthSession struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	TokenHash string       `gorm:"column:token_hash;type:text;not null;uniqueIndex"`
	UserID    snowflake.ID `gorm:"column:user_id;not null;index"`
	OTP       string       `gorm:"column:otp;type:text;not null"`
	Tries     int          `gorm:"column:tries;not null;default:0"`
	MaxTries  int          `gorm:"column:max_tries;not null"`
	ExpiresAt time.Time    `gorm:"column:expires_at;not null;index"`
	Expired   bool         `gorm:"column:expired;not null;default:false"`
	CreatedAt time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
}

func (AuthSession) TableName() string { return "auth_sessions" }

func (s AuthSession) State(now time.Time) SessionState {
	return DeriveState(s.Expired, s.ExpiresAt, s.Tries, s.MaxTries, now)
}

// AccountVerificationSession represents "registered, email ownership
// pending". Consuming it deletes the row and marks the owner verified.
type AccountVerificationSession struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	TokenHash string       `gorm:"column:token_hash;type:text;not null;uniqueIndex"`
	UserID    snowflake.ID `gorm:"column:user_id;not null;index"`
	OTP       string       `gorm:"column:otp;type:text;not null"`
	Tries     int          `gorm:"column:tries;not null;default:0"`
	MaxTries  int          `gorm:"column:max_tries;not null"`
	ExpiresAt time.Time    `gorm:"column:expires_at;not null;index"`
	Expired   bool         `gorm:"column:expired;not null;default:false"`
	CreatedAt time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
}

func (AccountVerificationSession) TableName() string { return "account_verification_sessions" }

func (s AccountVerificationSession) State(now time.Time) SessionState {
	return DeriveState(s.Expired, s.ExpiresAt, s.Tries, s.MaxTries, now)
}
