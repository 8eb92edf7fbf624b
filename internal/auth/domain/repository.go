package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// SessionRepository persists the three session kinds. Lookups are by token
// hash only; raw tokens never reach the store.
type SessionRepository interface {
	InsertLoginSession(ctx context.Context, db *gorm.DB, session *LoginSession) error
	FindLoginSessionByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*LoginSession, error)

	InsertAuthSession(ctx context.Context, db *gorm.DB, session *AuthSession) error
	FindAuthSessionByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*AuthSession, error)
	UpdateAuthSessionTries(ctx context.Context, db *gorm.DB, id snowflake.ID, tries int) error
	ExpireAuthSession(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	InsertVerificationSession(ctx context.Context, db *gorm.DB, session *AccountVerificationSession) error
	FindVerificationSessionByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*AccountVerificationSession, error)
	UpdateVerificationSessionTries(ctx context.Context, db *gorm.DB, id snowflake.ID, tries int) error
	DeleteVerificationSession(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	DeleteVerificationSessionsForUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) error
}
