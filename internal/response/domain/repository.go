package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertSession(ctx context.Context, db *gorm.DB, session *AnswerSession) error
	// FindSessionByID loads a session with its answers.
	FindSessionByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*AnswerSession, error)
	UpdateSession(ctx context.Context, db *gorm.DB, session *AnswerSession) error
	// ListSubmitted returns submitted sessions of a form ordered by
	// submission time. A limit <= 0 means no limit.
	ListSubmitted(ctx context.Context, db *gorm.DB, formID snowflake.ID, offset, limit int) ([]AnswerSession, error)

	InsertAnswer(ctx context.Context, db *gorm.DB, answer *FieldAnswer) error
	FindAnswerByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*FieldAnswer, error)
	FindAnswer(ctx context.Context, db *gorm.DB, sessionID, fieldID snowflake.ID) (*FieldAnswer, error)
	UpdateAnswer(ctx context.Context, db *gorm.DB, answer *FieldAnswer) error
	DeleteAnswer(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
