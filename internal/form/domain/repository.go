package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrFormNotFound     = errors.New("form_not_found")
	ErrFieldNotFound    = errors.New("field_not_found")
	ErrInvalidFieldType = errors.New("invalid_field_type")
	ErrMissingChoices   = errors.New("missing_possible_answers")
)

type Repository interface {
	InsertForm(ctx context.Context, db *gorm.DB, form *Form) error
	FindFormByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Form, error)
	ListForms(ctx context.Context, db *gorm.DB, offset, limit int) ([]Form, error)
	ListFormsByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, offset, limit int) ([]Form, error)
	UpdateForm(ctx context.Context, db *gorm.DB, form *Form) error
	DeleteForm(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	InsertField(ctx context.Context, db *gorm.DB, field *FormField) error
	FindFieldByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*FormField, error)
	ListFields(ctx context.Context, db *gorm.DB, formID snowflake.ID) ([]FormField, error)
	UpdateField(ctx context.Context, db *gorm.DB, field *FormField) error
	DeleteField(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
