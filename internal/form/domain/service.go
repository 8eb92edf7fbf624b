package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/quillform/quillform/internal/identity/domain"
)

type Service interface {
	Create(ctx context.Context, actor *identitydomain.User, req CreateFormRequest) (*Form, error)
	Get(ctx context.Context, actor *identitydomain.User, formID snowflake.ID) (*Form, error)
	List(ctx context.Context, actor *identitydomain.User, page Page) ([]Form, error)
	ListOwn(ctx context.Context, actor *identitydomain.User, page Page) ([]Form, error)
	Update(ctx context.Context, actor *identitydomain.User, formID snowflake.ID, req UpdateFormRequest) (*Form, error)
	Delete(ctx context.Context, actor *identitydomain.User, formID snowflake.ID) error
	SetOpen(ctx context.Context, actor *identitydomain.User, formID snowflake.ID, open bool) error

	AddField(ctx context.Context, actor *identitydomain.User, req AddFieldRequest) (*FormField, error)
	Fields(ctx context.Context, actor *identitydomain.User, formID snowflake.ID) ([]FormField, error)
	UpdateField(ctx context.Context, actor *identitydomain.User, fieldID snowflake.ID, req UpdateFieldRequest) (*FormField, error)
	DeleteField(ctx context.Context, actor *identitydomain.User, fieldID snowflake.ID) error
}

type Page struct {
	Offset int
	Limit  int
}

type CreateFormRequest struct {
	Label            string
	Description      *string
	SubmissionsLimit *int
	Deadline         *time.Time
}

type UpdateFormRequest struct {
	Label            *string
	Description      *string
	SubmissionsLimit *int
	Deadline         *time.Time
}

type AddFieldRequest struct {
	FormID          snowflake.ID
	Label           string
	Description     string
	FieldType       FieldType
	Required        bool
	PossibleAnswers *string
	NumberBounds    *string
	TextBounds      *string
}

type UpdateFieldRequest struct {
	Label           *string
	Description     *string
	Position        *int
	FieldType       *FieldType
	Required        *bool
	PossibleAnswers *string
	NumberBounds    *string
	TextBounds      *string
}
