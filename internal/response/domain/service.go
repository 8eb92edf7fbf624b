package domain

import (
	"context"
	"io"

	"github.com/bwmarrin/snowflake"
	formdomain "github.com/quillform/quillform/internal/form/domain"
	identitydomain "github.com/quillform/quillform/internal/identity/domain"
)

// Validator checks a single answer value against its field definition.
// Errors wrap ErrInvalidAnswer.
type Validator interface {
	Validate(field *formdomain.FormField, value *string) error
}

type Service interface {
	// Respond upserts one answer. When sessionID is nil a fresh session is
	// opened; the returned session id goes back to the respondent's cookie.
	// Values are not validated here, only at submission.
	Respond(ctx context.Context, sessionID *snowflake.ID, req RespondRequest) (*FieldAnswer, snowflake.ID, error)
	// Save upserts a batch of answers, validating each one immediately.
	Save(ctx context.Context, sessionID *snowflake.ID, req SaveRequest) (*AnswerSession, error)
	// Submit validates every stored answer, checks that all required fields
	// are answered and seals the session.
	Submit(ctx context.Context, sessionID snowflake.ID) error
	EditAnswer(ctx context.Context, sessionID snowflake.ID, answerID snowflake.ID, value string) error
	// DeleteAnswer removes an answer, either on behalf of the session owner
	// or by a caller holding a global response grant.
	DeleteAnswer(ctx context.Context, actor *identitydomain.User, sessionID *snowflake.ID, answerID snowflake.ID) error
	Session(ctx context.Context, sessionID snowflake.ID) (*AnswerSession, error)

	ListResponses(ctx context.Context, actor *identitydomain.User, formID snowflake.ID, page formdomain.Page) ([]AnswerSession, error)
	// ExportCSV writes all submitted responses of a form as CSV and returns
	// the suggested attachment filename.
	ExportCSV(ctx context.Context, actor *identitydomain.User, formID snowflake.ID, w io.Writer) (string, error)
}

type RespondRequest struct {
	FieldID snowflake.ID
	Value   *string
}

type SaveRequest struct {
	FormID  snowflake.ID
	Answers map[snowflake.ID]*string
}
