package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/quillform/quillform/internal/authorization"
	"github.com/quillform/quillform/internal/clock"
	formdomain "github.com/quillform/quillform/internal/form/domain"
	identitydomain "github.com/quillform/quillform/internal/identity/domain"
	"github.com/quillform/quillform/internal/response/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	genID     *snowflake.Node
	repo      domain.Repository
	forms     formdomain.Repository
	identity  identitydomain.Repository
	evaluator *authorization.Evaluator
	validator domain.Validator
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	GenID     *snowflake.Node
	Repo      domain.Repository
	Forms     formdomain.Repository
	Identity  identitydomain.Repository
	Evaluator *authorization.Evaluator
	Validator domain.Validator
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("response.service"),
		clock:     p.Clock,
		genID:     p.GenID,
		repo:      p.Repo,
		forms:     p.Forms,
		identity:  p.Identity,
		evaluator: p.Evaluator,
		validator: p.Validator,
	}
}

func (s *Service) roles(ctx context.Context, actor *identitydomain.User) ([]identitydomain.Role, error) {
	if actor == nil {
		return nil, authorization.ErrUnauthorized
	}
	return s.identity.RolesForUser(ctx, s.db, actor.ID)
}

// acceptingForm rejects with the most specific condition first.
func (s *Service) acceptingForm(ctx context.Context, formID snowflake.ID) (*formdomain.Form, error) {
	form, err := s.forms.FindFormByID(ctx, s.db, formID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if !form.Open {
		return nil, domain.ErrFormClosed
	}
	if form.Deadline != nil && !now.Before(*form.Deadline) {
		return nil, domain.ErrDeadlineReached
	}
	if form.SubmissionsLimit != nil && form.Submissions >= *form.SubmissionsLimit {
		return nil, domain.ErrSubmissionsLimit
	}
	return form, nil
}

func (s *Service) sessionOrNew(ctx context.Context, db *gorm.DB, sessionID *snowflake.ID, formID snowflake.ID) (*domain.AnswerSession, error) {
	if sessionID != nil {
		return s.repo.FindSessionByID(ctx, db, *sessionID)
	}
	session := &domain.AnswerSession{ID: s.genID.Generate(), FormID: formID}
	if err := s.repo.InsertSession(ctx, db, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Service) upsertAnswer(ctx context.Context, db *gorm.DB, sessionID, fieldID snowflake.ID, value *string) (*domain.FieldAnswer, error) {
	answer, err := s.repo.FindAnswer(ctx, db, sessionID, fieldID)
	if err != nil {
		return nil, err
	}
	if answer == nil {
		answer = &domain.FieldAnswer{
			ID:        s.genID.Generate(),
			SessionID: sessionID,
			FieldID:   fieldID,
			Value:     value,
		}
		return answer, s.repo.InsertAnswer(ctx, db, answer)
	}
	answer.Value = value
	return answer, s.repo.UpdateAnswer(ctx, db, answer)
}

func (s *Service) Respond(ctx context.Context, sessionID *snowflake.ID, req domain.RespondRequest) (*domain.FieldAnswer, snowflake.ID, error) {
	field, err := s.forms.FindFieldByID(ctx, s.db, req.FieldID)
	if err != nil {
		return nil, 0, err
	}
	if _, err := s.acceptingForm(ctx, field.FormID); err != nil {
		return nil, 0, err
	}

	var answer *domain.FieldAnswer
	var session *domain.AnswerSession
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		session, err = s.sessionOrNew(ctx, tx, sessionID, field.FormID)
		if err != nil {
			return err
		}
		answer, err = s.upsertAnswer(ctx, tx, session.ID, field.ID, req.Value)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return answer, session.ID, nil
}

// Save validates each answer up front, unlike the field-by-field path which
// defers validation to submission.
func (s *Service) Save(ctx context.Context, sessionID *snowflake.ID, req domain.SaveRequest) (*domain.AnswerSession, error) {
	var session *domain.AnswerSession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		session, err = s.sessionOrNew(ctx, tx, sessionID, req.FormID)
		if err != nil {
			return err
		}
		for fieldID, value := range req.Answers {
			field, err := s.forms.FindFieldByID(ctx, tx, fieldID)
			if err != nil {
				return err
			}
			if err := s.validator.Validate(field, value); err != nil {
				return err
			}
			if _, err := s.upsertAnswer(ctx, tx, session.ID, field.ID, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindSessionByID(ctx, s.db, session.ID)
}

func (s *Service) Submit(ctx context.Context, sessionID snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.repo.FindSessionByID(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		form, err := s.forms.FindFormByID(ctx, tx, session.FormID)
		if err != nil {
			return err
		}
		if form.SubmissionsLimit != nil && form.Submissions >= *form.SubmissionsLimit {
			return domain.ErrSubmissionsLimit
		}

		fields, err := s.forms.ListFields(ctx, tx, form.ID)
		if err != nil {
			return err
		}
		answered := make(map[snowflake.ID]*domain.FieldAnswer, len(session.Answers))
		for i := range session.Answers {
			answered[session.Answers[i].FieldID] = &session.Answers[i]
		}
		byID := make(map[snowflake.ID]*formdomain.FormField, len(fields))
		for i := range fields {
			field := &fields[i]
			byID[field.ID] = field
			if field.Required {
				if _, ok := answered[field.ID]; !ok {
					return fmt.Errorf("%w: %s", domain.ErrRequiredFieldMissing, field.Label)
				}
			}
		}
		for _, answer := range session.Answers {
			field, ok := byID[answer.FieldID]
			if !ok {
				continue
			}
			if err := s.validator.Validate(field, answer.Value); err != nil {
				return err
			}
		}

		now := s.clock.Now()
		session.Submitted = true
		session.SubmittedAt = &now
		if err := s.repo.UpdateSession(ctx, tx, session); err != nil {
			return err
		}
		form.Submissions++
		if err := s.forms.UpdateForm(ctx, tx, form); err != nil {
			return err
		}
		s.log.Info("answer session submitted",
			zap.Int64("session_id", int64(session.ID)),
			zap.Int64("form_id", int64(form.ID)))
		return nil
	})
}

func (s *Service) EditAnswer(ctx context.Context, sessionID snowflake.ID, answerID snowflake.ID, value string) error {
	if _, err := s.repo.FindSessionByID(ctx, s.db, sessionID); err != nil {
		return err
	}
	answer, err := s.repo.FindAnswerByID(ctx, s.db, answerID)
	if err != nil {
		return err
	}
	answer.Value = &value
	return s.repo.UpdateAnswer(ctx, s.db, answer)
}

func (s *Service) DeleteAnswer(ctx context.Context, actor *identitydomain.User, sessionID *snowflake.ID, answerID snowflake.ID) error {
	answer, err := s.repo.FindAnswerByID(ctx, s.db, answerID)
	if err != nil {
		return err
	}
	if sessionID == nil {
		roles, err := s.roles(ctx, actor)
		if err != nil {
			return err
		}
		err = s.evaluator.Evaluate(ctx, authorization.Request{
			Roles:  roles,
			Checks: []authorization.Check{authorization.Global(identitydomain.ResourceFieldResponse, identitydomain.ActionReadWrite)},
			Bypass: []string{identitydomain.AdminRoleName, identitydomain.SuperAdminRoleName},
		})
		if err != nil {
			return err
		}
	} else {
		if _, err := s.repo.FindSessionByID(ctx, s.db, *sessionID); err != nil {
			return authorization.ErrUnauthorized
		}
	}
	return s.repo.DeleteAnswer(ctx, s.db, answer.ID)
}

func (s *Service) Session(ctx context.Context, sessionID snowflake.ID) (*domain.AnswerSession, error) {
	return s.repo.FindSessionByID(ctx, s.db, sessionID)
}

func (s *Service) ListResponses(ctx context.Context, actor *identitydomain.User, formID snowflake.ID, page formdomain.Page) ([]domain.AnswerSession, error) {
	form, err := s.authorizedForm(ctx, actor, formID)
	if err != nil {
		return nil, err
	}
	limit := page.Limit
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.repo.ListSubmitted(ctx, s.db, form.ID, page.Offset, limit)
}

func (s *Service) ExportCSV(ctx context.Context, actor *identitydomain.User, formID snowflake.ID, w io.Writer) (string, error) {
	form, err := s.authorizedForm(ctx, actor, formID)
	if err != nil {
		return "", err
	}
	sessions, err := s.repo.ListSubmitted(ctx, s.db, form.ID, 0, 0)
	if err != nil {
		return "", err
	}
	fields, err := s.forms.ListFields(ctx, s.db, form.ID)
	if err != nil {
		return "", err
	}

	writer := csv.NewWriter(w)
	header := make([]string, 0, len(fields)+2)
	for _, field := range fields {
		header = append(header, field.Label)
	}
	header = append(header, "Response ID", "Submitted At")
	if err := writer.Write(header); err != nil {
		return "", err
	}
	for _, session := range sessions {
		values := make(map[snowflake.ID]string, len(session.Answers))
		for _, answer := range session.Answers {
			if answer.Value != nil {
				values[answer.FieldID] = *answer.Value
			}
		}
		row := make([]string, 0, len(fields)+2)
		for _, field := range fields {
			row = append(row, values[field.ID])
		}
		submittedAt := ""
		if session.SubmittedAt != nil {
			submittedAt = session.SubmittedAt.Format("2006-01-02T15:04:05Z07:00")
		}
		row = append(row, session.ID.String(), submittedAt)
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}

	label := strings.ReplaceAll(strings.TrimSpace(form.Label), " ", "_")
	if label == "" {
		label = "form"
	}
	return label + "_responses.csv", nil
}

// authorizedForm gates the reporting endpoints behind a form grant.
func (s *Service) authorizedForm(ctx context.Context, actor *identitydomain.User, formID snowflake.ID) (*formdomain.Form, error) {
	roles, err := s.roles(ctx, actor)
	if err != nil {
		return nil, err
	}
	err = s.evaluator.Evaluate(ctx, authorization.Request{
		Roles:  roles,
		Checks: []authorization.Check{authorization.Scoped(identitydomain.ResourceForm, formID, identitydomain.ActionReadWrite)},
		Bypass: []string{identitydomain.AdminRoleName, identitydomain.SuperAdminRoleName},
	})
	if err != nil {
		return nil, err
	}
	return s.forms.FindFormByID(ctx, s.db, formID)
}
