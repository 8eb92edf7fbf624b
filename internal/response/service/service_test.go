package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/quillform/quillform/internal/authorization"
	"github.com/quillform/quillform/internal/clock"
	formdomain "github.com/quillform/quillform/internal/form/domain"
	formrepository "github.com/quillform/quillform/internal/form/repository"
	identitydomain "github.com/quillform/quillform/internal/identity/domain"
	identityrepository "github.com/quillform/quillform/internal/identity/repository"
	"github.com/quillform/quillform/internal/response/domain"
	"github.com/quillform/quillform/internal/response/repository"
	"github.com/quillform/quillform/internal/response/validator"
	"github.com/quillform/quillform/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	svc      domain.Service
	forms    formdomain.Repository
	identity identitydomain.Repository
	clock    *clock.FakeClock
	node     *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(
		&identitydomain.User{},
		&identitydomain.Role{},
		&identitydomain.Permission{},
		&formdomain.Form{},
		&formdomain.FormField{},
		&domain.AnswerSession{},
		&domain.FieldAnswer{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	identity := identityrepository.Provide()
	forms := formrepository.Provide()
	evaluator := authorization.New(authorization.Params{DB: dbConn, Log: zap.NewNop(), Repo: identity})
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:        dbConn,
		Log:       zap.NewNop(),
		Clock:     fake,
		GenID:     node,
		Repo:      repository.Provide(),
		Forms:     forms,
		Identity:  identity,
		Evaluator: evaluator,
		Validator: validator.Provide(),
	})
	return &fixture{db: dbConn, svc: svc, forms: forms, identity: identity, clock: fake, node: node}
}

func strptr(s string) *string { return &s }

func (f *fixture) form(t *testing.T) *formdomain.Form {
	t.Helper()
	form := &formdomain.Form{
		ID:     f.node.Generate(),
		UserID: f.node.Generate(),
		Label:  "Event Signup",
		Open:   true,
	}
	if err := f.forms.InsertForm(context.Background(), f.db, form); err != nil {
		t.Fatalf("failed to insert form: %v", err)
	}
	return form
}

func (f *fixture) field(t *testing.T, form *formdomain.Form, label string, ft formdomain.FieldType, required bool, position int) *formdomain.FormField {
	t.Helper()
	field := &formdomain.FormField{
		ID:        f.node.Generate(),
		FormID:    form.ID,
		Label:     label,
		Position:  position,
		FieldType: ft,
		Required:  required,
	}
	if err := f.forms.InsertField(context.Background(), f.db, field); err != nil {
		t.Fatalf("failed to insert field: %v", err)
	}
	return field
}

func (f *fixture) grantedUser(t *testing.T, form *formdomain.Form) *identitydomain.User {
	t.Helper()
	ctx := context.Background()
	user := &identitydomain.User{
		ID:           f.node.Generate(),
		Email:        "owner@example.com",
		Username:     "owner",
		PasswordHash: "irrelevant",
		Verified:     true,
	}
	if err := f.identity.InsertUser(ctx, f.db, user); err != nil {
		t.Fatalf("failed to insert user: %v", err)
	}
	role := &identitydomain.Role{ID: f.node.Generate()}
	if err := f.identity.InsertRole(ctx, f.db, role); err != nil {
		t.Fatalf("failed to insert role: %v", err)
	}
	if err := f.identity.AttachRole(ctx, f.db, user.ID, role.ID); err != nil {
		t.Fatalf("failed to attach role: %v", err)
	}
	formID := form.ID
	if err := f.identity.InsertPermission(ctx, f.db, &identitydomain.Permission{
		ID:         f.node.Generate(),
		RoleID:     role.ID,
		Resource:   identitydomain.ResourceForm,
		ResourceID: &formID,
		Action:     identitydomain.ActionReadWrite,
	}); err != nil {
		t.Fatalf("failed to insert permission: %v", err)
	}
	return user
}

func TestRespondOpensSessionAndUpserts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	form := f.form(t)
	name := f.field(t, form, "Name", formdomain.FieldText, true, 0)

	answer, sessionID, err := f.svc.Respond(ctx, nil, domain.RespondRequest{FieldID: name.ID, Value: strptr("Ada")})
	if err != nil {
		t.Fatalf("failed to respond: %v", err)
	}
	if answer.Value == nil || *answer.Value != "Ada" {
		t.Fatalf("unexpected answer value: %v", answer.Value)
	}

	// Answering the same field again overwrites, not duplicates.
	second, again, err := f.svc.Respond(ctx, &sessionID, domain.RespondRequest{FieldID: name.ID, Value: strptr("Grace")})
	if err != nil {
		t.Fatalf("failed to respond again: %v", err)
	}
	if again != sessionID {
		t.Fatalf("expected session reuse, got %v and %v", sessionID, again)
	}
	if second.ID != answer.ID {
		t.Fatalf("expected upsert of the same answer row")
	}

	session, err := f.svc.Session(ctx, sessionID)
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if len(session.Answers) != 1 || *session.Answers[0].Value != "Grace" {
		t.Fatalf("unexpected session answers: %+v", session.Answers)
	}
}

func TestRespondRejectsClosedForm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	form := f.form(t)
	form.Open = false
	if err := f.forms.UpdateForm(ctx, f.db, form); err != nil {
		t.Fatalf("failed to close form: %v", err)
	}
	field := f.field(t, form, "Name", formdomain.FieldText, true, 0)

	_, _, err := f.svc.Respond(ctx, nil, domain.RespondRequest{FieldID: field.ID, Value: strptr("x")})
	if !errors.Is(err, domain.ErrFormClosed) {
		t.Fatalf("expected ErrFormClosed, got %v", err)
	}
}

func TestRespondRejectsPastDeadline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	form := f.form(t)
	deadline := f.clock.Now().Add(time.Hour)
	form.Deadline = &deadline
	if err := f.forms.UpdateForm(ctx, f.db, form); err != nil {
		t.Fatalf("failed to set deadline: %v", err)
	}
	field := f.field(t, form, "Name", formdomain.FieldText, true, 0)

	f.clock.Advance(2 * time.Hour)
	_, _, err := f.svc.Respond(ctx, nil, domain.RespondRequest{FieldID: field.ID, Value: strptr("x")})
	if !errors.Is(err, domain.ErrDeadlineReached) {
		t.Fatalf("expected ErrDeadlineReached, got %v", err)
	}
}

func TestSaveValidatesImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	form := f.form(t)
	rating := f.field(t, form, "Rating", formdomain.FieldNumerical, true, 0)
	rating.NumberBounds = strptr("1:5")
	if err := f.forms.UpdateField(ctx, f.db, rating); err != nil {
		t.Fatalf("failed to set bounds: %v", err)
	}

	_, err := f.svc.Save(ctx, nil, domain.SaveRequest{
		FormID:  form.ID,
		Answers: map[snowflake.ID]*string{rating.ID: strptr("9")},
	})
	if !errors.Is(err, domain.ErrInvalidAnswer) {
		t.Fatalf("expected ErrInvalidAnswer, got %v", err)
	}

	session, err := f.svc.Save(ctx, nil, domain.SaveRequest{
		FormID:  form.ID,
		Answers: map[snowflake.ID]*string{rating.ID: strptr("4")},
	})
	if err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if len(session.Answers) != 1 {
		t.Fatalf("expected one saved answer, got %d", len(session.Answers))
	}
}

func TestSubmitRequiresAllRequiredFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	form := f.form(t)
	name := f.field(t, form, "Name", formdomain.FieldText, true, 0)
	f.field(t, form, "Email", formdomain.FieldEmail, true, 1)

	_, sessionID, err := f.svc.Respond(ctx, nil, domain.RespondRequest{FieldID: name.ID, Value: strptr("Ada")})
	if err != nil {
		t.Fatalf("failed to respond: %v", err)
	}

	if err := f.svc.Submit(ctx, sessionID); !errors.Is(err, domain.ErrRequiredFieldMissing) {
		t.Fatalf("expected ErrRequiredFieldMissing, got %v", err)
	}
}

func TestSubmitValidatesDeferredAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	form := f.form(t)
	email := f.field(t, form, "Email", formdomain.FieldEmail, true, 0)

	// The field-by-field path accepts the bad value and only fails at submit.
	_, sessionID, err := f.svc.Respond(ctx, nil, domain.RespondRequest{FieldID: email.ID, Value: strptr("not-an-email")})
	if err != nil {
		t.Fatalf("failed to respond: %v", err)
	}
	if err := f.svc.Submit(ctx, sessionID); !errors.Is(err, domain.ErrInvalidAnswer) {
		t.Fatalf("expected ErrInvalidAnswer, got %v", err)
	}
}

func TestSubmitSealsSessionAndCountsSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	form := f.form(t)
	limit := 1
	form.SubmissionsLimit = &limit
	if err := f.forms.UpdateForm(ctx, f.db, form); err != nil {
		t.Fatalf("failed to set limit: %v", err)
	}
	name := f.field(t, form, "Name", formdomain.FieldText, true, 0)

	_, sessionID, err := f.svc.Respond(ctx, nil, domain.RespondRequest{FieldID: name.ID, Value: strptr("Ada")})
	if err != nil {
		t.Fatalf("failed to respond: %v", err)
	}
	if err := f.svc.Submit(ctx, sessionID); err != nil {
		t.Fatalf("failed to submit: %v", err)
	}

	session, err := f.svc.Session(ctx, sessionID)
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if !session.Submitted || session.SubmittedAt == nil {
		t.Fatalf("expected session sealed, got %+v", session)
	}

	updated, err := f.forms.FindFormByID(ctx, f.db, form.ID)
	if err != nil {
		t.Fatalf("failed to reload form: %v", err)
	}
	if updated.Submissions != 1 {
		t.Fatalf("expected submission count 1, got %d", updated.Submissions)
	}

	// The limit is now reached, a second session cannot even start answering.
	_, _, err = f.svc.Respond(ctx, nil, domain.RespondRequest{FieldID: name.ID, Value: strptr("Grace")})
	if !errors.Is(err, domain.ErrSubmissionsLimit) {
		t.Fatalf("expected ErrSubmissionsLimit, got %v", err)
	}
}

func TestDeleteAnswerRequiresSessionOrGlobalGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	form := f.form(t)
	name := f.field(t, form, "Name", formdomain.FieldText, true, 0)
	answer, sessionID, err := f.svc.Respond(ctx, nil, domain.RespondRequest{FieldID: name.ID, Value: strptr("Ada")})
	if err != nil {
		t.Fatalf("failed to respond: %v", err)
	}

	// Without a session cookie an anonymous caller cannot delete.
	if err := f.svc.DeleteAnswer(ctx, nil, nil, answer.ID); !errors.Is(err, authorization.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	// The session owner can.
	if err := f.svc.DeleteAnswer(ctx, nil, &sessionID, answer.ID); err != nil {
		t.Fatalf("expected session owner delete, got %v", err)
	}
}

func TestListResponsesGatedByFormGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	form := f.form(t)
	name := f.field(t, form, "Name", formdomain.FieldText, true, 0)
	owner := f.grantedUser(t, form)

	_, sessionID, err := f.svc.Respond(ctx, nil, domain.RespondRequest{FieldID: name.ID, Value: strptr("Ada")})
	if err != nil {
		t.Fatalf("failed to respond: %v", err)
	}
	if err := f.svc.Submit(ctx, sessionID); err != nil {
		t.Fatalf("failed to submit: %v", err)
	}

	// Unsubmitted drafts do not show up.
	if _, _, err := f.svc.Respond(ctx, nil, domain.RespondRequest{FieldID: name.ID, Value: strptr("Draft")}); err != nil {
		t.Fatalf("failed to start draft: %v", err)
	}

	sessions, err := f.svc.ListResponses(ctx, owner, form.ID, formdomain.Page{})
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected one submitted session, got %d", len(sessions))
	}

	if _, err := f.svc.ListResponses(ctx, nil, form.ID, formdomain.Page{}); !errors.Is(err, authorization.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for anonymous, got %v", err)
	}
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	form := f.form(t)
	name := f.field(t, form, "Name", formdomain.FieldText, true, 0)
	color := f.field(t, form, "Favorite Color", formdomain.FieldText, false, 1)
	owner := f.grantedUser(t, form)

	_, sessionID, err := f.svc.Respond(ctx, nil, domain.RespondRequest{FieldID: name.ID, Value: strptr("Ada")})
	if err != nil {
		t.Fatalf("failed to respond: %v", err)
	}
	if _, _, err := f.svc.Respond(ctx, &sessionID, domain.RespondRequest{FieldID: color.ID, Value: strptr("green")}); err != nil {
		t.Fatalf("failed to respond: %v", err)
	}
	if err := f.svc.Submit(ctx, sessionID); err != nil {
		t.Fatalf("failed to submit: %v", err)
	}

	var buf bytes.Buffer
	filename, err := f.svc.ExportCSV(ctx, owner, form.ID, &buf)
	if err != nil {
		t.Fatalf("failed to export: %v", err)
	}
	if filename != "Event_Signup_responses.csv" {
		t.Fatalf("unexpected filename %q", filename)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if lines[0] != "Name,Favorite Color,Response ID,Submitted At" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Ada,green,") {
		t.Fatalf("unexpected row %q", lines[1])
	}
}
