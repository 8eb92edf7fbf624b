package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/quillform/quillform/internal/authorization"
	"github.com/quillform/quillform/internal/clock"
	"github.com/quillform/quillform/internal/form/domain"
	"github.com/quillform/quillform/internal/form/repository"
	identitydomain "github.com/quillform/quillform/internal/identity/domain"
	identityrepository "github.com/quillform/quillform/internal/identity/repository"
	"github.com/quillform/quillform/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	svc      domain.Service
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
		&domain.Form{},
		&domain.FormField{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	identity := identityrepository.Provide()
	evaluator := authorization.New(authorization.Params{DB: dbConn, Log: zap.NewNop(), Repo: identity})
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:        dbConn,
		Log:       zap.NewNop(),
		Clock:     fake,
		GenID:     node,
		Repo:      repository.Provide(),
		Identity:  identity,
		Evaluator: evaluator,
	})
	return &fixture{db: dbConn, svc: svc, identity: identity, clock: fake, node: node}
}

func (f *fixture) user(t *testing.T, username string) *identitydomain.User {
	t.Helper()
	user := &identitydomain.User{
		ID:           f.node.Generate(),
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: "irrelevant",
		Verified:     true,
	}
	if err := f.identity.InsertUser(context.Background(), f.db, user); err != nil {
		t.Fatalf("failed to insert user: %v", err)
	}
	return user
}

func (f *fixture) grantGlobal(t *testing.T, user *identitydomain.User, resource identitydomain.Resource, action identitydomain.Action) {
	t.Helper()
	ctx := context.Background()
	role := &identitydomain.Role{ID: f.node.Generate()}
	if err := f.identity.InsertRole(ctx, f.db, role); err != nil {
		t.Fatalf("failed to insert role: %v", err)
	}
	if err := f.identity.AttachRole(ctx, f.db, user.ID, role.ID); err != nil {
		t.Fatalf("failed to attach role: %v", err)
	}
	if err := f.identity.InsertPermission(ctx, f.db, &identitydomain.Permission{
		ID:       f.node.Generate(),
		RoleID:   role.ID,
		Resource: resource,
		Action:   action,
	}); err != nil {
		t.Fatalf("failed to insert permission: %v", err)
	}
}

func (f *fixture) attachNamedRole(t *testing.T, user *identitydomain.User, name string) {
	t.Helper()
	ctx := context.Background()
	role := &identitydomain.Role{ID: f.node.Generate(), Name: &name}
	if err := f.identity.InsertRole(ctx, f.db, role); err != nil {
		t.Fatalf("failed to insert role: %v", err)
	}
	if err := f.identity.AttachRole(ctx, f.db, user.ID, role.ID); err != nil {
		t.Fatalf("failed to attach role: %v", err)
	}
}

func (f *fixture) createForm(t *testing.T, author *identitydomain.User) *domain.Form {
	t.Helper()
	form, err := f.svc.Create(context.Background(), author, domain.CreateFormRequest{Label: "Survey"})
	if err != nil {
		t.Fatalf("failed to create form: %v", err)
	}
	return form
}

func TestCreateRequiresGlobalGrantOrBypass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plain := f.user(t, "plain")
	_, err := f.svc.Create(ctx, plain, domain.CreateFormRequest{Label: "Nope"})
	if !errors.Is(err, authorization.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	f.grantGlobal(t, plain, identitydomain.ResourceForm, identitydomain.ActionReadWrite)
	if _, err := f.svc.Create(ctx, plain, domain.CreateFormRequest{Label: "Now allowed"}); err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}

	admin := f.user(t, "admin")
	f.attachNamedRole(t, admin, identitydomain.AdminRoleName)
	if _, err := f.svc.Create(ctx, admin, domain.CreateFormRequest{Label: "Bypassed"}); err != nil {
		t.Fatalf("expected admin bypass to succeed, got %v", err)
	}
}

func TestAuthorManagesOwnForm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	author := f.user(t, "author")
	f.grantGlobal(t, author, identitydomain.ResourceForm, identitydomain.ActionReadWrite)
	form := f.createForm(t, author)

	label := "Renamed"
	updated, err := f.svc.Update(ctx, author, form.ID, domain.UpdateFormRequest{Label: &label})
	if err != nil {
		t.Fatalf("failed to update: %v", err)
	}
	if updated.Label != "Renamed" {
		t.Fatalf("expected renamed form, got %q", updated.Label)
	}

	// The per-form grant created at Create satisfies the scoped check.
	if err := f.svc.SetOpen(ctx, author, form.ID, false); err != nil {
		t.Fatalf("failed to close form: %v", err)
	}

	// A stranger holds no grant on this form.
	stranger := f.user(t, "stranger")
	if _, err := f.svc.Update(ctx, stranger, form.ID, domain.UpdateFormRequest{Label: &label}); !errors.Is(err, authorization.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestClosedFormHiddenFromAnonymous(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	author := f.user(t, "author")
	f.grantGlobal(t, author, identitydomain.ResourceForm, identitydomain.ActionReadWrite)
	form := f.createForm(t, author)

	// Open forms are public.
	if _, err := f.svc.Get(ctx, nil, form.ID); err != nil {
		t.Fatalf("expected open form to be public, got %v", err)
	}

	if err := f.svc.SetOpen(ctx, author, form.ID, false); err != nil {
		t.Fatalf("failed to close: %v", err)
	}

	if _, err := f.svc.Get(ctx, nil, form.ID); !errors.Is(err, authorization.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for anonymous, got %v", err)
	}
	if _, err := f.svc.Get(ctx, author, form.ID); err != nil {
		t.Fatalf("expected author to read closed form, got %v", err)
	}
}

func TestDeadlineClosesFormForAnonymous(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	author := f.user(t, "author")
	f.grantGlobal(t, author, identitydomain.ResourceForm, identitydomain.ActionReadWrite)

	deadline := f.clock.Now().Add(time.Hour)
	form, err := f.svc.Create(ctx, author, domain.CreateFormRequest{Label: "Timed", Deadline: &deadline})
	if err != nil {
		t.Fatalf("failed to create: %v", err)
	}

	if _, err := f.svc.Get(ctx, nil, form.ID); err != nil {
		t.Fatalf("expected form public before deadline, got %v", err)
	}

	f.clock.Advance(2 * time.Hour)
	if _, err := f.svc.Get(ctx, nil, form.ID); !errors.Is(err, authorization.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after deadline, got %v", err)
	}
}

func TestAddFieldEitherGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	author := f.user(t, "author")
	f.grantGlobal(t, author, identitydomain.ResourceForm, identitydomain.ActionReadWrite)
	form := f.createForm(t, author)

	// The author's scoped form grant is one side of the either-of check.
	field, err := f.svc.AddField(ctx, author, domain.AddFieldRequest{
		FormID:    form.ID,
		Label:     "Name",
		FieldType: domain.FieldText,
		Required:  true,
	})
	if err != nil {
		t.Fatalf("failed to add field: %v", err)
	}

	// A field editor with a global formfield grant is the other side.
	editor := f.user(t, "editor")
	f.grantGlobal(t, editor, identitydomain.ResourceFormField, identitydomain.ActionReadWrite)
	if _, err := f.svc.AddField(ctx, editor, domain.AddFieldRequest{
		FormID:    form.ID,
		Label:     "Age",
		FieldType: domain.FieldNumerical,
	}); err != nil {
		t.Fatalf("expected global formfield grant to suffice, got %v", err)
	}

	// Choice fields need a possible-answers list.
	_, err = f.svc.AddField(ctx, author, domain.AddFieldRequest{
		FormID:    form.ID,
		Label:     "Color",
		FieldType: domain.FieldSelect,
	})
	if !errors.Is(err, domain.ErrMissingChoices) {
		t.Fatalf("expected ErrMissingChoices, got %v", err)
	}

	_ = field
}

func TestDeleteFieldHasNoAdminBypass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	author := f.user(t, "author")
	f.grantGlobal(t, author, identitydomain.ResourceForm, identitydomain.ActionReadWrite)
	form := f.createForm(t, author)
	field, err := f.svc.AddField(ctx, author, domain.AddFieldRequest{
		FormID:    form.ID,
		Label:     "Name",
		FieldType: domain.FieldText,
	})
	if err != nil {
		t.Fatalf("failed to add field: %v", err)
	}

	// Even an admin name does not bypass field deletion.
	admin := f.user(t, "admin")
	f.attachNamedRole(t, admin, identitydomain.AdminRoleName)
	if err := f.svc.DeleteField(ctx, admin, field.ID); !errors.Is(err, authorization.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for admin, got %v", err)
	}

	if err := f.svc.DeleteField(ctx, author, field.ID); err != nil {
		t.Fatalf("expected author delete to succeed, got %v", err)
	}
}

func TestDeleteFormRemovesGrants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	author := f.user(t, "author")
	f.grantGlobal(t, author, identitydomain.ResourceForm, identitydomain.ActionReadWrite)
	form := f.createForm(t, author)

	if err := f.svc.Delete(ctx, author, form.ID); err != nil {
		t.Fatalf("failed to delete form: %v", err)
	}

	if _, err := f.svc.Get(ctx, author, form.ID); !errors.Is(err, domain.ErrFormNotFound) {
		t.Fatalf("expected ErrFormNotFound, got %v", err)
	}

	var count int64
	if err := f.db.Model(&identitydomain.Permission{}).
		Where("resource = ? AND resource_id = ?", identitydomain.ResourceForm, form.ID).
		Count(&count).Error; err != nil {
		t.Fatalf("failed to count permissions: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected grants removed, found %d", count)
	}
}
