package authorization

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/quillform/quillform/internal/identity/domain"
	identityrepository "github.com/quillform/quillform/internal/identity/repository"
	"github.com/quillform/quillform/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	repo      identitydomain.Repository
	evaluator *Evaluator
	node      *snowflake.Node
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
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	repo := identityrepository.Provide()
	evaluator := New(Params{DB: dbConn, Log: zap.NewNop(), Repo: repo})
	return &fixture{db: dbConn, repo: repo, evaluator: evaluator, node: node}
}

func (f *fixture) role(t *testing.T, name string) identitydomain.Role {
	t.Helper()
	role := identitydomain.Role{ID: f.node.Generate()}
	if name != "" {
		role.Name = &name
	}
	if err := f.repo.InsertRole(context.Background(), f.db, &role); err != nil {
		t.Fatalf("failed to insert role: %v", err)
	}
	return role
}

func (f *fixture) grant(t *testing.T, role identitydomain.Role, resource identitydomain.Resource, resourceID *snowflake.ID, action identitydomain.Action) {
	t.Helper()
	err := f.repo.InsertPermission(context.Background(), f.db, &identitydomain.Permission{
		ID:         f.node.Generate(),
		RoleID:     role.ID,
		Resource:   resource,
		ResourceID: resourceID,
		Action:     action,
	})
	if err != nil {
		t.Fatalf("failed to insert permission: %v", err)
	}
}

func TestBypassRoleShortCircuits(t *testing.T) {
	f := newFixture(t)
	admin := f.role(t, identitydomain.AdminRoleName)

	// No permission rows at all; the bypass name alone must succeed.
	err := f.evaluator.Evaluate(context.Background(), Request{
		Roles:  []identitydomain.Role{admin},
		Checks: []Check{Global(identitydomain.ResourceUser, identitydomain.ActionCreate)},
		Bypass: []string{identitydomain.AdminRoleName, identitydomain.SuperAdminRoleName},
	})
	if err != nil {
		t.Fatalf("expected bypass to succeed, got %v", err)
	}
}

func TestGlobalDoesNotSatisfyScopedCheck(t *testing.T) {
	f := newFixture(t)
	role := f.role(t, "")
	f.grant(t, role, identitydomain.ResourceForm, nil, identitydomain.ActionRead)

	formID := f.node.Generate()
	err := f.evaluator.Evaluate(context.Background(), Request{
		Roles:  []identitydomain.Role{role},
		Checks: []Check{Scoped(identitydomain.ResourceForm, formID, identitydomain.ActionRead)},
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestScopedDoesNotSatisfyGlobalCheck(t *testing.T) {
	f := newFixture(t)
	role := f.role(t, "")
	formID := f.node.Generate()
	f.grant(t, role, identitydomain.ResourceForm, &formID, identitydomain.ActionRead)

	err := f.evaluator.Evaluate(context.Background(), Request{
		Roles:  []identitydomain.Role{role},
		Checks: []Check{Global(identitydomain.ResourceForm, identitydomain.ActionRead)},
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestEitherModeSingleGrantSuffices(t *testing.T) {
	f := newFixture(t)
	role := f.role(t, "")
	formID := f.node.Generate()
	f.grant(t, role, identitydomain.ResourceForm, &formID, identitydomain.ActionWrite)

	err := f.evaluator.Evaluate(context.Background(), Request{
		Roles: []identitydomain.Role{role},
		Checks: []Check{
			Scoped(identitydomain.ResourceForm, formID, identitydomain.ActionReadWrite),
			Scoped(identitydomain.ResourceForm, formID, identitydomain.ActionWrite),
		},
		Either: true,
	})
	if err != nil {
		t.Fatalf("expected either mode to succeed, got %v", err)
	}
}

func TestAllModeRequiresEveryCheckOnOneRole(t *testing.T) {
	f := newFixture(t)
	first := f.role(t, "")
	second := f.role(t, "")
	formID := f.node.Generate()

	// Each role holds half of the requirement; neither satisfies both.
	f.grant(t, first, identitydomain.ResourceForm, &formID, identitydomain.ActionRead)
	f.grant(t, second, identitydomain.ResourceForm, &formID, identitydomain.ActionWrite)

	checks := []Check{
		Scoped(identitydomain.ResourceForm, formID, identitydomain.ActionRead),
		Scoped(identitydomain.ResourceForm, formID, identitydomain.ActionWrite),
	}

	err := f.evaluator.Evaluate(context.Background(), Request{
		Roles:  []identitydomain.Role{first, second},
		Checks: checks,
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	// Granting the missing half to the first role flips the decision.
	f.grant(t, first, identitydomain.ResourceForm, &formID, identitydomain.ActionWrite)
	err = f.evaluator.Evaluate(context.Background(), Request{
		Roles:  []identitydomain.Role{first, second},
		Checks: checks,
	})
	if err != nil {
		t.Fatalf("expected all mode to succeed, got %v", err)
	}
}

func TestMultipleActionsOnOneCheck(t *testing.T) {
	f := newFixture(t)
	role := f.role(t, "")
	formID := f.node.Generate()
	f.grant(t, role, identitydomain.ResourceForm, &formID, identitydomain.ActionRead)

	// All-of mode requires every listed action.
	err := f.evaluator.Evaluate(context.Background(), Request{
		Roles:  []identitydomain.Role{role},
		Checks: []Check{Scoped(identitydomain.ResourceForm, formID, identitydomain.ActionRead, identitydomain.ActionDelete)},
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	f.grant(t, role, identitydomain.ResourceForm, &formID, identitydomain.ActionDelete)
	err = f.evaluator.Evaluate(context.Background(), Request{
		Roles:  []identitydomain.Role{role},
		Checks: []Check{Scoped(identitydomain.ResourceForm, formID, identitydomain.ActionRead, identitydomain.ActionDelete)},
	})
	if err != nil {
		t.Fatalf("expected success after granting both actions, got %v", err)
	}
}

func TestDenyCarriesCustomMessage(t *testing.T) {
	f := newFixture(t)
	role := f.role(t, "")

	err := f.evaluator.Evaluate(context.Background(), Request{
		Roles:   []identitydomain.Role{role},
		Checks:  []Check{Global(identitydomain.ResourceUser, identitydomain.ActionCreate)},
		Message: "Not authorized to log in",
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err.Error() != "Not authorized to log in" {
		t.Fatalf("expected custom message, got %q", err.Error())
	}
}

func TestNoRolesFails(t *testing.T) {
	f := newFixture(t)

	err := f.evaluator.Evaluate(context.Background(), Request{
		Checks: []Check{Global(identitydomain.ResourceUser, identitydomain.ActionCreate)},
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
