package authorization

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/quillform/quillform/internal/identity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrUnauthorized = errors.New("unauthorized")

// Check asks whether a role holds the given actions on a resource. A nil
// ResourceID targets the global keyspace; an instance-scoped grant never
// satisfies a global check and vice versa.
type Check struct {
	Resource   identitydomain.Resource
	ResourceID *snowflake.ID
	Actions    []identitydomain.Action
}

// Global builds a check against the global keyspace.
func Global(resource identitydomain.Resource, actions ...identitydomain.Action) Check {
	return Check{Resource: resource, Actions: actions}
}

// Scoped builds a check against one resource instance.
func Scoped(resource identitydomain.Resource, id snowflake.ID, actions ...identitydomain.Action) Check {
	return Check{Resource: resource, ResourceID: &id, Actions: actions}
}

// Request carries one evaluation over a caller's role set.
type Request struct {
	// Roles in caller-supplied order. In all-of mode the first role that
	// satisfies every check wins; the order is never re-sorted here.
	Roles  []identitydomain.Role
	Checks []Check

	// Either switches from "one role satisfies all checks" to "any single
	// (role, check, action) grant suffices".
	Either bool

	// Bypass names short-circuit the evaluation when any of the caller's
	// named roles matches one of them.
	Bypass []string

	// Message overrides the generic unauthorized message.
	Message string
}

type Evaluator struct {
	db   *gorm.DB
	log  *zap.Logger
	repo identitydomain.Repository
}

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo identitydomain.Repository
}

func New(p Params) *Evaluator {
	return &Evaluator{
		db:   p.DB,
		log:  p.Log.Named("authorization.evaluator"),
		repo: p.Repo,
	}
}

// IsAllowed reports whether one role holds one action on one resource.
func (e *Evaluator) IsAllowed(ctx context.Context, role identitydomain.Role, resource identitydomain.Resource, resourceID *snowflake.ID, action identitydomain.Action) (bool, error) {
	return e.repo.HasPermission(ctx, e.db, role.ID, resource, resourceID, action)
}

// Evaluate runs the aggregate permission decision. It reads the store and
// never mutates it. A failed decision returns ErrUnauthorized wrapped with
// the request message when one is set.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) error {
	if e.bypassed(req) {
		return nil
	}

	if req.Either {
		for _, role := range req.Roles {
			for _, check := range req.Checks {
				for _, action := range check.Actions {
					ok, err := e.IsAllowed(ctx, role, check.Resource, check.ResourceID, action)
					if err != nil {
						return err
					}
					if ok {
						return nil
					}
				}
			}
		}
		return e.deny(req)
	}

	for _, role := range req.Roles {
		satisfied := true
		for _, check := range req.Checks {
			for _, action := range check.Actions {
				ok, err := e.IsAllowed(ctx, role, check.Resource, check.ResourceID, action)
				if err != nil {
					return err
				}
				if !ok {
					satisfied = false
					break
				}
			}
			if !satisfied {
				break
			}
		}
		if satisfied {
			return nil
		}
	}
	return e.deny(req)
}

func (e *Evaluator) bypassed(req Request) bool {
	for _, role := range req.Roles {
		if !role.Named() {
			continue
		}
		for _, name := range req.Bypass {
			if *role.Name == name {
				return true
			}
		}
	}
	return false
}

func (e *Evaluator) deny(req Request) error {
	e.log.Debug("permission denied",
		zap.Int("roles", len(req.Roles)),
		zap.Int("checks", len(req.Checks)),
		zap.Bool("either", req.Either),
	)
	if req.Message != "" {
		return NewError(req.Message)
	}
	return ErrUnauthorized
}

// Error is an unauthorized decision carrying a caller-chosen message. It
// unwraps to ErrUnauthorized so error mapping stays uniform.
type Error struct {
	msg string
}

func NewError(msg string) *Error {
	return &Error{msg: msg}
}

func (e *Error) Error() string {
	return e.msg
}

func (e *Error) Unwrap() error {
	return ErrUnauthorized
}

var Module = fx.Module("authorization",
	fx.Provide(New),
)
