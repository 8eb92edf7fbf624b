package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/quillform/quillform/internal/authorization"
	"github.com/quillform/quillform/internal/clock"
	"github.com/quillform/quillform/internal/form/domain"
	identitydomain "github.com/quillform/quillform/internal/identity/domain"
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
	identity  identitydomain.Repository
	evaluator *authorization.Evaluator
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	GenID     *snowflake.Node
	Repo      domain.Repository
	Identity  identitydomain.Repository
	Evaluator *authorization.Evaluator
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("form.service"),
		clock:     p.Clock,
		genID:     p.GenID,
		repo:      p.Repo,
		identity:  p.Identity,
		evaluator: p.Evaluator,
	}
}

func (s *Service) roles(ctx context.Context, actor *identitydomain.User) ([]identitydomain.Role, error) {
	if actor == nil {
		return nil, authorization.ErrUnauthorized
	}
	return s.identity.RolesForUser(ctx, s.db, actor.ID)
}

// Create makes the form and a dedicated grant container so its author can
// manage it without holding any global permission.
func (s *Service) Create(ctx context.Context, actor *identitydomain.User, req domain.CreateFormRequest) (*domain.Form, error) {
	roles, err := s.roles(ctx, actor)
	if err != nil {
		return nil, err
	}
	err = s.evaluator.Evaluate(ctx, authorization.Request{
		Roles:  roles,
		Checks: []authorization.Check{authorization.Global(identitydomain.ResourceForm, identitydomain.ActionReadWrite)},
		Bypass: []string{identitydomain.AdminRoleName, identitydomain.SuperAdminRoleName},
	})
	if err != nil {
		return nil, err
	}

	label := strings.TrimSpace(req.Label)
	form := &domain.Form{
		ID:               s.genID.Generate(),
		UserID:           actor.ID,
		Label:            label,
		Description:      req.Description,
		Open:             true,
		SubmissionsLimit: req.SubmissionsLimit,
		Deadline:         req.Deadline,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertForm(ctx, tx, form); err != nil {
			return err
		}
		return s.grantResource(ctx, tx, actor.ID, identitydomain.ResourceForm, form.ID)
	})
	if err != nil {
		return nil, err
	}
	return form, nil
}

// Get serves open forms publicly; closed, expired or capped forms require
// the author grant or an admin role.
func (s *Service) Get(ctx context.Context, actor *identitydomain.User, formID snowflake.ID) (*domain.Form, error) {
	form, err := s.repo.FindFormByID(ctx, s.db, formID)
	if err != nil {
		return nil, err
	}

	if !form.AcceptingResponses(s.clock.Now()) {
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
	}
	return form, nil
}

func (s *Service) List(ctx context.Context, actor *identitydomain.User, page domain.Page) ([]domain.Form, error) {
	roles, err := s.roles(ctx, actor)
	if err != nil {
		return nil, err
	}
	err = s.evaluator.Evaluate(ctx, authorization.Request{
		Roles:  roles,
		Checks: []authorization.Check{authorization.Global(identitydomain.ResourceForm, identitydomain.ActionReadWrite)},
		Bypass: []string{identitydomain.AdminRoleName, identitydomain.SuperAdminRoleName},
	})
	if err != nil {
		return nil, err
	}
	return s.repo.ListForms(ctx, s.db, page.Offset, normalizeLimit(page.Limit))
}

func (s *Service) ListOwn(ctx context.Context, actor *identitydomain.User, page domain.Page) ([]domain.Form, error) {
	if actor == nil {
		return nil, authorization.ErrUnauthorized
	}
	return s.repo.ListFormsByUser(ctx, s.db, actor.ID, page.Offset, normalizeLimit(page.Limit))
}

func (s *Service) Update(ctx context.Context, actor *identitydomain.User, formID snowflake.ID, req domain.UpdateFormRequest) (*domain.Form, error) {
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

	form, err := s.repo.FindFormByID(ctx, s.db, formID)
	if err != nil {
		return nil, err
	}

	if req.Label != nil {
		form.Label = strings.TrimSpace(*req.Label)
	}
	if req.Description != nil {
		form.Description = req.Description
	}
	if req.SubmissionsLimit != nil {
		form.SubmissionsLimit = req.SubmissionsLimit
	}
	if req.Deadline != nil {
		form.Deadline = req.Deadline
	}

	if err := s.repo.UpdateForm(ctx, s.db, form); err != nil {
		return nil, err
	}
	return form, nil
}

// Delete removes the form, its fields and every grant pointing at it.
func (s *Service) Delete(ctx context.Context, actor *identitydomain.User, formID snowflake.ID) error {
	roles, err := s.roles(ctx, actor)
	if err != nil {
		return err
	}
	err = s.evaluator.Evaluate(ctx, authorization.Request{
		Roles:  roles,
		Checks: []authorization.Check{authorization.Scoped(identitydomain.ResourceForm, formID, identitydomain.ActionReadWrite)},
		Bypass: []string{identitydomain.AdminRoleName, identitydomain.SuperAdminRoleName},
	})
	if err != nil {
		return err
	}

	if _, err := s.repo.FindFormByID(ctx, s.db, formID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields, err := s.repo.ListFields(ctx, tx, formID)
		if err != nil {
			return err
		}
		for _, field := range fields {
			if err := s.identity.DeleteResourcePermissions(ctx, tx, identitydomain.ResourceFormField, field.ID); err != nil {
				return err
			}
		}
		if err := s.identity.DeleteResourcePermissions(ctx, tx, identitydomain.ResourceForm, formID); err != nil {
			return err
		}
		return s.repo.DeleteForm(ctx, tx, formID)
	})
}

// SetOpen flips response acceptance. Only the superadmin name bypasses the
// author grant here.
func (s *Service) SetOpen(ctx context.Context, actor *identitydomain.User, formID snowflake.ID, open bool) error {
	roles, err := s.roles(ctx, actor)
	if err != nil {
		return err
	}
	err = s.evaluator.Evaluate(ctx, authorization.Request{
		Roles:  roles,
		Checks: []authorization.Check{authorization.Scoped(identitydomain.ResourceForm, formID, identitydomain.ActionReadWrite)},
		Bypass: []string{identitydomain.SuperAdminRoleName},
	})
	if err != nil {
		return err
	}

	form, err := s.repo.FindFormByID(ctx, s.db, formID)
	if err != nil {
		return err
	}
	form.Open = open
	return s.repo.UpdateForm(ctx, s.db, form)
}

// AddField accepts either the author grant on the parent form or a global
// formfield grant.
func (s *Service) AddField(ctx context.Context, actor *identitydomain.User, req domain.AddFieldRequest) (*domain.FormField, error) {
	roles, err := s.roles(ctx, actor)
	if err != nil {
		return nil, err
	}
	err = s.evaluator.Evaluate(ctx, authorization.Request{
		Roles: roles,
		Checks: []authorization.Check{
			authorization.Scoped(identitydomain.ResourceForm, req.FormID, identitydomain.ActionReadWrite),
			authorization.Global(identitydomain.ResourceFormField, identitydomain.ActionReadWrite),
		},
		Either: true,
		Bypass: []string{identitydomain.SuperAdminRoleName},
	})
	if err != nil {
		return nil, err
	}

	if !req.FieldType.Valid() {
		return nil, domain.ErrInvalidFieldType
	}
	if req.FieldType.Choice() && req.PossibleAnswers == nil {
		return nil, domain.ErrMissingChoices
	}
	if _, err := s.repo.FindFormByID(ctx, s.db, req.FormID); err != nil {
		return nil, err
	}

	field := &domain.FormField{
		ID:              s.genID.Generate(),
		FormID:          req.FormID,
		Label:           strings.TrimSpace(req.Label),
		Description:     req.Description,
		FieldType:       req.FieldType,
		Required:        req.Required,
		PossibleAnswers: req.PossibleAnswers,
		NumberBounds:    req.NumberBounds,
		TextBounds:      req.TextBounds,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertField(ctx, tx, field); err != nil {
			return err
		}
		return s.grantResource(ctx, tx, actor.ID, identitydomain.ResourceFormField, field.ID)
	})
	if err != nil {
		return nil, err
	}
	return field, nil
}

// Fields is public while the form is open; otherwise it requires the author
// grant or an admin role.
func (s *Service) Fields(ctx context.Context, actor *identitydomain.User, formID snowflake.ID) ([]domain.FormField, error) {
	form, err := s.repo.FindFormByID(ctx, s.db, formID)
	if err != nil {
		return nil, err
	}
	if !form.Open {
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
	}
	return s.repo.ListFields(ctx, s.db, formID)
}

func (s *Service) UpdateField(ctx context.Context, actor *identitydomain.User, fieldID snowflake.ID, req domain.UpdateFieldRequest) (*domain.FormField, error) {
	field, err := s.repo.FindFieldByID(ctx, s.db, fieldID)
	if err != nil {
		return nil, err
	}

	roles, err := s.roles(ctx, actor)
	if err != nil {
		return nil, err
	}
	err = s.evaluator.Evaluate(ctx, authorization.Request{
		Roles: roles,
		Checks: []authorization.Check{
			authorization.Scoped(identitydomain.ResourceFormField, fieldID, identitydomain.ActionReadWrite),
			authorization.Scoped(identitydomain.ResourceForm, field.FormID, identitydomain.ActionReadWrite),
		},
		Either: true,
		Bypass: []string{identitydomain.SuperAdminRoleName},
	})
	if err != nil {
		return nil, err
	}

	if req.Label != nil {
		field.Label = strings.TrimSpace(*req.Label)
	}
	if req.Description != nil {
		field.Description = *req.Description
	}
	if req.Position != nil {
		field.Position = *req.Position
	}
	if req.FieldType != nil {
		if !req.FieldType.Valid() {
			return nil, domain.ErrInvalidFieldType
		}
		field.FieldType = *req.FieldType
	}
	if req.Required != nil {
		field.Required = *req.Required
	}
	if req.PossibleAnswers != nil {
		field.PossibleAnswers = req.PossibleAnswers
	}
	if req.NumberBounds != nil {
		field.NumberBounds = req.NumberBounds
	}
	if req.TextBounds != nil {
		field.TextBounds = req.TextBounds
	}

	if err := s.repo.UpdateField(ctx, s.db, field); err != nil {
		return nil, err
	}
	return field, nil
}

// DeleteField accepts the field grant or the parent form grant; no bypass
// names apply here.
func (s *Service) DeleteField(ctx context.Context, actor *identitydomain.User, fieldID snowflake.ID) error {
	field, err := s.repo.FindFieldByID(ctx, s.db, fieldID)
	if err != nil {
		return err
	}

	roles, err := s.roles(ctx, actor)
	if err != nil {
		return err
	}
	err = s.evaluator.Evaluate(ctx, authorization.Request{
		Roles: roles,
		Checks: []authorization.Check{
			authorization.Scoped(identitydomain.ResourceFormField, fieldID, identitydomain.ActionReadWrite),
			authorization.Scoped(identitydomain.ResourceForm, field.FormID, identitydomain.ActionReadWrite),
		},
		Either: true,
	})
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.identity.DeleteResourcePermissions(ctx, tx, identitydomain.ResourceFormField, fieldID); err != nil {
			return err
		}
		return s.repo.DeleteField(ctx, tx, fieldID)
	})
}

// grantResource attaches a fresh unnamed role granting read-write on one
// resource instance to the user.
func (s *Service) grantResource(ctx context.Context, tx *gorm.DB, userID snowflake.ID, resource identitydomain.Resource, resourceID snowflake.ID) error {
	role := &identitydomain.Role{ID: s.genID.Generate()}
	if err := s.identity.InsertRole(ctx, tx, role); err != nil {
		return err
	}
	if err := s.identity.AttachRole(ctx, tx, userID, role.ID); err != nil {
		return err
	}
	id := resourceID
	return s.identity.InsertPermission(ctx, tx, &identitydomain.Permission{
		ID:         s.genID.Generate(),
		RoleID:     role.ID,
		Resource:   resource,
		ResourceID: &id,
		Action:     identitydomain.ActionReadWrite,
	})
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 10
	}
	return limit
}
