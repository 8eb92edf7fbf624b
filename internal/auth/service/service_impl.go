package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/quillform/quillform/internal/auth/domain"
	"github.com/quillform/quillform/internal/auth/lifecycle"
	"github.com/quillform/quillform/internal/auth/password"
	"github.com/quillform/quillform/internal/authorization"
	"github.com/quillform/quillform/internal/background"
	"github.com/quillform/quillform/internal/config"
	identitydomain "github.com/quillform/quillform/internal/identity/domain"
	"github.com/quillform/quillform/internal/observability"
	"github.com/quillform/quillform/internal/providers/email"
	"github.com/quillform/quillform/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	cfg       config.Config
	settings  *config.AuthSettingsHolder
	genID     *snowflake.Node
	users     identitydomain.Repository
	sessions  *lifecycle.Manager
	evaluator *authorization.Evaluator
	mailer    email.Provider
	runner    *background.Runner
	metrics   *observability.Metrics
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Config    config.Config
	Settings  *config.AuthSettingsHolder
	GenID     *snowflake.Node
	Users     identitydomain.Repository
	Sessions  *lifecycle.Manager
	Evaluator *authorization.Evaluator
	Mailer    email.Provider
	Runner    *background.Runner
	Metrics   *observability.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("auth.service"),
		cfg:       p.Config,
		settings:  p.Settings,
		genID:     p.GenID,
		users:     p.Users,
		sessions:  p.Sessions,
		evaluator: p.Evaluator,
		mailer:    p.Mailer,
		runner:    p.Runner,
		metrics:   p.Metrics,
	}
}

// Register creates the user with a dedicated grant container for its own
// user resource, attaches admin roles per the allow-lists, and schedules the
// verification email off the transaction.
func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) error {
	username := strings.TrimSpace(req.Username)
	emailAddr, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.ErrInvalidCredentials
	}
	if req.Password != req.PasswordConfirm {
		return domain.ErrPasswordMismatch
	}

	if existing, err := s.users.FindUserByEmail(ctx, s.db, emailAddr); err != nil {
		return err
	} else if existing != nil {
		return domain.ErrUserExists
	}
	if existing, err := s.users.FindUserByUsername(ctx, s.db, username); err != nil {
		return err
	} else if existing != nil {
		return domain.ErrUserExists
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return err
	}

	var issued lifecycle.Issued
	user := &identitydomain.User{
		ID:           s.genID.Generate(),
		Email:        emailAddr,
		Username:     username,
		PasswordHash: hashed,
		DisplayName:  strings.TrimSpace(req.Name),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The lookups above race with concurrent registrations; the unique
		// indexes are the arbiter.
		if err := s.users.InsertUser(ctx, tx, user); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrUserExists
			}
			return err
		}

		// The user's own grant container: an unnamed role holding
		// read-write on the freshly created user resource.
		ownRole := &identitydomain.Role{ID: s.genID.Generate()}
		if err := s.users.InsertRole(ctx, tx, ownRole); err != nil {
			return err
		}
		if err := s.users.AttachRole(ctx, tx, user.ID, ownRole.ID); err != nil {
			return err
		}
		userID := user.ID
		if err := s.users.InsertPermission(ctx, tx, &identitydomain.Permission{
			ID:         s.genID.Generate(),
			RoleID:     ownRole.ID,
			Resource:   identitydomain.ResourceUser,
			ResourceID: &userID,
			Action:     identitydomain.ActionReadWrite,
		}); err != nil {
			return err
		}

		if s.cfg.IsAdminEmail(emailAddr) {
			if err := s.ensureNamedRole(ctx, tx, user.ID, identitydomain.AdminRoleName); err != nil {
				return err
			}
		}
		if s.cfg.IsSuperAdminEmail(emailAddr) {
			if err := s.ensureNamedRole(ctx, tx, user.ID, identitydomain.SuperAdminRoleName); err != nil {
				return err
			}
		}

		_, issued, err = s.sessions.IssueVerification(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		s.metrics.RecordAuthAttempt("register", false)
		return err
	}

	s.metrics.RecordAuthAttempt("register", true)
	s.enqueueVerificationEmail(user, issued)
	return nil
}

// Login verifies the password, applies the admins-only gate when enabled,
// and opens the OTP stage.
func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	emailAddr, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	user, err := s.users.FindUserByEmail(ctx, s.db, emailAddr)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	if !password.Verify(req.Password, user.PasswordHash) {
		s.metrics.RecordAuthAttempt("login", false)
		return nil, domain.ErrInvalidCredentials
	}

	if s.cfg.AllowAdminsOnly {
		roles, err := s.users.RolesForUser(ctx, s.db, user.ID)
		if err != nil {
			return nil, err
		}
		err = s.evaluator.Evaluate(ctx, authorization.Request{
			Roles:   roles,
			Checks:  []authorization.Check{authorization.Global(identitydomain.ResourceUser, identitydomain.ActionCreate)},
			Bypass:  []string{identitydomain.AdminRoleName, identitydomain.SuperAdminRoleName},
			Message: "Not authorized to log in.",
		})
		if err != nil {
			s.metrics.RecordAuthAttempt("login", false)
			return nil, err
		}
	}

	var (
		session *domain.AuthSession
		issued  lifecycle.Issued
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, issued, err = s.sessions.IssueAuth(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAuthAttempt("login", true)
	s.enqueueLoginOTPEmail(user, issued)
	return &domain.LoginResult{
		AuthSessionToken: issued.RawID,
		ExpiresAt:        session.ExpiresAt,
	}, nil
}

// Authenticate consumes the pre-auth OTP session and mints the final login
// session.
func (s *Service) Authenticate(ctx context.Context, req domain.AuthenticateRequest) (*domain.AuthenticateResult, error) {
	var (
		session  *domain.LoginSession
		rawToken string
		otpErr   error
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		session, rawToken, err = s.sessions.ConsumeAuth(ctx, tx, req.AuthSessionToken, req.OTP)
		// A rejected code must keep its tries increment, so this branch
		// commits instead of rolling back with the rest.
		if errors.Is(err, domain.ErrInvalidToken) {
			otpErr = err
			return nil
		}
		return err
	})
	if err == nil {
		err = otpErr
	}
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			s.metrics.RecordOTPFailure()
		}
		s.metrics.RecordAuthAttempt("authenticate", false)
		return nil, err
	}

	s.metrics.RecordAuthAttempt("authenticate", true)
	return &domain.AuthenticateResult{
		LoginToken: rawToken,
		ExpiresAt:  session.ExpiresAt,
	}, nil
}

// VerifyAccount consumes the verification OTP session and marks the owner
// verified in the same transaction.
func (s *Service) VerifyAccount(ctx context.Context, req domain.VerifyAccountRequest) error {
	var otpErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userID, err := s.sessions.ConsumeVerification(ctx, tx, req.SessionID, req.OTP)
		// Same as Authenticate: the tries increment survives a wrong code.
		if errors.Is(err, domain.ErrInvalidToken) {
			otpErr = err
			return nil
		}
		if err != nil {
			return err
		}
		return s.users.MarkUserVerified(ctx, tx, userID)
	})
	if err == nil {
		err = otpErr
	}
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			s.metrics.RecordOTPFailure()
		}
		s.metrics.RecordAuthAttempt("verify_account", false)
		return err
	}
	s.metrics.RecordAuthAttempt("verify_account", true)
	return nil
}

// SendVerification re-issues the verification session. It succeeds quietly
// for unknown or already verified addresses so the endpoint does not leak
// which emails exist.
func (s *Service) SendVerification(ctx context.Context, emailAddr string) error {
	normalized, err := normalizeEmail(emailAddr)
	if err != nil {
		return nil
	}
	user, err := s.users.FindUserByEmail(ctx, s.db, normalized)
	if err != nil {
		return err
	}
	if user == nil || user.Verified {
		return nil
	}

	var issued lifecycle.Issued
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.sessions.DiscardVerifications(ctx, tx, user.ID); err != nil {
			return err
		}
		_, issued, err = s.sessions.IssueVerification(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		return err
	}

	s.enqueueVerificationEmail(user, issued)
	return nil
}

// CurrentUser resolves the login cookie to its owner. Every failure mode
// collapses to the same error so callers cannot distinguish missing from
// expired sessions.
func (s *Service) CurrentUser(ctx context.Context, rawLoginToken string) (*identitydomain.User, error) {
	if strings.TrimSpace(rawLoginToken) == "" {
		return nil, domain.ErrNotAuthenticated
	}

	session, err := s.sessions.ResolveLogin(ctx, s.db, rawLoginToken)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrNotAuthenticated
		}
		return nil, err
	}

	user, err := s.users.FindUserByID(ctx, s.db, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Verified {
		return nil, domain.ErrNotAuthenticated
	}
	return user, nil
}

// OptionalCurrentUser swallows every failure and reports anonymous instead,
// for endpoints that serve both states.
func (s *Service) OptionalCurrentUser(ctx context.Context, rawLoginToken string) *identitydomain.User {
	user, err := s.CurrentUser(ctx, rawLoginToken)
	if err != nil {
		return nil
	}
	return user
}

func (s *Service) ensureNamedRole(ctx context.Context, tx *gorm.DB, userID snowflake.ID, name string) error {
	role, err := s.users.FindRoleByName(ctx, tx, name)
	if err != nil {
		return err
	}
	if role == nil {
		role = &identitydomain.Role{ID: s.genID.Generate(), Name: &name}
		if err := s.users.InsertRole(ctx, tx, role); err != nil {
			return err
		}
	}
	return s.users.AttachRole(ctx, tx, userID, role.ID)
}

func (s *Service) enqueueVerificationEmail(user *identitydomain.User, issued lifecycle.Issued) {
	settings := s.settings.Current()
	to := user.Email
	data := map[string]any{
		"name":             user.DisplayName,
		"otp":              issued.OTP,
		"verification_url": fmt.Sprintf("%s/verify-account?session=%s", s.cfg.FrontendBaseURL, issued.RawID),
		"expires_in":       settings.VerificationSessionTTL.String(),
	}
	s.runner.Submit("email.account_verification", func(ctx context.Context) error {
		err := s.mailer.SendTemplate(ctx, []string{to}, email.TemplateAccountVerification, data)
		s.metrics.RecordEmailSent(email.TemplateAccountVerification, err == nil)
		return err
	})
}

func (s *Service) enqueueLoginOTPEmail(user *identitydomain.User, issued lifecycle.Issued) {
	settings := s.settings.Current()
	to := user.Email
	data := map[string]any{
		"otp":        issued.OTP,
		"expires_in": settings.AuthSessionTTL.String(),
	}
	s.runner.Submit("email.login_otp", func(ctx context.Context) error {
		err := s.mailer.SendTemplate(ctx, []string{to}, email.TemplateLoginOTP, data)
		s.metrics.RecordEmailSent(email.TemplateLoginOTP, err == nil)
		return err
	})
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}
