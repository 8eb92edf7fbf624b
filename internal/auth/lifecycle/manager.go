// Package lifecycle owns the session state machines. All mutations of the
// three session kinds happen here; callers orchestrate but never flip flags
// or counters themselves.
package lifecycle

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/quillform/quillform/internal/auth/domain"
	"github.com/quillform/quillform/internal/auth/token"
	"github.com/quillform/quillform/internal/clock"
	"github.com/quillform/quillform/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Issued carries the secrets handed to the client when a session is created.
// They are never persisted in this form.
type Issued struct {
	RawID string
	OTP   string
}

type Manager struct {
	log      *zap.Logger
	repo     domain.SessionRepository
	clock    clock.Clock
	genID    *snowflake.Node
	settings *config.AuthSettingsHolder
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Repo     domain.SessionRepository
	Clock    clock.Clock
	GenID    *snowflake.Node
	Settings *config.AuthSettingsHolder
}

func New(p Params) *Manager {
	return &Manager{
		log:      p.Log.Named("auth.lifecycle"),
		repo:     p.Repo,
		clock:    p.Clock,
		genID:    p.GenID,
		settings: p.Settings,
	}
}

// IssueVerification creates an account-verification session for the user.
func (m *Manager) IssueVerification(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.AccountVerificationSession, Issued, error) {
	settings := m.settings.Current()
	raw, hash, err := token.NewOpaque(settings.SessionTokenBytes)
	if err != nil {
		return nil, Issued{}, err
	}
	otp, err := token.NewOTP(settings.OTPDigits)
	if err != nil {
		return nil, Issued{}, err
	}

	now := m.clock.Now()
	session := &domain.AccountVerificationSession{
		ID:        m.genID.Generate(),
		TokenHash: hash,
		UserID:    userID,
		OTP:       otp,
		MaxTries:  settings.MaxTries,
		ExpiresAt: now.Add(settings.VerificationSessionTTL),
		CreatedAt: now,
	}
	if err := m.repo.InsertVerificationSession(ctx, db, session); err != nil {
		return nil, Issued{}, err
	}
	return session, Issued{RawID: raw, OTP: otp}, nil
}

// IssueAuth creates a pre-login OTP session for the user.
func (m *Manager) IssueAuth(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.AuthSession, Issued, error) {
	settings := m.settings.Current()
	raw, hash, err := token.NewOpaque(settings.SessionTokenBytes)
	if err != nil {
		return nil, Issued{}, err
	}
	otp, err := token.NewOTP(settings.OTPDigits)
	if err != nil {
		return nil, Issued{}, err
	}

	now := m.clock.Now()
	session := &domain.AuthSession{
		ID:        m.genID.Generate(),
		TokenHash: hash,
		UserID:    userID,
		OTP:       otp,
		MaxTries:  settings.MaxTries,
		ExpiresAt: now.Add(settings.AuthSessionTTL),
		CreatedAt: now,
	}
	if err := m.repo.InsertAuthSession(ctx, db, session); err != nil {
		return nil, Issued{}, err
	}
	return session, Issued{RawID: raw, OTP: otp}, nil
}

// IssueLogin mints the final authenticated session.
func (m *Manager) IssueLogin(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.LoginSession, string, error) {
	settings := m.settings.Current()
	raw, hash, err := token.NewOpaque(settings.SessionTokenBytes)
	if err != nil {
		return nil, "", err
	}

	now := m.clock.Now()
	session := &domain.LoginSession{
		ID:        m.genID.Generate(),
		TokenHash: hash,
		UserID:    userID,
		ExpiresAt: now.Add(settings.LoginSessionTTL),
		CreatedAt: now,
	}
	if err := m.repo.InsertLoginSession(ctx, db, session); err != nil {
		return nil, "", err
	}
	return session, raw, nil
}

// DiscardVerifications drops all pending verification sessions for a user,
// typically before re-issuing one.
func (m *Manager) DiscardVerifications(ctx context.Context, db *gorm.DB, userID snowflake.ID) error {
	return m.repo.DeleteVerificationSessionsForUser(ctx, db, userID)
}

// ConsumeVerification runs the token-presentation transition on an
// account-verification session. On a match the session is deleted and the
// owning user id returned; a mismatch increments tries before failing. Any
// non-active state fails exactly like a missing session.
func (m *Manager) ConsumeVerification(ctx context.Context, db *gorm.DB, rawID, otp string) (snowflake.ID, error) {
	session, err := m.repo.FindVerificationSessionByTokenHash(ctx, db, token.HashOpaque(rawID))
	if err != nil {
		return 0, err
	}

	if state := session.State(m.clock.Now()); state != domain.StateActive {
		m.log.Info("verification session rejected",
			zap.String("state", string(state)),
			zap.String("session_id", session.ID.String()),
		)
		return 0, domain.ErrSessionNotFound
	}

	if !token.MatchOTP(otp, session.OTP) {
		if err := m.repo.UpdateVerificationSessionTries(ctx, db, session.ID, session.Tries+1); err != nil {
			return 0, err
		}
		return 0, domain.ErrInvalidToken
	}

	if err := m.repo.DeleteVerificationSession(ctx, db, session.ID); err != nil {
		return 0, err
	}
	return session.UserID, nil
}

// ConsumeAuth runs the token-presentation transition on an auth session. On
// a match the session is soft-expired and a fresh login session minted, so
// the one-time code cannot be replayed.
func (m *Manager) ConsumeAuth(ctx context.Context, db *gorm.DB, rawID, otp string) (*domain.LoginSession, string, error) {
	session, err := m.repo.FindAuthSessionByTokenHash(ctx, db, token.HashOpaque(rawID))
	if err != nil {
		return nil, "", err
	}

	if state := session.State(m.clock.Now()); state != domain.StateActive {
		m.log.Info("auth session rejected",
			zap.String("state", string(state)),
			zap.String("session_id", session.ID.String()),
		)
		return nil, "", domain.ErrSessionNotFound
	}

	if !token.MatchOTP(otp, session.OTP) {
		if err := m.repo.UpdateAuthSessionTries(ctx, db, session.ID, session.Tries+1); err != nil {
			return nil, "", err
		}
		return nil, "", domain.ErrInvalidToken
	}

	if err := m.repo.ExpireAuthSession(ctx, db, session.ID); err != nil {
		return nil, "", err
	}
	return m.IssueLogin(ctx, db, session.UserID)
}

// ResolveLogin validates a login session token passively. It never mutates
// the session.
func (m *Manager) ResolveLogin(ctx context.Context, db *gorm.DB, rawToken string) (*domain.LoginSession, error) {
	session, err := m.repo.FindLoginSessionByTokenHash(ctx, db, token.HashOpaque(rawToken))
	if err != nil {
		return nil, err
	}
	if state := session.State(m.clock.Now()); state != domain.StateActive {
		m.log.Debug("login session rejected",
			zap.String("state", string(state)),
			zap.String("session_id", session.ID.String()),
		)
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}
