package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/quillform/quillform/internal/auth/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.SessionRepository {
	return &repo{}
}

func (r *repo) InsertLoginSession(ctx context.Context, db *gorm.DB, session *domain.LoginSession) error {
	return db.WithContext(ctx).Create(session).Error
}

func (r *repo) FindLoginSessionByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*domain.LoginSession, error) {
	var session domain.LoginSession
	err := db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repo) InsertAuthSession(ctx context.Context, db *gorm.DB, session *domain.AuthSession) error {
	return db.WithContext(ctx).Create(session).Error
}

func (r *repo) FindAuthSessionByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*domain.AuthSession, error) {
	var session domain.AuthSession
	err := db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repo) UpdateAuthSessionTries(ctx context.Context, db *gorm.DB, id snowflake.ID, tries int) error {
	tx := db.WithContext(ctx).
		Model(&domain.AuthSession{}).
		Where("id = ?", id).
		Update("tries", tries)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *repo) ExpireAuthSession(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	tx := db.WithContext(ctx).
		Model(&domain.AuthSession{}).
		Where("id = ?", id).
		Update("expired", true)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *repo) InsertVerificationSession(ctx context.Context, db *gorm.DB, session *domain.AccountVerificationSession) error {
	return db.WithContext(ctx).Create(session).Error
}

func (r *repo) FindVerificationSessionByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*domain.AccountVerificationSession, error) {
	var session domain.AccountVerificationSession
	err := db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repo) UpdateVerificationSessionTries(ctx context.Context, db *gorm.DB, id snowflake.ID, tries int) error {
	tx := db.WithContext(ctx).
		Model(&domain.AccountVerificationSession{}).
		Where("id = ?", id).
		Update("tries", tries)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *repo) DeleteVerificationSession(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Delete(&domain.AccountVerificationSession{}, "id = ?", id).Error
}

func (r *repo) DeleteVerificationSessionsForUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) error {
	return db.WithContext(ctx).Delete(&domain.AccountVerificationSession{}, "user_id = ?", userID).Error
}
