package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/quillform/quillform/internal/response/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertSession(ctx context.Context, db *gorm.DB, session *domain.AnswerSession) error {
	return db.WithContext(ctx).Create(session).Error
}

func (r *repo) FindSessionByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.AnswerSession, error) {
	var session domain.AnswerSession
	err := db.WithContext(ctx).
		Preload("Answers").
		First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repo) UpdateSession(ctx context.Context, db *gorm.DB, session *domain.AnswerSession) error {
	return db.WithContext(ctx).
		Model(&domain.AnswerSession{}).
		Where("id = ?", session.ID).
		Updates(map[string]any{
			"submitted":    session.Submitted,
			"submitted_at": session.SubmittedAt,
		}).Error
}

func (r *repo) ListSubmitted(ctx context.Context, db *gorm.DB, formID snowflake.ID, offset, limit int) ([]domain.AnswerSession, error) {
	q := db.WithContext(ctx).
		Preload("Answers").
		Where("form_id = ? AND submitted = ?", formID, true).
		Order("submitted_at asc, id asc").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var sessions []domain.AnswerSession
	if err := q.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repo) InsertAnswer(ctx context.Context, db *gorm.DB, answer *domain.FieldAnswer) error {
	return db.WithContext(ctx).Create(answer).Error
}

func (r *repo) FindAnswerByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.FieldAnswer, error) {
	var answer domain.FieldAnswer
	err := db.WithContext(ctx).First(&answer, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAnswerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

func (r *repo) FindAnswer(ctx context.Context, db *gorm.DB, sessionID, fieldID snowflake.ID) (*domain.FieldAnswer, error) {
	var answer domain.FieldAnswer
	err := db.WithContext(ctx).
		First(&answer, "session_id = ? AND field_id = ?", sessionID, fieldID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

func (r *repo) UpdateAnswer(ctx context.Context, db *gorm.DB, answer *domain.FieldAnswer) error {
	return db.WithContext(ctx).
		Model(&domain.FieldAnswer{}).
		Where("id = ?", answer.ID).
		Update("value", answer.Value).Error
}

func (r *repo) DeleteAnswer(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Delete(&domain.FieldAnswer{}, "id = ?", id).Error
}
