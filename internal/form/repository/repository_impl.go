package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/quillform/quillform/internal/form/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertForm(ctx context.Context, db *gorm.DB, form *domain.Form) error {
	return db.WithContext(ctx).Create(form).Error
}

func (r *repo) FindFormByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Form, error) {
	var form domain.Form
	err := db.WithContext(ctx).First(&form, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrFormNotFound
	}
	if err != nil {
		return nil, err
	}
	return &form, nil
}

func (r *repo) ListForms(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Form, error) {
	var forms []domain.Form
	err := db.WithContext(ctx).
		Order("created_at desc, id desc").
		Offset(offset).
		Limit(limit).
		Find(&forms).Error
	if err != nil {
		return nil, err
	}
	return forms, nil
}

func (r *repo) ListFormsByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, offset, limit int) ([]domain.Form, error) {
	var forms []domain.Form
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Offset(offset).
		Limit(limit).
		Find(&forms).Error
	if err != nil {
		return nil, err
	}
	return forms, nil
}

func (r *repo) UpdateForm(ctx context.Context, db *gorm.DB, form *domain.Form) error {
	return db.WithContext(ctx).Save(form).Error
}

func (r *repo) DeleteForm(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	if err := db.WithContext(ctx).
		Where("form_id = ?", id).
		Delete(&domain.FormField{}).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Delete(&domain.Form{}, "id = ?", id).Error
}

func (r *repo) InsertField(ctx context.Context, db *gorm.DB, field *domain.FormField) error {
	return db.WithContext(ctx).Create(field).Error
}

func (r *repo) FindFieldByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.FormField, error) {
	var field domain.FormField
	err := db.WithContext(ctx).First(&field, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrFieldNotFound
	}
	if err != nil {
		return nil, err
	}
	return &field, nil
}

func (r *repo) ListFields(ctx context.Context, db *gorm.DB, formID snowflake.ID) ([]domain.FormField, error) {
	var fields []domain.FormField
	err := db.WithContext(ctx).
		Where("form_id = ?", formID).
		Order("position asc, id asc").
		Find(&fields).Error
	if err != nil {
		return nil, err
	}
	return fields, nil
}

func (r *repo) UpdateField(ctx context.Context, db *gorm.DB, field *domain.FormField) error {
	return db.WithContext(ctx).Save(field).Error
}

func (r *repo) DeleteField(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Delete(&domain.FormField{}, "id = ?", id).Error
}
