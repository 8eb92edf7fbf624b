package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/quillform/quillform/internal/identity/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertUser(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Create(user).Error
}

func (r *repo) FindUserByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).
		Preload("Roles").
		First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) FindUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).
		Preload("Roles").
		First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) FindUserByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).First(&user, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) MarkUserVerified(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("verified", true).Error
}

func (r *repo) InsertRole(ctx context.Context, db *gorm.DB, role *domain.Role) error {
	return db.WithContext(ctx).Create(role).Error
}

func (r *repo) AttachRole(ctx context.Context, db *gorm.DB, userID, roleID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO user_roles (user_id, role_id) VALUES (?, ?)`,
		userID,
		roleID,
	).Error
}

func (r *repo) FindRoleByName(ctx context.Context, db *gorm.DB, name string) (*domain.Role, error) {
	var role domain.Role
	err := db.WithContext(ctx).First(&role, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// RolesForUser preserves attachment order so permission evaluation iterates
// roles the way they were granted.
func (r *repo) RolesForUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]domain.Role, error) {
	var roles []domain.Role
	err := db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.created_at asc, roles.id asc").
		Find(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *repo) DeleteRole(ctx context.Context, db *gorm.DB, roleID snowflake.ID) error {
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM user_roles WHERE role_id = ?`, roleID,
	).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).
		Where("role_id = ?", roleID).
		Delete(&domain.Permission{}).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Delete(&domain.Role{}, "id = ?", roleID).Error
}

func (r *repo) InsertPermission(ctx context.Context, db *gorm.DB, permission *domain.Permission) error {
	return db.WithContext(ctx).Create(permission).Error
}

func (r *repo) HasPermission(ctx context.Context, db *gorm.DB, roleID snowflake.ID, resource domain.Resource, resourceID *snowflake.ID, action domain.Action) (bool, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Permission{}).
		Where("role_id = ? AND resource = ? AND action = ?", roleID, resource, action)
	if resourceID == nil {
		stmt = stmt.Where("resource_id IS NULL")
	} else {
		stmt = stmt.Where("resource_id = ?", *resourceID)
	}

	var count int64
	if err := stmt.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) DeleteResourcePermissions(ctx context.Context, db *gorm.DB, resource domain.Resource, resourceID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("resource = ? AND resource_id = ?", resource, resourceID).
		Delete(&domain.Permission{}).Error
}
