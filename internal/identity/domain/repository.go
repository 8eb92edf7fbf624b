package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user_not_found")
	ErrRoleNotFound = errors.New("role_not_found")
	ErrDuplicate    = errors.New("duplicate")
)

type Repository interface {
	InsertUser(ctx context.Context, db *gorm.DB, user *User) error
	FindUserByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindUserByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	FindUserByUsername(ctx context.Context, db *gorm.DB, username string) (*User, error)
	MarkUserVerified(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	InsertRole(ctx context.Context, db *gorm.DB, role *Role) error
	AttachRole(ctx context.Context, db *gorm.DB, userID, roleID snowflake.ID) error
	FindRoleByName(ctx context.Context, db *gorm.DB, name string) (*Role, error)
	RolesForUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]Role, error)
	DeleteRole(ctx context.Context, db *gorm.DB, roleID snowflake.ID) error

	InsertPermission(ctx context.Context, db *gorm.DB, permission *Permission) error
	HasPermission(ctx context.Context, db *gorm.DB, roleID snowflake.ID, resource Resource, resourceID *snowflake.ID, action Action) (bool, error)
	DeleteResourcePermissions(ctx context.Context, db *gorm.DB, resource Resource, resourceID snowflake.ID) error
}
