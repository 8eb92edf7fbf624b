// Package seed guarantees the named roles exist before the first request.
package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/quillform/quillform/internal/identity/domain"
	"gorm.io/gorm"
)

// EnsureBaseRoles creates the admin and superadmin roles when missing.
// Registration attaches them to allow-listed accounts.
func EnsureBaseRoles(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range []string{identitydomain.AdminRoleName, identitydomain.SuperAdminRoleName} {
			if err := ensureRoleTx(ctx, tx, node, name); err != nil {
				return err
			}
		}
		return nil
	})
}

func ensureRoleTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, name string) error {
	var role identitydomain.Role
	err := tx.WithContext(ctx).Where("name = ?", name).First(&role).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	role = identitydomain.Role{
		ID:   node.Generate(),
		Name: &name,
	}
	return tx.WithContext(ctx).Create(&role).Error
}
