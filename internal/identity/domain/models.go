package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Resource identifies a kind of protected entity.
type Resource string

const (
	ResourceUser          Resource = "user"
	ResourceForm          Resource = "form"
	ResourceFormField     Resource = "formfield"
	ResourceFieldResponse Resource = "fieldresponse"
)

// Action identifies what a permission allows on a resource.
type Action string

const (
	ActionCreate    Action = "c"
	ActionRead      Action = "r"
	ActionWrite     Action = "w"
	ActionReadWrite Action = "rw"
	ActionDelete    Action = "d"
)

const (
	AdminRoleName      = "admin"
	SuperAdminRoleName = "superadmin"
)

type User struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Email        string       `gorm:"not null;uniqueIndex" json:"email"`
	Username     string       `gorm:"not null;uniqueIndex" json:"username"`
	PasswordHash string       `gorm:"not null" json:"-"`
	DisplayName  string       `json:"display_name"`
	Verified     bool         `gorm:"not null;default:false" json:"verified"`
	Roles        []Role       `gorm:"many2many:user_roles" json:"-"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Role groups permissions. Named roles (admin, superadmin) act as privilege
// bypass markers; unnamed roles are per-resource grant containers.
type Role struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Name        *string      `gorm:"uniqueIndex" json:"name,omitempty"`
	Permissions []Permission `gorm:"constraint:OnDelete:CASCADE" json:"permissions,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// Permission grants one action on a resource to a role. A nil ResourceID is a
// global grant; global and instance-scoped grants are distinct keyspaces and
// never satisfy each other.
type Permission struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	RoleID     snowflake.ID  `gorm:"not null;index;uniqueIndex:idx_permission_key" json:"role_id"`
	Resource   Resource      `gorm:"not null;uniqueIndex:idx_permission_key" json:"resource"`
	ResourceID *snowflake.ID `gorm:"uniqueIndex:idx_permission_key" json:"resource_id,omitempty"`
	Action     Action        `gorm:"not null;uniqueIndex:idx_permission_key" json:"action"`
	CreatedAt  time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// Named reports whether the role carries a bypass-capable name.
func (r Role) Named() bool {
	return r.Name != nil && *r.Name != ""
}
