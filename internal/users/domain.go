package users

import (
	"time"

	"github.com/odyssey-erp/assetdesk/internal/authz"
)

// User represents a user account together with its permission record.
type User struct {
	ID          string                 `json:"id"`
	Email       string                 `json:"email"`
	Name        string                 `json:"name"`
	Permissions authz.PermissionRecord `json:"permissions"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

// PermissionUpdate describes an administrative change to a permission record.
// Nil Role keeps the current role; Flags lists only the flags being changed.
type PermissionUpdate struct {
	Role  *authz.Role
	Flags map[authz.Capability]bool
}

// Empty reports whether the update changes nothing.
func (u PermissionUpdate) Empty() bool {
	return u.Role == nil && len(u.Flags) == 0
}
