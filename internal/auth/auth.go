package auth

import (
	"orderd/internal/apperr"
)

// Role is the capability carried by a bearer credential.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// Principal is the authenticated caller of an operation.
type Principal struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the caller holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// RequireAdmin fails with Forbidden unless the caller is an admin.
func RequireAdmin(p Principal) error {
	if !p.IsAdmin() {
		return apperr.New(apperr.Forbidden, "Access denied")
	}
	return nil
}

// RequireOwner fails with Forbidden unless the caller owns the resource.
// Admins get no bypass here.
func RequireOwner(p Principal, ownerID string) error {
	if p.UserID == "" || p.UserID != ownerID {
		return apperr.New(apperr.Forbidden, "Access denied")
	}
	return nil
}

// CheckOwnership lets admins through and otherwise requires ownership.
func CheckOwnership(p Principal, ownerID string) error {
	if p.IsAdmin() {
		return nil
	}
	return RequireOwner(p, ownerID)
}
