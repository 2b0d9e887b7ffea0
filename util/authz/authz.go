// Package authz holds the capability checks for role-gated operations,
// decoupled from the HTTP layer.
package authz

import "booklending/model"

// Staff reports whether the role may act on resources it does not own.
func Staff(role string) bool {
	return role == model.RoleLibrarian || role == model.RoleAdmin
}

// CanActOnLoan decides whether the caller may operate on a loan owned by
// ownerID. Owners may act on their own loans; staff on anyone's.
func CanActOnLoan(callerRole string, callerID, ownerID int64) bool {
	if callerID == ownerID {
		return true
	}
	return Staff(callerRole)
}

// ScopeUserID forces plain users onto their own user id for user-scoped
// listings; staff may query any user.
func ScopeUserID(callerRole string, callerID, requestedID int64) int64 {
	if Staff(callerRole) {
		return requestedID
	}
	return callerID
}
