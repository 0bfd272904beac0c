package types

import "github.com/m-mizutani/goerr/v2"

// UserRole decides which portal operations a user may perform
type UserRole string

const (
	UserRoleClaimant UserRole = "claimant"
	UserRoleAssessor UserRole = "assessor"
	UserRoleAdmin    UserRole = "admin"
)

// AllUserRoles returns all valid roles
func AllUserRoles() []UserRole {
	return []UserRole{UserRoleClaimant, UserRoleAssessor, UserRoleAdmin}
}

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleClaimant, UserRoleAssessor, UserRoleAdmin:
		return true
	default:
		return false
	}
}

// CanReview reports whether the role may see the review queue and record decisions
func (r UserRole) CanReview() bool {
	return r == UserRoleAssessor || r == UserRoleAdmin
}

func (r UserRole) String() string {
	return string(r)
}

// ParseUserRole parses a string into a UserRole
func ParseUserRole(s string) (UserRole, error) {
	role := UserRole(s)
	if !role.IsValid() {
		return "", goerr.Wrap(ErrInvalidValue, "invalid user role", goerr.V("role", s))
	}
	return role, nil
}
