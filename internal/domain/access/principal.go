package access

import (
	"errors"
	"slices"

	"formledger/internal/errs"
)

const RoleAdministrator = "administrator"

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("insufficient permissions")
)

// Principal is the caller of an admin operation. It is always passed in
// explicitly; nothing reads a "current user" from ambient state.
type Principal struct {
	Subject string
	Roles   []string
}

func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// RequireAdministrator fails unless p is an authenticated administrator.
func RequireAdministrator(p Principal) error {
	if p.Subject == "" {
		return errs.E(errs.CodeUnauthenticated, ErrUnauthenticated, "")
	}
	if !p.HasRole(RoleAdministrator) {
		return errs.E(errs.CodeForbidden, ErrForbidden, "")
	}
	return nil
}

// Operator is the local CLI principal.
func Operator(name string) Principal {
	if name == "" {
		name = "operator"
	}
	return Principal{Subject: name, Roles: []string{RoleAdministrator}}
}
