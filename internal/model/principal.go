package model

import "github.com/google/uuid"

type Role string

const (
	RoleCustomer   Role = "CUSTOMER"
	RoleTechnician Role = "TECHNICIAN"
	RoleManager    Role = "MANAGER"
)

// Principal is the verified caller identity extracted from the access token.
// Role claims are issued and verified upstream; services trust them as-is.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

func (p Principal) IsCustomer() bool {
	return p.Role == RoleCustomer
}

func (p Principal) IsTechnician() bool {
	return p.Role == RoleTechnician
}

func (p Principal) IsManager() bool {
	return p.Role == RoleManager
}
