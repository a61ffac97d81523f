package domain

import (
	"errors"
	"time"
)

// User is the core marketplace user entity. Accounts are created on first
// successful OTP login, so either Phone or Email may be the primary
// identifier; at least one must be set.
type User struct {
	ID        string
	Phone     string
	Email     string
	Name      string
	Role      Role
	Status    UserStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Phone == "" && u.Email == "" {
		return errors.New("phone or email is required")
	}
	if u.Role == "" {
		u.Role = RoleBuyer
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}
