package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role values stored in users.role.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents a bank customer or administrator.
type User struct {
	ID           string          `json:"id"`
	FullName     string          `json:"full_name"`
	Email        string          `json:"email"`
	CPF          string          `json:"cpf"`
	Phone        string          `json:"phone"`
	PasswordHash string          `json:"-"` // Never expose
	Role         Role            `json:"role"`
	Balance      decimal.Decimal `json:"balance"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// AuthenticatedUser is the identity carried by a valid access token.
type AuthenticatedUser struct {
	UserID string
	Role   Role
}

func (u AuthenticatedUser) IsAdmin() bool { return u.Role == RoleAdmin }
