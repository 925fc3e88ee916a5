package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is a user's authorization role.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Account is the ledger view of a user row: identity, role and the mutable balance.
type Account struct {
	UserID    string          `json:"id"`
	FullName  string          `json:"full_name"`
	Email     string          `json:"email"`
	CPF       string          `json:"cpf"`
	Role      Role            `json:"role"`
	Balance   decimal.Decimal `json:"balance"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
}
