package http

import (
	"time"

	ledgerdomain "github.com/pixbank/golang_services/internal/ledger_service/domain"
	"github.com/pixbank/golang_services/internal/user_service/domain"
	"github.com/shopspring/decimal"
)

// RegisterRequest defines the structure for user registration.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	FullName string `json:"full_name" validate:"required,max=255"`
	CPF      string `json:"cpf" validate:"required,max=14"`
	Phone    string `json:"phone" validate:"required,max=20"`
}

// LoginRequest defines the structure for user login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse never carries the password hash.
type UserResponse struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	CPF       string    `json:"cpf"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	Balance   string    `json:"balance"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		CPF:       u.CPF,
		Phone:     u.Phone,
		Role:      string(u.Role),
		Balance:   u.Balance.StringFixed(2),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

func accountToUserResponse(a ledgerdomain.Account) UserResponse {
	return UserResponse{
		ID:        a.UserID,
		FullName:  a.FullName,
		Email:     a.Email,
		CPF:       a.CPF,
		Role:      string(a.Role),
		Balance:   a.Balance.StringFixed(2),
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
	}
}

// Amounts are accepted as JSON numbers or decimal strings.
type GeneratePixRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=255"`
}

type PixResponse struct {
	ID          string     `json:"id"`
	PixID       string     `json:"pix_id"`
	QRCode      string     `json:"qr_code"`
	Amount      string     `json:"amount"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	ExpiresAt   time.Time  `json:"expires_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toPixResponse(p *ledgerdomain.PixPayment) PixResponse {
	return PixResponse{
		ID:          p.ID,
		PixID:       p.PixID,
		QRCode:      p.QRCode,
		Amount:      p.Amount.StringFixed(2),
		Description: p.Description,
		Status:      string(p.Status),
		ExpiresAt:   p.ExpiresAt,
		PaidAt:      p.PaidAt,
		CreatedAt:   p.CreatedAt,
	}
}

// VerifyPixRequest is used both by clients and by the gateway webhook.
type VerifyPixRequest struct {
	PixID string `json:"pix_id" validate:"required,max=255"`
}

type VerifyPixResponse struct {
	PixID         string `json:"pix_id"`
	Paid          bool   `json:"paid"`
	Status        string `json:"status"`
	GatewayStatus string `json:"gateway_status,omitempty"`
}

type WithdrawalRequest struct {
	Amount decimal.Decimal `json:"amount"`
	PixKey string          `json:"pix_key" validate:"required,max=255"`
}

type DecideWithdrawalRequest struct {
	Status     string  `json:"status" validate:"required"`
	AdminNotes *string `json:"admin_notes,omitempty" validate:"omitempty,max=1000"`
}

type WithdrawalResponse struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Amount      string     `json:"amount"`
	Fee         string     `json:"fee"`
	PixKey      string     `json:"pix_key"`
	Status      string     `json:"status"`
	AdminNotes  *string    `json:"admin_notes,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	ProcessedBy *string    `json:"processed_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toWithdrawalResponse(w *ledgerdomain.Withdrawal) WithdrawalResponse {
	return WithdrawalResponse{
		ID:          w.ID,
		UserID:      w.UserID,
		Amount:      w.Amount.StringFixed(2),
		Fee:         w.Fee.StringFixed(2),
		PixKey:      w.PixKey,
		Status:      string(w.Status),
		AdminNotes:  w.AdminNotes,
		ProcessedAt: w.ProcessedAt,
		ProcessedBy: w.ProcessedBy,
		CreatedAt:   w.CreatedAt,
	}
}

// PendingWithdrawalResponse adds the owner details shown in the admin queue.
type PendingWithdrawalResponse struct {
	WithdrawalResponse
	UserFullName string `json:"user_full_name"`
	UserEmail    string `json:"user_email"`
	UserBalance  string `json:"user_balance"`
}

type TransactionResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	Fee         string    `json:"fee"`
	Description string    `json:"description,omitempty"`
	PixID       *string   `json:"pix_id,omitempty"`
	PixKey      *string   `json:"pix_key,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func toTransactionResponse(t ledgerdomain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          t.ID,
		Type:        string(t.Type),
		Amount:      t.Amount.StringFixed(2),
		Fee:         t.Fee.StringFixed(2),
		Description: t.Description,
		PixID:       t.PixID,
		PixKey:      t.PixKey,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
	}
}

type StatsResponse struct {
	TotalRevenue       string `json:"total_revenue"`
	ActiveUsers        int64  `json:"active_users"`
	PendingWithdrawals int64  `json:"pending_withdrawals"`
	TodayTransactions  int64  `json:"today_transactions"`
}

// GenericErrorResponse for API errors
type GenericErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
