package domain

import (
	"context"
	"time"
)

// Activity action tags.
const (
	ActionUserRegistered      = "user_registered"
	ActionUserLogin           = "user_login"
	ActionPixGenerated        = "pix_generated"
	ActionPaymentReceived     = "payment_received"
	ActionWithdrawalRequested = "withdrawal_requested"
	ActionWithdrawalApproved  = "withdrawal_approved"
	ActionWithdrawalRejected  = "withdrawal_rejected"
)

// ActivityLog is a write-only audit entry.
type ActivityLog struct {
	ID        string    `json:"id"`
	UserID    *string   `json:"user_id,omitempty"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RequestMeta is the client metadata recorded on audit entries.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

type requestMetaKey struct{}

func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFrom returns the metadata stored by WithRequestMeta, or the zero value.
func RequestMetaFrom(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}

// NewActivityLog stamps an entry with the request metadata carried by ctx.
func NewActivityLog(ctx context.Context, id string, userID *string, action, details string, at time.Time) *ActivityLog {
	meta := RequestMetaFrom(ctx)
	return &ActivityLog{
		ID:        id,
		UserID:    userID,
		Action:    action,
		Details:   details,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		CreatedAt: at,
	}
}
