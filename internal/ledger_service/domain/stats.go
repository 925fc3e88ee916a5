package domain

import "github.com/shopspring/decimal"

// AdminStats are the dashboard aggregates.
type AdminStats struct {
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	ActiveUsers        int64           `json:"active_users"`
	PendingWithdrawals int64           `json:"pending_withdrawals"`
	TodayTransactions  int64           `json:"today_transactions"`
}
