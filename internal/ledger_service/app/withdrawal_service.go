package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pixbank/golang_services/internal/ledger_service/domain"
	"github.com/pixbank/golang_services/internal/ledger_service/repository"
	"github.com/shopspring/decimal"
)

const defaultListLimit = 50

// WithdrawalService runs the outbound lifecycle: request, admin decision, debit.
type WithdrawalService struct {
	db       repository.DB
	repos    Repositories
	balances *BalanceManager
	events   EventPublisher
	logger   *slog.Logger
	now      func() time.Time
}

func NewWithdrawalService(
	db repository.DB,
	repos Repositories,
	balances *BalanceManager,
	events EventPublisher,
	logger *slog.Logger,
) *WithdrawalService {
	if events == nil {
		events = noopPublisher{}
	}
	return &WithdrawalService{
		db:       db,
		repos:    repos,
		balances: balances,
		events:   events,
		logger:   logger.With("service", "withdrawal"),
		now:      time.Now,
	}
}

// Request records a pending withdrawal. The balance is read under the account row lock
// in the same transaction as the insert, and amounts already reserved by other pending
// withdrawals count against it. The balance itself is not touched.
func (s *WithdrawalService) Request(ctx context.Context, actor Actor, amount decimal.Decimal, pixKey string) (*domain.Withdrawal, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	pixKey = strings.TrimSpace(pixKey)
	if err := validateMoney("amount", amount); err != nil {
		withdrawalRequestsCounter.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if pixKey == "" {
		withdrawalRequestsCounter.WithLabelValues("invalid").Inc()
		return nil, domain.NewValidationError("pix_key", "is required")
	}

	now := s.now()
	w := &domain.Withdrawal{
		ID:        uuid.NewString(),
		UserID:    actor.UserID,
		Amount:    amount,
		Fee:       domain.WithdrawalFee,
		PixKey:    pixKey,
		Status:    domain.WithdrawalStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		acct, err := s.balances.Lock(ctx, tx, actor.UserID)
		if err != nil {
			return err
		}
		reserved, err := s.repos.Withdrawals.SumPendingByUser(ctx, tx, actor.UserID)
		if err != nil {
			return err
		}
		available := acct.Balance.Sub(reserved)
		if w.Total().GreaterThan(available) {
			return fmt.Errorf("%w: requested %s, available %s",
				domain.ErrInsufficientFunds, w.Total().StringFixed(2), available.StringFixed(2))
		}

		if err := s.repos.Withdrawals.Create(ctx, tx, w); err != nil {
			return err
		}
		userID := actor.UserID
		entry := domain.NewActivityLog(ctx, uuid.NewString(), &userID, domain.ActionWithdrawalRequested,
			fmt.Sprintf("Withdrawal of R$ %s requested to %s", amount.StringFixed(2), pixKey), now)
		return s.repos.ActivityLogs.Create(ctx, tx, entry)
	})
	withdrawalRequestsCounter.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		s.logger.WarnContext(ctx, "Withdrawal request rejected", "error", err, "user_id", actor.UserID, "amount", amount.StringFixed(2))
		return nil, err
	}

	s.logger.InfoContext(ctx, "Withdrawal requested", "withdrawal_id", w.ID, "user_id", actor.UserID, "amount", amount.StringFixed(2))
	s.publish(ctx, domain.SubjectWithdrawalRequested, withdrawalEvent(w, now))
	return w, nil
}

// Decide approves or rejects a pending withdrawal exactly once. Approval re-validates and
// debits amount+fee from the owner's current balance in the same transaction.
func (s *WithdrawalService) Decide(ctx context.Context, actor Actor, withdrawalID, status string, notes *string) (*domain.Withdrawal, error) {
	if err := Authorize(actor, CapApproveWithdrawals); err != nil {
		return nil, err
	}
	decision, err := domain.ParseDecision(status)
	if err != nil {
		withdrawalDecisionsCounter.WithLabelValues("unknown", "invalid").Inc()
		return nil, err
	}

	now := s.now()
	var decided *domain.Withdrawal
	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		w, err := s.repos.Withdrawals.GetByIDForUpdate(ctx, tx, withdrawalID)
		if err != nil {
			return err
		}
		if err := w.Decide(decision, actor.UserID, notes, now); err != nil {
			return err
		}

		action := domain.ActionWithdrawalRejected
		if decision == domain.WithdrawalStatusApproved {
			action = domain.ActionWithdrawalApproved
			if _, err := s.balances.AdjustBalance(ctx, tx, w.UserID, w.Total().Neg()); err != nil {
				return err
			}
			pixKey := w.PixKey
			if err := s.repos.Transactions.Create(ctx, tx, &domain.Transaction{
				ID:          uuid.NewString(),
				UserID:      w.UserID,
				Type:        domain.TransactionTypeWithdraw,
				Amount:      w.Amount,
				Fee:         w.Fee,
				Description: fmt.Sprintf("Withdrawal to %s", w.PixKey),
				PixKey:      &pixKey,
				Status:      domain.TransactionStatusCompleted,
				CreatedAt:   now,
			}); err != nil {
				return err
			}
		}

		if err := s.repos.Withdrawals.UpdateDecision(ctx, tx, w); err != nil {
			return err
		}
		adminID := actor.UserID
		entry := domain.NewActivityLog(ctx, uuid.NewString(), &adminID, action,
			fmt.Sprintf("Withdrawal %s %s for user %s (R$ %s)", w.ID, decision, w.UserID, w.Amount.StringFixed(2)), now)
		if err := s.repos.ActivityLogs.Create(ctx, tx, entry); err != nil {
			return err
		}
		decided = w
		return nil
	})
	withdrawalDecisionsCounter.WithLabelValues(string(decision), resultLabel(err)).Inc()
	if err != nil {
		s.logger.WarnContext(ctx, "Withdrawal decision failed", "error", err, "withdrawal_id", withdrawalID, "decision", decision, "admin_id", actor.UserID)
		return nil, err
	}

	s.logger.InfoContext(ctx, "Withdrawal decided", "withdrawal_id", decided.ID, "decision", decision, "admin_id", actor.UserID, "user_id", decided.UserID)
	s.publish(ctx, domain.SubjectWithdrawalDecided, withdrawalEvent(decided, now))
	return decided, nil
}

// ListForUser returns the caller's own withdrawals, newest first.
func (s *WithdrawalService) ListForUser(ctx context.Context, actor Actor) ([]domain.Withdrawal, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	return s.repos.Withdrawals.ListByUser(ctx, s.db, actor.UserID, defaultListLimit)
}

// ListPending is the admin review queue, oldest first.
func (s *WithdrawalService) ListPending(ctx context.Context, actor Actor) ([]domain.PendingWithdrawal, error) {
	if err := Authorize(actor, CapApproveWithdrawals); err != nil {
		return nil, err
	}
	return s.repos.Withdrawals.ListPending(ctx, s.db)
}

func (s *WithdrawalService) publish(ctx context.Context, subject string, payload any) {
	if err := s.events.Publish(ctx, subject, payload); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event", "subject", subject, "error", err)
	}
}

func withdrawalEvent(w *domain.Withdrawal, at time.Time) domain.WithdrawalEvent {
	return domain.WithdrawalEvent{
		WithdrawalID: w.ID,
		UserID:       w.UserID,
		Amount:       w.Amount,
		Fee:          w.Fee,
		Status:       w.Status,
		ProcessedBy:  w.ProcessedBy,
		OccurredAt:   at,
	}
}
