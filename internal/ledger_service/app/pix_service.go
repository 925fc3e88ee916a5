package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pixbank/golang_services/internal/ledger_service/domain"
	"github.com/pixbank/golang_services/internal/ledger_service/repository"
	"github.com/shopspring/decimal"
)

// VerifyResult is what a caller learns from a verification.
type VerifyResult struct {
	PixID         string                  `json:"pix_id"`
	Paid          bool                    `json:"paid"`
	Status        domain.PixPaymentStatus `json:"status"`
	GatewayStatus string                  `json:"gateway_status,omitempty"`
}

// PixService runs the inbound PIX lifecycle: generate, verify, credit exactly once.
type PixService struct {
	db       repository.DB
	repos    Repositories
	balances *BalanceManager
	gateway  PixGateway
	events   EventPublisher
	logger   *slog.Logger
	now      func() time.Time
}

func NewPixService(
	db repository.DB,
	repos Repositories,
	balances *BalanceManager,
	gateway PixGateway,
	events EventPublisher,
	logger *slog.Logger,
) *PixService {
	if events == nil {
		events = noopPublisher{}
	}
	return &PixService{
		db:       db,
		repos:    repos,
		balances: balances,
		gateway:  gateway,
		events:   events,
		logger:   logger.With("service", "pix"),
		now:      time.Now,
	}
}

// Generate creates a charge at the gateway and stores it as pending. Nothing is stored
// when the gateway fails.
func (s *PixService) Generate(ctx context.Context, actor Actor, amount decimal.Decimal, description string) (*domain.PixPayment, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	// Zero and negative amounts are below the minimum too.
	if amount.LessThan(domain.PixMinimumAmount) {
		pixChargesCounter.WithLabelValues("below_minimum").Inc()
		return nil, &domain.ValidationError{
			Field:  "amount",
			Reason: fmt.Sprintf("minimum PIX amount is %s", domain.PixMinimumAmount.StringFixed(2)),
			Cause:  domain.ErrBelowMinimum,
		}
	}
	if err := validateMoney("amount", amount); err != nil {
		pixChargesCounter.WithLabelValues("invalid").Inc()
		return nil, err
	}

	start := time.Now()
	charge, err := s.gateway.CreateCharge(ctx, amount, actor.UserID)
	observeGateway("create", start, err)
	if err != nil {
		pixChargesCounter.WithLabelValues("gateway_error").Inc()
		s.logger.ErrorContext(ctx, "PIX gateway failed to create charge", "error", err, "user_id", actor.UserID, "amount", amount.StringFixed(2))
		return nil, asGatewayError(err)
	}

	now := s.now()
	p := &domain.PixPayment{
		ID:          uuid.NewString(),
		UserID:      actor.UserID,
		Amount:      domain.RoundMoney(amount),
		PixID:       charge.ExternalID,
		QRCode:      charge.PayableCode,
		Description: description,
		Status:      domain.PixStatusPending,
		ExpiresAt:   now.Add(domain.PixExpiry),
		CreatedAt:   now,
	}

	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := s.repos.PixPayments.Create(ctx, tx, p); err != nil {
			return err
		}
		userID := actor.UserID
		entry := domain.NewActivityLog(ctx, uuid.NewString(), &userID, domain.ActionPixGenerated,
			fmt.Sprintf("PIX charge %s generated for R$ %s", p.PixID, p.Amount.StringFixed(2)), now)
		return s.repos.ActivityLogs.Create(ctx, tx, entry)
	})
	if err != nil {
		pixChargesCounter.WithLabelValues("error").Inc()
		s.logger.ErrorContext(ctx, "Failed to persist PIX charge", "error", err, "pix_id", p.PixID, "user_id", actor.UserID)
		return nil, fmt.Errorf("storing pix charge: %w", err)
	}

	pixChargesCounter.WithLabelValues("success").Inc()
	s.logger.InfoContext(ctx, "PIX charge generated", "pix_id", p.PixID, "user_id", actor.UserID, "amount", p.Amount.StringFixed(2))
	return p, nil
}

// Verify asks the gateway about a charge and credits the owner once it is approved.
// Only the owner, an admin or the system actor may verify a charge. Anyone else gets
// ErrPixPaymentNotFound, the same answer as for an unknown id.
func (s *PixService) Verify(ctx context.Context, actor Actor, pixID string) (*VerifyResult, error) {
	p, err := s.repos.PixPayments.GetByPixID(ctx, s.db, pixID)
	if err != nil {
		return nil, err
	}
	if p.UserID != actor.UserID && Authorize(actor, CapVerifyAnyPix) != nil {
		s.logger.WarnContext(ctx, "PIX verify attempted by non-owner", "pix_id", pixID, "actor_id", actor.UserID)
		return nil, domain.ErrPixPaymentNotFound
	}
	return s.verify(ctx, p)
}

// HandleGatewayCallback is the provider webhook entry point. The callback body is never
// trusted: the gateway is queried again before anything is credited.
func (s *PixService) HandleGatewayCallback(ctx context.Context, pixID string) (*VerifyResult, error) {
	return s.Verify(ctx, SystemActor, pixID)
}

func (s *PixService) verify(ctx context.Context, p *domain.PixPayment) (*VerifyResult, error) {
	switch p.Status {
	case domain.PixStatusPaid:
		pixCreditsCounter.WithLabelValues("already_paid").Inc()
		return &VerifyResult{PixID: p.PixID, Paid: true, Status: domain.PixStatusPaid}, nil
	case domain.PixStatusExpired:
		pixCreditsCounter.WithLabelValues("expired").Inc()
		return &VerifyResult{PixID: p.PixID, Paid: false, Status: domain.PixStatusExpired}, nil
	}

	start := time.Now()
	check, err := s.gateway.CheckCharge(ctx, p.PixID)
	observeGateway("check", start, err)
	if err != nil {
		pixCreditsCounter.WithLabelValues("gateway_error").Inc()
		s.logger.ErrorContext(ctx, "PIX gateway failed to check charge", "error", err, "pix_id", p.PixID)
		return nil, asGatewayError(err)
	}

	now := s.now()
	if p.ExpiredAt(now) {
		// A charge observed past its deadline is never credited, even if the gateway approved it.
		if check.Status == domain.ChargeApproved {
			s.logger.WarnContext(ctx, "Gateway approved an expired PIX charge; not crediting", "pix_id", p.PixID, "expires_at", p.ExpiresAt)
		}
		return s.expire(ctx, p, now, check.RawStatus), nil
	}
	if check.Status != domain.ChargeApproved {
		pixCreditsCounter.WithLabelValues("pending").Inc()
		return &VerifyResult{PixID: p.PixID, Paid: false, Status: p.Status, GatewayStatus: check.RawStatus}, nil
	}

	if _, err := p.Status.Transition(domain.PixStatusPaid); err != nil {
		return nil, err
	}

	event, err := s.credit(ctx, p, now)
	if err != nil {
		pixCreditsCounter.WithLabelValues(resultLabel(err)).Inc()
		s.logger.ErrorContext(ctx, "Failed to credit PIX receipt", "error", err, "pix_id", p.PixID, "user_id", p.UserID)
		return nil, err
	}
	if event == nil {
		// Another verifier committed first, or the row expired in between.
		current, err := s.repos.PixPayments.GetByPixID(ctx, s.db, p.PixID)
		if err != nil {
			return nil, err
		}
		if current.Status == domain.PixStatusPending && current.ExpiredAt(now) {
			return s.expire(ctx, current, now, check.RawStatus), nil
		}
		pixCreditsCounter.WithLabelValues("already_paid").Inc()
		return &VerifyResult{
			PixID: current.PixID, Paid: current.Status == domain.PixStatusPaid,
			Status: current.Status, GatewayStatus: check.RawStatus,
		}, nil
	}

	pixCreditsCounter.WithLabelValues("credited").Inc()
	pixCreditedAmount.Add(event.Net.InexactFloat64())
	s.logger.InfoContext(ctx, "PIX receipt credited",
		"pix_id", p.PixID, "user_id", p.UserID,
		"gross", event.Gross.StringFixed(2), "fee", event.Fee.StringFixed(2), "net", event.Net.StringFixed(2))
	s.publish(ctx, domain.SubjectPixPaid, event)

	return &VerifyResult{PixID: p.PixID, Paid: true, Status: domain.PixStatusPaid, GatewayStatus: check.RawStatus}, nil
}

// credit is the commit point. The conditional pending->paid update gates every side effect;
// a nil event with a nil error means this caller lost the gate.
func (s *PixService) credit(ctx context.Context, p *domain.PixPayment, now time.Time) (*domain.PixPaidEvent, error) {
	var event *domain.PixPaidEvent
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		transitioned, err := s.repos.PixPayments.MarkPaid(ctx, tx, p.PixID, now)
		if err != nil || !transitioned {
			return err
		}

		fee, net := domain.SplitPixFee(p.Amount)
		newBalance, err := s.balances.AdjustBalance(ctx, tx, p.UserID, net)
		if err != nil {
			return err
		}

		pixID := p.PixID
		if err := s.repos.Transactions.Create(ctx, tx, &domain.Transaction{
			ID:          uuid.NewString(),
			UserID:      p.UserID,
			Type:        domain.TransactionTypeReceive,
			Amount:      p.Amount,
			Fee:         fee,
			Description: pixDescription(p),
			PixID:       &pixID,
			Status:      domain.TransactionStatusCompleted,
			CreatedAt:   now,
		}); err != nil {
			return err
		}

		userID := p.UserID
		entry := domain.NewActivityLog(ctx, uuid.NewString(), &userID, domain.ActionPaymentReceived,
			fmt.Sprintf("PIX %s received: R$ %s (fee R$ %s)", p.PixID, net.StringFixed(2), fee.StringFixed(2)), now)
		if err := s.repos.ActivityLogs.Create(ctx, tx, entry); err != nil {
			return err
		}

		event = &domain.PixPaidEvent{
			PixID: p.PixID, UserID: p.UserID, Gross: p.Amount, Fee: fee, Net: net,
			NewBalance: newBalance, PaidAt: now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *PixService) expire(ctx context.Context, p *domain.PixPayment, now time.Time, rawStatus string) *VerifyResult {
	expired, err := s.repos.PixPayments.MarkExpired(ctx, s.db, p.PixID, now)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to mark PIX charge expired", "error", err, "pix_id", p.PixID)
	} else if expired {
		pixExpiredCounter.Inc()
	}
	pixCreditsCounter.WithLabelValues("expired").Inc()
	return &VerifyResult{PixID: p.PixID, Paid: false, Status: domain.PixStatusExpired, GatewayStatus: rawStatus}
}

// ExpireOverdue moves every pending charge past its deadline to expired.
func (s *PixService) ExpireOverdue(ctx context.Context) (int64, error) {
	n, err := s.repos.PixPayments.ExpireOverdue(ctx, s.db, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		pixExpiredCounter.Add(float64(n))
		s.logger.InfoContext(ctx, "Expired overdue PIX charges", "count", n)
	}
	return n, nil
}

func (s *PixService) publish(ctx context.Context, subject string, payload any) {
	if err := s.events.Publish(ctx, subject, payload); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event", "subject", subject, "error", err)
	}
}

func pixDescription(p *domain.PixPayment) string {
	if p.Description != "" {
		return p.Description
	}
	return "PIX received"
}

func asGatewayError(err error) error {
	if errors.Is(err, domain.ErrGateway) {
		return err
	}
	return fmt.Errorf("%w: %s", domain.ErrGateway, err.Error())
}

func validateMoney(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.NewValidationError(field, "must be greater than zero")
	}
	if !domain.HasMoneyScale(amount) {
		return domain.NewValidationError(field, "must have at most two decimal places")
	}
	return nil
}
