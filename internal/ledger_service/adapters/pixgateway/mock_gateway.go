package pixgateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pixbank/golang_services/internal/ledger_service/domain"
	"github.com/shopspring/decimal"
)

// MockGateway is an in-process gateway for local runs. A charge is reported approved once
// ApproveAfter has elapsed since it was created.
type MockGateway struct {
	logger       *slog.Logger
	ApproveAfter time.Duration

	mu      sync.Mutex
	charges map[string]time.Time
	now     func() time.Time
}

func NewMockGateway(logger *slog.Logger, approveAfter time.Duration) *MockGateway {
	return &MockGateway{
		logger:       logger.With("adapter", "mock_pix_gateway"),
		ApproveAfter: approveAfter,
		charges:      map[string]time.Time{},
		now:          time.Now,
	}
}

func (m *MockGateway) CreateCharge(ctx context.Context, amount decimal.Decimal, payerRef string) (*domain.Charge, error) {
	id := "mock_" + uuid.NewString()
	m.mu.Lock()
	m.charges[id] = m.now()
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "Mock charge created", "pix_id", id, "amount", amount.StringFixed(2), "payer", payerRef)
	return &domain.Charge{
		ExternalID:  id,
		PayableCode: fmt.Sprintf("00020126MOCK%s5204000053039865406%s", id, amount.StringFixed(2)),
	}, nil
}

func (m *MockGateway) CheckCharge(ctx context.Context, externalID string) (*domain.ChargeCheck, error) {
	m.mu.Lock()
	created, ok := m.charges[externalID]
	m.mu.Unlock()

	switch {
	case !ok:
		return &domain.ChargeCheck{Status: domain.ChargeNotFound, RawStatus: "not_found"}, nil
	case m.now().Sub(created) >= m.ApproveAfter:
		return &domain.ChargeCheck{Status: domain.ChargeApproved, RawStatus: credPixApproved}, nil
	default:
		return &domain.ChargeCheck{Status: domain.ChargePending, RawStatus: "Aguardando Pagamento"}, nil
	}
}
