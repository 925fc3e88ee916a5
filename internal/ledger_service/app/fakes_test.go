package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pixbank/golang_services/internal/ledger_service/domain"
	"github.com/pixbank/golang_services/internal/ledger_service/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

var errNotSupported = errors.New("memLedger: raw SQL not supported")

// memState is everything a transaction may roll back.
type memState struct {
	accounts     map[string]domain.Account
	transactions []domain.Transaction
	withdrawals  map[string]domain.Withdrawal
	pix          map[string]domain.PixPayment
	logs         []domain.ActivityLog
}

func (s memState) clone() memState {
	c := memState{
		accounts:     make(map[string]domain.Account, len(s.accounts)),
		transactions: append([]domain.Transaction(nil), s.transactions...),
		withdrawals:  make(map[string]domain.Withdrawal, len(s.withdrawals)),
		pix:          make(map[string]domain.PixPayment, len(s.pix)),
		logs:         append([]domain.ActivityLog(nil), s.logs...),
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.withdrawals {
		c.withdrawals[k] = v
	}
	for k, v := range s.pix {
		c.pix[k] = v
	}
	return c
}

// memLedger is an in-memory ledger store. Transactions are fully serialized, which is a
// stricter form of the per-account row locks used by the PostgreSQL store.
type memLedger struct {
	txMu  sync.Mutex
	mu    sync.Mutex
	state memState
	// failures makes the named repository operation fail once.
	failures map[string]error
}

func newMemLedger() *memLedger {
	return &memLedger{
		state: memState{
			accounts:    map[string]domain.Account{},
			withdrawals: map[string]domain.Withdrawal{},
			pix:         map[string]domain.PixPayment{},
		},
		failures: map[string]error{},
	}
}

func (m *memLedger) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errNotSupported
}

func (m *memLedger) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errNotSupported
}

func (m *memLedger) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func (m *memLedger) Begin(context.Context) (pgx.Tx, error) {
	m.txMu.Lock()
	m.mu.Lock()
	snap := m.state.clone()
	m.mu.Unlock()
	return &memTx{db: m, snap: snap}, nil
}

// failOnce must be called with no transaction open.
func (m *memLedger) failOnce(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = err
}

// takeFailure must be called with m.mu held.
func (m *memLedger) takeFailure(op string) error {
	err, ok := m.failures[op]
	if ok {
		delete(m.failures, op)
	}
	return err
}

func (m *memLedger) addAccount(id string, role domain.Role, balance string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.accounts[id] = domain.Account{
		UserID: id, FullName: "User " + id, Email: id + "@example.com", Role: role,
		Balance: decimal.RequireFromString(balance), IsActive: true, CreatedAt: time.Now(),
	}
}

func (m *memLedger) setBalance(id, balance string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.state.accounts[id]
	a.Balance = decimal.RequireFromString(balance)
	m.state.accounts[id] = a
}

func (m *memLedger) balance(id string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.accounts[id].Balance
}

func (m *memLedger) transactionsOf(userID string, typ domain.TransactionType) []domain.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Transaction
	for _, t := range m.state.transactions {
		if t.UserID == userID && t.Type == typ {
			out = append(out, t)
		}
	}
	return out
}

func (m *memLedger) pixByID(pixID string) (domain.PixPayment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.state.pix[pixID]
	return p, ok
}

func (m *memLedger) withdrawalByID(id string) domain.Withdrawal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.withdrawals[id]
}

func (m *memLedger) withdrawalCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.withdrawals)
}

func (m *memLedger) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, l := range m.state.logs {
		out = append(out, l.Action)
	}
	return out
}

func (m *memLedger) repositories() Repositories {
	return Repositories{
		Accounts:     memAccounts{m},
		Transactions: memTransactions{m},
		Withdrawals:  memWithdrawals{m},
		PixPayments:  memPixPayments{m},
		ActivityLogs: memActivityLogs{m},
		Stats:        memStats{m},
	}
}

type memTx struct {
	pgx.Tx
	db   *memLedger
	snap memState
	done bool
}

func (t *memTx) Commit(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.db.txMu.Unlock()
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.db.mu.Lock()
	t.db.state = t.snap
	t.db.mu.Unlock()
	t.db.txMu.Unlock()
	return nil
}

type memAccounts struct{ m *memLedger }

func (r memAccounts) GetByID(_ context.Context, _ repository.Querier, userID string) (*domain.Account, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.state.accounts[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &a, nil
}

func (r memAccounts) GetByIDForUpdate(ctx context.Context, q repository.Querier, userID string) (*domain.Account, error) {
	return r.GetByID(ctx, q, userID)
}

func (r memAccounts) UpdateBalance(_ context.Context, _ repository.Querier, userID string, balance decimal.Decimal) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.takeFailure("UpdateBalance"); err != nil {
		return err
	}
	a, ok := r.m.state.accounts[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if balance.IsNegative() {
		return errors.New("check constraint users_balance_non_negative violated")
	}
	a.Balance = balance
	r.m.state.accounts[userID] = a
	return nil
}

func (r memAccounts) ListCustomers(context.Context, repository.Querier) ([]domain.Account, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []domain.Account
	for _, a := range r.m.state.accounts {
		if a.Role == domain.RoleUser {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

type memTransactions struct{ m *memLedger }

func (r memTransactions) Create(_ context.Context, _ repository.Querier, t *domain.Transaction) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.takeFailure("CreateTransaction"); err != nil {
		return err
	}
	r.m.state.transactions = append(r.m.state.transactions, *t)
	return nil
}

func (r memTransactions) ListByUser(_ context.Context, _ repository.Querier, userID string, limit int) ([]domain.Transaction, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []domain.Transaction
	for i := len(r.m.state.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		if t := r.m.state.transactions[i]; t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

type memWithdrawals struct{ m *memLedger }

func (r memWithdrawals) Create(_ context.Context, _ repository.Querier, w *domain.Withdrawal) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.state.withdrawals[w.ID] = *w
	return nil
}

func (r memWithdrawals) GetByID(_ context.Context, _ repository.Querier, id string) (*domain.Withdrawal, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	w, ok := r.m.state.withdrawals[id]
	if !ok {
		return nil, domain.ErrWithdrawalNotFound
	}
	return &w, nil
}

func (r memWithdrawals) GetByIDForUpdate(ctx context.Context, q repository.Querier, id string) (*domain.Withdrawal, error) {
	return r.GetByID(ctx, q, id)
}

func (r memWithdrawals) UpdateDecision(_ context.Context, _ repository.Querier, w *domain.Withdrawal) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	current, ok := r.m.state.withdrawals[w.ID]
	if !ok || current.Status != domain.WithdrawalStatusPending {
		return domain.ErrAlreadyProcessed
	}
	r.m.state.withdrawals[w.ID] = *w
	return nil
}

func (r memWithdrawals) ListByUser(_ context.Context, _ repository.Querier, userID string, limit int) ([]domain.Withdrawal, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []domain.Withdrawal
	for _, w := range r.m.state.withdrawals {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memWithdrawals) ListPending(context.Context, repository.Querier) ([]domain.PendingWithdrawal, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []domain.PendingWithdrawal
	for _, w := range r.m.state.withdrawals {
		if w.Status == domain.WithdrawalStatusPending {
			owner := r.m.state.accounts[w.UserID]
			out = append(out, domain.PendingWithdrawal{
				Withdrawal: w, UserFullName: owner.FullName, UserEmail: owner.Email, UserBalance: owner.Balance,
			})
		}
	}
	return out, nil
}

func (r memWithdrawals) SumPendingByUser(_ context.Context, _ repository.Querier, userID string) (decimal.Decimal, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	total := decimal.Zero
	for _, w := range r.m.state.withdrawals {
		if w.UserID == userID && w.Status == domain.WithdrawalStatusPending {
			total = total.Add(w.Total())
		}
	}
	return total, nil
}

type memPixPayments struct{ m *memLedger }

func (r memPixPayments) Create(_ context.Context, _ repository.Querier, p *domain.PixPayment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, exists := r.m.state.pix[p.PixID]; exists {
		return errors.New("duplicate pix id")
	}
	r.m.state.pix[p.PixID] = *p
	return nil
}

func (r memPixPayments) GetByPixID(_ context.Context, _ repository.Querier, pixID string) (*domain.PixPayment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.state.pix[pixID]
	if !ok {
		return nil, domain.ErrPixPaymentNotFound
	}
	return &p, nil
}

func (r memPixPayments) MarkPaid(_ context.Context, _ repository.Querier, pixID string, paidAt time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.state.pix[pixID]
	if !ok || p.Status != domain.PixStatusPending || p.ExpiresAt.Before(paidAt) {
		return false, nil
	}
	p.Status = domain.PixStatusPaid
	p.PaidAt = &paidAt
	r.m.state.pix[pixID] = p
	return true, nil
}

func (r memPixPayments) MarkExpired(_ context.Context, _ repository.Querier, pixID string, now time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.state.pix[pixID]
	if !ok || p.Status != domain.PixStatusPending || !p.ExpiresAt.Before(now) {
		return false, nil
	}
	p.Status = domain.PixStatusExpired
	r.m.state.pix[pixID] = p
	return true, nil
}

func (r memPixPayments) ExpireOverdue(_ context.Context, _ repository.Querier, now time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for id, p := range r.m.state.pix {
		if p.Status == domain.PixStatusPending && p.ExpiresAt.Before(now) {
			p.Status = domain.PixStatusExpired
			r.m.state.pix[id] = p
			n++
		}
	}
	return n, nil
}

type memActivityLogs struct{ m *memLedger }

func (r memActivityLogs) Create(_ context.Context, _ repository.Querier, e *domain.ActivityLog) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.state.logs = append(r.m.state.logs, *e)
	return nil
}

type memStats struct{ m *memLedger }

func (r memStats) AdminStats(_ context.Context, _ repository.Querier, since time.Time) (*domain.AdminStats, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s := &domain.AdminStats{TotalRevenue: decimal.Zero}
	for _, t := range r.m.state.transactions {
		if t.Status == domain.TransactionStatusCompleted {
			s.TotalRevenue = s.TotalRevenue.Add(t.Fee)
		}
		if !t.CreatedAt.Before(since) {
			s.TodayTransactions++
		}
	}
	for _, a := range r.m.state.accounts {
		if a.Role == domain.RoleUser && a.IsActive {
			s.ActiveUsers++
		}
	}
	for _, w := range r.m.state.withdrawals {
		if w.Status == domain.WithdrawalStatusPending {
			s.PendingWithdrawals++
		}
	}
	return s, nil
}

// --- Mocks ---

type MockPixGateway struct {
	mock.Mock
}

func (m *MockPixGateway) CreateCharge(ctx context.Context, amount decimal.Decimal, payerRef string) (*domain.Charge, error) {
	args := m.Called(ctx, amount, payerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Charge), args.Error(1)
}

func (m *MockPixGateway) CheckCharge(ctx context.Context, externalID string) (*domain.ChargeCheck, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChargeCheck), args.Error(1)
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.subjects...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
