package app

import (
	"context"
	"log/slog"

	"github.com/pixbank/golang_services/internal/ledger_service/domain"
	"github.com/pixbank/golang_services/internal/ledger_service/repository"
)

// StatementService exposes a user's own balance and transaction history.
type StatementService struct {
	db     repository.DB
	repos  Repositories
	logger *slog.Logger
}

func NewStatementService(db repository.DB, repos Repositories, logger *slog.Logger) *StatementService {
	return &StatementService{db: db, repos: repos, logger: logger.With("service", "statement")}
}

func (s *StatementService) Account(ctx context.Context, actor Actor) (*domain.Account, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	return s.repos.Accounts.GetByID(ctx, s.db, actor.UserID)
}

// Transactions returns the newest transactions of the caller; limit <= 0 means 50.
func (s *StatementService) Transactions(ctx context.Context, actor Actor, limit int) ([]domain.Transaction, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	return s.repos.Transactions.ListByUser(ctx, s.db, actor.UserID, limit)
}
