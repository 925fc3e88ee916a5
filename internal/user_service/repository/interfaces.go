package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pixbank/golang_services/internal/user_service/domain"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrDuplicateCPF   = errors.New("cpf already registered")
)

// Querier defines common methods for DB interaction, implemented by *pgxpool.Pool and pgx.Tx
// This allows repositories to be used with or without transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB opens transactions for pgx.BeginFunc.
type DB interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// UserRepository defines the interface for user data persistence.
type UserRepository interface {
	Create(ctx context.Context, q Querier, user *domain.User) error
	GetByID(ctx context.Context, q Querier, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, q Querier, email string) (*domain.User, error)
	GetByCPF(ctx context.Context, q Querier, cpf string) (*domain.User, error)
}
