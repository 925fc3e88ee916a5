package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	ledgerdomain "github.com/pixbank/golang_services/internal/ledger_service/domain"
	ledgerrepo "github.com/pixbank/golang_services/internal/ledger_service/repository"
	"github.com/pixbank/golang_services/internal/user_service/domain"
	"github.com/pixbank/golang_services/internal/user_service/repository"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- Mocks ---

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, q repository.Querier, user *domain.User) error {
	args := m.Called(ctx, q, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, q repository.Querier, id string) (*domain.User, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, q repository.Querier, email string) (*domain.User, error) {
	args := m.Called(ctx, q, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByCPF(ctx context.Context, q repository.Querier, cpf string) (*domain.User, error) {
	args := m.Called(ctx, q, cpf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type MockActivityLogRepository struct {
	mock.Mock
}

func (m *MockActivityLogRepository) Create(ctx context.Context, q ledgerrepo.Querier, e *ledgerdomain.ActivityLog) error {
	args := m.Called(ctx, q, e)
	return args.Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, subject string, payload any) error {
	args := m.Called(ctx, subject, payload)
	return args.Error(0)
}

type authTestComponents struct {
	db       pgxmock.PgxPoolIface
	users    *MockUserRepository
	activity *MockActivityLogRepository
	events   *MockEventPublisher
	service  *AuthService
}

func setupAuthServiceTest(t *testing.T) *authTestComponents {
	t.Helper()
	db, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(db.Close)

	c := &authTestComponents{
		db:       db,
		users:    new(MockUserRepository),
		activity: new(MockActivityLogRepository),
		events:   new(MockEventPublisher),
	}
	c.service = NewAuthService(db, c.users, c.activity, c.events, AuthConfig{
		JWTSecret:      "test-secret",
		JWTExpiryHours: 1,
		BcryptCost:     bcrypt.MinCost,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return c
}

func validInput() RegisterInput {
	return RegisterInput{
		Email:    "  Maria@Example.com ",
		Password: "s3cret!",
		FullName: "Maria Silva",
		CPF:      "123.456.789-09",
		Phone:    "+55 11 99999-0000",
	}
}

func TestAuthService_Register_Success(t *testing.T) {
	c := setupAuthServiceTest(t)
	ctx := ledgerdomain.WithRequestMeta(context.Background(), ledgerdomain.RequestMeta{IPAddress: "10.0.0.1", UserAgent: "test"})

	c.users.On("GetByEmail", mock.Anything, mock.Anything, "maria@example.com").Return(nil, repository.ErrUserNotFound).Once()
	c.users.On("GetByCPF", mock.Anything, mock.Anything, "12345678909").Return(nil, repository.ErrUserNotFound).Once()
	c.db.ExpectBegin()
	c.users.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "maria@example.com" && u.CPF == "12345678909" && u.Role == domain.RoleUser &&
			u.Balance.IsZero() && u.IsActive && u.PasswordHash != "s3cret!" && u.ID != ""
	})).Return(nil).Once()
	c.activity.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(e *ledgerdomain.ActivityLog) bool {
		return e.Action == ledgerdomain.ActionUserRegistered && e.IPAddress == "10.0.0.1" && e.UserAgent == "test"
	})).Return(nil).Once()
	c.db.ExpectCommit()
	c.db.ExpectRollback()
	c.events.On("Publish", mock.Anything, ledgerdomain.SubjectUserRegistered, mock.AnythingOfType("app.UserRegisteredEvent")).Return(nil).Once()

	user, token, err := c.service.Register(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", user.Email)
	assert.True(t, CheckPasswordHash("s3cret!", user.PasswordHash))
	assert.NotEmpty(t, token)

	identity, err := c.service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)
	assert.Equal(t, domain.RoleUser, identity.Role)

	c.users.AssertExpectations(t)
	c.activity.AssertExpectations(t)
	c.events.AssertExpectations(t)
	assert.NoError(t, c.db.ExpectationsWereMet())
}

func TestAuthService_Register_Duplicates(t *testing.T) {
	t.Run("email found by lookup", func(t *testing.T) {
		c := setupAuthServiceTest(t)
		c.users.On("GetByEmail", mock.Anything, mock.Anything, "maria@example.com").Return(&domain.User{ID: "u1"}, nil).Once()

		_, _, err := c.service.Register(context.Background(), validInput())
		assert.ErrorIs(t, err, ErrEmailExists)
	})

	t.Run("cpf found by lookup", func(t *testing.T) {
		c := setupAuthServiceTest(t)
		c.users.On("GetByEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil, repository.ErrUserNotFound).Once()
		c.users.On("GetByCPF", mock.Anything, mock.Anything, "12345678909").Return(&domain.User{ID: "u1"}, nil).Once()

		_, _, err := c.service.Register(context.Background(), validInput())
		assert.ErrorIs(t, err, ErrCPFExists)
	})

	t.Run("unique violation on insert", func(t *testing.T) {
		c := setupAuthServiceTest(t)
		c.users.On("GetByEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil, repository.ErrUserNotFound).Once()
		c.users.On("GetByCPF", mock.Anything, mock.Anything, mock.Anything).Return(nil, repository.ErrUserNotFound).Once()
		c.db.ExpectBegin()
		c.users.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(repository.ErrDuplicateCPF).Once()
		c.db.ExpectRollback()
		c.db.ExpectRollback()

		_, _, err := c.service.Register(context.Background(), validInput())
		assert.ErrorIs(t, err, ErrCPFExists)
		c.activity.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		c.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAuthService_Register_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		field  string
	}{
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }, "email"},
		{"short password", func(in *RegisterInput) { in.Password = "12345" }, "password"},
		{"password longer than bcrypt accepts", func(in *RegisterInput) { in.Password = strings.Repeat("a", 73) }, "password"},
		{"missing name", func(in *RegisterInput) { in.FullName = "  " }, "full_name"},
		{"short cpf", func(in *RegisterInput) { in.CPF = "123.456" }, "cpf"},
		{"missing phone", func(in *RegisterInput) { in.Phone = "" }, "phone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := setupAuthServiceTest(t)
			in := validInput()
			tt.mutate(&in)

			_, _, err := c.service.Register(context.Background(), in)
			require.ErrorIs(t, err, ledgerdomain.ErrValidation)
			var verr *ledgerdomain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			c.users.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hash, err := HashPassword("s3cret!", bcrypt.MinCost)
	require.NoError(t, err)
	active := &domain.User{ID: "user-1", Email: "maria@example.com", FullName: "Maria", PasswordHash: hash, Role: domain.RoleAdmin, IsActive: true, Balance: decimal.Zero}

	t.Run("success records activity", func(t *testing.T) {
		c := setupAuthServiceTest(t)
		c.users.On("GetByEmail", mock.Anything, mock.Anything, "maria@example.com").Return(active, nil).Once()
		c.activity.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(e *ledgerdomain.ActivityLog) bool {
			return e.Action == ledgerdomain.ActionUserLogin && *e.UserID == "user-1"
		})).Return(nil).Once()

		user, token, err := c.service.Login(context.Background(), "MARIA@example.com", "s3cret!")
		require.NoError(t, err)
		assert.Equal(t, "user-1", user.ID)

		identity, err := c.service.ValidateToken(token)
		require.NoError(t, err)
		assert.True(t, identity.IsAdmin())
	})

	t.Run("activity failure does not block login", func(t *testing.T) {
		c := setupAuthServiceTest(t)
		c.users.On("GetByEmail", mock.Anything, mock.Anything, mock.Anything).Return(active, nil).Once()
		c.activity.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

		_, token, err := c.service.Login(context.Background(), "maria@example.com", "s3cret!")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
	})

	t.Run("wrong password", func(t *testing.T) {
		c := setupAuthServiceTest(t)
		c.users.On("GetByEmail", mock.Anything, mock.Anything, mock.Anything).Return(active, nil).Once()

		_, _, err := c.service.Login(context.Background(), "maria@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		c := setupAuthServiceTest(t)
		c.users.On("GetByEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil, repository.ErrUserNotFound).Once()

		_, _, err := c.service.Login(context.Background(), "ghost@example.com", "s3cret!")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("inactive", func(t *testing.T) {
		c := setupAuthServiceTest(t)
		inactive := *active
		inactive.IsActive = false
		c.users.On("GetByEmail", mock.Anything, mock.Anything, mock.Anything).Return(&inactive, nil).Once()

		_, _, err := c.service.Login(context.Background(), "maria@example.com", "s3cret!")
		assert.ErrorIs(t, err, ErrUserInactive)
	})
}

func TestAuthService_ValidateToken_Rejects(t *testing.T) {
	c := setupAuthServiceTest(t)
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	c.service.now = func() time.Time { return now }

	sign := func(method jwt.SigningMethod, key any, claims accessClaims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := accessClaims{
		Role: "user",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "user-1", Issuer: "pixbank",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}

	_, err := c.service.ValidateToken(sign(jwt.SigningMethodHS256, []byte("test-secret"), valid))
	require.NoError(t, err)

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
	wrongRole := valid
	wrongRole.Role = "system"
	noSubject := valid
	noSubject.Subject = ""

	cases := map[string]string{
		"expired":      sign(jwt.SigningMethodHS256, []byte("test-secret"), expired),
		"wrong secret": sign(jwt.SigningMethodHS256, []byte("other"), valid),
		"wrong alg":    sign(jwt.SigningMethodHS512, []byte("test-secret"), valid),
		"unknown role": sign(jwt.SigningMethodHS256, []byte("test-secret"), wrongRole),
		"no subject":   sign(jwt.SigningMethodHS256, []byte("test-secret"), noSubject),
		"garbage":      "not.a.token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.service.ValidateToken(token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestNormalizeCPF(t *testing.T) {
	assert.Equal(t, "12345678909", normalizeCPF("123.456.789-09"))
	assert.Equal(t, "12345678909", normalizeCPF(" 12345678909 "))
}
