package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	ledgerdomain "github.com/pixbank/golang_services/internal/ledger_service/domain"
	ledgerrepo "github.com/pixbank/golang_services/internal/ledger_service/repository"
	"github.com/pixbank/golang_services/internal/user_service/domain"
	"github.com/pixbank/golang_services/internal/user_service/repository"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	// bcrypt rejects longer inputs.
	maxPasswordBytes = 72
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already exists")
	ErrCPFExists          = errors.New("cpf already exists")
	ErrUserInactive       = errors.New("user account is not active")
	ErrTokenInvalid       = errors.New("token is invalid or expired")
)

func HashPassword(password string, cost int) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type AuthConfig struct {
	JWTSecret      string
	JWTExpiryHours int
	Issuer         string
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// EventPublisher is satisfied by the NATS event publisher.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// RegisterInput carries the sign-up form.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	CPF      string
	Phone    string
}

// UserRegisteredEvent is published on user.registered.
type UserRegisteredEvent struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	OccurredAt time.Time `json:"occurred_at"`
}

type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	db       repository.DB
	userRepo repository.UserRepository
	activity ledgerrepo.ActivityLogRepository
	events   EventPublisher
	config   AuthConfig
	logger   *slog.Logger
	now      func() time.Time
}

func NewAuthService(
	db repository.DB,
	userRepo repository.UserRepository,
	activity ledgerrepo.ActivityLogRepository,
	events EventPublisher,
	config AuthConfig,
	logger *slog.Logger,
) *AuthService {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	if config.JWTExpiryHours <= 0 {
		config.JWTExpiryHours = 24
	}
	if config.Issuer == "" {
		config.Issuer = "pixbank"
	}
	return &AuthService{
		db:       db,
		userRepo: userRepo,
		activity: activity,
		events:   events,
		config:   config,
		logger:   logger.With("service", "auth"),
		now:      time.Now,
	}
}

// Register creates a customer account with a zero balance and returns it with an access token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, string, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.CPF = normalizeCPF(in.CPF)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validateRegistration(in); err != nil {
		return nil, "", err
	}

	if _, err := s.userRepo.GetByEmail(ctx, s.db, in.Email); err == nil {
		return nil, "", ErrEmailExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		s.logger.ErrorContext(ctx, "Error checking email existence", "error", err)
		return nil, "", err
	}
	if _, err := s.userRepo.GetByCPF(ctx, s.db, in.CPF); err == nil {
		return nil, "", ErrCPFExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		s.logger.ErrorContext(ctx, "Error checking cpf existence", "error", err)
		return nil, "", err
	}

	hashedPassword, err := HashPassword(in.Password, s.config.BcryptCost)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to hash password", "error", err)
		return nil, "", errors.New("failed to process registration")
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.NewString(),
		FullName:     in.FullName,
		Email:        in.Email,
		CPF:          in.CPF,
		Phone:        in.Phone,
		PasswordHash: hashedPassword,
		Role:         domain.RoleUser,
		Balance:      decimal.Zero,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := s.userRepo.Create(ctx, tx, user); err != nil {
			return err
		}
		userID := user.ID
		entry := ledgerdomain.NewActivityLog(ctx, uuid.NewString(), &userID, ledgerdomain.ActionUserRegistered,
			fmt.Sprintf("User %s registered", user.FullName), now)
		return s.activity.Create(ctx, tx, entry)
	})
	switch {
	case errors.Is(err, repository.ErrDuplicateEmail):
		return nil, "", ErrEmailExists
	case errors.Is(err, repository.ErrDuplicateCPF):
		return nil, "", ErrCPFExists
	case err != nil:
		s.logger.ErrorContext(ctx, "Failed to create user in repository", "error", err)
		return nil, "", errors.New("failed to save registration")
	}

	token, err := s.issueToken(user)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to sign access token", "error", err, "user_id", user.ID)
		return nil, "", errors.New("token generation error")
	}

	s.logger.InfoContext(ctx, "User registered", "user_id", user.ID)
	if s.events != nil {
		event := UserRegisteredEvent{UserID: user.ID, Email: user.Email, FullName: user.FullName, OccurredAt: now}
		if err := s.events.Publish(ctx, ledgerdomain.SubjectUserRegistered, event); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish user.registered event", "error", err, "user_id", user.ID)
		}
	}
	return user, token, nil
}

// Login checks the credentials and returns the user with a fresh access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.userRepo.GetByEmail(ctx, s.db, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		s.logger.ErrorContext(ctx, "Error fetching user by email", "error", err)
		return nil, "", err
	}
	if !CheckPasswordHash(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}
	if !user.IsActive {
		s.logger.WarnContext(ctx, "Login attempt for inactive user", "user_id", user.ID)
		return nil, "", ErrUserInactive
	}

	token, err := s.issueToken(user)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to sign access token", "error", err, "user_id", user.ID)
		return nil, "", errors.New("token generation error")
	}

	userID := user.ID
	entry := ledgerdomain.NewActivityLog(ctx, uuid.NewString(), &userID, ledgerdomain.ActionUserLogin,
		fmt.Sprintf("User %s logged in", user.FullName), s.now())
	if err := s.activity.Create(ctx, s.db, entry); err != nil {
		s.logger.WarnContext(ctx, "Failed to record login activity", "error", err, "user_id", user.ID)
	}
	return user, token, nil
}

// ValidateToken verifies an HS256 access token and returns the identity it carries.
func (s *AuthService) ValidateToken(tokenString string) (*domain.AuthenticatedUser, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	role := domain.Role(claims.Role)
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return nil, ErrTokenInvalid
	}
	return &domain.AuthenticatedUser{UserID: claims.Subject, Role: role}, nil
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, s.db, userID)
}

func (s *AuthService) issueToken(user *domain.User) (string, error) {
	now := s.now()
	claims := accessClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.config.JWTExpiryHours) * time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWTSecret))
}

func validateRegistration(in RegisterInput) error {
	if _, err := mail.ParseAddress(in.Email); err != nil || !strings.Contains(in.Email, "@") {
		return ledgerdomain.NewValidationError("email", "must be a valid email address")
	}
	if len(in.Password) < minPasswordLength {
		return ledgerdomain.NewValidationError("password", fmt.Sprintf("must have at least %d characters", minPasswordLength))
	}
	if len(in.Password) > maxPasswordBytes {
		return ledgerdomain.NewValidationError("password", fmt.Sprintf("must have at most %d bytes", maxPasswordBytes))
	}
	if in.FullName == "" {
		return ledgerdomain.NewValidationError("full_name", "is required")
	}
	if len(in.CPF) != 11 {
		return ledgerdomain.NewValidationError("cpf", "must have 11 digits")
	}
	if in.Phone == "" {
		return ledgerdomain.NewValidationError("phone", "is required")
	}
	return nil
}

// normalizeCPF keeps only the digits of a formatted CPF such as 123.456.789-09.
func normalizeCPF(cpf string) string {
	var b strings.Builder
	for _, r := range cpf {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
