package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/pixbank/golang_services/internal/public_api_service/middleware"
	userapp "github.com/pixbank/golang_services/internal/user_service/app"
	"github.com/pixbank/golang_services/internal/user_service/domain"
)

// Authenticator is the part of the user service the auth routes need.
type Authenticator interface {
	Register(ctx context.Context, in userapp.RegisterInput) (*domain.User, string, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	Profile(ctx context.Context, userID string) (*domain.User, error)
}

// AuthHandler handles authentication related HTTP requests.
type AuthHandler struct {
	auth     Authenticator
	logger   *slog.Logger
	validate *validator.Validate
}

func NewAuthHandler(auth Authenticator, logger *slog.Logger, validate *validator.Validate) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		logger:   logger.With("handler", "auth"),
		validate: validate,
	}
}

// RegisterRoutes registers the public authentication routes.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
}

// RegisterProtectedRoutes registers routes that need an authenticated caller.
func (h *AuthHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/profile", h.handleProfile)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, h.logger, h.validate, &req) {
		return
	}

	user, token, err := h.auth.Register(r.Context(), userapp.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		CPF:      req.CPF,
		Phone:    req.Phone,
	})
	if err != nil {
		respondWithError(w, r, h.logger, err, "register")
		return
	}
	respondWithJSON(r.Context(), h.logger, w, http.StatusCreated, AuthResponse{Token: token, User: toUserResponse(user)})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, h.logger, h.validate, &req) {
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithError(w, r, h.logger, err, "login")
		return
	}
	respondWithJSON(r.Context(), h.logger, w, http.StatusOK, AuthResponse{Token: token, User: toUserResponse(user)})
}

func (h *AuthHandler) handleProfile(w http.ResponseWriter, r *http.Request) {
	authUser, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.logger.ErrorContext(r.Context(), "AuthenticatedUser not found in context for profile")
		jsonError(w, "User authentication details not found", http.StatusUnauthorized)
		return
	}

	user, err := h.auth.Profile(r.Context(), authUser.UserID)
	if err != nil {
		respondWithError(w, r, h.logger, err, "profile")
		return
	}
	respondWithJSON(r.Context(), h.logger, w, http.StatusOK, toUserResponse(user))
}
