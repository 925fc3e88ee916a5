package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/pixbank/golang_services/internal/ledger_service/app"
	ledgerdomain "github.com/pixbank/golang_services/internal/ledger_service/domain"
	"github.com/pixbank/golang_services/internal/user_service/domain"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	AuthenticatedUserContextKey = ContextKey("authenticatedUser")
)

// TokenValidator is satisfied by the user service auth workflow.
type TokenValidator interface {
	ValidateToken(token string) (*domain.AuthenticatedUser, error)
}

// AuthMiddleware rejects requests without a valid Bearer access token and stores the
// caller identity in the request context.
func AuthMiddleware(validator TokenValidator, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.WarnContext(r.Context(), "Authorization header missing")
				writeError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.WarnContext(r.Context(), "Invalid Authorization header format")
				writeError(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			authUser, err := validator.ValidateToken(parts[1])
			if err != nil || authUser == nil {
				logger.WarnContext(r.Context(), "Token validation failed", "error", err)
				writeError(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), AuthenticatedUserContextKey, *authUser)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets only callers holding role through. AuthMiddleware must run first.
func RequireRole(role domain.Role, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authUser, ok := UserFromContext(r.Context())
			if !ok {
				logger.ErrorContext(r.Context(), "AuthenticatedUser not found in context. AuthMiddleware must run first.")
				writeError(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if authUser.Role != role {
				logger.WarnContext(r.Context(), "Role check failed", "userID", authUser.UserID, "role", authUser.Role, "required_role", role)
				writeError(w, "Forbidden: you don't have permission to perform this action", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestMeta records the client address and user agent for activity logging.
// Run it after chi's RealIP so RemoteAddr reflects forwarding headers.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		ctx := ledgerdomain.WithRequestMeta(r.Context(), ledgerdomain.RequestMeta{
			IPAddress: ip,
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UserFromContext(ctx context.Context) (domain.AuthenticatedUser, bool) {
	authUser, ok := ctx.Value(AuthenticatedUserContextKey).(domain.AuthenticatedUser)
	return authUser, ok
}

// ActorFromContext converts the authenticated user into a ledger workflow actor.
func ActorFromContext(ctx context.Context) (app.Actor, bool) {
	authUser, ok := UserFromContext(ctx)
	if !ok {
		return app.Actor{}, false
	}
	return app.Actor{UserID: authUser.UserID, Role: ledgerdomain.Role(authUser.Role)}, true
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
