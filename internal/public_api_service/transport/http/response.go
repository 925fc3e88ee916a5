package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	ledgerdomain "github.com/pixbank/golang_services/internal/ledger_service/domain"
	userapp "github.com/pixbank/golang_services/internal/user_service/app"
	userrepo "github.com/pixbank/golang_services/internal/user_service/repository"
)

const maxBodyBytes = 1 << 20

func respondWithJSON(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.ErrorContext(ctx, "Failed to encode response", "error", err)
	}
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(GenericErrorResponse{Error: message})
}

// decodeAndValidate reads a JSON body of at most 1 MiB into dst and runs its validate tags.
// It writes the 400 response itself and reports whether the handler may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, logger *slog.Logger, validate *validator.Validate, dst any) bool {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			jsonError(w, "Request body is empty", http.StatusBadRequest)
		case errors.As(err, &maxErr):
			jsonError(w, "Request body too large", http.StatusRequestEntityTooLarge)
		default:
			logger.WarnContext(ctx, "Failed to decode request body", "error", err)
			jsonError(w, "Invalid request payload", http.StatusBadRequest)
		}
		return false
	}
	if err := validate.StructCtx(ctx, dst); err != nil {
		logger.WarnContext(ctx, "Request validation failed", "error", err)
		jsonError(w, validationMessage(err), http.StatusBadRequest)
		return false
	}
	return true
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Param() != "" {
			return fmt.Sprintf("Validation error: %s failed on %s=%s", fe.Field(), fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("Validation error: %s failed on %s", fe.Field(), fe.Tag())
	}
	return "Validation error"
}

// respondWithError maps workflow errors to HTTP status codes. Unknown errors are logged
// and reported as a generic 500 so internals never leak.
func respondWithError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, operation string) {
	ctx := r.Context()
	var validationErr *ledgerdomain.ValidationError

	switch {
	case errors.As(err, &validationErr):
		logger.WarnContext(ctx, "Rejected invalid input", "operation", operation, "error", err)
		jsonError(w, validationErr.Error(), http.StatusBadRequest)
	case errors.Is(err, ledgerdomain.ErrValidation), errors.Is(err, ledgerdomain.ErrInvalidStatus):
		logger.WarnContext(ctx, "Rejected invalid input", "operation", operation, "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ledgerdomain.ErrInsufficientFunds):
		jsonError(w, "Insufficient funds", http.StatusUnprocessableEntity)
	case errors.Is(err, ledgerdomain.ErrNotFound), errors.Is(err, userrepo.ErrUserNotFound):
		jsonError(w, "Resource not found", http.StatusNotFound)
	case errors.Is(err, ledgerdomain.ErrAlreadyProcessed), errors.Is(err, ledgerdomain.ErrIllegalTransition):
		jsonError(w, "Already processed", http.StatusConflict)
	case errors.Is(err, userapp.ErrEmailExists):
		jsonError(w, "Email already registered", http.StatusConflict)
	case errors.Is(err, userapp.ErrCPFExists):
		jsonError(w, "CPF already registered", http.StatusConflict)
	case errors.Is(err, ledgerdomain.ErrGateway):
		logger.ErrorContext(ctx, "Payment gateway failure", "operation", operation, "error", err)
		jsonError(w, "Payment gateway unavailable", http.StatusBadGateway)
	case errors.Is(err, ledgerdomain.ErrForbidden), errors.Is(err, userapp.ErrUserInactive):
		logger.WarnContext(ctx, "Permission denied", "operation", operation, "error", err)
		jsonError(w, "Permission denied", http.StatusForbidden)
	case errors.Is(err, userapp.ErrInvalidCredentials), errors.Is(err, userapp.ErrTokenInvalid):
		jsonError(w, "Invalid email or password", http.StatusUnauthorized)
	default:
		logger.ErrorContext(ctx, "Unhandled error", "operation", operation, "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
	}
}
