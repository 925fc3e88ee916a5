package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/pixbank/golang_services/internal/ledger_service/app"
	ledgerdomain "github.com/pixbank/golang_services/internal/ledger_service/domain"
	"github.com/pixbank/golang_services/internal/public_api_service/middleware"
)

type AdminReader interface {
	Stats(ctx context.Context, actor app.Actor) (*ledgerdomain.AdminStats, error)
	ListCustomers(ctx context.Context, actor app.Actor) ([]ledgerdomain.Account, error)
}

// AdminHandler serves the back-office routes. The router gates them with
// RequireRole(admin); the workflows check the capability again.
type AdminHandler struct {
	admin       AdminReader
	withdrawals WithdrawalWorkflow
	logger      *slog.Logger
	validate    *validator.Validate
}

func NewAdminHandler(admin AdminReader, withdrawals WithdrawalWorkflow, logger *slog.Logger, validate *validator.Validate) *AdminHandler {
	return &AdminHandler{
		admin:       admin,
		withdrawals: withdrawals,
		logger:      logger.With("handler", "admin"),
		validate:    validate,
	}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/stats", h.handleStats)
	r.Get("/users", h.handleListUsers)
	r.Get("/withdrawals", h.handleListPendingWithdrawals)
	r.Patch("/withdrawals/{withdrawalID}", h.handleDecideWithdrawal)
}

func (h *AdminHandler) actor(w http.ResponseWriter, r *http.Request) (app.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		h.logger.ErrorContext(r.Context(), "AuthenticatedUser not found in context")
		jsonError(w, "User authentication details not found", http.StatusUnauthorized)
	}
	return actor, ok
}

func (h *AdminHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	stats, err := h.admin.Stats(r.Context(), actor)
	if err != nil {
		respondWithError(w, r, h.logger, err, "admin_stats")
		return
	}
	respondWithJSON(r.Context(), h.logger, w, http.StatusOK, StatsResponse{
		TotalRevenue:       stats.TotalRevenue.StringFixed(2),
		ActiveUsers:        stats.ActiveUsers,
		PendingWithdrawals: stats.PendingWithdrawals,
		TodayTransactions:  stats.TodayTransactions,
	})
}

func (h *AdminHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	accounts, err := h.admin.ListCustomers(r.Context(), actor)
	if err != nil {
		respondWithError(w, r, h.logger, err, "admin_list_users")
		return
	}
	resp := make([]UserResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, accountToUserResponse(a))
	}
	respondWithJSON(r.Context(), h.logger, w, http.StatusOK, resp)
}

func (h *AdminHandler) handleListPendingWithdrawals(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	pending, err := h.withdrawals.ListPending(r.Context(), actor)
	if err != nil {
		respondWithError(w, r, h.logger, err, "admin_list_withdrawals")
		return
	}
	resp := make([]PendingWithdrawalResponse, 0, len(pending))
	for i := range pending {
		p := &pending[i]
		resp = append(resp, PendingWithdrawalResponse{
			WithdrawalResponse: toWithdrawalResponse(&p.Withdrawal),
			UserFullName:       p.UserFullName,
			UserEmail:          p.UserEmail,
			UserBalance:        p.UserBalance.StringFixed(2),
		})
	}
	respondWithJSON(r.Context(), h.logger, w, http.StatusOK, resp)
}

func (h *AdminHandler) handleDecideWithdrawal(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	withdrawalID := chi.URLParam(r, "withdrawalID")
	var req DecideWithdrawalRequest
	if !decodeAndValidate(w, r, h.logger, h.validate, &req) {
		return
	}

	wd, err := h.withdrawals.Decide(r.Context(), actor, withdrawalID, req.Status, req.AdminNotes)
	if err != nil {
		respondWithError(w, r, h.logger, err, "decide_withdrawal")
		return
	}
	h.logger.InfoContext(r.Context(), "Withdrawal decided", "withdrawal_id", wd.ID, "status", wd.Status, "admin_id", actor.UserID)
	respondWithJSON(r.Context(), h.logger, w, http.StatusOK, toWithdrawalResponse(wd))
}
