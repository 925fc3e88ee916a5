package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/pixbank/golang_services/internal/ledger_service/app"
	ledgerdomain "github.com/pixbank/golang_services/internal/ledger_service/domain"
	"github.com/pixbank/golang_services/internal/public_api_service/middleware"
	"github.com/shopspring/decimal"
)

const (
	defaultStatementLimit = 50
	maxStatementLimit     = 200
)

type PixWorkflow interface {
	Generate(ctx context.Context, actor app.Actor, amount decimal.Decimal, description string) (*ledgerdomain.PixPayment, error)
	Verify(ctx context.Context, actor app.Actor, pixID string) (*app.VerifyResult, error)
	HandleGatewayCallback(ctx context.Context, pixID string) (*app.VerifyResult, error)
}

type WithdrawalWorkflow interface {
	Request(ctx context.Context, actor app.Actor, amount decimal.Decimal, pixKey string) (*ledgerdomain.Withdrawal, error)
	Decide(ctx context.Context, actor app.Actor, withdrawalID, status string, notes *string) (*ledgerdomain.Withdrawal, error)
	ListForUser(ctx context.Context, actor app.Actor) ([]ledgerdomain.Withdrawal, error)
	ListPending(ctx context.Context, actor app.Actor) ([]ledgerdomain.PendingWithdrawal, error)
}

type StatementReader interface {
	Transactions(ctx context.Context, actor app.Actor, limit int) ([]ledgerdomain.Transaction, error)
}

// LedgerHandler serves the customer facing money routes.
type LedgerHandler struct {
	pix         PixWorkflow
	withdrawals WithdrawalWorkflow
	statements  StatementReader
	logger      *slog.Logger
	validate    *validator.Validate
}

func NewLedgerHandler(pix PixWorkflow, withdrawals WithdrawalWorkflow, statements StatementReader, logger *slog.Logger, validate *validator.Validate) *LedgerHandler {
	return &LedgerHandler{
		pix:         pix,
		withdrawals: withdrawals,
		statements:  statements,
		logger:      logger.With("handler", "ledger"),
		validate:    validate,
	}
}

// RegisterRoutes expects r to sit behind AuthMiddleware.
func (h *LedgerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/transactions", h.handleListTransactions)
	r.Get("/withdrawals", h.handleListWithdrawals)
	r.Post("/withdrawals", h.handleRequestWithdrawal)
	r.Post("/pix/generate", h.handleGeneratePix)
	r.Post("/pix/verify", h.handleVerifyPix)
}

// RegisterWebhookRoutes mounts the unauthenticated gateway callback. The body only names
// the charge; the gateway is queried again before any credit.
func (h *LedgerHandler) RegisterWebhookRoutes(r chi.Router) {
	r.Post("/pix", h.handlePixWebhook)
}

func (h *LedgerHandler) actor(w http.ResponseWriter, r *http.Request) (app.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		h.logger.ErrorContext(r.Context(), "AuthenticatedUser not found in context")
		jsonError(w, "User authentication details not found", http.StatusUnauthorized)
	}
	return actor, ok
}

func (h *LedgerHandler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	limit := defaultStatementLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			jsonError(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = min(n, maxStatementLimit)
	}

	txs, err := h.statements.Transactions(r.Context(), actor, limit)
	if err != nil {
		respondWithError(w, r, h.logger, err, "list_transactions")
		return
	}
	resp := make([]TransactionResponse, 0, len(txs))
	for _, t := range txs {
		resp = append(resp, toTransactionResponse(t))
	}
	respondWithJSON(r.Context(), h.logger, w, http.StatusOK, resp)
}

func (h *LedgerHandler) handleListWithdrawals(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	list, err := h.withdrawals.ListForUser(r.Context(), actor)
	if err != nil {
		respondWithError(w, r, h.logger, err, "list_withdrawals")
		return
	}
	resp := make([]WithdrawalResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toWithdrawalResponse(&list[i]))
	}
	respondWithJSON(r.Context(), h.logger, w, http.StatusOK, resp)
}

func (h *LedgerHandler) handleRequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req WithdrawalRequest
	if !decodeAndValidate(w, r, h.logger, h.validate, &req) {
		return
	}

	wd, err := h.withdrawals.Request(r.Context(), actor, req.Amount, req.PixKey)
	if err != nil {
		respondWithError(w, r, h.logger, err, "request_withdrawal")
		return
	}
	respondWithJSON(r.Context(), h.logger, w, http.StatusCreated, toWithdrawalResponse(wd))
}

func (h *LedgerHandler) handleGeneratePix(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req GeneratePixRequest
	if !decodeAndValidate(w, r, h.logger, h.validate, &req) {
		return
	}

	p, err := h.pix.Generate(r.Context(), actor, req.Amount, req.Description)
	if err != nil {
		respondWithError(w, r, h.logger, err, "generate_pix")
		return
	}
	respondWithJSON(r.Context(), h.logger, w, http.StatusCreated, toPixResponse(p))
}

func (h *LedgerHandler) handleVerifyPix(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req VerifyPixRequest
	if !decodeAndValidate(w, r, h.logger, h.validate, &req) {
		return
	}

	res, err := h.pix.Verify(r.Context(), actor, req.PixID)
	if err != nil {
		respondWithError(w, r, h.logger, err, "verify_pix")
		return
	}
	respondWithJSON(r.Context(), h.logger, w, http.StatusOK, toVerifyResponse(res))
}

func (h *LedgerHandler) handlePixWebhook(w http.ResponseWriter, r *http.Request) {
	var req VerifyPixRequest
	if !decodeAndValidate(w, r, h.logger, h.validate, &req) {
		return
	}

	h.logger.InfoContext(r.Context(), "PIX webhook received", "pix_id", req.PixID)
	res, err := h.pix.HandleGatewayCallback(r.Context(), req.PixID)
	if err != nil {
		respondWithError(w, r, h.logger, err, "pix_webhook")
		return
	}
	respondWithJSON(r.Context(), h.logger, w, http.StatusOK, toVerifyResponse(res))
}

func toVerifyResponse(res *app.VerifyResult) VerifyPixResponse {
	return VerifyPixResponse{
		PixID:         res.PixID,
		Paid:          res.Paid,
		Status:        string(res.Status),
		GatewayStatus: res.GatewayStatus,
	}
}
