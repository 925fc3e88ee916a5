package pixgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pixbank/golang_services/internal/ledger_service/domain"
	"github.com/shopspring/decimal"
)

const (
	credPixSuccess  = "success"
	credPixApproved = "Pagamento Aprovado"
	// maxResponseBytes bounds how much of a provider answer is read.
	maxResponseBytes = 64 << 10
)

// CredPixGateway talks to the CredPix REST API.
type CredPixGateway struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewCredPixGateway(logger *slog.Logger, baseURL, token string, timeout time.Duration, httpClient *http.Client) *CredPixGateway {
	if httpClient == nil {
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &CredPixGateway{
		logger:     logger.With("provider", "credpix"),
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
	}
}

// CredPixCreateResponse is the answer of create.php.
type CredPixCreateResponse struct {
	Status      string `json:"Status"`
	IDPagamento string `json:"IDPagamento"`
	CopiaeCola  string `json:"CopiaeCola"`
	Message     string `json:"message,omitempty"`
}

// CredPixCheckResponse is the answer of verificar.php.
type CredPixCheckResponse struct {
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
}

func (g *CredPixGateway) CreateCharge(ctx context.Context, amount decimal.Decimal, payerRef string) (*domain.Charge, error) {
	q := url.Values{}
	q.Set("tokenuser", g.token)
	q.Set("valor", amount.StringFixed(2))
	q.Set("chatidpagador", payerRef)

	var resp CredPixCreateResponse
	if err := g.get(ctx, "create.php", q, &resp); err != nil {
		return nil, err
	}
	if resp.Status != credPixSuccess {
		g.logger.WarnContext(ctx, "CredPix refused charge", "status", resp.Status, "message", resp.Message, "payer", payerRef)
		return nil, fmt.Errorf("%w: create returned status %q", domain.ErrGateway, resp.Status)
	}
	if resp.IDPagamento == "" || resp.CopiaeCola == "" {
		return nil, fmt.Errorf("%w: create response missing payment id or payable code", domain.ErrGateway)
	}

	g.logger.InfoContext(ctx, "CredPix charge created", "pix_id", resp.IDPagamento, "amount", amount.StringFixed(2))
	return &domain.Charge{ExternalID: resp.IDPagamento, PayableCode: resp.CopiaeCola}, nil
}

func (g *CredPixGateway) CheckCharge(ctx context.Context, externalID string) (*domain.ChargeCheck, error) {
	q := url.Values{}
	q.Set("tokenuser", g.token)
	q.Set("IDPagamento", externalID)

	var resp CredPixCheckResponse
	if err := g.get(ctx, "verificar.php", q, &resp); err != nil {
		return nil, err
	}

	check := &domain.ChargeCheck{RawStatus: resp.PaymentStatus}
	switch {
	case resp.Status != credPixSuccess:
		check.Status = domain.ChargeNotFound
		check.RawStatus = resp.Status
	case resp.PaymentStatus == credPixApproved:
		check.Status = domain.ChargeApproved
	default:
		check.Status = domain.ChargePending
	}
	g.logger.DebugContext(ctx, "CredPix charge checked", "pix_id", externalID, "status", check.Status, "raw_status", check.RawStatus)
	return check, nil
}

// get performs one call. Every failure is reported as domain.ErrGateway. The token is never logged.
func (g *CredPixGateway) get(ctx context.Context, endpoint string, q url.Values, out any) error {
	reqURL := g.baseURL + "/" + endpoint + "?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("%w: building %s request: %v", domain.ErrGateway, endpoint, err)
	}
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		g.logger.ErrorContext(ctx, "CredPix request failed", "endpoint", endpoint, "error", err)
		return fmt.Errorf("%w: %s: %v", domain.ErrGateway, endpoint, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: reading %s response: %v", domain.ErrGateway, endpoint, err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		g.logger.WarnContext(ctx, "CredPix returned non-success status", "endpoint", endpoint, "status_code", httpResp.StatusCode)
		return fmt.Errorf("%w: %s returned HTTP %d", domain.ErrGateway, endpoint, httpResp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		g.logger.WarnContext(ctx, "CredPix returned malformed body", "endpoint", endpoint, "error", err)
		return fmt.Errorf("%w: decoding %s response: %v", domain.ErrGateway, endpoint, err)
	}
	return nil
}
