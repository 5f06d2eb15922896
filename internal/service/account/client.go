package account

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ibanking/internal/domain"
)

const defaultRequestTimeout = 5 * time.Second

// Client — HTTP-клиент Account service, реализующий domain.AccountGateway.
// Сетевые сбои и 5xx транслируются в ErrAccountUnavailable, ответы 4xx —
// в доменные rejection-ошибки, чтобы оркестратор не различал транспорт.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Entry
}

// NewClient создаёт клиент Account service.
func NewClient(baseURL string, httpClient *http.Client, logger *log.Entry) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	if logger == nil {
		logger = log.WithField("component", "account-client")
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

type accountResponse struct {
	AccountID    string `json:"account_id"`
	CustomerID   string `json:"customer_id"`
	BalanceMinor int64  `json:"balance_minor"`
	Currency     string `json:"currency"`
}

type debitRequest struct {
	AmountMinor    int64  `json:"amount_minor"`
	IdempotencyKey string `json:"idempotency_key"`
}

type debitResponse struct {
	BalanceAfterMinor int64 `json:"balance_after_minor"`
	Applied           bool  `json:"applied"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GetBalance возвращает текущий баланс счёта.
func (c *Client) GetBalance(ctx context.Context, accountID string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/account/"+accountID, nil)
	if err != nil {
		return 0, fmt.Errorf("build balance request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("account_id", accountID).Warn("account service unreachable")
		return 0, domain.ErrAccountUnavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var body accountResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return 0, fmt.Errorf("decode balance response: %w", err)
		}
		return body.BalanceMinor, nil
	case resp.StatusCode == http.StatusNotFound:
		return 0, domain.ErrAccountNotFound
	case resp.StatusCode >= 500:
		c.drainAndLog(resp, accountID, "balance")
		return 0, domain.ErrAccountUnavailable
	default:
		c.drainAndLog(resp, accountID, "balance")
		return 0, domain.ErrBalanceUpdateFailed
	}
}

// Debit запрашивает атомарное списание. Повтор с тем же idempotencyKey
// возвращает зафиксированный результат без повторного списания.
func (c *Client) Debit(ctx context.Context, accountID string, amountMinor int64, idempotencyKey string) (domain.DebitResult, error) {
	payload, err := json.Marshal(debitRequest{
		AmountMinor:    amountMinor,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return domain.DebitResult{}, fmt.Errorf("marshal debit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/account/"+accountID+"/debit", bytes.NewReader(payload))
	if err != nil {
		return domain.DebitResult{}, fmt.Errorf("build debit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("account_id", accountID).Warn("account service unreachable")
		return domain.DebitResult{}, domain.ErrAccountUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var body debitResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return domain.DebitResult{}, fmt.Errorf("decode debit response: %w", err)
		}
		return domain.DebitResult{BalanceAfterMinor: body.BalanceAfterMinor, Applied: body.Applied}, nil
	}

	return domain.DebitResult{}, c.mapDebitError(resp, accountID)
}

func (c *Client) mapDebitError(resp *http.Response, accountID string) error {
	if resp.StatusCode >= 500 {
		c.drainAndLog(resp, accountID, "debit")
		return domain.ErrAccountUnavailable
	}
	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrAccountNotFound
	}

	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		switch body.Error.Code {
		case "INSUFFICIENT_FUNDS":
			return domain.ErrInsufficientFunds
		case "ACCOUNT_NOT_FOUND":
			return domain.ErrAccountNotFound
		}
	}
	return domain.ErrBalanceUpdateFailed
}

func (c *Client) drainAndLog(resp *http.Response, accountID, op string) {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	c.logger.WithFields(log.Fields{
		"account_id": accountID,
		"op":         op,
		"status":     resp.StatusCode,
		"body":       string(body),
	}).Warn("account service returned error")
}

var _ domain.AccountGateway = (*Client)(nil)
