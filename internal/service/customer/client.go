package customer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ibanking/internal/domain"
)

const defaultRequestTimeout = 5 * time.Second

// Client — HTTP-клиент сервиса профилей клиентов.
// Используется только путём нотификаций: сбой профиля никогда
// не влияет на результат расчёта.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Entry
}

// NewClient создаёт клиент сервиса профилей.
func NewClient(baseURL string, httpClient *http.Client, logger *log.Entry) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	if logger == nil {
		logger = log.WithField("component", "customer-client")
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

type profileResponse struct {
	CustomerID string `json:"customer_id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
}

// Profile возвращает профиль клиента по идентификатору.
func (c *Client) Profile(ctx context.Context, customerID string) (domain.CustomerProfile, error) {
	if customerID == "" {
		return domain.CustomerProfile{}, domain.ErrCustomerRequired
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/customer/"+customerID, nil)
	if err != nil {
		return domain.CustomerProfile{}, fmt.Errorf("build profile request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("customer_id", customerID).Warn("customer service unreachable")
		return domain.CustomerProfile{}, domain.ErrCustomerUnavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var body profileResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return domain.CustomerProfile{}, fmt.Errorf("decode profile response: %w", err)
		}
		return domain.CustomerProfile{
			CustomerID: body.CustomerID,
			Email:      body.Email,
			FullName:   body.FullName,
		}, nil
	case resp.StatusCode == http.StatusNotFound:
		return domain.CustomerProfile{}, domain.ErrCustomerNotFound
	default:
		c.logger.WithFields(log.Fields{
			"customer_id": customerID,
			"status":      resp.StatusCode,
		}).Warn("customer service returned error")
		return domain.CustomerProfile{}, domain.ErrCustomerUnavailable
	}
}

var _ domain.CustomerGateway = (*Client)(nil)
