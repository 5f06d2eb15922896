package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ibanking/internal/domain"
)

const defaultRequestTimeout = 10 * time.Second

// Client — HTTP-клиент почтового шлюза. Отправка письма — fire-and-forget:
// вызывающая сторона логирует сбой и продолжает работу.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Entry
	from       string
}

// NewClient создаёт клиент почтового шлюза.
func NewClient(baseURL, from string, httpClient *http.Client, logger *log.Entry) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	if logger == nil {
		logger = log.WithField("component", "email-client")
	}
	if from == "" {
		from = "no-reply@ibanking.local"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
		from:       from,
	}
}

type sendRequest struct {
	From      string `json:"from"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// Send отправляет письмо через шлюз.
func (c *Client) Send(ctx context.Context, recipient, subject, body string) error {
	if recipient == "" {
		return fmt.Errorf("%w: empty recipient", domain.ErrEmailSendFailed)
	}

	payload, err := json.Marshal(sendRequest{
		From:      c.from,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
	})
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("recipient", recipient).Warn("email gateway unreachable")
		return fmt.Errorf("%w: %v", domain.ErrEmailSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		c.logger.WithFields(log.Fields{
			"recipient": recipient,
			"status":    resp.StatusCode,
		}).Warn("email gateway rejected message")
		return fmt.Errorf("%w: status %d", domain.ErrEmailSendFailed, resp.StatusCode)
	}

	return nil
}

var _ domain.EmailGateway = (*Client)(nil)
