package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ibanking/internal/domain"
	"github.com/vladislavdragonenkov/ibanking/internal/service/ledger"
)

// AccountAPI — REST-поверхность Account service поверх леджера.
type AccountAPI struct {
	ledger *ledger.Service
	logger *log.Entry
}

// NewAccountAPI создаёт API Account service.
func NewAccountAPI(svc *ledger.Service, logger *log.Entry) *AccountAPI {
	if logger == nil {
		logger = log.WithField("component", "account-api")
	}
	return &AccountAPI{ledger: svc, logger: logger}
}

// Router собирает маршруты Account service.
func (a *AccountAPI) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger(a.logger))

	r.Route("/account", func(r chi.Router) {
		r.Get("/{accountID}", a.handleGet)
		r.Get("/by-customer/{customerID}", a.handleGetByCustomer)
		r.Post("/{accountID}/debit", a.handleDebit)
	})

	return r
}

type accountResponse struct {
	AccountID    string    `json:"account_id"`
	CustomerID   string    `json:"customer_id"`
	BalanceMinor int64     `json:"balance_minor"`
	Currency     string    `json:"currency"`
	CreatedAt    time.Time `json:"created_at"`
}

func toAccountResponse(acc domain.Account) accountResponse {
	return accountResponse{
		AccountID:    acc.ID,
		CustomerID:   acc.CustomerID,
		BalanceMinor: acc.BalanceMinor,
		Currency:     acc.Currency,
		CreatedAt:    acc.CreatedAt,
	}
}

func (a *AccountAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	account, err := a.ledger.Account(chi.URLParam(r, "accountID"))
	if err != nil {
		mapLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (a *AccountAPI) handleGetByCustomer(w http.ResponseWriter, r *http.Request) {
	account, err := a.ledger.AccountByCustomer(chi.URLParam(r, "customerID"))
	if err != nil {
		mapLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

type debitRequest struct {
	AmountMinor    int64  `json:"amount_minor"`
	IdempotencyKey string `json:"idempotency_key"`
}

type debitResponse struct {
	BalanceAfterMinor int64 `json:"balance_after_minor"`
	Applied           bool  `json:"applied"`
}

func (a *AccountAPI) handleDebit(w http.ResponseWriter, r *http.Request) {
	var req debitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "failed to parse request body")
		return
	}

	result, err := a.ledger.Debit(chi.URLParam(r, "accountID"), req.AmountMinor, req.IdempotencyKey)
	if err != nil {
		mapLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, debitResponse{
		BalanceAfterMinor: result.BalanceAfterMinor,
		Applied:           result.Applied,
	})
}
