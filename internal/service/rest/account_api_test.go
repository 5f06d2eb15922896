package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/ibanking/internal/domain"
	"github.com/vladislavdragonenkov/ibanking/internal/service/ledger"
	"github.com/vladislavdragonenkov/ibanking/internal/storage/memory"
)

func newAccountAPI(t *testing.T, balanceMinor int64) *AccountAPI {
	t.Helper()

	repo := memory.NewAccountRepository()
	now := time.Now().UTC()
	err := repo.Create(domain.Account{
		ID:           "acc-1",
		CustomerID:   "cust-1",
		BalanceMinor: balanceMinor,
		Currency:     "RUB",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return NewAccountAPI(ledger.NewService(repo, nil), nil)
}

func accountRequest(t *testing.T, api *AccountAPI, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)
	return rec
}

func TestAccountGet(t *testing.T) {
	api := newAccountAPI(t, 10000)

	rec := accountRequest(t, api, http.MethodGet, "/account/acc-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp accountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccountID != "acc-1" || resp.BalanceMinor != 10000 {
		t.Fatalf("unexpected account: %+v", resp)
	}

	missing := accountRequest(t, api, http.MethodGet, "/account/missing", nil)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.Code)
	}
}

func TestAccountGetByCustomer(t *testing.T) {
	api := newAccountAPI(t, 10000)

	rec := accountRequest(t, api, http.MethodGet, "/account/by-customer/cust-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp accountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccountID != "acc-1" {
		t.Fatalf("unexpected account: %+v", resp)
	}

	missing := accountRequest(t, api, http.MethodGet, "/account/by-customer/unknown", nil)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.Code)
	}
}

func TestAccountDebit(t *testing.T) {
	api := newAccountAPI(t, 10000)

	rec := accountRequest(t, api, http.MethodPost, "/account/acc-1/debit", map[string]any{
		"amount_minor":    6000,
		"idempotency_key": "pay-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp debitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Applied || resp.BalanceAfterMinor != 4000 {
		t.Fatalf("unexpected result: %+v", resp)
	}

	// Повтор того же ключа возвращает сохранённый результат без списания.
	replay := accountRequest(t, api, http.MethodPost, "/account/acc-1/debit", map[string]any{
		"amount_minor":    6000,
		"idempotency_key": "pay-1",
	})
	if replay.Code != http.StatusOK {
		t.Fatalf("replay: expected 200, got %d", replay.Code)
	}
	var replayResp debitResponse
	if err := json.Unmarshal(replay.Body.Bytes(), &replayResp); err != nil {
		t.Fatalf("decode replay: %v", err)
	}
	if replayResp.Applied || replayResp.BalanceAfterMinor != 4000 {
		t.Fatalf("unexpected replay result: %+v", replayResp)
	}
}

func TestAccountDebitInsufficientFunds(t *testing.T) {
	api := newAccountAPI(t, 3000)

	rec := accountRequest(t, api, http.MethodPost, "/account/acc-1/debit", map[string]any{
		"amount_minor":    6000,
		"idempotency_key": "pay-1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if code := decodeErrorCode(t, rec); code != "INSUFFICIENT_FUNDS" {
		t.Fatalf("expected INSUFFICIENT_FUNDS, got %s", code)
	}
}

func TestAccountDebitValidation(t *testing.T) {
	api := newAccountAPI(t, 10000)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"zero amount", map[string]any{"amount_minor": 0, "idempotency_key": "pay-1"}},
		{"missing key", map[string]any{"amount_minor": 6000}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := accountRequest(t, api, http.MethodPost, "/account/acc-1/debit", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAccountDebitUnknownAccount(t *testing.T) {
	api := newAccountAPI(t, 10000)

	rec := accountRequest(t, api, http.MethodPost, "/account/missing/debit", map[string]any{
		"amount_minor":    6000,
		"idempotency_key": "pay-1",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
	if code := decodeErrorCode(t, rec); code != "ACCOUNT_NOT_FOUND" {
		t.Fatalf("expected ACCOUNT_NOT_FOUND, got %s", code)
	}
}
