package memory

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/ibanking/internal/domain"
)

func TestIdempotencyCreateAndReplay(t *testing.T) {
	repo := NewIdempotencyRepository()

	record, err := repo.CreateProcessing("key-1", "hash-1", time.Time{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if record.Status != domain.IdempotencyStatusProcessing {
		t.Fatalf("expected processing, got %s", record.Status)
	}

	// Повтор с тем же hash возвращает существующую запись.
	existing, err := repo.CreateProcessing("key-1", "hash-1", time.Time{})
	if !errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists) {
		t.Fatalf("expected ErrIdempotencyKeyAlreadyExists, got %v", err)
	}
	if existing.Key != "key-1" {
		t.Fatalf("expected existing record, got %+v", existing)
	}

	// Повтор с другим hash — конфликт.
	if _, err := repo.CreateProcessing("key-1", "hash-2", time.Time{}); !errors.Is(err, domain.ErrIdempotencyHashMismatch) {
		t.Fatalf("expected ErrIdempotencyHashMismatch, got %v", err)
	}
}

func TestIdempotencyMarkDone(t *testing.T) {
	repo := NewIdempotencyRepository()

	if _, err := repo.CreateProcessing("key-1", "hash-1", time.Time{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.MarkDone("key-1", []byte(`{"status":"paid"}`), 200); err != nil {
		t.Fatalf("mark done: %v", err)
	}

	record, err := repo.Get("key-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Status != domain.IdempotencyStatusDone || record.HTTPStatus != 200 {
		t.Fatalf("unexpected record: %+v", record)
	}
	if string(record.ResponseBody) != `{"status":"paid"}` {
		t.Fatalf("unexpected body: %s", record.ResponseBody)
	}
}

func TestIdempotencyDeleteExpired(t *testing.T) {
	repo := NewIdempotencyRepository()
	now := time.Now().UTC()

	if _, err := repo.CreateProcessing("old", "hash", now.Add(-time.Hour)); err != nil {
		t.Fatalf("create old: %v", err)
	}
	if _, err := repo.CreateProcessing("fresh", "hash", now.Add(time.Hour)); err != nil {
		t.Fatalf("create fresh: %v", err)
	}

	removed, err := repo.DeleteExpired(now, 0)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	if _, err := repo.Get("old"); !errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
		t.Fatalf("expired record must be gone, got %v", err)
	}
	if _, err := repo.Get("fresh"); err != nil {
		t.Fatalf("fresh record must survive: %v", err)
	}
}

func TestIdempotencyValidation(t *testing.T) {
	repo := NewIdempotencyRepository()

	if _, err := repo.CreateProcessing("", "hash", time.Time{}); !errors.Is(err, domain.ErrIdempotencyKeyRequired) {
		t.Fatalf("expected ErrIdempotencyKeyRequired, got %v", err)
	}
	if _, err := repo.CreateProcessing("key", "", time.Time{}); !errors.Is(err, domain.ErrIdempotencyRequestHashRequired) {
		t.Fatalf("expected ErrIdempotencyRequestHashRequired, got %v", err)
	}
	if err := repo.MarkDone("missing", nil, 200); !errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
		t.Fatalf("expected ErrIdempotencyKeyNotFound, got %v", err)
	}
}
