package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"choma/internal/importer"
	"choma/internal/model"
)

func stagedFor(operator string) *importer.Batch {
	b := importer.NewBatch(operator, "meals.xlsx", nil)
	_ = b.MarkValidated()
	_ = b.SetRecords([]model.Meal{{Name: "Jollof Rice", SourceRow: 2}})
	return b
}

func TestMemoryStore_PutReplacesEarlierBatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)

	first := stagedFor("ops")
	second := stagedFor("ops")
	if err := s.Put(ctx, first); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Put(ctx, second); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := s.Get(ctx, "ops")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != second.ID {
		t.Fatalf("got batch %s, want %s", got.ID, second.ID)
	}
	if _, err := s.Take(ctx, "ops", first.ID); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("replaced batch should not be takeable, err=%v", err)
	}
}

func TestMemoryStore_TakeIsOneShot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	b := stagedFor("ops")
	_ = s.Put(ctx, b)

	got, err := s.Take(ctx, "ops", b.ID)
	if err != nil || got != b {
		t.Fatalf("Take=%v,%v", got, err)
	}
	if _, err := s.Take(ctx, "ops", b.ID); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("second Take err=%v, want ErrBatchNotFound", err)
	}
}

func TestMemoryStore_SessionsAreIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	a := stagedFor("alice")
	_ = s.Put(ctx, a)

	if _, err := s.Get(ctx, "bob"); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("bob should see nothing, err=%v", err)
	}
	if err := s.Delete(ctx, "bob", a.ID); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("bob cannot delete alice's batch, err=%v", err)
	}
	if err := s.Delete(ctx, "alice", a.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "alice"); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("deleted batch still present, err=%v", err)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	b := stagedFor("ops")
	_ = s.Put(ctx, b)

	now = now.Add(59 * time.Second)
	if _, err := s.Get(ctx, "ops"); err != nil {
		t.Fatalf("batch should still be live: %v", err)
	}
	now = now.Add(2 * time.Second)
	if _, err := s.Get(ctx, "ops"); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("batch should have expired, err=%v", err)
	}
}

func TestBatchEncoding_RoundTrip(t *testing.T) {
	t.Parallel()
	b := stagedFor("ops")

	data, err := encodeBatch(b)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	got, err := decodeBatch(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.ID != b.ID || got.Stage != importer.StageTransformed || len(got.Records) != 1 {
		t.Fatalf("decoded batch=%+v", got)
	}
	if batchKey("ops") != "meal_import:batch:ops" {
		t.Fatalf("unexpected key %q", batchKey("ops"))
	}
}
