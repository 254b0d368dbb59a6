package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aniladanir/webhook-inbox/internal/domain"
)

func textMessage(id, conversationID string, at time.Time) domain.Message {
	return domain.Message{
		ID:             id,
		CorrelationID:  id,
		ConversationID: conversationID,
		Sender:         conversationID,
		Recipient:      "business",
		OccurredAt:     at,
		Kind:           domain.KindText,
		Payload:        domain.Text{Body: id},
		Status:         domain.StatusSent,
	}
}

func TestMemoryInsertIsIdempotent(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()

	msg := textMessage("m1", "c1", base)
	inserted, err := repo.Insert(ctx, &msg)
	if err != nil || !inserted {
		t.Fatalf("expected first insert to succeed, inserted=%v err=%v", inserted, err)
	}
	if msg.Seq == 0 {
		t.Fatalf("expected seq to be assigned")
	}

	again := textMessage("m1", "c1", base)
	inserted, err = repo.Insert(ctx, &again)
	if err != nil || inserted {
		t.Fatalf("expected duplicate insert to be skipped, inserted=%v err=%v", inserted, err)
	}

	rows, err := repo.ListByConversation(ctx, "c1", 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
}

func TestMemoryConcurrentInsertStoresOneRow(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)
	for range 16 {
		wg.Go(func() {
			msg := textMessage("m1", "c1", time.Unix(1, 0))
			ok, err := repo.Insert(ctx, &msg)
			if err != nil {
				t.Errorf("insert failed: %v", err)
				return
			}
			if ok {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	if inserted != 1 {
		t.Fatalf("expected exactly one insert, got %d", inserted)
	}
}

func TestMemoryAdvanceStatus(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	msg := textMessage("m1", "c1", time.Unix(1, 0))
	msg.CorrelationID = "corr-1"
	if _, err := repo.Insert(ctx, &msg); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, changed, err := repo.AdvanceStatus(ctx, "corr-1", domain.StatusRead)
	if err != nil || !changed {
		t.Fatalf("expected forward transition via correlation id, changed=%v err=%v", changed, err)
	}
	if got.ID != "m1" || got.Status != domain.StatusRead {
		t.Fatalf("unexpected message %+v", got)
	}

	got, changed, err = repo.AdvanceStatus(ctx, "m1", domain.StatusDelivered)
	if err != nil || changed {
		t.Fatalf("expected regression to be ignored, changed=%v err=%v", changed, err)
	}
	if got.Status != domain.StatusRead {
		t.Fatalf("status regressed to %q", got.Status)
	}

	if _, _, err := repo.AdvanceStatus(ctx, "missing", domain.StatusRead); !errors.Is(err, domain.ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
}

func TestMemoryListOrderAndLimit(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()

	for _, m := range []domain.Message{
		textMessage("late", "c1", base.Add(2*time.Minute)),
		textMessage("early", "c1", base),
		textMessage("tie", "c1", base),
		textMessage("other", "c2", base),
	} {
		if _, err := repo.Insert(ctx, &m); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	rows, err := repo.ListByConversation(ctx, "c1", 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	want := []string{"early", "tie", "late"}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	for i, id := range want {
		if rows[i].ID != id {
			t.Fatalf("row %d: expected %s, got %s", i, id, rows[i].ID)
		}
	}

	rows, err = repo.ListByConversation(ctx, "c1", 2)
	if err != nil || len(rows) != 2 {
		t.Fatalf("expected 2 rows with limit, got %d (err=%v)", len(rows), err)
	}

	ids, err := repo.ListConversationIDs(ctx)
	if err != nil || len(ids) != 2 || ids[0] != "c1" || ids[1] != "c2" {
		t.Fatalf("unexpected conversation ids %v (err=%v)", ids, err)
	}
}

func TestMemoryCancelledContextIsStoreUnavailable(t *testing.T) {
	repo := NewMemoryRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msg := textMessage("m1", "c1", time.Unix(1, 0))
	if _, err := repo.Insert(ctx, &msg); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
