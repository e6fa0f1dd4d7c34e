package repo

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestSubscriptions_SoftDeactivate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, id := range []int64{30, 10, 20} {
		if err := SetSubscription(ctx, db, id, true); err != nil {
			t.Fatalf("SetSubscription(%d): %v", id, err)
		}
	}
	if err := SetSubscription(ctx, db, 20, false); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}

	active, err := ListActiveSubscriptions(ctx, db)
	if err != nil {
		t.Fatalf("ListActiveSubscriptions: %v", err)
	}
	if !reflect.DeepEqual(active, []int64{10, 30}) {
		t.Fatalf("active = %v", active)
	}

	s, err := GetSubscription(ctx, db, 20)
	if err != nil {
		t.Fatalf("deactivated row must remain: %v", err)
	}
	if s.Active {
		t.Fatalf("expected inactive subscription")
	}

	// Resubscribe flips the same row back.
	if err := SetSubscription(ctx, db, 20, true); err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
	active, _ = ListActiveSubscriptions(ctx, db)
	if len(active) != 3 {
		t.Fatalf("expected 3 active, got %v", active)
	}
}

func TestMarkUpdateProcessed_Duplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := MarkUpdateProcessed(ctx, db, 1001, 7, time.Hour); err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if err := MarkUpdateProcessed(ctx, db, 1001, 7, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := MarkUpdateProcessed(ctx, db, 1002, 7, time.Hour); err != nil {
		t.Fatalf("different update id: %v", err)
	}

	n, err := PurgeProcessedUpdates(ctx, db, time.Now().Add(2*time.Hour))
	if err != nil || n != 2 {
		t.Fatalf("PurgeProcessedUpdates = %d, %v; want 2", n, err)
	}
	if err := MarkUpdateProcessed(ctx, db, 1001, 7, time.Hour); err != nil {
		t.Fatalf("mark after purge: %v", err)
	}
}
