package domain

import (
	"testing"
	"time"
)

func TestProcessedUpdate_Migration_AndUniqueUpdateID(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&ProcessedUpdate{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	if !m.HasTable(&ProcessedUpdate{}) {
		t.Fatalf("expected processed_updates table")
	}
	for _, col := range []string{"update_id", "chat_id", "created_at", "expires_at"} {
		if !m.HasColumn(&ProcessedUpdate{}, col) {
			t.Fatalf("missing column %q", col)
		}
	}

	now := time.Now().UTC()
	rec := ProcessedUpdate{UpdateID: 42, ChatID: 1, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	if rec.CreatedAt.IsZero() {
		t.Fatalf("expected CreatedAt to be set by autoCreateTime")
	}

	dup := ProcessedUpdate{UpdateID: 42, ChatID: 2, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(&dup).Error; err == nil {
		t.Fatalf("expected primary key violation for repeated update id")
	}
}
