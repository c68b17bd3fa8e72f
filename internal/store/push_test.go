package store

import (
	"context"
	"testing"
	"time"
)

func TestCreateSubscription(t *testing.T) {
	db := setupTestDB(t)
	ps := NewPushStore(db)
	u := createTestUser(t, db, "alice@example.com")

	sub, err := ps.CreateSubscription(context.Background(), u.ID, "https://push.example.com/sub1", "p256dh_key1", "auth_key1", "Chrome Desktop")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if sub.ID == "" {
		t.Error("expected ID")
	}
	if sub.Endpoint != "https://push.example.com/sub1" {
		t.Errorf("endpoint = %q", sub.Endpoint)
	}
	if sub.DeviceName != "Chrome Desktop" {
		t.Errorf("device_name = %q", sub.DeviceName)
	}
}

func TestCreateSubscriptionUpsert(t *testing.T) {
	db := setupTestDB(t)
	ps := NewPushStore(db)
	ctx := context.Background()
	u := createTestUser(t, db, "alice@example.com")

	first, _ := ps.CreateSubscription(ctx, u.ID, "https://push.example.com/sub1", "old", "old", "Chrome")
	second, err := ps.CreateSubscription(ctx, u.ID, "https://push.example.com/sub1", "new", "new", "Chrome Updated")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("id changed on upsert: %q -> %q", first.ID, second.ID)
	}
	if second.P256dhKey != "new" || second.DeviceName != "Chrome Updated" {
		t.Errorf("subscription not updated: %+v", second)
	}

	subs, _ := ps.ListByUser(ctx, u.ID)
	if len(subs) != 1 {
		t.Errorf("got %d subscriptions, want 1", len(subs))
	}
}

func TestDeleteSubscriptionScopedToUser(t *testing.T) {
	db := setupTestDB(t)
	ps := NewPushStore(db)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")

	sub, _ := ps.CreateSubscription(ctx, alice.ID, "https://push.example.com/a", "k", "a", "")

	_ = ps.DeleteSubscription(ctx, bob.ID, sub.ID)
	if subs, _ := ps.ListByUser(ctx, alice.ID); len(subs) != 1 {
		t.Fatal("another user deleted the subscription")
	}

	if err := ps.DeleteSubscription(ctx, alice.ID, sub.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if subs, _ := ps.ListByUser(ctx, alice.ID); len(subs) != 0 {
		t.Error("subscription not deleted")
	}
}

func TestDeleteByEndpoint(t *testing.T) {
	db := setupTestDB(t)
	ps := NewPushStore(db)
	ctx := context.Background()
	u := createTestUser(t, db, "alice@example.com")

	_, _ = ps.CreateSubscription(ctx, u.ID, "https://push.example.com/gone", "k", "a", "")
	if err := ps.DeleteByEndpoint(ctx, "https://push.example.com/gone"); err != nil {
		t.Fatalf("delete by endpoint: %v", err)
	}
	if subs, _ := ps.ListByUser(ctx, u.ID); len(subs) != 0 {
		t.Error("subscription not deleted")
	}
}

func TestListUserIDs(t *testing.T) {
	db := setupTestDB(t)
	ps := NewPushStore(db)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice@example.com")
	createTestUser(t, db, "bob@example.com")

	_, _ = ps.CreateSubscription(ctx, alice.ID, "https://push.example.com/1", "k", "a", "")
	_, _ = ps.CreateSubscription(ctx, alice.ID, "https://push.example.com/2", "k", "a", "")

	ids, err := ps.ListUserIDs(ctx)
	if err != nil {
		t.Fatalf("list user ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != alice.ID {
		t.Errorf("ids = %v, want [%s]", ids, alice.ID)
	}
}

func TestSentNotificationDedup(t *testing.T) {
	db := setupTestDB(t)
	ps := NewPushStore(db)
	ctx := context.Background()

	sent, err := ps.WasSent(ctx, "u1", "math@2026-02-02")
	if err != nil {
		t.Fatalf("was sent: %v", err)
	}
	if sent {
		t.Error("expected not sent")
	}

	if err := ps.RecordSent(ctx, "u1", "math@2026-02-02"); err != nil {
		t.Fatalf("record sent: %v", err)
	}
	// duplicate record is ignored
	if err := ps.RecordSent(ctx, "u1", "math@2026-02-02"); err != nil {
		t.Fatalf("record sent twice: %v", err)
	}

	if sent, _ := ps.WasSent(ctx, "u1", "math@2026-02-02"); !sent {
		t.Error("expected sent")
	}
	if sent, _ := ps.WasSent(ctx, "u2", "math@2026-02-02"); sent {
		t.Error("ledger leaked across users")
	}
	if sent, _ := ps.WasSent(ctx, "u1", "math@2026-02-09"); sent {
		t.Error("different day should not be sent")
	}
}

func TestCleanupSent(t *testing.T) {
	db := setupTestDB(t)
	ps := NewPushStore(db)
	ctx := context.Background()

	_ = ps.RecordSent(ctx, "u1", "old")
	_ = ps.RecordSent(ctx, "u1", "new")
	old := time.Now().Add(-72 * time.Hour).UnixMilli()
	if _, err := db.Exec(`UPDATE sent_notifications SET sent_at = ? WHERE reference_id = 'old'`, old); err != nil {
		t.Fatalf("age row: %v", err)
	}

	n, err := ps.CleanupSent(ctx, time.Now().Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 1 {
		t.Errorf("cleaned %d, want 1", n)
	}
	if sent, _ := ps.WasSent(ctx, "u1", "new"); !sent {
		t.Error("recent row was cleaned up")
	}
}
