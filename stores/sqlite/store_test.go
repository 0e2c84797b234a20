package sqlite

import (
	"context"
	"testing"
	"time"

	"gallery-complete/core"
)

func newTestStore(t *testing.T) *sqliteStore {
	t.Helper()
	store := NewStore(":memory:")
	t.Cleanup(func() { store.db.Close() })
	return store
}

func seedItems(t *testing.T, store *sqliteStore, userID string, n int) []*core.ImageItem {
	t.Helper()
	ctx := context.Background()
	items := make([]*core.ImageItem, n)
	for i := range items {
		items[i] = &core.ImageItem{
			ID:        string(rune('a' + i)),
			UserID:    userID,
			Title:     "Item " + string(rune('A'+i)),
			ImageURL:  "http://media.test/" + string(rune('a'+i)),
			Order:     i,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := store.Create(ctx, items[i]); err != nil {
			t.Fatalf("failed to create item %d: %v", i, err)
		}
	}
	return items
}

func TestImageCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedItems(t, store, "user-1", 2)

	item, err := store.Get(ctx, "user-1", "a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if item.Title != "Item A" || item.Order != 0 {
		t.Errorf("unexpected item: %+v", item)
	}

	item.Title = "Renamed"
	item.UpdatedAt = time.Now()
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	item, _ = store.Get(ctx, "user-1", "a")
	if item.Title != "Renamed" {
		t.Errorf("title = %q, want Renamed", item.Title)
	}

	if err := store.Delete(ctx, "user-1", "a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "user-1", "a"); err == nil {
		t.Error("deleted item should not be found")
	}

	items, err := store.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != "b" {
		t.Errorf("unexpected survivors: %+v", items)
	}
}

func TestItemsAreScopedByUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedItems(t, store, "user-1", 1)

	if _, err := store.Get(ctx, "user-2", "a"); err == nil {
		t.Error("item should not be visible to another user")
	}
	if err := store.Delete(ctx, "user-2", "a"); err == nil {
		t.Error("another user should not be able to delete the item")
	}
	items, err := store.List(ctx, "user-2")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("user-2 sees %d items, want 0", len(items))
	}
}

func TestReorderIsTransactional(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedItems(t, store, "user-1", 3)

	err := store.Reorder(ctx, "user-1", []core.OrderUpdate{
		{ID: "c", Order: 0},
		{ID: "a", Order: 1},
		{ID: "b", Order: 2},
	})
	if err != nil {
		t.Fatalf("Reorder failed: %v", err)
	}
	item, _ := store.Get(ctx, "user-1", "c")
	if item.Order != 0 {
		t.Errorf("c order = %d, want 0", item.Order)
	}

	// An unknown id rolls the whole batch back.
	err = store.Reorder(ctx, "user-1", []core.OrderUpdate{
		{ID: "a", Order: 5},
		{ID: "missing", Order: 6},
	})
	if err == nil {
		t.Fatal("expected an error for the unknown id")
	}
	item, _ = store.Get(ctx, "user-1", "a")
	if item.Order != 1 {
		t.Errorf("a order = %d after rollback, want 1", item.Order)
	}
}

func TestUserRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := &core.User{
		ID:           "user-1",
		Username:     "tester",
		Email:        "tester@example.com",
		PasswordHash: "hash-1",
		CreatedAt:    time.Now(),
	}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := store.CreateUser(ctx, &core.User{ID: "user-2", Email: "tester@example.com", PasswordHash: "x"}); err == nil {
		t.Error("duplicate email should be rejected")
	}

	got, err := store.UserByEmail(ctx, "tester@example.com")
	if err != nil {
		t.Fatalf("UserByEmail failed: %v", err)
	}
	if got.ID != "user-1" || got.PasswordHash != "hash-1" {
		t.Errorf("unexpected user: %+v", got)
	}

	if err := store.SetPassword(ctx, "tester@example.com", "hash-2"); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}
	got, _ = store.UserByEmail(ctx, "tester@example.com")
	if got.PasswordHash != "hash-2" {
		t.Errorf("password hash = %q, want hash-2", got.PasswordHash)
	}
	if err := store.SetPassword(ctx, "nobody@example.com", "x"); err == nil {
		t.Error("SetPassword for an unknown email should fail")
	}
}

func TestBlobRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.PutBlob(ctx, "k", []byte("first"), "image/png"); err != nil {
		t.Fatalf("PutBlob failed: %v", err)
	}
	// Upsert replaces.
	if err := store.PutBlob(ctx, "k", []byte("second"), "image/jpeg"); err != nil {
		t.Fatalf("PutBlob upsert failed: %v", err)
	}

	data, contentType, err := store.GetBlob(ctx, "k")
	if err != nil {
		t.Fatalf("GetBlob failed: %v", err)
	}
	if string(data) != "second" || contentType != "image/jpeg" {
		t.Errorf("blob = %q (%s)", data, contentType)
	}

	if err := store.DeleteBlob(ctx, "k"); err != nil {
		t.Fatalf("DeleteBlob failed: %v", err)
	}
	if _, _, err := store.GetBlob(ctx, "k"); err == nil {
		t.Error("deleted blob should not be found")
	}
}
