package memory

import (
	"context"
	"testing"

	"gallery-complete/core"
)

func TestReturnedItemsAreCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Create(ctx, &core.ImageItem{ID: "a", UserID: "user-1", Title: "Original"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	item, err := store.Get(ctx, "user-1", "a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	item.Title = "Mutated"

	again, _ := store.Get(ctx, "user-1", "a")
	if again.Title != "Original" {
		t.Errorf("store was mutated through a returned item: %q", again.Title)
	}
}

func TestReorderRejectsUnknownIDUpfront(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	store.Create(ctx, &core.ImageItem{ID: "a", UserID: "user-1", Order: 0})
	store.Create(ctx, &core.ImageItem{ID: "b", UserID: "user-1", Order: 1})

	err := store.Reorder(ctx, "user-1", []core.OrderUpdate{
		{ID: "a", Order: 1},
		{ID: "missing", Order: 0},
	})
	if err == nil {
		t.Fatal("expected an error for the unknown id")
	}
	// Nothing is applied when any id is unknown.
	item, _ := store.Get(ctx, "user-1", "a")
	if item.Order != 0 {
		t.Errorf("a order = %d, want 0 (unchanged)", item.Order)
	}
}

func TestListUnknownUserIsEmpty(t *testing.T) {
	store := NewStore()
	items, err := store.List(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("got %d items, want 0", len(items))
	}
}
