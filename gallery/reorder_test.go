package gallery

import (
	"fmt"
	"testing"

	"gallery-complete/core"
)

func testItems(n int) []core.ImageItem {
	items := make([]core.ImageItem, n)
	for i := range items {
		items[i] = core.ImageItem{ID: fmt.Sprintf("img-%d", i), Title: fmt.Sprintf("Image %d", i), Order: i}
	}
	return items
}

func TestMoveItemAllPairs(t *testing.T) {
	const n = 5
	for from := 0; from < n; from++ {
		for to := 0; to < n; to++ {
			items := testItems(n)
			result, updates, moved := moveItem(items, from, to)

			if from == to {
				if moved {
					t.Errorf("moveItem(%d, %d): expected no-op", from, to)
				}
				continue
			}
			if !moved {
				t.Fatalf("moveItem(%d, %d): expected a move", from, to)
			}
			if len(result) != n || len(updates) != n {
				t.Fatalf("moveItem(%d, %d): got %d items, %d updates", from, to, len(result), len(updates))
			}

			// Order values must be exactly 0..n-1 at their positions.
			for i, item := range result {
				if item.Order != i {
					t.Errorf("moveItem(%d, %d): item at %d has order %d", from, to, i, item.Order)
				}
			}

			// The moved item sits at the destination.
			if result[to].ID != fmt.Sprintf("img-%d", from) {
				t.Errorf("moveItem(%d, %d): destination holds %s", from, to, result[to].ID)
			}

			// All other items keep their relative order.
			var rest []string
			for i, item := range result {
				if i != to {
					rest = append(rest, item.ID)
				}
			}
			var want []string
			for i := 0; i < n; i++ {
				if i != from {
					want = append(want, fmt.Sprintf("img-%d", i))
				}
			}
			for i := range want {
				if rest[i] != want[i] {
					t.Errorf("moveItem(%d, %d): relative order broken: got %v, want %v", from, to, rest, want)
					break
				}
			}
		}
	}
}

func TestMoveItemClampsDestination(t *testing.T) {
	items := testItems(3)
	result, _, moved := moveItem(items, 0, 99)
	if !moved {
		t.Fatal("expected a move")
	}
	if result[2].ID != "img-0" {
		t.Errorf("expected img-0 at last position, got %s", result[2].ID)
	}

	result, _, moved = moveItem(testItems(3), 2, -5)
	if !moved {
		t.Fatal("expected a move")
	}
	if result[0].ID != "img-2" {
		t.Errorf("expected img-2 at first position, got %s", result[0].ID)
	}
}

func TestMoveItemNoOps(t *testing.T) {
	if _, _, moved := moveItem(nil, 0, 1); moved {
		t.Error("empty collection should be a no-op")
	}
	if _, _, moved := moveItem(testItems(1), 0, 0); moved {
		t.Error("single-item collection should be a no-op")
	}
	if _, _, moved := moveItem(testItems(4), -1, 2); moved {
		t.Error("out-of-range source should be a no-op")
	}
}

func TestMoveItemRelabelsSparseOrders(t *testing.T) {
	// Prior inconsistent state: gaps and duplicates. A reorder restores
	// density regardless.
	items := []core.ImageItem{
		{ID: "a", Order: 3},
		{ID: "b", Order: 3},
		{ID: "c", Order: 9},
	}
	result, updates, moved := moveItem(items, 2, 0)
	if !moved {
		t.Fatal("expected a move")
	}
	for i, item := range result {
		if item.Order != i {
			t.Errorf("item %s has order %d, want %d", item.ID, item.Order, i)
		}
	}
	if updates[0].ID != "c" || updates[0].Order != 0 {
		t.Errorf("unexpected first update: %+v", updates[0])
	}
}
