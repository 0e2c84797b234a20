package gallery

import "gallery-complete/core"

// moveItem computes the sequence that results from dragging the item at
// index from to index to, using list splice semantics: the item is removed
// and reinserted, and everything between the two positions shifts by one.
// Every item in the result is relabeled with its positional index so the
// order values are always dense 0..n-1, even if the input was not.
//
// The returned updates carry the full (id, order) mapping for one batched
// reorder call. moved is false when the gesture is a no-op (same position,
// empty or single-item list); no call should be issued in that case.
func moveItem(items []core.ImageItem, from, to int) (result []core.ImageItem, updates []core.OrderUpdate, moved bool) {
	n := len(items)
	if n < 2 || from < 0 || from >= n {
		return items, nil, false
	}
	if to < 0 {
		to = 0
	}
	if to >= n {
		to = n - 1
	}
	if to == from {
		return items, nil, false
	}

	result = make([]core.ImageItem, 0, n)
	result = append(result, items[:from]...)
	result = append(result, items[from+1:]...)
	result = append(result[:to], append([]core.ImageItem{items[from]}, result[to:]...)...)

	updates = make([]core.OrderUpdate, n)
	for i := range result {
		result[i].Order = i
		updates[i] = core.OrderUpdate{ID: result[i].ID, Order: i}
	}
	return result, updates, true
}
