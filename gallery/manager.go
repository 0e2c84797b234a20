package gallery

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gallery-complete/core"

	"github.com/sirupsen/logrus"
)

// SyncState describes how the in-memory collection relates to the server.
type SyncState int

const (
	// StateSynced means the displayed collection matches the last
	// confirmed server state.
	StateSynced SyncState = iota
	// StatePending means an optimistic mutation is awaiting confirmation.
	StatePending
	// StateReconciling means a mutation was rejected and the manager is
	// refetching the authoritative state.
	StateReconciling
)

func (s SyncState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReconciling:
		return "reconciling"
	default:
		return "synced"
	}
}

// Manager owns the client's view of one user's ordered image collection.
// It applies mutations optimistically and reconciles against the remote
// service: a confirmed call leaves the optimistic state standing, a rejected
// reorder discards it and refetches. The owner id is fixed at construction
// and never inferred.
//
// Mutating calls are serialized: the mutex is held for the full round trip,
// so at most one mutating request is in flight and later mutations queue
// FIFO behind it.
type Manager struct {
	svc   Service
	owner string

	mu    sync.RWMutex
	items []core.ImageItem
	state SyncState
}

func New(svc Service, ownerID string) *Manager {
	return &Manager{svc: svc, owner: ownerID}
}

func (m *Manager) OwnerID() string { return m.owner }

// Items returns a copy of the current collection in display order.
func (m *Manager) Items() []core.ImageItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.ImageItem, len(m.items))
	copy(out, m.items)
	return out
}

func (m *Manager) State() SyncState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Load fetches the full collection, sorts it by order ascending and replaces
// the in-memory view atomically. On failure the previous view stands,
// stale but valid.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(ctx)
}

func (m *Manager) loadLocked(ctx context.Context) error {
	items, err := m.svc.Images(ctx, m.owner)
	if err != nil {
		logrus.WithFields(logrus.Fields{"owner_id": m.owner}).WithError(err).Error("Failed to fetch gallery")
		return err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	m.items = items
	m.state = StateSynced
	return nil
}

// Remove optimistically drops the item from the collection, then issues
// exactly one delete call. The item is not restored on failure; the caller
// may Load to resynchronize. No other item's order is touched.
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i := range m.items {
		if m.items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("image with id %s not in collection", id)
	}

	m.items = append(m.items[:idx], m.items[idx+1:]...)
	m.state = StatePending

	if err := m.svc.DeleteImage(ctx, id); err != nil {
		logrus.WithField("image_id", id).WithError(err).Error("Failed to delete image")
		// The optimistic removal stands; the caller decides whether to
		// Load and resynchronize.
		m.state = StateReconciling
		return err
	}
	m.state = StateSynced
	return nil
}

// SetTitle updates the in-memory title only, for immediate display. Nothing
// is sent to the server until SaveEdit.
func (m *Manager) SetTitle(id, title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Title = title
			return
		}
	}
}

// Move applies a drag gesture: the item at index from is reinserted at
// index to and every item is relabeled with a dense 0..n-1 order. The new
// order is applied optimistically and persisted in one batched call. If the
// server rejects it the optimistic order is discarded and the collection is
// reloaded, so the view always converges to the authoritative order.
func (m *Manager) Move(ctx context.Context, from, to int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	reordered, updates, moved := moveItem(m.items, from, to)
	if !moved {
		return nil
	}

	prev := m.items
	m.items = reordered
	m.state = StatePending

	if err := m.svc.Reorder(ctx, m.owner, updates); err != nil {
		logrus.WithField("owner_id", m.owner).WithError(err).Error("Failed to persist order, resyncing")
		m.items = prev
		m.state = StateReconciling
		if loadErr := m.loadLocked(ctx); loadErr != nil {
			return fmt.Errorf("reorder failed and resync failed: %w", loadErr)
		}
		return err
	}
	m.state = StateSynced
	return nil
}

// Upload sends the staged batch and, on success, reloads the collection;
// the server is the source of truth for the ids and orders of new items.
func (m *Manager) Upload(ctx context.Context, batch []core.PendingUpload) error {
	if len(batch) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StatePending
	if err := m.svc.UploadBatch(ctx, m.owner, batch); err != nil {
		logrus.WithFields(logrus.Fields{"owner_id": m.owner, "count": len(batch)}).WithError(err).Error("Failed to upload images")
		m.state = StateSynced
		return err
	}
	return m.loadLocked(ctx)
}

// SaveEdit persists an edit session (title plus optional replacement image)
// for a single item, then reloads.
func (m *Manager) SaveEdit(ctx context.Context, sess *EditSession) error {
	if sess == nil {
		return fmt.Errorf("no edit session to save")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StatePending
	if err := m.svc.UpdateImage(ctx, sess.ImageID, sess.Title, sess.Replacement); err != nil {
		logrus.WithField("image_id", sess.ImageID).WithError(err).Error("Failed to update image")
		m.state = StateSynced
		return err
	}
	return m.loadLocked(ctx)
}
