package gallery

import (
	"context"

	"gallery-complete/core"
)

// Service is the remote gallery surface the manager reconciles against.
// The HTTP client implements it; tests substitute mocks.
type Service interface {
	// Images returns every item owned by ownerID.
	Images(ctx context.Context, ownerID string) ([]core.ImageItem, error)

	// UploadBatch sends staged files with their titles in one multipart
	// request. New items are appended after the existing ones server-side.
	UploadBatch(ctx context.Context, ownerID string, batch []core.PendingUpload) error

	// UpdateImage replaces an item's title and, when replacement is
	// non-nil, its image.
	UpdateImage(ctx context.Context, id, title string, replacement *core.PendingUpload) error

	// DeleteImage removes a single item.
	DeleteImage(ctx context.Context, id string) error

	// Reorder persists a full (id, order) mapping for one owner.
	Reorder(ctx context.Context, ownerID string, updates []core.OrderUpdate) error
}
