package core

import (
	"context"
	"time"
)

type (
	// ImageItem is one persisted image in a user's gallery. The server
	// assigns IDs and the display order; clients never generate either.
	ImageItem struct {
		ID           string    `json:"_id"`
		UserID       string    `json:"-"` // owner, never exposed in responses
		Title        string    `json:"title"`
		ImageURL     string    `json:"imageURL"`
		ThumbnailURL string    `json:"thumbnailURL,omitempty"`
		Order        int       `json:"order"`
		CreatedAt    time.Time `json:"createdAt,omitempty"`
		UpdatedAt    time.Time `json:"updatedAt,omitempty"`
	}

	// OrderUpdate is one entry of a reorder batch.
	OrderUpdate struct {
		ID    string `json:"_id"`
		Order int    `json:"order"`
	}

	// PendingUpload is a locally selected file that has not been persisted
	// yet. It has no ID; drafts are addressed by their position in the
	// staging area.
	PendingUpload struct {
		Name       string
		Data       []byte
		DraftTitle string
	}

	// ImageStore defines the persistence layer for gallery items.
	// All mutating operations are scoped to a single owner.
	ImageStore interface {
		// List returns every item owned by userID, in no particular order.
		List(ctx context.Context, userID string) ([]*ImageItem, error)

		// Get returns a single item by its ID, ensuring it belongs to the user.
		Get(ctx context.Context, userID, id string) (*ImageItem, error)

		// Create stores a new item under the ID already set on it.
		Create(ctx context.Context, item *ImageItem) error

		// Update overwrites the stored item with the same ID.
		Update(ctx context.Context, item *ImageItem) error

		// Delete removes an item, ensuring it belongs to the user. The
		// orders of surviving items are left untouched; density is
		// restored by the next reorder.
		Delete(ctx context.Context, userID, id string) error

		// Reorder applies a batch of order assignments for one owner.
		Reorder(ctx context.Context, userID string, updates []OrderUpdate) error
	}

	// BlobStore holds the raw image bytes referenced by ImageItems.
	BlobStore interface {
		PutBlob(ctx context.Context, key string, data []byte, contentType string) error
		GetBlob(ctx context.Context, key string) ([]byte, string, error)
		DeleteBlob(ctx context.Context, key string) error
	}
)
