package memory

import (
	"context"
	"fmt"
	"sync"

	"gallery-complete/core"

	"github.com/sirupsen/logrus"
)

type blob struct {
	data        []byte
	contentType string
}

// memStore keeps everything in process memory. It is the default backend
// and the one the tests use.
type memStore struct {
	mu sync.RWMutex
	// items is keyed by userID, then by image id.
	items map[string]map[string]*core.ImageItem
	users map[string]*core.User // keyed by email
	blobs map[string]blob
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{
		items: make(map[string]map[string]*core.ImageItem),
		users: make(map[string]*core.User),
		blobs: make(map[string]blob),
	}
}

// ImageStore implementation

func (s *memStore) List(ctx context.Context, userID string) ([]*core.ImageItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned, ok := s.items[userID]
	if !ok {
		return []*core.ImageItem{}, nil
	}
	items := make([]*core.ImageItem, 0, len(owned))
	for _, item := range owned {
		clone := *item
		items = append(items, &clone)
	}
	logrus.WithField("user_id", userID).Debugf("Listed %d images", len(items))
	return items, nil
}

func (s *memStore) Get(ctx context.Context, userID, id string) (*core.ImageItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[userID][id]
	if !ok {
		return nil, fmt.Errorf("image with id %s not found for user %s", id, userID)
	}
	clone := *item
	return &clone, nil
}

func (s *memStore) Create(ctx context.Context, item *core.ImageItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.UserID == "" {
		return fmt.Errorf("UserID cannot be empty")
	}
	if item.ID == "" {
		return fmt.Errorf("image ID cannot be empty")
	}
	owned, ok := s.items[item.UserID]
	if !ok {
		owned = make(map[string]*core.ImageItem)
		s.items[item.UserID] = owned
	}
	clone := *item
	owned[item.ID] = &clone
	logrus.WithFields(logrus.Fields{"user_id": item.UserID, "image_id": item.ID}).Info("Image created")
	return nil
}

func (s *memStore) Update(ctx context.Context, item *core.ImageItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[item.UserID][item.ID]; !ok {
		return fmt.Errorf("image with id %s not found for user %s", item.ID, item.UserID)
	}
	clone := *item
	s.items[item.UserID][item.ID] = &clone
	return nil
}

func (s *memStore) Delete(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owned, ok := s.items[userID]
	if !ok {
		return fmt.Errorf("user %s has no images", userID)
	}
	if _, ok := owned[id]; !ok {
		return fmt.Errorf("image with id %s not found for user %s", id, userID)
	}
	delete(owned, id)
	logrus.WithFields(logrus.Fields{"user_id": userID, "image_id": id}).Info("Image deleted")
	return nil
}

func (s *memStore) Reorder(ctx context.Context, userID string, updates []core.OrderUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owned := s.items[userID]
	for _, update := range updates {
		if _, ok := owned[update.ID]; !ok {
			return fmt.Errorf("image with id %s not found for user %s", update.ID, userID)
		}
	}
	for _, update := range updates {
		owned[update.ID].Order = update.Order
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "count": len(updates)}).Info("Order updated")
	return nil
}

// UserStore implementation

func (s *memStore) CreateUser(ctx context.Context, user *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.Email]; exists {
		return fmt.Errorf("user with email %s already exists", user.Email)
	}
	clone := *user
	s.users[user.Email] = &clone
	return nil
}

func (s *memStore) UserByEmail(ctx context.Context, email string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[email]
	if !ok {
		return nil, fmt.Errorf("user with email %s not found", email)
	}
	clone := *user
	return &clone, nil
}

func (s *memStore) SetPassword(ctx context.Context, email, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[email]
	if !ok {
		return fmt.Errorf("user with email %s not found", email)
	}
	user.PasswordHash = passwordHash
	return nil
}

// BlobStore implementation

func (s *memStore) PutBlob(ctx context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = blob{data: data, contentType: contentType}
	return nil
}

func (s *memStore) GetBlob(ctx context.Context, key string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, "", fmt.Errorf("blob %s not found", key)
	}
	return b.data, b.contentType, nil
}

func (s *memStore) DeleteBlob(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}
