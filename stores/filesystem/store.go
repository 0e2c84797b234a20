package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gallery-complete/core"

	"github.com/sirupsen/logrus"
)

// fsStore keeps items and users as JSON files and blobs as raw files:
//
//	basePath/items/<userID>/<id>.json
//	basePath/users/<escaped email>.json
//	basePath/blobs/<key> (+ <key>.ct holding the content type)
type fsStore struct {
	basePath string
}

// userRecord is the on-disk user shape. core.User hides the password hash
// from JSON, so it gets its own field here.
type userRecord struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewStore creates a new filesystem-based store.
func NewStore(basePath string) *fsStore {
	for _, dir := range []string{basePath, filepath.Join(basePath, "items"), filepath.Join(basePath, "users"), filepath.Join(basePath, "blobs")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("failed to create storage directory: %v", err)
		}
	}
	return &fsStore{basePath: basePath}
}

func (s *fsStore) itemPath(userID, id string) string {
	return filepath.Join(s.basePath, "items", userID, id+".json")
}

func (s *fsStore) userPath(email string) string {
	return filepath.Join(s.basePath, "users", url.PathEscape(email)+".json")
}

func (s *fsStore) blobPath(key string) string {
	return filepath.Join(s.basePath, "blobs", key)
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ImageStore implementation

func (s *fsStore) List(ctx context.Context, userID string) ([]*core.ImageItem, error) {
	userDir := filepath.Join(s.basePath, "items", userID)
	entries, err := os.ReadDir(userDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*core.ImageItem{}, nil
		}
		return nil, err
	}

	items := make([]*core.ImageItem, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(userDir, entry.Name()))
		if err != nil {
			logrus.WithField("file", entry.Name()).WithError(err).Warn("Skipping unreadable item file")
			continue
		}
		var item core.ImageItem
		if err := json.Unmarshal(data, &item); err != nil {
			logrus.WithField("file", entry.Name()).WithError(err).Warn("Skipping malformed item file")
			continue
		}
		item.UserID = userID
		items = append(items, &item)
	}
	return items, nil
}

func (s *fsStore) Get(ctx context.Context, userID, id string) (*core.ImageItem, error) {
	data, err := os.ReadFile(s.itemPath(userID, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("image with id %s not found for user %s", id, userID)
		}
		return nil, err
	}
	var item core.ImageItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	item.UserID = userID
	return &item, nil
}

func (s *fsStore) Create(ctx context.Context, item *core.ImageItem) error {
	return writeJSON(s.itemPath(item.UserID, item.ID), item)
}

func (s *fsStore) Update(ctx context.Context, item *core.ImageItem) error {
	path := s.itemPath(item.UserID, item.ID)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("image with id %s not found for user %s", item.ID, item.UserID)
	}
	return writeJSON(path, item)
}

func (s *fsStore) Delete(ctx context.Context, userID, id string) error {
	err := os.Remove(s.itemPath(userID, id))
	if os.IsNotExist(err) {
		return fmt.Errorf("image with id %s not found for user %s", id, userID)
	}
	return err
}

func (s *fsStore) Reorder(ctx context.Context, userID string, updates []core.OrderUpdate) error {
	for _, update := range updates {
		item, err := s.Get(ctx, userID, update.ID)
		if err != nil {
			return err
		}
		item.Order = update.Order
		if err := writeJSON(s.itemPath(userID, update.ID), item); err != nil {
			return err
		}
	}
	return nil
}

// UserStore implementation

func (s *fsStore) CreateUser(ctx context.Context, user *core.User) error {
	path := s.userPath(user.Email)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("user with email %s already exists", user.Email)
	}
	return writeJSON(path, userRecord{
		ID: user.ID, Username: user.Username, Email: user.Email,
		Phone: user.Phone, PasswordHash: user.PasswordHash, CreatedAt: user.CreatedAt,
	})
}

func (s *fsStore) UserByEmail(ctx context.Context, email string) (*core.User, error) {
	data, err := os.ReadFile(s.userPath(email))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("user with email %s not found", email)
		}
		return nil, err
	}
	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &core.User{
		ID: rec.ID, Username: rec.Username, Email: rec.Email,
		Phone: rec.Phone, PasswordHash: rec.PasswordHash, CreatedAt: rec.CreatedAt,
	}, nil
}

func (s *fsStore) SetPassword(ctx context.Context, email, passwordHash string) error {
	user, err := s.UserByEmail(ctx, email)
	if err != nil {
		return err
	}
	user.PasswordHash = passwordHash
	return writeJSON(s.userPath(email), userRecord{
		ID: user.ID, Username: user.Username, Email: user.Email,
		Phone: user.Phone, PasswordHash: user.PasswordHash, CreatedAt: user.CreatedAt,
	})
}

// BlobStore implementation

func (s *fsStore) PutBlob(ctx context.Context, key string, data []byte, contentType string) error {
	if err := os.WriteFile(s.blobPath(key), data, 0644); err != nil {
		return err
	}
	return os.WriteFile(s.blobPath(key)+".ct", []byte(contentType), 0644)
}

func (s *fsStore) GetBlob(ctx context.Context, key string) ([]byte, string, error) {
	data, err := os.ReadFile(s.blobPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("blob %s not found", key)
		}
		return nil, "", err
	}
	contentType := "application/octet-stream"
	if ct, err := os.ReadFile(s.blobPath(key) + ".ct"); err == nil {
		contentType = string(ct)
	}
	return data, contentType, nil
}

func (s *fsStore) DeleteBlob(ctx context.Context, key string) error {
	os.Remove(s.blobPath(key) + ".ct")
	err := os.Remove(s.blobPath(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
