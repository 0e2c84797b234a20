package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"gallery-complete/core"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db *sql.DB
}

// NewStore creates a new SQLite-based store.
func NewStore(dataSourceName string) *sqliteStore {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		log.Fatalf("failed to open sqlite database: %v", err)
	}

	imageTableStmt := `
	CREATE TABLE IF NOT EXISTS images (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT,
		image_url TEXT,
		thumbnail_url TEXT,
		ord INTEGER NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	);`
	if _, err = db.Exec(imageTableStmt); err != nil {
		log.Fatalf("failed to create images table: %v", err)
	}

	userTableStmt := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT,
		email TEXT NOT NULL UNIQUE,
		phone TEXT,
		password_hash TEXT NOT NULL,
		created_at DATETIME
	);`
	if _, err = db.Exec(userTableStmt); err != nil {
		log.Fatalf("failed to create users table: %v", err)
	}

	blobTableStmt := `
	CREATE TABLE IF NOT EXISTS blobs (
		key TEXT PRIMARY KEY,
		data BLOB,
		content_type TEXT
	);`
	if _, err = db.Exec(blobTableStmt); err != nil {
		log.Fatalf("failed to create blobs table: %v", err)
	}

	return &sqliteStore{db}
}

// ImageStore implementation

func (s *sqliteStore) List(ctx context.Context, userID string) ([]*core.ImageItem, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, title, image_url, thumbnail_url, ord, created_at, updated_at FROM images WHERE user_id = ?", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*core.ImageItem
	for rows.Next() {
		var item core.ImageItem
		item.UserID = userID
		if err := rows.Scan(&item.ID, &item.Title, &item.ImageURL, &item.ThumbnailURL, &item.Order, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

func (s *sqliteStore) Get(ctx context.Context, userID, id string) (*core.ImageItem, error) {
	var item core.ImageItem
	item.UserID = userID
	item.ID = id
	err := s.db.QueryRowContext(ctx, "SELECT title, image_url, thumbnail_url, ord, created_at, updated_at FROM images WHERE user_id = ? AND id = ?", userID, id).
		Scan(&item.Title, &item.ImageURL, &item.ThumbnailURL, &item.Order, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("image with id %s not found for user %s", id, userID)
		}
		return nil, err
	}
	return &item, nil
}

func (s *sqliteStore) Create(ctx context.Context, item *core.ImageItem) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO images (id, user_id, title, image_url, thumbnail_url, ord, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		item.ID, item.UserID, item.Title, item.ImageURL, item.ThumbnailURL, item.Order, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		logrus.WithField("image_id", item.ID).WithError(err).Error("Failed to create image")
		return err
	}
	return nil
}

func (s *sqliteStore) Update(ctx context.Context, item *core.ImageItem) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE images SET title = ?, image_url = ?, thumbnail_url = ?, ord = ?, updated_at = ? WHERE user_id = ? AND id = ?",
		item.Title, item.ImageURL, item.ThumbnailURL, item.Order, item.UpdatedAt, item.UserID, item.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("image with id %s not found for user %s", item.ID, item.UserID)
	}
	return nil
}

func (s *sqliteStore) Delete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM images WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("image with id %s not found for user %s", id, userID)
	}
	return nil
}

// Reorder applies the whole batch in one transaction so a partial order is
// never persisted.
func (s *sqliteStore) Reorder(ctx context.Context, userID string, updates []core.OrderUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, update := range updates {
		res, err := tx.ExecContext(ctx, "UPDATE images SET ord = ? WHERE user_id = ? AND id = ?", update.Order, userID, update.ID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("image with id %s not found for user %s", update.ID, userID)
		}
	}
	return tx.Commit()
}

// UserStore implementation

func (s *sqliteStore) CreateUser(ctx context.Context, user *core.User) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, username, email, phone, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		user.ID, user.Username, user.Email, user.Phone, user.PasswordHash, user.CreatedAt)
	return err
}

func (s *sqliteStore) UserByEmail(ctx context.Context, email string) (*core.User, error) {
	var user core.User
	err := s.db.QueryRowContext(ctx, "SELECT id, username, email, phone, password_hash, created_at FROM users WHERE email = ?", email).
		Scan(&user.ID, &user.Username, &user.Email, &user.Phone, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user with email %s not found", email)
		}
		return nil, err
	}
	return &user, nil
}

func (s *sqliteStore) SetPassword(ctx context.Context, email, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE email = ?", passwordHash, email)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("user with email %s not found", email)
	}
	return nil
}

// BlobStore implementation

func (s *sqliteStore) PutBlob(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO blobs (key, data, content_type) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET data = excluded.data, content_type = excluded.content_type",
		key, data, contentType)
	return err
}

func (s *sqliteStore) GetBlob(ctx context.Context, key string) ([]byte, string, error) {
	var data []byte
	var contentType string
	err := s.db.QueryRowContext(ctx, "SELECT data, content_type FROM blobs WHERE key = ?", key).Scan(&data, &contentType)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", fmt.Errorf("blob %s not found", key)
		}
		return nil, "", err
	}
	return data, contentType, nil
}

func (s *sqliteStore) DeleteBlob(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM blobs WHERE key = ?", key)
	return err
}
