package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"time"

	"gallery-complete/core"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3Store keeps items and users as JSON objects and blobs as raw objects:
//
//	items/<userID>/<id>.json
//	users/<email>.json
//	blobs/<key>
type s3Store struct {
	s3Client *s3.Client
	bucket   string
}

type userRecord struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewStore creates a new S3-based store.
func NewStore(bucketName string) *s3Store {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	return &s3Store{
		s3Client: s3.NewFromConfig(cfg),
		bucket:   bucketName,
	}
}

func itemKey(userID, id string) (string, error) {
	if path.Base(id) != id || id == "" || id == "." || id == ".." {
		return "", fmt.Errorf("invalid image id: must be a simple name")
	}
	return path.Join("items", userID, id+".json"), nil
}

func (s *s3Store) getObject(ctx context.Context, key string) ([]byte, string, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read object body: %v", err)
	}
	contentType := ""
	if resp.ContentType != nil {
		contentType = *resp.ContentType
	}
	return data, contentType, nil
}

func (s *s3Store) putObject(ctx context.Context, key string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	_, err := s.s3Client.PutObject(ctx, input)
	return err
}

func isNoSuchKey(err error) bool {
	var nsk *s3types.NoSuchKey
	return errors.As(err, &nsk)
}

// ImageStore implementation

func (s *s3Store) List(ctx context.Context, userID string) ([]*core.ImageItem, error) {
	prefix := path.Join("items", userID) + "/"
	output, err := s.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list images for user %s: %v", userID, err)
	}

	items := make([]*core.ImageItem, 0, len(output.Contents))
	for _, object := range output.Contents {
		data, _, err := s.getObject(ctx, *object.Key)
		if err != nil {
			log.Printf("warn: failed to get object %s: %v", *object.Key, err)
			continue
		}
		var item core.ImageItem
		if err := json.Unmarshal(data, &item); err != nil {
			log.Printf("warn: failed to unmarshal item %s: %v", *object.Key, err)
			continue
		}
		item.UserID = userID
		items = append(items, &item)
	}
	return items, nil
}

func (s *s3Store) Get(ctx context.Context, userID, id string) (*core.ImageItem, error) {
	key, err := itemKey(userID, id)
	if err != nil {
		return nil, err
	}
	data, _, err := s.getObject(ctx, key)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("image with id %s not found for user %s", id, userID)
		}
		return nil, fmt.Errorf("failed to get image %s: %v", id, err)
	}
	var item core.ImageItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal image %s: %v", id, err)
	}
	item.UserID = userID
	return &item, nil
}

func (s *s3Store) Create(ctx context.Context, item *core.ImageItem) error {
	key, err := itemKey(item.UserID, item.ID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal image: %v", err)
	}
	return s.putObject(ctx, key, data, "application/json")
}

func (s *s3Store) Update(ctx context.Context, item *core.ImageItem) error {
	if _, err := s.Get(ctx, item.UserID, item.ID); err != nil {
		return err
	}
	return s.Create(ctx, item)
}

func (s *s3Store) Delete(ctx context.Context, userID, id string) error {
	key, err := itemKey(userID, id)
	if err != nil {
		return err
	}
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	_, err = s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete image %s: %v", id, err)
	}
	return nil
}

func (s *s3Store) Reorder(ctx context.Context, userID string, updates []core.OrderUpdate) error {
	for _, update := range updates {
		item, err := s.Get(ctx, userID, update.ID)
		if err != nil {
			return err
		}
		item.Order = update.Order
		if err := s.Create(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// UserStore implementation

func (s *s3Store) userKey(email string) string {
	return path.Join("users", email+".json")
}

func (s *s3Store) CreateUser(ctx context.Context, user *core.User) error {
	if _, _, err := s.getObject(ctx, s.userKey(user.Email)); err == nil {
		return fmt.Errorf("user with email %s already exists", user.Email)
	}
	data, err := json.Marshal(userRecord{
		ID: user.ID, Username: user.Username, Email: user.Email,
		Phone: user.Phone, PasswordHash: user.PasswordHash, CreatedAt: user.CreatedAt,
	})
	if err != nil {
		return err
	}
	return s.putObject(ctx, s.userKey(user.Email), data, "application/json")
}

func (s *s3Store) UserByEmail(ctx context.Context, email string) (*core.User, error) {
	data, _, err := s.getObject(ctx, s.userKey(email))
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("user with email %s not found", email)
		}
		return nil, fmt.Errorf("failed to get user %s: %v", email, err)
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

func (s *s3Store) SetPassword(ctx context.Context, email, passwordHash string) error {
	user, err := s.UserByEmail(ctx, email)
	if err != nil {
		return err
	}
	data, err := json.Marshal(userRecord{
		ID: user.ID, Username: user.Username, Email: user.Email,
		Phone: user.Phone, PasswordHash: passwordHash, CreatedAt: user.CreatedAt,
	})
	if err != nil {
		return err
	}
	return s.putObject(ctx, s.userKey(email), data, "application/json")
}

// BlobStore implementation

func (s *s3Store) PutBlob(ctx context.Context, key string, data []byte, contentType string) error {
	return s.putObject(ctx, path.Join("blobs", key), data, contentType)
}

func (s *s3Store) GetBlob(ctx context.Context, key string) ([]byte, string, error) {
	data, contentType, err := s.getObject(ctx, path.Join("blobs", key))
	if err != nil {
		if isNoSuchKey(err) {
			return nil, "", fmt.Errorf("blob %s not found", key)
		}
		return nil, "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, nil
}

func (s *s3Store) DeleteBlob(ctx context.Context, key string) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path.Join("blobs", key)),
	})
	return err
}
