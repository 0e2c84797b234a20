package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"gallery-complete/core"
	"gallery-complete/session"

	"github.com/sirupsen/logrus"
)

// Client is the authenticated request gateway to the gallery backend. It
// attaches the bearer credential from the session to every request, and a
// 401 from any endpoint resets the session before the error reaches the
// caller. It implements gallery.Service.
type Client struct {
	baseURL string
	http    *http.Client
	sess    *session.Session
}

func New(baseURL string, sess *session.Session) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
		sess:    sess,
	}
}

// do sends one request and applies the gateway policy: bearer header on the
// way out, global 401 handling on the way back. The returned body is fully
// read so the caller never deals with the connection.
func (c *Client) do(ctx context.Context, method, path string, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.sess.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		logrus.WithField("path", path).Warn("Credential rejected, resetting session")
		c.sess.Reset()
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(data)}
	}
	return data, nil
}

// errorMessage pulls the human-readable message out of an error body. The
// backend uses "msg" on auth routes and "error" elsewhere.
func errorMessage(body []byte) string {
	var payload struct {
		Msg   string `json:"msg"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Msg != "" {
		return payload.Msg
	}
	return payload.Error
}

// Images implements gallery.Service.
func (c *Client) Images(ctx context.Context, ownerID string) ([]core.ImageItem, error) {
	data, err := c.do(ctx, http.MethodGet, "/images/"+ownerID, "", nil)
	if err != nil {
		return nil, err
	}
	var items []core.ImageItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode image list: %w", err)
	}
	return items, nil
}

// UploadBatch implements gallery.Service. The wire shape is one multipart
// request with repeated "images" file parts, one "titles[i]" field per file
// and the owner id as "userId".
func (c *Client) UploadBatch(ctx context.Context, ownerID string, batch []core.PendingUpload) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for i, up := range batch {
		part, err := w.CreateFormFile("images", up.Name)
		if err != nil {
			return err
		}
		if _, err := part.Write(up.Data); err != nil {
			return err
		}
		if err := w.WriteField(fmt.Sprintf("titles[%d]", i), up.DraftTitle); err != nil {
			return err
		}
	}
	if err := w.WriteField("userId", ownerID); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	_, err := c.do(ctx, http.MethodPost, "/images/upload", w.FormDataContentType(), &buf)
	return err
}

// UpdateImage implements gallery.Service.
func (c *Client) UpdateImage(ctx context.Context, id, title string, replacement *core.PendingUpload) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("title", title); err != nil {
		return err
	}
	if replacement != nil {
		part, err := w.CreateFormFile("image", replacement.Name)
		if err != nil {
			return err
		}
		if _, err := part.Write(replacement.Data); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	_, err := c.do(ctx, http.MethodPut, "/images/"+id, w.FormDataContentType(), &buf)
	return err
}

// DeleteImage implements gallery.Service.
func (c *Client) DeleteImage(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/images/"+id, "", nil)
	return err
}

// Reorder implements gallery.Service.
func (c *Client) Reorder(ctx context.Context, ownerID string, updates []core.OrderUpdate) error {
	payload, err := json.Marshal(struct {
		UserID string             `json:"userId"`
		Images []core.OrderUpdate `json:"images"`
	}{UserID: ownerID, Images: updates})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPut, "/images/reorder", "application/json", bytes.NewReader(payload))
	return err
}
