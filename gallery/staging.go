package gallery

import (
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"

	"gallery-complete/core"
)

// EditSession is a draft edit of one existing item: a title and an optional
// replacement image. At most one session is open at a time.
type EditSession struct {
	ImageID     string
	Title       string
	Replacement *core.PendingUpload
}

// Staging tracks locally selected files and their draft titles before they
// become persisted items, plus the single edit session slot. It only
// produces proposed batches; the Manager is the one that talks to the
// server and mutates the collection.
type Staging struct {
	mu      sync.Mutex
	pending []core.PendingUpload
	edit    *EditSession
}

func NewStaging() *Staging {
	return &Staging{}
}

// Add stages a selected file. Non-image files are rejected, matching the
// image/* filter of the drop zone.
func (s *Staging) Add(name string, data []byte) error {
	if !isImage(name, data) {
		return fmt.Errorf("%s is not an image file", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, core.PendingUpload{Name: name, Data: data})
	return nil
}

// SetDraftTitle sets the draft title for the staged file at position i.
// Drafts are keyed by position; staged files have no id yet.
func (s *Staging) SetDraftTitle(i int, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.pending) {
		return fmt.Errorf("no staged file at position %d", i)
	}
	s.pending[i].DraftTitle = title
	return nil
}

// RemoveAt discards a staged file before upload.
func (s *Staging) RemoveAt(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.pending) {
		return fmt.Errorf("no staged file at position %d", i)
	}
	s.pending = append(s.pending[:i], s.pending[i+1:]...)
	return nil
}

// Pending returns a copy of the staged files.
func (s *Staging) Pending() []core.PendingUpload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.PendingUpload, len(s.pending))
	copy(out, s.pending)
	return out
}

// Batch materializes the staged drafts for upload. Blank titles default to
// "Untitled N" with N the 1-based position. The staged files themselves are
// kept; call Clear only after the upload succeeded so a failed upload can be
// retried without reselecting files.
func (s *Staging) Batch() []core.PendingUpload {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := make([]core.PendingUpload, len(s.pending))
	copy(batch, s.pending)
	for i := range batch {
		if batch[i].DraftTitle == "" {
			batch[i].DraftTitle = fmt.Sprintf("Untitled %d", i+1)
		}
	}
	return batch
}

// Clear drops all staged files and titles.
func (s *Staging) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// BeginEdit opens an edit session for item, seeded with its current title.
// The slot is single occupancy: a prior unsaved session is discarded, and
// discarded reports whether that happened.
func (s *Staging) BeginEdit(item core.ImageItem) (discarded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	discarded = s.edit != nil
	s.edit = &EditSession{ImageID: item.ID, Title: item.Title}
	return discarded
}

// Edit returns the open session, or nil.
func (s *Staging) Edit() *EditSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.edit
}

func (s *Staging) SetEditTitle(title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edit == nil {
		return fmt.Errorf("no edit session open")
	}
	s.edit.Title = title
	return nil
}

// AttachReplacement adds a replacement image to the open session.
func (s *Staging) AttachReplacement(name string, data []byte) error {
	if !isImage(name, data) {
		return fmt.Errorf("%s is not an image file", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edit == nil {
		return fmt.Errorf("no edit session open")
	}
	s.edit.Replacement = &core.PendingUpload{Name: name, Data: data}
	return nil
}

// CancelEdit discards the open session with no network effect.
func (s *Staging) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edit = nil
}

func isImage(name string, data []byte) bool {
	if strings.HasPrefix(http.DetectContentType(data), "image/") {
		return true
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".svg":
		return true
	}
	return false
}
