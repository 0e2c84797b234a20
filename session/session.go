package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// Session is the only client-side persisted state: the bearer credential
// and the owner id it was issued for. It is the Anonymous/Authenticated
// state machine of the client. Save moves it to Authenticated, Reset (on
// logout or on any 401 from the backend) moves it back to Anonymous and
// deletes the file.
type Session struct {
	mu   sync.Mutex
	path string

	token  string
	userID string
}

type sessionFile struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// DefaultPath resolves the session file location, GALLERY_SESSION_FILE
// first, then ~/.gallery-complete/session.json.
func DefaultPath() string {
	if p := os.Getenv("GALLERY_SESSION_FILE"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "session.json"
	}
	return filepath.Join(home, ".gallery-complete", "session.json")
}

// Open loads the session stored at path, if any. A missing file is a valid
// anonymous session, not an error.
func Open(path string) (*Session, error) {
	s := &Session{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	var f sessionFile
	if err := json.Unmarshal(data, &f); err != nil {
		logrus.WithField("path", path).WithError(err).Warn("Discarding unreadable session file")
		return s, nil
	}
	s.token = f.Token
	s.userID = f.UserID
	return s, nil
}

// Save stores a fresh credential and owner id, transitioning the client to
// Authenticated.
func (s *Session) Save(token, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.userID = userID

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	data, err := json.Marshal(sessionFile{Token: token, UserID: userID})
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Reset drops the credential and owner id and removes the file,
// transitioning the client to Anonymous.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.userID = ""
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		logrus.WithField("path", s.path).WithError(err).Warn("Failed to remove session file")
	}
}

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) OwnerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Authenticated reports whether a usable credential is present. The token's
// expiry is peeked without verifying the signature; only the server can
// validate it, the client just avoids sending one it knows is dead.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" || s.userID == "" {
		return false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.token, &claims); err != nil {
		// Opaque tokens are still presented; the server decides.
		return true
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return false
	}
	return true
}
