package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestOpenMissingFileIsAnonymous(t *testing.T) {
	sess, err := Open(filepath.Join(t.TempDir(), "nope", "session.json"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if sess.Authenticated() {
		t.Error("fresh session should be anonymous")
	}
	if sess.Token() != "" || sess.OwnerID() != "" {
		t.Error("fresh session should carry no credential")
	}
}

func TestSaveRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gallery", "session.json")
	sess, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	token := signedToken(t, time.Now().Add(time.Hour))
	if err := sess.Save(token, "user-1"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if reopened.Token() != token || reopened.OwnerID() != "user-1" {
		t.Errorf("credential not persisted: token=%q owner=%q", reopened.Token(), reopened.OwnerID())
	}
	if !reopened.Authenticated() {
		t.Error("session with a live token should be authenticated")
	}
}

func TestResetRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	sess, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := sess.Save("tok", "user-1"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	sess.Reset()

	if sess.Token() != "" || sess.Authenticated() {
		t.Error("reset session should be anonymous")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("session file should be removed, stat err = %v", err)
	}
}

func TestExpiredTokenIsNotAuthenticated(t *testing.T) {
	sess, err := Open(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := sess.Save(signedToken(t, time.Now().Add(-time.Minute)), "user-1"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if sess.Authenticated() {
		t.Error("expired token should not count as authenticated")
	}
}

func TestOpaqueTokenIsStillPresented(t *testing.T) {
	sess, err := Open(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := sess.Save("not-a-jwt", "user-1"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	// The server is the authority. A token we cannot parse is kept and sent.
	if !sess.Authenticated() {
		t.Error("opaque token should be treated as live")
	}
}
