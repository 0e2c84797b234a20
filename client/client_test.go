package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"gallery-complete/core"
	"gallery-complete/session"
)

func testSession(t *testing.T, token, userID string) *session.Session {
	t.Helper()
	sess, err := session.Open(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatalf("failed to open session: %v", err)
	}
	if token != "" {
		if err := sess.Save(token, userID); err != nil {
			t.Fatalf("failed to save session: %v", err)
		}
	}
	return sess
}

func TestImagesSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]core.ImageItem{{ID: "a", Title: "A", Order: 0}})
	}))
	defer srv.Close()

	sess := testSession(t, "tok-123", "user-1")
	c := New(srv.URL, sess)

	items, err := c.Images(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Images failed: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok-123")
	}
	if len(items) != 1 || items[0].ID != "a" {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestUploadBatchWireShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/images/upload" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("failed to parse multipart: %v", err)
		}
		files := r.MultipartForm.File["images"]
		if len(files) != 2 {
			t.Fatalf("expected 2 image parts, got %d", len(files))
		}
		if files[0].Filename != "A.png" || files[1].Filename != "B.png" {
			t.Errorf("unexpected filenames: %s, %s", files[0].Filename, files[1].Filename)
		}
		for i, want := range []string{"Untitled 1", "Dog"} {
			if got := r.FormValue(fmt.Sprintf("titles[%d]", i)); got != want {
				t.Errorf("titles[%d] = %q, want %q", i, got, want)
			}
		}
		if got := r.FormValue("userId"); got != "user-1" {
			t.Errorf("userId = %q, want user-1", got)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := New(srv.URL, testSession(t, "tok", "user-1"))
	err := c.UploadBatch(context.Background(), "user-1", []core.PendingUpload{
		{Name: "A.png", Data: []byte("aaa"), DraftTitle: "Untitled 1"},
		{Name: "B.png", Data: []byte("bbb"), DraftTitle: "Dog"},
	})
	if err != nil {
		t.Fatalf("UploadBatch failed: %v", err)
	}
}

func TestUpdateImageOptionalReplacement(t *testing.T) {
	var sawFile bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/images/img-1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		r.ParseMultipartForm(1 << 20)
		if got := r.FormValue("title"); got != "New" {
			t.Errorf("title = %q, want New", got)
		}
		_, _, err := r.FormFile("image")
		sawFile = err == nil
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	c := New(srv.URL, testSession(t, "tok", "user-1"))

	if err := c.UpdateImage(context.Background(), "img-1", "New", nil); err != nil {
		t.Fatalf("UpdateImage failed: %v", err)
	}
	if sawFile {
		t.Error("no image part expected without a replacement")
	}

	err := c.UpdateImage(context.Background(), "img-1", "New", &core.PendingUpload{Name: "n.png", Data: []byte("x")})
	if err != nil {
		t.Fatalf("UpdateImage failed: %v", err)
	}
	if !sawFile {
		t.Error("expected an image part with a replacement")
	}
}

func TestReorderWireShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/images/reorder" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req struct {
			UserID string             `json:"userId"`
			Images []core.OrderUpdate `json:"images"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if req.UserID != "user-1" {
			t.Errorf("userId = %q, want user-1", req.UserID)
		}
		if len(req.Images) != 2 || req.Images[0].ID != "b" || req.Images[0].Order != 0 {
			t.Errorf("unexpected mapping: %+v", req.Images)
		}
		w.Write([]byte(`{"msg":"Order updated"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, testSession(t, "tok", "user-1"))
	err := c.Reorder(context.Background(), "user-1", []core.OrderUpdate{{ID: "b", Order: 0}, {ID: "a", Order: 1}})
	if err != nil {
		t.Fatalf("Reorder failed: %v", err)
	}
}

func TestUnauthorizedResetsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Invalid token"}`))
	}))
	defer srv.Close()

	sess := testSession(t, "stale-token", "user-1")
	c := New(srv.URL, sess)

	// A 401 from any endpoint drops the credential.
	_, err := c.Images(context.Background(), "user-1")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if sess.Token() != "" || sess.Authenticated() {
		t.Error("session should be reset after a 401")
	}

	if err := c.DeleteImage(context.Background(), "img-1"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("delete err = %v, want ErrUnauthorized", err)
	}
}

func TestAPIErrorCarriesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"msg":"Invalid credentials"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, testSession(t, "", ""))
	err := c.Login(context.Background(), "who@example.com", "wrong")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Message != "Invalid credentials" {
		t.Errorf("unexpected APIError: %+v", apiErr)
	}
}

func TestLoginStoresCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["email"] != "me@example.com" || req["password"] != "hunter2" {
			t.Errorf("unexpected login payload: %v", req)
		}
		w.Write([]byte(`{"token":"fresh-token","user":{"id":"user-9"}}`))
	}))
	defer srv.Close()

	sess := testSession(t, "", "")
	c := New(srv.URL, sess)
	if err := c.Login(context.Background(), "me@example.com", "hunter2"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if sess.Token() != "fresh-token" || sess.OwnerID() != "user-9" {
		t.Errorf("session not updated: token=%q owner=%q", sess.Token(), sess.OwnerID())
	}
}

func TestValidationErrorsAreLocal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be sent for an invalid form")
	}))
	defer srv.Close()

	c := New(srv.URL, testSession(t, "", ""))
	var vErr *ValidationError

	if err := c.Login(context.Background(), "", "pw"); !errors.As(err, &vErr) {
		t.Errorf("err = %v, want *ValidationError", err)
	}
	if err := c.SendOTP(context.Background(), "  "); !errors.As(err, &vErr) {
		t.Errorf("err = %v, want *ValidationError", err)
	}
	if err := c.ResetPassword(context.Background(), "a@b.c", "123456", ""); !errors.As(err, &vErr) {
		t.Errorf("err = %v, want *ValidationError", err)
	}
}
