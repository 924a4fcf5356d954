package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	goEnroll "github.com/MrEthical07/goEnroll"
	"github.com/MrEthical07/goEnroll/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := goEnroll.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	st := store.NewMemory()
	engine, err := goEnroll.New().WithConfig(cfg).WithStore(st).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	hash, err := goEnroll.HashForProvisioning(cfg.Password, "InitialPass123!")
	if err != nil {
		t.Fatalf("HashForProvisioning failed: %v", err)
	}
	err = st.Put(context.Background(), store.Record{
		Username:       "alice",
		PasswordHash:   hash,
		RequiresChange: true,
	})
	if err != nil {
		t.Fatalf("seed Put failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(newRouter(engine, logger))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body map[string]string, headers map[string]string) (*http.Response, response) {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	return resp, decoded
}

func TestHandlersFirstLoginFlow(t *testing.T) {
	srv := newTestServer(t)

	resp, body := postJSON(t, srv.URL+"/login", map[string]string{
		"username": "alice",
		"password": "InitialPass123!",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status: got %d, want 200", resp.StatusCode)
	}
	if !body.RequiresChange || body.Token != "" {
		t.Fatalf("expected forced rotation without token, got %+v", body)
	}
	if body.State != "needs_password_change" {
		t.Fatalf("state: got %q", body.State)
	}

	resp, body = postJSON(t, srv.URL+"/change-password?qr=1", map[string]string{
		"username":     "alice",
		"old_password": "InitialPass123!",
		"new_password": "NewPass123!",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("change-password status: got %d, want 200", resp.StatusCode)
	}
	if body.TOTPSecret == "" || body.OTPAuthURI == "" {
		t.Fatalf("expected secret and URI, got %+v", body)
	}
	if body.QRPNG == "" {
		t.Fatal("expected a QR code with qr=1")
	}
	if body.Token == "" {
		t.Fatal("expected a proof token")
	}
}

func TestHandlersGenericUnauthorized(t *testing.T) {
	srv := newTestServer(t)

	for _, body := range []map[string]string{
		{"username": "alice", "password": "WrongPass123!"},
		{"username": "nobody", "password": "InitialPass123!"},
	} {
		resp, decoded := postJSON(t, srv.URL+"/login", body, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("body %v: status got %d, want 401", body, resp.StatusCode)
		}
		if decoded.Message != "Invalid credentials" {
			t.Fatalf("body %v: message got %q", body, decoded.Message)
		}
	}
}

func TestHandlersWeakPassword(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := postJSON(t, srv.URL+"/change-password", map[string]string{
		"username":     "alice",
		"old_password": "InitialPass123!",
		"new_password": "weak",
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", resp.StatusCode)
	}
}

func TestHandlersEnrollmentStatusMapping(t *testing.T) {
	srv := newTestServer(t)

	// Rotate to obtain a live proof token and secret.
	_, changed := postJSON(t, srv.URL+"/change-password", map[string]string{
		"username":     "alice",
		"old_password": "InitialPass123!",
		"new_password": "NewPass123!",
	}, nil)
	auth := map[string]string{"Authorization": "Bearer " + changed.Token}

	// Biometric before TOTP.
	resp, _ := postJSON(t, srv.URL+"/setup-biometric", map[string]string{
		"username":     "alice",
		"key_material": "device-key",
	}, auth)
	if resp.StatusCode != http.StatusPreconditionFailed {
		t.Fatalf("prerequisite status: got %d, want 412", resp.StatusCode)
	}

	// Wrong TOTP code.
	resp, _ = postJSON(t, srv.URL+"/setup-totp", map[string]string{
		"username":  "alice",
		"totp_code": "000000",
	}, auth)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad code status: got %d, want 401", resp.StatusCode)
	}

	// Missing proof token.
	resp, _ = postJSON(t, srv.URL+"/setup-totp", map[string]string{
		"username":  "alice",
		"totp_code": "000000",
	}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing proof status: got %d, want 401", resp.StatusCode)
	}

}

func TestHandlersStoreUnavailable(t *testing.T) {
	cfg := goEnroll.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	engine, err := goEnroll.New().WithConfig(cfg).WithStore(unavailableStore{}).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(newRouter(engine, logger))
	t.Cleanup(srv.Close)

	resp, _ := postJSON(t, srv.URL+"/login", map[string]string{
		"username": "alice",
		"password": "InitialPass123!",
	}, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want 503", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatal("expected a Retry-After header")
	}
}

func TestHandlersHealthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
}

type unavailableStore struct{}

func (unavailableStore) Get(context.Context, string) (store.Record, bool, error) {
	return store.Record{}, false, store.ErrUnavailable
}

func (unavailableStore) Put(context.Context, store.Record) error {
	return store.ErrUnavailable
}
