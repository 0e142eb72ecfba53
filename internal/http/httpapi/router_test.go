package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"ashserver/internal/http/handlers"
	"ashserver/internal/infra"
	"ashserver/internal/infra/clerk"
)

type allowVerifier struct{}

func (allowVerifier) VerifySession(context.Context, string) (*clerk.Session, error) {
	return &clerk.Session{UserID: "user-1"}, nil
}

func testOptions(t *testing.T) Options {
	t.Helper()
	logger := infra.Logger(zerolog.New(io.Discard))
	return Options{
		App:       &handlers.App{Logger: &logger},
		Verifier:  allowVerifier{},
		Logger:    zerolog.New(io.Discard),
		VideosDir: t.TempDir(),
	}
}

func TestHealthIsPublic(t *testing.T) {
	router := NewRouter(testOptions(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAPIRequiresAuth(t *testing.T) {
	opts := testOptions(t)
	opts.Verifier = deniedVerifier{}
	router := NewRouter(opts)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/userchats", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

type deniedVerifier struct{}

func (deniedVerifier) VerifySession(context.Context, string) (*clerk.Session, error) {
	return nil, clerk.ErrUnauthorized
}

func TestVideosServedStatically(t *testing.T) {
	opts := testOptions(t)
	dir := filepath.Join(opts.VideosDir, "Video Generation (Fluid)", "chat-1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "output.mp4"), []byte("mp4"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	router := NewRouter(opts)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/videos/Video%20Generation%20(Fluid)/chat-1/output.mp4", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "mp4" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}
