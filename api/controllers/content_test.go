package controllers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/filedrop-backend/internal/uploads"
	pkgerrors "github.com/angelmondragon/filedrop-backend/pkg/errors"
)

func TestUploadContentStreamsLocalBytes(t *testing.T) {
	uploadID := uuid.New()
	svc := &stubUploadService{
		contentOut: &uploads.ContentResult{
			Mode:        uploads.ContentModeStream,
			Stream:      io.NopCloser(strings.NewReader("hello bytes")),
			ContentType: "text/plain",
			FileName:    "notes.txt",
			Size:        11,
		},
	}
	ctx := withURLParam(context.Background(), "id", uploadID.String())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/uploads/"+uploadID.String()+"/content", nil)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	UploadContent(svc, controllerTestLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if rec.Body.String() != "hello bytes" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "text/plain" {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "notes.txt") {
		t.Fatalf("disposition missing filename: %q", got)
	}
}

func TestUploadContentRedirectsToSignedURL(t *testing.T) {
	uploadID := uuid.New()
	svc := &stubUploadService{
		contentOut: &uploads.ContentResult{
			Mode:        uploads.ContentModeRedirect,
			RedirectURL: "https://signed.example/get",
		},
	}
	ctx := withURLParam(context.Background(), "id", uploadID.String())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/uploads/"+uploadID.String()+"/content", nil)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	UploadContent(svc, controllerTestLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302 got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "https://signed.example/get" {
		t.Fatalf("unexpected redirect target %q", got)
	}
}

func TestUploadContentForbiddenOnSecretMismatch(t *testing.T) {
	uploadID := uuid.New()
	svc := &stubUploadService{
		contentErr: pkgerrors.New(pkgerrors.CodeForbidden, "secret mismatch"),
	}
	ctx := withURLParam(context.Background(), "id", uploadID.String())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/uploads/"+uploadID.String()+"/content?secret=wrong", nil)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	UploadContent(svc, controllerTestLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}
