package uploads

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/filedrop-backend/pkg/config"
	"github.com/angelmondragon/filedrop-backend/pkg/db/models"
	"github.com/angelmondragon/filedrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/filedrop-backend/pkg/errors"
	"github.com/angelmondragon/filedrop-backend/pkg/security"
	"github.com/angelmondragon/filedrop-backend/pkg/storage"
)

func doneRecord(fileKey string) *models.Upload {
	return &models.Upload{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		FileKey:     fileKey,
		Status:      enums.UploadStatusDone,
		FileName:    "report.pdf",
		ContentType: "application/pdf",
		Size:        4,
	}
}

func TestContentStreamsFromLocalProvider(t *testing.T) {
	t.Parallel()

	record := doneRecord("uploads/a/report.pdf")
	provider := newStubProvider(storage.KindLocal)
	provider.objects[record.FileKey] = []byte("data")
	svc, _ := newTestService(t, newStubRepo(record), provider)

	res, err := svc.Content(context.Background(), record.ID, "")
	if err != nil {
		t.Fatalf("Content returned error: %v", err)
	}
	if res.Mode != ContentModeStream {
		t.Fatalf("expected stream mode got %s", res.Mode)
	}
	defer res.Stream.Close()

	data, err := io.ReadAll(res.Stream)
	if err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	if string(data) != "data" {
		t.Fatalf("unexpected bytes %q", data)
	}
	if res.ContentType != "application/pdf" || res.FileName != "report.pdf" {
		t.Fatalf("unexpected metadata %+v", res)
	}
}

func TestContentRedirectsFromRemoteProvider(t *testing.T) {
	t.Parallel()

	record := doneRecord("uploads/a/report.pdf")
	provider := newStubProvider(storage.KindS3)
	svc, _ := newTestService(t, newStubRepo(record), provider)

	res, err := svc.Content(context.Background(), record.ID, "")
	if err != nil {
		t.Fatalf("Content returned error: %v", err)
	}
	if res.Mode != ContentModeRedirect {
		t.Fatalf("expected redirect mode got %s", res.Mode)
	}
	if res.RedirectURL != provider.getURL {
		t.Fatalf("unexpected url %s", res.RedirectURL)
	}
	if provider.lastPresignKey != record.FileKey {
		t.Fatalf("presign used %s instead of the file key", provider.lastPresignKey)
	}
}

func TestContentExpiredAlwaysNotFound(t *testing.T) {
	t.Parallel()

	secret := "opensesame"
	hash, err := security.HashSecret(secret, config.SecretConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32})
	if err != nil {
		t.Fatalf("hash secret: %v", err)
	}

	past := time.Now().Add(-time.Hour)
	record := doneRecord("uploads/a/report.pdf")
	record.Expiration = &past
	record.SecretHash = &hash

	provider := newStubProvider(storage.KindLocal)
	provider.objects[record.FileKey] = []byte("data")
	svc, _ := newTestService(t, newStubRepo(record), provider)

	// Expiration wins even with the correct secret.
	_, err = svc.Content(context.Background(), record.ID, secret)
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestContentSecretGate(t *testing.T) {
	t.Parallel()

	secret := "opensesame"
	hash, err := security.HashSecret(secret, config.SecretConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32})
	if err != nil {
		t.Fatalf("hash secret: %v", err)
	}

	record := doneRecord("uploads/a/report.pdf")
	record.SecretHash = &hash
	provider := newStubProvider(storage.KindLocal)
	provider.objects[record.FileKey] = []byte("data")
	svc, _ := newTestService(t, newStubRepo(record), provider)

	ctx := context.Background()

	_, err = svc.Content(ctx, record.ID, "")
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden without secret got %v", err)
	}

	_, err = svc.Content(ctx, record.ID, "wrong")
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden with wrong secret got %v", err)
	}

	res, err := svc.Content(ctx, record.ID, secret)
	if err != nil {
		t.Fatalf("expected access with correct secret got %v", err)
	}
	res.Stream.Close()
}

func TestContentUnfinishedNotFound(t *testing.T) {
	t.Parallel()

	record := doneRecord("uploads/a/partial.bin")
	record.Status = enums.UploadStatusUploading
	svc, _ := newTestService(t, newStubRepo(record), newStubProvider(storage.KindLocal))

	_, err := svc.Content(context.Background(), record.ID, "")
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestContentSoftDeletedNotFound(t *testing.T) {
	t.Parallel()

	record := doneRecord("uploads/a/gone.bin")
	record.IsDeleted = true
	svc, _ := newTestService(t, newStubRepo(record), newStubProvider(storage.KindLocal))

	_, err := svc.Content(context.Background(), record.ID, "")
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
}
