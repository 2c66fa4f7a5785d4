package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/angelmondragon/filedrop-backend/pkg/config"
	"github.com/angelmondragon/filedrop-backend/pkg/logger"
)

// Kind tags a provider variant. Call sites must not branch on it except to
// decide direct versus presigned transfer mode; everything else goes through
// the Provider interface.
type Kind string

const (
	KindLocal Kind = "local"
	KindS3    Kind = "s3"
)

var (
	// ErrNotFound signals a missing object on read.
	ErrNotFound = errors.New("storage: object not found")
	// ErrNotSupported signals a capability the variant does not implement.
	ErrNotSupported = errors.New("storage: operation not supported")
	// ErrOffsetMismatch signals an append at the wrong position.
	ErrOffsetMismatch = errors.New("storage: offset mismatch")
)

// Provider is the uniform capability surface over blob backends.
type Provider interface {
	Kind() Kind

	// Put writes the full object, replacing any previous content.
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	// Append writes bytes at offset and returns the new offset. The offset
	// must equal the current object size.
	Append(ctx context.Context, key string, offset int64, r io.Reader) (int64, error)
	// Size returns the current object size, or ErrNotFound.
	Size(ctx context.Context, key string) (int64, error)
	// Read opens the object for streaming.
	Read(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object. Deleting a missing key is a success so
	// deletion is safe to retry.
	Delete(ctx context.Context, key string) error

	// PresignPut issues a time-bounded upload URL.
	PresignPut(ctx context.Context, key string, ttl time.Duration, contentType string) (string, error)
	// PresignGet issues a time-bounded download URL.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}

// New selects the provider once from configuration. This is the only place
// that switches on the variant tag.
func New(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (Provider, error) {
	switch cfg.Kind {
	case config.StorageKindLocal:
		return NewLocal(cfg.Local, logg)
	case config.StorageKindS3:
		return NewS3(ctx, cfg.S3, logg)
	default:
		return nil, errors.New("storage: unknown provider kind " + cfg.Kind)
	}
}
