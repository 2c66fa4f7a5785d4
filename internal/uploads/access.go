package uploads

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/filedrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/filedrop-backend/pkg/errors"
	"github.com/angelmondragon/filedrop-backend/pkg/security"
	"github.com/angelmondragon/filedrop-backend/pkg/storage"
)

// ContentMode tells the caller how to serve the resolved content.
type ContentMode string

const (
	// ContentModeStream carries readable bytes the caller serves directly.
	ContentModeStream ContentMode = "stream"
	// ContentModeRedirect carries a short-lived URL the caller redirects to.
	ContentModeRedirect ContentMode = "redirect"
)

// ContentResult is the dual-shaped outcome of the content gate. Exactly one
// of Stream or RedirectURL is populated, keyed by Mode. The caller owns
// closing Stream.
type ContentResult struct {
	Mode        ContentMode
	Stream      io.ReadCloser
	RedirectURL string
	ContentType string
	FileName    string
	Size        int64
}

// Content resolves an upload to retrievable bytes. Missing, deleted,
// unfinished, and expired records all read as not-found so existence never
// leaks; records with an access secret refuse mismatches as forbidden.
func (s *service) Content(ctx context.Context, id uuid.UUID, secret string) (*ContentResult, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "content not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load upload record")
	}
	if record.IsDeleted || record.Status != enums.UploadStatusDone || record.IsExpired(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "content not found")
	}

	if record.Secure() {
		if secret == "" {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "secret required")
		}
		ok, err := security.VerifySecret(secret, *record.SecretHash)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify access secret")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "secret mismatch")
		}
	}

	if s.provider.Kind() == storage.KindLocal {
		stream, err := s.provider.Read(ctx, record.FileKey)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "content not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open content stream")
		}
		return &ContentResult{
			Mode:        ContentModeStream,
			Stream:      stream,
			ContentType: record.ContentType,
			FileName:    record.FileName,
			Size:        record.Size,
		}, nil
	}

	ttl := DownloadTTL(record.Size, s.uploadCfg.DownloadTTL)
	url, err := s.provider.PresignGet(ctx, record.FileKey, ttl)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign download url")
	}
	return &ContentResult{
		Mode:        ContentModeRedirect,
		RedirectURL: url,
		ContentType: record.ContentType,
		FileName:    record.FileName,
		Size:        record.Size,
	}, nil
}
