// Package resumable implements a tus-style chunked upload protocol on top of
// the storage provider. The adapter owns protocol state (offsets, headers,
// locking); byte placement and record transitions are delegated.
package resumable

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/filedrop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/filedrop-backend/pkg/errors"
	"github.com/angelmondragon/filedrop-backend/pkg/logger"
	"github.com/angelmondragon/filedrop-backend/pkg/storage"
)

const (
	// ProtocolVersion is the tus protocol revision this adapter speaks.
	ProtocolVersion = "1.0.0"

	patchContentType = "application/offset+octet-stream"
	lockScope        = "tus"

	headerResumable    = "Tus-Resumable"
	headerVersion      = "Tus-Version"
	headerExtension    = "Tus-Extension"
	headerMaxSize      = "Tus-Max-Size"
	headerUploadOffset = "Upload-Offset"
	headerUploadLength = "Upload-Length"
)

// Guard is the pre-request validation hook plus the record transitions the
// protocol drives. All checks run before any byte touches storage.
type Guard interface {
	ResolveForTransfer(ctx context.Context, userID, id uuid.UUID) (*models.Upload, error)
	MarkUploading(ctx context.Context, id uuid.UUID) error
	CompleteByFileKey(ctx context.Context, fileKey string) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// Locker serializes concurrent PATCH requests per upload.
type Locker interface {
	AcquireLock(ctx context.Context, scope, id string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, scope, id string) error
}

// Handler serves the resumable endpoints.
type Handler struct {
	guard      Guard
	provider   storage.Provider
	locks      Locker
	logg       *logger.Logger
	userIDFrom func(*http.Request) (uuid.UUID, error)
	lockTTL    time.Duration
	maxChunk   int64
}

// NewHandler wires the protocol adapter. userIDFrom resolves the
// authenticated caller from the request; the adapter never trusts headers
// for identity.
func NewHandler(guard Guard, provider storage.Provider, locks Locker, logg *logger.Logger, userIDFrom func(*http.Request) (uuid.UUID, error), lockTTL time.Duration, maxChunk int64) (*Handler, error) {
	if guard == nil {
		return nil, fmt.Errorf("guard required")
	}
	if provider == nil {
		return nil, fmt.Errorf("storage provider required")
	}
	if locks == nil {
		return nil, fmt.Errorf("locker required")
	}
	if userIDFrom == nil {
		return nil, fmt.Errorf("user resolver required")
	}
	if lockTTL <= 0 {
		lockTTL = time.Minute
	}
	if maxChunk <= 0 {
		maxChunk = 64 << 20
	}
	return &Handler{
		guard:      guard,
		provider:   provider,
		locks:      locks,
		logg:       logg,
		userIDFrom: userIDFrom,
		lockTTL:    lockTTL,
		maxChunk:   maxChunk,
	}, nil
}

// Options announces the protocol surface. No authentication required.
func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(headerResumable, ProtocolVersion)
	w.Header().Set(headerVersion, ProtocolVersion)
	w.Header().Set(headerExtension, "termination")
	w.Header().Set(headerMaxSize, strconv.FormatInt(h.maxChunk, 10))
	w.WriteHeader(http.StatusNoContent)
}

// Head reports the current offset so an interrupted client can resume.
func (h *Handler) Head(w http.ResponseWriter, r *http.Request) {
	record, ok := h.resolve(w, r)
	if !ok {
		return
	}

	offset, err := h.currentOffset(r.Context(), record.FileKey)
	if err != nil {
		h.writeError(w, r, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read upload offset"))
		return
	}

	w.Header().Set(headerResumable, ProtocolVersion)
	w.Header().Set(headerUploadOffset, strconv.FormatInt(offset, 10))
	w.Header().Set(headerUploadLength, strconv.FormatInt(record.Size, 10))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
}

// Patch appends one chunk at the declared offset.
func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	record, ok := h.resolve(w, r)
	if !ok {
		return
	}

	if r.Header.Get("Content-Type") != patchContentType {
		h.writeError(w, r, pkgerrors.New(pkgerrors.CodeValidation, "content type must be "+patchContentType))
		return
	}
	claimedOffset, err := strconv.ParseInt(r.Header.Get(headerUploadOffset), 10, 64)
	if err != nil || claimedOffset < 0 {
		h.writeError(w, r, pkgerrors.New(pkgerrors.CodeValidation, "missing or invalid Upload-Offset header"))
		return
	}

	ctx := r.Context()

	locked, err := h.locks.AcquireLock(ctx, lockScope, record.ID.String(), h.lockTTL)
	if err != nil {
		h.writeError(w, r, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire upload lock"))
		return
	}
	if !locked {
		w.Header().Set(headerResumable, ProtocolVersion)
		http.Error(w, "upload is locked by another request", http.StatusLocked)
		return
	}
	defer func() {
		if err := h.locks.ReleaseLock(context.WithoutCancel(ctx), lockScope, record.ID.String()); err != nil && h.logg != nil {
			h.logg.Warn(ctx, "release upload lock failed")
		}
	}()

	currentOffset, err := h.currentOffset(ctx, record.FileKey)
	if err != nil {
		h.writeError(w, r, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read upload offset"))
		return
	}
	if claimedOffset != currentOffset {
		h.writeError(w, r, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("offset mismatch: client %d, server %d", claimedOffset, currentOffset)))
		return
	}

	remaining := record.Size - currentOffset
	if remaining < 0 {
		h.writeError(w, r, pkgerrors.New(pkgerrors.CodeConflict, "stored bytes exceed declared size"))
		return
	}
	if remaining == 0 {
		// All bytes already landed but the record is still open, which means
		// an earlier completion attempt failed after the final append. Retry
		// it here so the client can finish with another PATCH.
		h.sniffContent(ctx, record)
		if err := h.guard.CompleteByFileKey(ctx, record.FileKey); err != nil {
			h.writeError(w, r, err)
			return
		}
		w.Header().Set(headerResumable, ProtocolVersion)
		w.Header().Set(headerUploadOffset, strconv.FormatInt(currentOffset, 10))
		w.WriteHeader(http.StatusNoContent)
		return
	}
	limit := remaining
	if limit > h.maxChunk {
		limit = h.maxChunk
	}

	if err := h.guard.MarkUploading(ctx, record.ID); err != nil {
		h.writeError(w, r, err)
		return
	}

	newOffset, err := h.provider.Append(ctx, record.FileKey, currentOffset, io.LimitReader(r.Body, limit))
	if err != nil {
		if errors.Is(err, storage.ErrOffsetMismatch) {
			h.writeError(w, r, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "offset moved during write"))
			return
		}
		h.writeError(w, r, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append chunk"))
		return
	}

	if newOffset == record.Size {
		h.sniffContent(ctx, record)
		if err := h.guard.CompleteByFileKey(ctx, record.FileKey); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	w.Header().Set(headerResumable, ProtocolVersion)
	w.Header().Set(headerUploadOffset, strconv.FormatInt(newOffset, 10))
	w.WriteHeader(http.StatusNoContent)
}

// Delete is the termination extension: it runs the same soft-delete path as
// the lifecycle handler, so byte removal stays asynchronous.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.identify(w, r)
	if !ok {
		return
	}
	if err := h.guard.Delete(r.Context(), userID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set(headerResumable, ProtocolVersion)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) identify(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, err := h.userIDFrom(r)
	if err != nil {
		h.writeError(w, r, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "resolve caller"))
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, pkgerrors.New(pkgerrors.CodeNotFound, "upload not found"))
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}

// resolve runs identity extraction plus the pre-request validation hook.
func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (*models.Upload, bool) {
	userID, id, ok := h.identify(w, r)
	if !ok {
		return nil, false
	}
	record, err := h.guard.ResolveForTransfer(r.Context(), userID, id)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return record, true
}

func (h *Handler) currentOffset(ctx context.Context, fileKey string) (int64, error) {
	size, err := h.provider.Size(ctx, fileKey)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	return size, err
}

// sniffContent compares the detected type of the assembled bytes with the
// declared content type. Mismatches are logged, not rejected; the declared
// metadata stays authoritative.
func (h *Handler) sniffContent(ctx context.Context, record *models.Upload) {
	if h.logg == nil {
		return
	}
	stream, err := h.provider.Read(ctx, record.FileKey)
	if err != nil {
		return
	}
	defer stream.Close()

	detected, err := mimetype.DetectReader(io.LimitReader(stream, 3072))
	if err != nil {
		return
	}
	if !detected.Is(record.ContentType) {
		logCtx := h.logg.WithFields(ctx, map[string]any{
			"upload_id": record.ID.String(),
			"declared":  record.ContentType,
			"detected":  detected.String(),
		})
		h.logg.Warn(logCtx, "uploaded bytes differ from declared content type")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())
	if h.logg != nil && meta.HTTPStatus >= http.StatusInternalServerError {
		h.logg.Error(r.Context(), "resumable request failed", err)
	}
	w.Header().Set(headerResumable, ProtocolVersion)
	http.Error(w, typed.Message(), meta.HTTPStatus)
}
