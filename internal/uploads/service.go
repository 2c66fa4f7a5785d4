package uploads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/filedrop-backend/pkg/config"
	"github.com/angelmondragon/filedrop-backend/pkg/db"
	"github.com/angelmondragon/filedrop-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/filedrop-backend/pkg/db/types"
	"github.com/angelmondragon/filedrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/filedrop-backend/pkg/errors"
	"github.com/angelmondragon/filedrop-backend/pkg/logger"
	"github.com/angelmondragon/filedrop-backend/pkg/outbox"
	"github.com/angelmondragon/filedrop-backend/pkg/security"
	"github.com/angelmondragon/filedrop-backend/pkg/storage"
)

const (
	minSecretLen = 4
	maxTags      = 32
	maxTagLen    = 64
)

type uploadRepository interface {
	Create(ctx context.Context, tx *gorm.DB, upload *models.Upload) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Upload, error)
	FindByFileKey(ctx context.Context, fileKey string) (*models.Upload, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to enums.UploadStatus) (bool, error)
	SoftDelete(ctx context.Context, tx *gorm.DB, id, deletedBy uuid.UUID, at time.Time) error
	List(ctx context.Context, ownerID uuid.UUID, skip, take int) ([]models.Upload, int64, error)
	TotalSizeForOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

type transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes the upload lifecycle commands.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*CreateOutput, error)
	RequestTransfer(ctx context.Context, userID, id uuid.UUID, action TransferAction) (*TransferOutput, error)
	Info(ctx context.Context, userID, id uuid.UUID) (*InfoOutput, error)
	List(ctx context.Context, userID uuid.UUID, params ListParams) (*ListResult, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Content(ctx context.Context, id uuid.UUID, secret string) (*ContentResult, error)

	ResolveForTransfer(ctx context.Context, userID, id uuid.UUID) (*models.Upload, error)
	MarkUploading(ctx context.Context, id uuid.UUID) error
	CompleteByFileKey(ctx context.Context, fileKey string) error
}

type service struct {
	repo      uploadRepository
	txer      transactor
	provider  storage.Provider
	events    outboxEmitter
	secretCfg config.SecretConfig
	uploadCfg config.UploadConfig
	logg      *logger.Logger
	now       func() time.Time
}

// NewService constructs the upload service backed by the provided
// collaborators.
func NewService(repo uploadRepository, txer transactor, provider storage.Provider, events outboxEmitter, secretCfg config.SecretConfig, uploadCfg config.UploadConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("upload repository required")
	}
	if txer == nil {
		return nil, fmt.Errorf("transactor required")
	}
	if provider == nil {
		return nil, fmt.Errorf("storage provider required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:      repo,
		txer:      txer,
		provider:  provider,
		events:    events,
		secretCfg: secretCfg,
		uploadCfg: uploadCfg,
		logg:      logg,
		now:       time.Now,
	}, nil
}

// CreateInput models the payload required to register a new upload.
type CreateInput struct {
	FileName    string
	Extension   string
	ContentType string
	Size        int64
	Tags        []string
	Expiration  *time.Time
	Secret      string
}

// CreateOutput is returned to the client after the record is committed.
type CreateOutput struct {
	ID         uuid.UUID          `json:"id"`
	UploadType enums.TransferMode `json:"upload_type"`
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*CreateOutput, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "user identity missing")
	}

	fileName := sanitizeFileName(input.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file_name is required")
	}
	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content_type is required")
	}
	if input.Size <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size must be positive")
	}

	now := s.now()
	if input.Expiration != nil && input.Expiration.Before(now) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expiration cannot be in the past")
	}

	tags, err := normalizeTags(input.Tags)
	if err != nil {
		return nil, err
	}

	var secretHash *string
	if input.Secret != "" {
		if len(input.Secret) < minSecretLen {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("secret must be at least %d characters", minSecretLen))
		}
		hashed, err := security.HashSecret(input.Secret, s.secretCfg)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash access secret")
		}
		secretHash = &hashed
	}

	if s.uploadCfg.OwnerQuotaBytes > 0 {
		used, err := s.repo.TotalSizeForOwner(ctx, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check owner quota")
		}
		if used+input.Size > s.uploadCfg.OwnerQuotaBytes {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner storage quota exceeded")
		}
	}

	id := uuid.New()
	row := &models.Upload{
		ID:          id,
		UserID:      userID,
		FileKey:     buildFileKey(userID, now, id, input.Extension),
		Status:      enums.UploadStatusCreated,
		FileName:    fileName,
		ContentType: contentType,
		Extension:   sanitizeExtension(input.Extension),
		Size:        input.Size,
		Tags:        dbtypes.StringArray(tags),
		Expiration:  input.Expiration,
		SecretHash:  secretHash,
	}

	err = s.txer.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.Create(ctx, tx, row)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "ux_uploads_file_key") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "file key already assigned")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist upload record")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithUploadID(ctx, id.String()), "upload record created")
	}

	return &CreateOutput{ID: id, UploadType: s.transferMode()}, nil
}

func (s *service) transferMode() enums.TransferMode {
	if s.provider.Kind() == storage.KindLocal {
		return enums.TransferModeDirect
	}
	return enums.TransferModePresigned
}

// InfoOutput is the metadata view returned for a single upload.
type InfoOutput struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Size        int64              `json:"size"`
	Expiration  *time.Time         `json:"expiration"`
	Secure      bool               `json:"secure"`
	Status      enums.UploadStatus `json:"status"`
	Tags        []string           `json:"tags"`
	ContentType string             `json:"content_type"`
}

func (s *service) Info(ctx context.Context, userID, id uuid.UUID) (*InfoOutput, error) {
	record, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return &InfoOutput{
		ID:          record.ID,
		Name:        record.FileName,
		Size:        record.Size,
		Expiration:  record.Expiration,
		Secure:      record.Secure(),
		Status:      record.Status,
		Tags:        record.Tags,
		ContentType: record.ContentType,
	}, nil
}

// findOwned resolves a live record scoped to the caller. A record owned by
// someone else reads as not-found so existence never leaks.
func (s *service) findOwned(ctx context.Context, userID, id uuid.UUID) (*models.Upload, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "upload not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load upload record")
	}
	if record.IsDeleted {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "upload not found")
	}
	if record.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "upload not found")
	}
	return record, nil
}

func normalizeTags(tags []string) ([]string, error) {
	if len(tags) > maxTags {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d tags allowed", maxTags))
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		clean := strings.TrimSpace(tag)
		if clean == "" {
			continue
		}
		if len(clean) > maxTagLen {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("tags must be at most %d characters", maxTagLen))
		}
		out = append(out, clean)
	}
	return out, nil
}
