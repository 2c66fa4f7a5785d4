package uploads

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/filedrop-backend/pkg/db/models"
	"github.com/angelmondragon/filedrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/filedrop-backend/pkg/errors"
	"github.com/angelmondragon/filedrop-backend/pkg/storage"
)

// TransferAction selects what the transfer endpoint should do.
type TransferAction string

const (
	TransferActionStart TransferAction = "start"
	TransferActionDone  TransferAction = "done"
)

// ParseTransferAction converts raw input into a TransferAction.
func ParseTransferAction(value string) (TransferAction, error) {
	switch TransferAction(value) {
	case TransferActionStart:
		return TransferActionStart, nil
	case TransferActionDone:
		return TransferActionDone, nil
	}
	return "", fmt.Errorf("invalid transfer action %q", value)
}

// TransferOutput is the response for either transfer action. URLs and
// validity are only populated for "start".
type TransferOutput struct {
	URLs              []string `json:"url,omitempty"`
	ValidityInMinutes int      `json:"validity_in_minutes,omitempty"`
	Acknowledged      bool     `json:"acknowledged"`
}

func (s *service) RequestTransfer(ctx context.Context, userID, id uuid.UUID, action TransferAction) (*TransferOutput, error) {
	record, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	switch action {
	case TransferActionStart:
		return s.startPresigned(ctx, record)
	case TransferActionDone:
		return s.finalize(ctx, record)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be \"start\" or \"done\"")
	}
}

// startPresigned issues a signed PUT URL and moves the record to uploading
// within one transaction. The URL only reaches the caller once the commit
// succeeds, so a rolled-back transition never leaves a live credential behind.
func (s *service) startPresigned(ctx context.Context, record *models.Upload) (*TransferOutput, error) {
	if s.provider.Kind() == storage.KindLocal {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "direct uploads use the resumable endpoints")
	}
	if record.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "upload already finished")
	}
	if record.Status != enums.UploadStatusUploading && !record.Status.CanTransitionTo(enums.UploadStatusUploading) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot start transfer in status %q", record.Status))
	}

	ttl := TransferTTL(record.Size)

	var url string
	err := s.txer.WithTx(ctx, func(tx *gorm.DB) error {
		if record.Status != enums.UploadStatusUploading {
			moved, err := s.repo.UpdateStatus(ctx, tx, record.ID, record.Status, enums.UploadStatusUploading)
			if err != nil {
				return err
			}
			if !moved {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "upload state changed concurrently")
			}
		}
		signed, err := s.provider.PresignPut(ctx, record.FileKey, ttl, record.ContentType)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign upload url")
		}
		url = signed
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "start transfer")
	}

	return &TransferOutput{
		URLs:              []string{url},
		ValidityInMinutes: int(ttl.Minutes()),
		Acknowledged:      true,
	}, nil
}

// finalize flips the record to done. Re-finalizing an already-done upload is
// acknowledged without a second transition.
func (s *service) finalize(ctx context.Context, record *models.Upload) (*TransferOutput, error) {
	if record.Status == enums.UploadStatusDone {
		return &TransferOutput{Acknowledged: true}, nil
	}
	if !record.Status.CanTransitionTo(enums.UploadStatusDone) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot finish upload in status %q", record.Status))
	}

	err := s.txer.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.UpdateStatus(ctx, tx, record.ID, record.Status, enums.UploadStatusDone)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "upload state changed concurrently")
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finish transfer")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithUploadID(ctx, record.ID.String()), "upload finished")
	}
	return &TransferOutput{Acknowledged: true}, nil
}

// ResolveForTransfer is the pre-request validation hook for the resumable
// endpoints. It fails closed: unknown records and records owned by someone
// else both read as not-found, and terminal records refuse further writes.
func (s *service) ResolveForTransfer(ctx context.Context, userID, id uuid.UUID) (*models.Upload, error) {
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
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "upload belongs to another user")
	}
	if record.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "upload already finished")
	}
	return record, nil
}

// MarkUploading moves a record into uploading when the first chunk arrives.
// Records already uploading pass through unchanged.
func (s *service) MarkUploading(ctx context.Context, id uuid.UUID) error {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "upload not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load upload record")
	}
	if record.Status == enums.UploadStatusUploading {
		return nil
	}
	if !record.Status.CanTransitionTo(enums.UploadStatusUploading) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot resume upload in status %q", record.Status))
	}
	return s.txer.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.UpdateStatus(ctx, tx, record.ID, record.Status, enums.UploadStatusUploading)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "upload state changed concurrently")
		}
		return nil
	})
}

// CompleteByFileKey is the completion callback for the resumable adapter.
// The blob identifier on the wire is the fileKey, never the external id.
// Completing an already-done record is a no-op.
func (s *service) CompleteByFileKey(ctx context.Context, fileKey string) error {
	record, err := s.repo.FindByFileKey(ctx, fileKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "upload not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load upload record")
	}
	if record.Status == enums.UploadStatusDone {
		return nil
	}
	if !record.Status.CanTransitionTo(enums.UploadStatusDone) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot finish upload in status %q", record.Status))
	}
	err = s.txer.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.UpdateStatus(ctx, tx, record.ID, record.Status, enums.UploadStatusDone)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "upload state changed concurrently")
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return typed
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finish upload")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithUploadID(ctx, record.ID.String()), "resumable upload finished")
	}
	return nil
}
