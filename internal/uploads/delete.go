package uploads

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/google/uuid"

	"github.com/angelmondragon/filedrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/filedrop-backend/pkg/errors"
	"github.com/angelmondragon/filedrop-backend/pkg/outbox"
	"github.com/angelmondragon/filedrop-backend/pkg/outbox/payloads"
)

// Delete soft-deletes an owned upload and queues removal of the backing
// bytes. The deletion event rides in the same transaction through the outbox,
// so it only becomes visible once the soft delete commits. Byte removal and
// the final hard delete happen asynchronously in the deletion worker.
// Unlike reads, a delete of someone else's upload is refused as forbidden
// rather than masked as not-found.
func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "upload not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load upload record")
	}
	if record.IsDeleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "upload not found")
	}
	if record.UserID != userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "upload belongs to another user")
	}

	err = s.txer.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.SoftDelete(ctx, tx, record.ID, userID, s.now()); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUploadDeleteRequested,
			AggregateType: enums.AggregateUpload,
			AggregateID:   record.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Version:       1,
			Data: payloads.UploadDeleteRequestedEvent{
				UploadID:  record.ID,
				FileKey:   record.FileKey,
				DeletedBy: userID,
			},
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete upload")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithUploadID(ctx, record.ID.String()), "upload soft deleted")
	}
	return nil
}
