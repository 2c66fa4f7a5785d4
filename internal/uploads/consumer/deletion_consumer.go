// Package consumer finishes two-phase deletes. The request path only
// soft-deletes and queues an event; this worker removes the backing bytes and
// then drops the metadata row.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/filedrop-backend/pkg/db/models"
	"github.com/angelmondragon/filedrop-backend/pkg/enums"
	"github.com/angelmondragon/filedrop-backend/pkg/logger"
	"github.com/angelmondragon/filedrop-backend/pkg/metrics"
	"github.com/angelmondragon/filedrop-backend/pkg/outbox"
	"github.com/angelmondragon/filedrop-backend/pkg/outbox/payloads"
)

const (
	attrEventType = "event_type"
	taskName      = "upload_deletion"
)

type deletionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Upload, error)
	HardDelete(ctx context.Context, id uuid.UUID) error
}

type blobDeleter interface {
	Delete(ctx context.Context, key string) error
}

// DeletionConsumer watches the deletion subscription and performs the storage
// removal plus the final hard delete.
type DeletionConsumer struct {
	repo         deletionRepository
	blobs        blobDeleter
	subscription *pubsub.Subscriber
	logg         *logger.Logger
	workers      *metrics.WorkerMetrics
}

// NewDeletionConsumer wires the deletion worker dependencies.
func NewDeletionConsumer(repo deletionRepository, blobs blobDeleter, subscription *pubsub.Subscriber, logg *logger.Logger, workers *metrics.WorkerMetrics) (*DeletionConsumer, error) {
	if repo == nil {
		return nil, errors.New("upload repository is required")
	}
	if blobs == nil {
		return nil, errors.New("blob deleter is required")
	}
	if subscription == nil {
		return nil, errors.New("deletion subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &DeletionConsumer{
		repo:         repo,
		blobs:        blobs,
		subscription: subscription,
		logg:         logg,
		workers:      workers,
	}, nil
}

// Run processes messages until the context is canceled or the subscription
// errors.
func (c *DeletionConsumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *DeletionConsumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	started := time.Now()
	result := c.handle(ctx, msg)
	c.workers.ObserveDuration(taskName, time.Since(started))
	if result.nack {
		c.workers.IncFailure(taskName)
	} else {
		c.workers.IncSuccess(taskName)
	}
	return result
}

func (c *DeletionConsumer) handle(ctx context.Context, msg *pubsub.Message) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": msg.Attributes[attrEventType],
	})

	if eventType := msg.Attributes[attrEventType]; eventType != string(enums.EventUploadDeleteRequested) {
		c.logg.Info(logCtx, "skipping unrelated event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to unmarshal envelope", err)
		return processResult{ack: true}
	}
	var event payloads.UploadDeleteRequestedEvent
	if err := json.Unmarshal(envelope.Data, &event); err != nil {
		c.logg.Error(logCtx, "failed to unmarshal deletion event", err)
		return processResult{ack: true}
	}
	if event.UploadID == uuid.Nil || event.FileKey == "" {
		c.logg.Error(logCtx, "deletion event missing upload id or file key", fmt.Errorf("incomplete payload"))
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"upload_id": event.UploadID.String(),
		"file_key":  event.FileKey,
	})

	record, err := c.repo.FindByID(logCtx, event.UploadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Already hard-deleted on a previous attempt.
			c.logg.Info(logCtx, "upload row already removed")
			return processResult{ack: true}
		}
		return c.handleDBError(logCtx, err)
	}
	if !record.IsDeleted {
		// A replayed event for a row that was never soft-deleted must not
		// destroy live data.
		c.logg.Warn(logCtx, "deletion event for a live upload, ignoring")
		return processResult{ack: true}
	}

	// Deleting a missing key succeeds, so retries are safe.
	if err := c.blobs.Delete(ctx, event.FileKey); err != nil {
		c.logg.Error(logCtx, "storage deletion failed", err)
		return processResult{nack: true}
	}

	// Hard delete only after storage confirmed removal. A failure here keeps
	// the soft-deleted row so the event can replay.
	if err := c.repo.HardDelete(ctx, event.UploadID); err != nil {
		return c.handleDBError(logCtx, err)
	}

	c.logg.Info(logCtx, "upload fully deleted")
	return processResult{ack: true}
}

func (c *DeletionConsumer) handleDBError(ctx context.Context, err error) processResult {
	c.logg.Error(ctx, "upload deletion db error", err)
	if isTransientDBError(err) {
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func isTransientDBError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
