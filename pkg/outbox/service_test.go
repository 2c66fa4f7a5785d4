package outbox

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/filedrop-backend/pkg/db/models"
	"github.com/angelmondragon/filedrop-backend/pkg/enums"
	"github.com/angelmondragon/filedrop-backend/pkg/outbox/payloads"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "outbox.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.OutboxEvent{}))
	return db
}

func TestEmitStoresEnvelopeInsideTransaction(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(NewRepository(db), nil)

	uploadID := uuid.New()
	actorID := uuid.New()

	tx := db.Begin()
	require.NoError(t, tx.Error)
	err := svc.Emit(context.Background(), tx, DomainEvent{
		EventType:     enums.EventUploadDeleteRequested,
		AggregateType: enums.AggregateUpload,
		AggregateID:   uploadID,
		Actor:         &ActorRef{UserID: actorID},
		Version:       1,
		Data: payloads.UploadDeleteRequestedEvent{
			UploadID:  uploadID,
			FileKey:   "u/2026/abc.png",
			DeletedBy: actorID,
		},
	})
	require.NoError(t, err)

	// Not visible until commit.
	var countBefore int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&countBefore).Error)
	require.EqualValues(t, 0, countBefore)

	require.NoError(t, tx.Commit().Error)

	var row models.OutboxEvent
	require.NoError(t, db.First(&row).Error)
	require.Equal(t, enums.EventUploadDeleteRequested, row.EventType)
	require.Equal(t, uploadID, row.AggregateID)
	require.Nil(t, row.PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	require.Equal(t, 1, envelope.Version)
	require.NotEmpty(t, envelope.EventID)

	var data payloads.UploadDeleteRequestedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	require.Equal(t, "u/2026/abc.png", data.FileKey)
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc := NewService(NewRepository(newTestDB(t)), nil)
	err := svc.Emit(context.Background(), nil, DomainEvent{})
	require.Error(t, err)
}

func TestMarkPublishedAndFailed(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventUploadDeleteRequested,
		AggregateType: enums.AggregateUpload,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
	}
	require.NoError(t, db.Create(&event).Error)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.MarkFailedTx(tx, event.ID, assertErr("publish timeout"))
	}))

	var row models.OutboxEvent
	require.NoError(t, db.First(&row, "id = ?", event.ID).Error)
	require.Equal(t, 1, row.AttemptCount)
	require.NotNil(t, row.LastError)
	require.Nil(t, row.PublishedAt)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.MarkPublishedTx(tx, event.ID)
	}))
	require.NoError(t, db.First(&row, "id = ?", event.ID).Error)
	require.NotNil(t, row.PublishedAt)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
