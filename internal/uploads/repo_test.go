package uploads

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/filedrop-backend/pkg/db"
	"github.com/angelmondragon/filedrop-backend/pkg/db/models"
	"github.com/angelmondragon/filedrop-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:uploads_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Upload{}))
	return conn
}

func seedUpload(t *testing.T, conn *gorm.DB, owner uuid.UUID, createdAt time.Time) *models.Upload {
	t.Helper()
	row := &models.Upload{
		ID:          uuid.New(),
		UserID:      owner,
		FileKey:     "uploads/" + owner.String() + "/" + uuid.NewString(),
		Status:      enums.UploadStatusCreated,
		FileName:    "f.bin",
		ContentType: "application/octet-stream",
		Extension:   "bin",
		Size:        100,
		CreatedAt:   createdAt,
	}
	require.NoError(t, conn.Create(row).Error)
	return row
}

func TestRepositoryListWindowAndTotal(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	owner := uuid.New()

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		seedUpload(t, conn, owner, base.Add(time.Duration(i)*time.Minute))
	}
	// Another owner's rows must never shift the window.
	seedUpload(t, conn, uuid.New(), base)

	ctx := context.Background()

	rows, total, err := repo.List(ctx, owner, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 15, total)
	require.Len(t, rows, 10)
	// Newest first.
	require.True(t, rows[0].CreatedAt.After(rows[9].CreatedAt))

	rows, total, err = repo.List(ctx, owner, 10, 10)
	require.NoError(t, err)
	require.EqualValues(t, 15, total)
	require.Len(t, rows, 5)

	// A window past the end still reports the total.
	rows, total, err = repo.List(ctx, owner, 20, 10)
	require.NoError(t, err)
	require.EqualValues(t, 15, total)
	require.Empty(t, rows)
}

func TestRepositoryListSkipsSoftDeleted(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	owner := uuid.New()

	keep := seedUpload(t, conn, owner, time.Now())
	gone := seedUpload(t, conn, owner, time.Now())
	require.NoError(t, repo.SoftDelete(context.Background(), nil, gone.ID, owner, time.Now()))

	rows, total, err := repo.List(context.Background(), owner, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	require.Equal(t, keep.ID, rows[0].ID)
}

func TestRepositoryDuplicateFileKey(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	owner := uuid.New()

	first := seedUpload(t, conn, owner, time.Now())
	dup := &models.Upload{
		ID:          uuid.New(),
		UserID:      owner,
		FileKey:     first.FileKey,
		Status:      enums.UploadStatusCreated,
		FileName:    "f.bin",
		ContentType: "application/octet-stream",
		Size:        1,
	}
	err := repo.Create(context.Background(), nil, dup)
	require.Error(t, err)
	require.True(t, db.IsUniqueViolation(err, "ux_uploads_file_key"))
}

func TestRepositoryUpdateStatusGuarded(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	row := seedUpload(t, conn, uuid.New(), time.Now())

	ctx := context.Background()

	moved, err := repo.UpdateStatus(ctx, nil, row.ID, enums.UploadStatusCreated, enums.UploadStatusUploading)
	require.NoError(t, err)
	require.True(t, moved)

	// Stale expected status moves nothing.
	moved, err = repo.UpdateStatus(ctx, nil, row.ID, enums.UploadStatusCreated, enums.UploadStatusDone)
	require.NoError(t, err)
	require.False(t, moved)

	var current models.Upload
	require.NoError(t, conn.First(&current, "id = ?", row.ID).Error)
	require.Equal(t, enums.UploadStatusUploading, current.Status)
}

func TestRepositoryHardDeleteAndTotalSize(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	owner := uuid.New()

	a := seedUpload(t, conn, owner, time.Now())
	seedUpload(t, conn, owner, time.Now())

	ctx := context.Background()

	total, err := repo.TotalSizeForOwner(ctx, owner)
	require.NoError(t, err)
	require.EqualValues(t, 200, total)

	require.NoError(t, repo.HardDelete(ctx, a.ID))
	_, err = repo.FindByID(ctx, a.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	total, err = repo.TotalSizeForOwner(ctx, owner)
	require.NoError(t, err)
	require.EqualValues(t, 100, total)

	// An owner with no rows sums to zero, not an error.
	total, err = repo.TotalSizeForOwner(ctx, uuid.New())
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestRepositoryFindByFileKey(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	row := seedUpload(t, conn, uuid.New(), time.Now())

	found, err := repo.FindByFileKey(context.Background(), row.FileKey)
	require.NoError(t, err)
	require.Equal(t, row.ID, found.ID)

	_, err = repo.FindByFileKey(context.Background(), "uploads/none")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
