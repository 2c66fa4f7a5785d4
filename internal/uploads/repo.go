package uploads

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/filedrop-backend/pkg/db/models"
	"github.com/angelmondragon/filedrop-backend/pkg/enums"
)

// Repository exposes upload metadata persistence operations. Mutating methods
// accept an optional transaction handle; passing nil uses the base connection.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an upload repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create persists an upload record.
func (r *Repository) Create(ctx context.Context, tx *gorm.DB, upload *models.Upload) error {
	return r.conn(tx).WithContext(ctx).Create(upload).Error
}

// FindByID retrieves an upload by its external identifier.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Upload, error) {
	var u models.Upload
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByFileKey retrieves an upload by its storage key.
func (r *Repository) FindByFileKey(ctx context.Context, fileKey string) (*models.Upload, error) {
	var u models.Upload
	if err := r.db.WithContext(ctx).First(&u, "file_key = ?", fileKey).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateStatus moves an upload from one status to another. The expected
// current status guards against concurrent transitions; zero rows affected
// means the record moved underneath the caller.
func (r *Repository) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to enums.UploadStatus) (bool, error) {
	result := r.conn(tx).WithContext(ctx).
		Model(&models.Upload{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SoftDelete marks an upload as deleted without removing the row. The row
// survives until the deletion worker confirms the backing bytes are gone.
func (r *Repository) SoftDelete(ctx context.Context, tx *gorm.DB, id, deletedBy uuid.UUID, at time.Time) error {
	return r.conn(tx).WithContext(ctx).
		Model(&models.Upload{}).
		Where("id = ? AND is_deleted = false", id).
		Updates(map[string]any{
			"is_deleted": true,
			"deleted_at": at,
			"deleted_by": deletedBy,
		}).Error
}

// HardDelete removes the metadata row. Only the deletion worker calls this,
// after storage confirms the bytes are removed.
func (r *Repository) HardDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Upload{}).Error
}

// TotalSizeForOwner sums the declared sizes of an owner's live uploads.
func (r *Repository) TotalSizeForOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var total *int64
	err := r.db.WithContext(ctx).
		Model(&models.Upload{}).
		Where("user_id = ? AND is_deleted = false", ownerID).
		Select("sum(size)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

type listRow struct {
	models.Upload `gorm:"embedded"`
	TotalCount    int64 `gorm:"column:total_count"`
}

// List returns one page of an owner's uploads ordered by creation time
// descending, plus the owner's total row count. The total rides along as a
// window function so a page fetch is a single round trip.
func (r *Repository) List(ctx context.Context, ownerID uuid.UUID, skip, take int) ([]models.Upload, int64, error) {
	var rows []listRow
	err := r.db.WithContext(ctx).
		Model(&models.Upload{}).
		Select("uploads.*, count(*) OVER () AS total_count").
		Where("user_id = ? AND is_deleted = false", ownerID).
		Order("created_at DESC, id DESC").
		Limit(take).
		Offset(skip).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	if len(rows) == 0 {
		// The window past the last row returns nothing, so the total has to
		// come from a count.
		var total int64
		err := r.db.WithContext(ctx).
			Model(&models.Upload{}).
			Where("user_id = ? AND is_deleted = false", ownerID).
			Count(&total).Error
		if err != nil {
			return nil, 0, err
		}
		return []models.Upload{}, total, nil
	}

	items := make([]models.Upload, len(rows))
	for i, row := range rows {
		items[i] = row.Upload
	}
	return items, rows[0].TotalCount, nil
}
