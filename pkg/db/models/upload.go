package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/angelmondragon/filedrop-backend/pkg/db/types"
	"github.com/angelmondragon/filedrop-backend/pkg/enums"
)

// Upload is the metadata row behind one user-initiated file transfer.
// FileKey is the storage-backend path and never changes once assigned;
// the externally visible identifier is ID.
type Upload struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	FileKey     string              `gorm:"column:file_key;not null;uniqueIndex:ux_uploads_file_key"`
	Status      enums.UploadStatus  `gorm:"column:status;not null"`
	FileName    string              `gorm:"column:file_name;not null"`
	ContentType string              `gorm:"column:content_type;not null"`
	Extension   string              `gorm:"column:extension;not null"`
	Size        int64               `gorm:"column:size;not null"`
	Tags        dbtypes.StringArray `gorm:"column:tags;type:jsonb"`
	Expiration  *time.Time          `gorm:"column:expiration"`
	SecretHash  *string             `gorm:"column:secret_hash"`
	IsDeleted   bool                `gorm:"column:is_deleted;not null;default:false"`
	DeletedAt   *time.Time          `gorm:"column:deleted_at"`
	DeletedBy   *uuid.UUID          `gorm:"column:deleted_by;type:uuid"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the database table name.
func (Upload) TableName() string {
	return "uploads"
}

// IsExpired reports whether content access must fail because the record's
// expiration is in the past. Records with no expiration never expire.
func (u Upload) IsExpired(now time.Time) bool {
	return u.Expiration != nil && u.Expiration.Before(now)
}

// Secure reports whether content access requires a matching secret.
func (u Upload) Secure() bool {
	return u.SecretHash != nil && *u.SecretHash != ""
}
