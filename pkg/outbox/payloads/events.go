package payloads

import "github.com/google/uuid"

// UploadDeleteRequestedEvent asks the deletion worker to remove the backing
// bytes and then hard-delete the soft-deleted metadata row.
type UploadDeleteRequestedEvent struct {
	UploadID  uuid.UUID `json:"upload_id"`
	FileKey   string    `json:"file_key"`
	DeletedBy uuid.UUID `json:"deleted_by"`
}
