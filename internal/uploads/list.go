package uploads

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/filedrop-backend/pkg/db/models"
	"github.com/angelmondragon/filedrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/filedrop-backend/pkg/errors"
	"github.com/angelmondragon/filedrop-backend/pkg/pagination"
)

// ListParams configures owner-scoped listing.
type ListParams struct {
	Skip int
	Take int
}

// ListResult returns one page plus the owner's total row count.
type ListResult struct {
	Items []ListItem `json:"items"`
	Total int64      `json:"total"`
}

// ListItem is the listing view of an upload.
type ListItem struct {
	ID          uuid.UUID          `json:"id"`
	FileName    string             `json:"file_name"`
	Size        int64              `json:"size"`
	Status      enums.UploadStatus `json:"status"`
	Expiration  *time.Time         `json:"expiration"`
	Tags        []string           `json:"tags"`
	ContentType string             `json:"content_type"`
	CreatedAt   time.Time          `json:"created_at"`
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params ListParams) (*ListResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	window := pagination.Window{Skip: params.Skip, Take: params.Take}.Normalize()

	rows, total, err := s.repo.List(ctx, userID, window.Skip, window.Take)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list uploads")
	}

	items := make([]ListItem, len(rows))
	for i, row := range rows {
		items[i] = toListItem(row)
	}
	return &ListResult{Items: items, Total: total}, nil
}

func toListItem(u models.Upload) ListItem {
	return ListItem{
		ID:          u.ID,
		FileName:    u.FileName,
		Size:        u.Size,
		Status:      u.Status,
		Expiration:  u.Expiration,
		Tags:        u.Tags,
		ContentType: u.ContentType,
		CreatedAt:   u.CreatedAt,
	}
}
