package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/filedrop-backend/api/middleware"
	"github.com/angelmondragon/filedrop-backend/api/responses"
	"github.com/angelmondragon/filedrop-backend/api/validators"
	"github.com/angelmondragon/filedrop-backend/internal/uploads"
	pkgerrors "github.com/angelmondragon/filedrop-backend/pkg/errors"
	"github.com/angelmondragon/filedrop-backend/pkg/logger"
	"github.com/angelmondragon/filedrop-backend/pkg/pagination"
)

type createUploadRequest struct {
	FileName    string     `json:"file_name" validate:"required"`
	Extension   string     `json:"extension"`
	ContentType string     `json:"content_type" validate:"required"`
	Size        int64      `json:"size" validate:"required,min=1"`
	Tags        []string   `json:"tags"`
	Expiration  *time.Time `json:"expiration"`
	Secret      string     `json:"secret"`
}

type transferRequest struct {
	Status string `json:"status" validate:"required,oneof=start done"`
}

// UploadCreate registers an upload record and tells the client which
// transfer mode to use.
func UploadCreate(svc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.AuthenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createUploadRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := svc.Create(r.Context(), userID, uploads.CreateInput{
			FileName:    payload.FileName,
			Extension:   payload.Extension,
			ContentType: payload.ContentType,
			Size:        payload.Size,
			Tags:        payload.Tags,
			Expiration:  payload.Expiration,
			Secret:      payload.Secret,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}

// UploadTransfer starts a presigned transfer or finalizes one.
func UploadTransfer(svc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.AuthenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseUploadID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload transferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		action, err := uploads.ParseTransferAction(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		out, err := svc.RequestTransfer(r.Context(), userID, id, action)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// UploadList returns one owner-scoped page plus the total count.
func UploadList(svc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.AuthenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		skip, err := validators.ParseQueryInt(r, "skip", 0, 0, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		take, err := validators.ParseQueryInt(r, "take", pagination.DefaultTake, 1, pagination.MaxTake)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := svc.List(r.Context(), userID, uploads.ListParams{Skip: skip, Take: take})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// UploadInfo returns the metadata view of a single owned upload.
func UploadInfo(svc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.AuthenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseUploadID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := svc.Info(r.Context(), userID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// UploadDelete soft-deletes an owned upload; byte removal is asynchronous.
func UploadDelete(svc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.AuthenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseUploadID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), userID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func parseUploadID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "upload not found")
	}
	return id, nil
}
