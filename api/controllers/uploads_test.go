package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/filedrop-backend/api/middleware"
	"github.com/angelmondragon/filedrop-backend/internal/uploads"
	"github.com/angelmondragon/filedrop-backend/pkg/db/models"
	"github.com/angelmondragon/filedrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/filedrop-backend/pkg/errors"
	"github.com/angelmondragon/filedrop-backend/pkg/logger"
)

type stubUploadService struct {
	createOut   *uploads.CreateOutput
	createErr   error
	createInput uploads.CreateInput

	transferOut    *uploads.TransferOutput
	transferErr    error
	transferAction uploads.TransferAction

	infoOut *uploads.InfoOutput
	infoErr error

	listOut    *uploads.ListResult
	listParams uploads.ListParams

	deleteErr error
	deletedID uuid.UUID

	contentOut *uploads.ContentResult
	contentErr error
}

func (s *stubUploadService) Create(_ context.Context, _ uuid.UUID, input uploads.CreateInput) (*uploads.CreateOutput, error) {
	s.createInput = input
	return s.createOut, s.createErr
}

func (s *stubUploadService) RequestTransfer(_ context.Context, _, _ uuid.UUID, action uploads.TransferAction) (*uploads.TransferOutput, error) {
	s.transferAction = action
	return s.transferOut, s.transferErr
}

func (s *stubUploadService) Info(context.Context, uuid.UUID, uuid.UUID) (*uploads.InfoOutput, error) {
	return s.infoOut, s.infoErr
}

func (s *stubUploadService) List(_ context.Context, _ uuid.UUID, params uploads.ListParams) (*uploads.ListResult, error) {
	s.listParams = params
	return s.listOut, nil
}

func (s *stubUploadService) Delete(_ context.Context, _ uuid.UUID, id uuid.UUID) error {
	if s.deleteErr == nil {
		s.deletedID = id
	}
	return s.deleteErr
}

func (s *stubUploadService) Content(context.Context, uuid.UUID, string) (*uploads.ContentResult, error) {
	return s.contentOut, s.contentErr
}

func (s *stubUploadService) ResolveForTransfer(context.Context, uuid.UUID, uuid.UUID) (*models.Upload, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s *stubUploadService) MarkUploading(context.Context, uuid.UUID) error {
	return nil
}

func (s *stubUploadService) CompleteByFileKey(context.Context, string) error {
	return nil
}

func controllerTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "controllers-test", Output: io.Discard})
}

func authedContext(userID uuid.UUID) context.Context {
	return middleware.WithUserID(context.Background(), userID.String())
}

func withURLParam(ctx context.Context, key, value string) context.Context {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestUploadCreate(t *testing.T) {
	userID := uuid.New()
	uploadID := uuid.New()

	t.Run("created", func(t *testing.T) {
		svc := &stubUploadService{
			createOut: &uploads.CreateOutput{ID: uploadID, UploadType: enums.TransferModePresigned},
		}
		body := `{"file_name":"report.pdf","content_type":"application/pdf","size":2048,"secret":"hunter2"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req = req.WithContext(authedContext(userID))
		rec := httptest.NewRecorder()
		UploadCreate(svc, controllerTestLogger()).ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
		}
		data, _ := decodeEnvelope(t, rec)["data"].(map[string]any)
		if data["upload_type"] != string(enums.TransferModePresigned) {
			t.Fatalf("unexpected upload_type %v", data["upload_type"])
		}
		if svc.createInput.FileName != "report.pdf" || svc.createInput.Size != 2048 {
			t.Fatalf("service received wrong input: %+v", svc.createInput)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		svc := &stubUploadService{}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		UploadCreate(svc, controllerTestLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 got %d", rec.Code)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		svc := &stubUploadService{}
		body := `{"file_name":"report.pdf"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", strings.NewReader(body))
		req = req.WithContext(authedContext(userID))
		rec := httptest.NewRecorder()
		UploadCreate(svc, controllerTestLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 got %d", rec.Code)
		}
	})
}

func TestUploadTransfer(t *testing.T) {
	userID := uuid.New()
	uploadID := uuid.New()

	t.Run("start returns url", func(t *testing.T) {
		svc := &stubUploadService{
			transferOut: &uploads.TransferOutput{URLs: []string{"https://signed.example/put"}, ValidityInMinutes: 10},
		}
		ctx := withURLParam(authedContext(userID), "id", uploadID.String())
		req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads/"+uploadID.String()+"/transfer", strings.NewReader(`{"status":"start"}`))
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		UploadTransfer(svc, controllerTestLogger()).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
		}
		if svc.transferAction != uploads.TransferActionStart {
			t.Fatalf("expected start action, got %s", svc.transferAction)
		}
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		svc := &stubUploadService{}
		ctx := withURLParam(authedContext(userID), "id", uploadID.String())
		req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads/"+uploadID.String()+"/transfer", strings.NewReader(`{"status":"pause"}`))
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		UploadTransfer(svc, controllerTestLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 got %d", rec.Code)
		}
	})

	t.Run("state conflict maps to 409", func(t *testing.T) {
		svc := &stubUploadService{
			transferErr: pkgerrors.New(pkgerrors.CodeStateConflict, "upload already finished"),
		}
		ctx := withURLParam(authedContext(userID), "id", uploadID.String())
		req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads/"+uploadID.String()+"/transfer", strings.NewReader(`{"status":"start"}`))
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		UploadTransfer(svc, controllerTestLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409 got %d", rec.Code)
		}
	})
}

func TestUploadInfoMapsNotFound(t *testing.T) {
	svc := &stubUploadService{infoErr: pkgerrors.New(pkgerrors.CodeNotFound, "upload not found")}
	ctx := withURLParam(authedContext(uuid.New()), "id", uuid.NewString())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/uploads/"+uuid.NewString(), nil)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	UploadInfo(svc, controllerTestLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestUploadInfoRejectsMalformedID(t *testing.T) {
	svc := &stubUploadService{infoOut: &uploads.InfoOutput{}}
	ctx := withURLParam(authedContext(uuid.New()), "id", "not-a-uuid")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/uploads/not-a-uuid", nil)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	UploadInfo(svc, controllerTestLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestUploadListParsesWindow(t *testing.T) {
	svc := &stubUploadService{listOut: &uploads.ListResult{Items: []uploads.ListItem{}, Total: 0}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/uploads?skip=10&take=5", nil)
	req = req.WithContext(authedContext(uuid.New()))
	rec := httptest.NewRecorder()
	UploadList(svc, controllerTestLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.listParams.Skip != 10 || svc.listParams.Take != 5 {
		t.Fatalf("unexpected window: %+v", svc.listParams)
	}
}

func TestUploadListRejectsOutOfRangeTake(t *testing.T) {
	svc := &stubUploadService{listOut: &uploads.ListResult{}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/uploads?take=9999", nil)
	req = req.WithContext(authedContext(uuid.New()))
	rec := httptest.NewRecorder()
	UploadList(svc, controllerTestLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestUploadDelete(t *testing.T) {
	uploadID := uuid.New()
	svc := &stubUploadService{}
	ctx := withURLParam(authedContext(uuid.New()), "id", uploadID.String())
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/uploads/"+uploadID.String(), nil)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	UploadDelete(svc, controllerTestLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.deletedID != uploadID {
		t.Fatalf("service deleted %s, want %s", svc.deletedID, uploadID)
	}
	data, _ := decodeEnvelope(t, rec)["data"].(map[string]any)
	if data["deleted"] != true {
		t.Fatalf("expected deleted ack, got %v", data)
	}
}
