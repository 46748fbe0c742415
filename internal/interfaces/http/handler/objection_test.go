package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appobjection "github.com/objections/backend/internal/application/objection"
	"github.com/objections/backend/internal/domain/objection"
	"github.com/objections/backend/internal/interfaces/http/dto"
	"github.com/objections/backend/internal/interfaces/http/middleware"
)

const (
	testCompany = "00006400"
	testEmail   = "owner@ch.gov.uk"
	testAPIURL  = "https://api.example.com/api/v1"
)

// MockObjectionService is a mock implementation of ObjectionService
type MockObjectionService struct {
	mock.Mock
}

func (m *MockObjectionService) GetObjection(ctx context.Context, id uuid.UUID) (*objection.Objection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*objection.Objection), args.Error(1)
}

func (m *MockObjectionService) CreateObjection(ctx context.Context, in appobjection.CreateObjectionInput) (*objection.Objection, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*objection.Objection), args.Error(1)
}

func (m *MockObjectionService) PatchObjection(ctx context.Context, id uuid.UUID, patch objection.Patch, requestID string) error {
	args := m.Called(ctx, id, patch, requestID)
	return args.Error(0)
}

func (m *MockObjectionService) ListObjections(ctx context.Context, companyNumber, email string) ([]objection.Objection, error) {
	args := m.Called(ctx, companyNumber, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]objection.Objection), args.Error(1)
}

func (m *MockObjectionService) GetAttachments(ctx context.Context, id uuid.UUID) ([]objection.Attachment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]objection.Attachment), args.Error(1)
}

func (m *MockObjectionService) GetAttachment(ctx context.Context, id uuid.UUID, attachmentID string) (objection.Attachment, error) {
	args := m.Called(ctx, id, attachmentID)
	return args.Get(0).(objection.Attachment), args.Error(1)
}

func (m *MockObjectionService) AddAttachment(ctx context.Context, in appobjection.AddAttachmentInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *MockObjectionService) DeleteAttachment(ctx context.Context, id uuid.UUID, attachmentID string) error {
	args := m.Called(ctx, id, attachmentID)
	return args.Error(0)
}

func (m *MockObjectionService) DownloadAttachment(ctx context.Context, id uuid.UUID, attachmentID string) (*appobjection.Download, error) {
	args := m.Called(ctx, id, attachmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appobjection.Download), args.Error(1)
}

func newTestObjection(t *testing.T) *objection.Objection {
	t.Helper()
	o, err := objection.NewObjection(objection.NewObjectionParams{
		CompanyNumber: testCompany,
		CreatedBy:     objection.CreatedBy{UserID: "user-1", Email: testEmail},
		RequestID:     "req-create",
		Now:           time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	o.ID = uuid.New()
	o.Version = 1
	return o
}

func newTestAttachment(t *testing.T, o *objection.Objection, id string) objection.Attachment {
	t.Helper()
	a, err := objection.NewAttachment(id, "evidence.pdf", 12, "application/pdf",
		testAPIURL+"/company/"+testCompany+"/strike-off-objections/"+o.ID.String()+"/attachments")
	require.NoError(t, err)
	return a
}

// setupObjectionRouter mounts the handler behind the same interceptors the API uses
func setupObjectionRouter(svc *MockObjectionService, maxFileSize int64) *gin.Engine {
	h := NewObjectionHandler(svc, testAPIURL+"/", maxFileSize, zap.NewNop())

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Identify())
	company := r.Group("/company/:companyNumber/strike-off-objections")
	company.POST("", h.Create)
	company.GET("", h.List)

	owned := company.Group("/:objectionId", middleware.LoadObjection(svc), middleware.CheckCompanyNumber())
	owned.GET("/attachments/:attachmentId/download", middleware.AuthorizeDownload(""), h.DownloadAttachment)

	user := owned.Group("", middleware.AuthorizeUser())
	user.GET("", h.Get)
	user.PATCH("", h.Patch)
	user.GET("/attachments", h.ListAttachments)
	user.POST("/attachments", h.AddAttachment)
	user.GET("/attachments/:attachmentId", h.GetAttachment)
	user.DELETE("/attachments/:attachmentId", h.DeleteAttachment)
	return r
}

func newRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(middleware.RequestIDHeader, "req-test")
	req.Header.Set(middleware.HeaderIdentity, "user-1")
	req.Header.Set(middleware.HeaderIdentityType, "oauth2")
	req.Header.Set(middleware.HeaderAuthorisedUser, testEmail+"; forename=Demo; surname=User")
	return req
}

func objectionPath(o *objection.Objection) string {
	return "/company/" + testCompany + "/strike-off-objections/" + o.ID.String()
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func multipartBody(t *testing.T, field, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if field != "" {
		part, err := mw.CreateFormFile(field, fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("other", "value"))
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestObjectionHandler_Create(t *testing.T) {
	t.Run("creates objection for caller", func(t *testing.T) {
		svc := new(MockObjectionService)
		o := newTestObjection(t)
		svc.On("CreateObjection", mock.Anything, appobjection.CreateObjectionInput{
			CompanyNumber: testCompany,
			RequestID:     "req-test",
			CreatedBy:     objection.CreatedBy{UserID: "user-1", Email: testEmail, Client: "oauth2"},
		}).Return(o, nil)

		w := httptest.NewRecorder()
		setupObjectionRouter(svc, 0).ServeHTTP(w, newRequest(http.MethodPost, "/company/"+testCompany+"/strike-off-objections", nil))

		assert.Equal(t, http.StatusCreated, w.Code)
		resp := decode(t, w)
		assert.True(t, resp.Success)
		assert.Equal(t, o.ID.String(), resp.Data.(map[string]any)["id"])
		svc.AssertExpectations(t)
	})

	t.Run("eligibility lookup failure is bad gateway", func(t *testing.T) {
		svc := new(MockObjectionService)
		svc.On("CreateObjection", mock.Anything, mock.Anything).
			Return(nil, objection.NewUpstreamError("eligibility lookup", 503, nil))

		w := httptest.NewRecorder()
		setupObjectionRouter(svc, 0).ServeHTTP(w, newRequest(http.MethodPost, "/company/"+testCompany+"/strike-off-objections", nil))

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, objection.CodeUpstream, decode(t, w).Error.Code)
	})

	t.Run("anonymous caller is rejected", func(t *testing.T) {
		svc := new(MockObjectionService)
		req := httptest.NewRequest(http.MethodPost, "/company/"+testCompany+"/strike-off-objections", nil)

		w := httptest.NewRecorder()
		setupObjectionRouter(svc, 0).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		svc.AssertNotCalled(t, "CreateObjection", mock.Anything, mock.Anything)
	})
}

func TestObjectionHandler_List(t *testing.T) {
	svc := new(MockObjectionService)
	o := newTestObjection(t)
	svc.On("ListObjections", mock.Anything, testCompany, testEmail).Return([]objection.Objection{*o}, nil)

	w := httptest.NewRecorder()
	setupObjectionRouter(svc, 0).ServeHTTP(w, newRequest(http.MethodGet, "/company/"+testCompany+"/strike-off-objections", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	items := decode(t, w).Data.([]any)
	require.Len(t, items, 1)
	assert.Equal(t, o.ID.String(), items[0].(map[string]any)["id"])
}

func TestObjectionHandler_Get(t *testing.T) {
	t.Run("returns loaded objection", func(t *testing.T) {
		svc := new(MockObjectionService)
		o := newTestObjection(t)
		svc.On("GetObjection", mock.Anything, o.ID).Return(o, nil)

		w := httptest.NewRecorder()
		setupObjectionRouter(svc, 0).ServeHTTP(w, newRequest(http.MethodGet, objectionPath(o), nil))

		assert.Equal(t, http.StatusOK, w.Code)
		data := decode(t, w).Data.(map[string]any)
		assert.Equal(t, "OPEN", data["status"])
		assert.Equal(t, testCompany, data["company_number"])
		assert.Equal(t, testEmail, data["created_by"].(map[string]any)["email"])
	})

	t.Run("other company is not found", func(t *testing.T) {
		svc := new(MockObjectionService)
		o := newTestObjection(t)
		svc.On("GetObjection", mock.Anything, o.ID).Return(o, nil)

		w := httptest.NewRecorder()
		req := newRequest(http.MethodGet, "/company/99999999/strike-off-objections/"+o.ID.String(), nil)
		setupObjectionRouter(svc, 0).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("non-creator is unauthorized", func(t *testing.T) {
		svc := new(MockObjectionService)
		o := newTestObjection(t)
		svc.On("GetObjection", mock.Anything, o.ID).Return(o, nil)

		req := newRequest(http.MethodGet, objectionPath(o), nil)
		req.Header.Set(middleware.HeaderAuthorisedUser, "someone@else.com")
		w := httptest.NewRecorder()
		setupObjectionRouter(svc, 0).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestObjectionHandler_Patch(t *testing.T) {
	t.Run("submits objection", func(t *testing.T) {
		svc := new(MockObjectionService)
		o := newTestObjection(t)
		svc.On("GetObjection", mock.Anything, o.ID).Return(o, nil)
		svc.On("PatchObjection", mock.Anything, o.ID, objection.Patch{
			Reason: objection.Some("Trading continues"),
			Status: objection.Some(objection.StatusSubmitted),
		}, "req-test").Return(nil)

		body := strings.NewReader(`{"reason":"Trading continues","status":"submitted"}`)
		req := newRequest(http.MethodPatch, objectionPath(o), body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		setupObjectionRouter(svc, 0).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("unknown status is a validation error", func(t *testing.T) {
		svc := new(MockObjectionService)
		o := newTestObjection(t)
		svc.On("GetObjection", mock.Anything, o.ID).Return(o, nil)

		req := newRequest(http.MethodPatch, objectionPath(o), strings.NewReader(`{"status":"CLOSED"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		setupObjectionRouter(svc, 0).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, objection.CodeValidation, decode(t, w).Error.Code)
		svc.AssertNotCalled(t, "PatchObjection", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		svc := new(MockObjectionService)
		o := newTestObjection(t)
		svc.On("GetObjection", mock.Anything, o.ID).Return(o, nil)

		req := newRequest(http.MethodPatch, objectionPath(o), strings.NewReader(`{"reason":`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		setupObjectionRouter(svc, 0).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("illegal transition is unprocessable", func(t *testing.T) {
		svc := new(MockObjectionService)
		o := newTestObjection(t)
		svc.On("GetObjection", mock.Anything, o.ID).Return(o, nil)
		svc.On("PatchObjection", mock.Anything, o.ID, mock.Anything, "req-test").
			Return(objection.NewInvalidTransitionError(o.ID, objection.StatusSubmitted, objection.StatusSubmitted))

		req := newRequest(http.MethodPatch, objectionPath(o), strings.NewReader(`{"status":"SUBMITTED"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		setupObjectionRouter(svc, 0).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, objection.CodeInvalidTransition, decode(t, w).Error.Code)
	})

	t.Run("stale write is a conflict", func(t *testing.T) {
		svc := new(MockObjectionService)
		o := newTestObjection(t)
		svc.On("GetObjection", mock.Anything, o.ID).Return(o, nil)
		svc.On("PatchObjection", mock.Anything, o.ID, mock.Anything, "req-test").
			Return(objection.NewStaleVersionError(o.ID, 1))

		req := newRequest(http.MethodPatch, objectionPath(o), strings.NewReader(`{"full_name":"Demo User"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		setupObjectionRouter(svc, 0).ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestObjectionHandler_Attachments(t *testing.T) {
	t.Run("lists attachments", func(t *testing.T) {
		svc := new(MockObjectionService)
		o := newTestObjection(t)
		a := newTestAttachment(t, o, "a1")
		svc.On("GetObjection", mock.Anything, o.ID).Return(o, nil)
		svc.On("GetAttachments", mock.Anything, o.ID).Return([]objection.Attachment{a}, nil)

		w := httptest.NewRecorder()
		setupObjectionRouter(svc, 0).ServeHTTP(w, newRequest(http.MethodGet, objectionPath(o)+"/attachments", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		items := decode(t, w).Data.([]any)
		require.Len(t, items, 1)
		links := items[0].(map[string]any)["links"].(map[string]any)
		assert.Equal(t, a.Links.Self, links["self"])
		assert.Equal(t, a.Links.Download, links["download"])
	})

	t.Run("unknown attachment is not found", func(t *testing.T) {
		svc := new(MockObjectionService)
		o := newTestObjection(t)
		svc.On("GetObjection", mock.Anything, o.ID).Return(o, nil)
		svc.On("GetAttachment", mock.Anything, o.ID, "missing").
			Return(objection.Attachment{}, objection.NewAttachmentNotFoundError(o.ID, "missing"))

		w := httptest.NewRecorder()
		setupObjectionRouter(svc, 0).ServeHTTP(w, newRequest(http.MethodGet, objectionPath(o)+"/attachments/missing", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, objection.CodeAttachmentNotFound, decode(t, w).Error.Code)
	})

	t.Run("deletes attachment", func(t *testing.T) {
		svc := new(MockObjectionService)
		o := newTestObjection(t)
		svc.On("GetObjection", mock.Anything, o.ID).Return(o, nil)
		svc.On("DeleteAttachment", mock.Anything, o.ID, "a1").Return(nil)

		w := httptest.NewRecorder()
		setupObjectionRouter(svc, 0).ServeHTTP(w, newRequest(http.MethodDelete, objectionPath(o)+"/attachments/a1", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("store delete failure is bad gateway", func(t *testing.T) {
		svc := new(MockObjectionService)
		o := newTestObjection(t)
		svc.On("GetObjection", mock.Anything, o.ID).Return(o, nil)
		svc.On("DeleteAttachment", mock.Anything, o.ID, "a1").
			Return(objection.NewUpstreamError("blob delete", 500, nil))

		w := httptest.NewRecorder()
		setupObjectionRouter(svc, 0).ServeHTTP(w, newRequest(http.MethodDelete, objectionPath(o)+"/attachments/a1", nil))

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestObjectionHandler_AddAttachment(t *testing.T) {
	t.Run("uploads file", func(t *testing.T) {
		svc := new(MockObjectionService)
		o := newTestObjection(t)
		content := []byte("%PDF-1.4 objection evidence")
		svc.On("GetObjection", mock.Anything, o.ID).Return(o, nil)
		svc.On("AddAttachment", mock.Anything, mock.MatchedBy(func(in appobjection.AddAttachmentInput) bool {
			return in.ObjectionID == o.ID &&
				in.FileName == "evidence.pdf" &&
				bytes.Equal(in.Content, content) &&
				in.Size == int64(len(content)) &&
				in.ContentType == "application/pdf" &&
				in.LinkBaseURI == testAPIURL+"/company/"+testCompany+"/strike-off-objections/"+o.ID.String()+"/attachments"
		})).Return("blob-1", nil)

		body, contentType := multipartBody(t, FileFormField, "evidence.pdf", content)
		req := newRequest(http.MethodPost, objectionPath(o)+"/attachments", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		setupObjectionRouter(svc, 1024).ServeHTTP(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, "blob-1", decode(t, w).Data.(map[string]any)["id"])
		svc.AssertExpectations(t)
	})

	t.Run("missing file field", func(t *testing.T) {
		svc := new(MockObjectionService)
		o := newTestObjection(t)
		svc.On("GetObjection", mock.Anything, o.ID).Return(o, nil)

		body, contentType := multipartBody(t, "", "", nil)
		req := newRequest(http.MethodPost, objectionPath(o)+"/attachments", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		setupObjectionRouter(svc, 1024).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "AddAttachment", mock.Anything, mock.Anything)
	})

	t.Run("oversized file", func(t *testing.T) {
		svc := new(MockObjectionService)
		o := newTestObjection(t)
		svc.On("GetObjection", mock.Anything, o.ID).Return(o, nil)

		body, contentType := multipartBody(t, FileFormField, "big.bin", bytes.Repeat([]byte("x"), 64))
		req := newRequest(http.MethodPost, objectionPath(o)+"/attachments", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		setupObjectionRouter(svc, 16).ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, dto.ErrCodeFileTooLarge, decode(t, w).Error.Code)
	})
}

func TestObjectionHandler_DownloadAttachment(t *testing.T) {
	download := func(t *testing.T, o *objection.Objection) *appobjection.Download {
		return &appobjection.Download{
			Attachment: newTestAttachment(t, o, "a1"),
			DownloadResult: &appobjection.DownloadResult{
				Body:          io.NopCloser(strings.NewReader("file-bytes")),
				ContentType:   "application/pdf",
				ContentLength: 10,
				Status:        200,
			},
		}
	}

	t.Run("creator streams file", func(t *testing.T) {
		svc := new(MockObjectionService)
		o := newTestObjection(t)
		svc.On("GetObjection", mock.Anything, o.ID).Return(o, nil)
		svc.On("DownloadAttachment", mock.Anything, o.ID, "a1").Return(download(t, o), nil)

		w := httptest.NewRecorder()
		setupObjectionRouter(svc, 0).ServeHTTP(w, newRequest(http.MethodGet, objectionPath(o)+"/attachments/a1/download", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "file-bytes", w.Body.String())
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename=evidence.pdf`, w.Header().Get("Content-Disposition"))
	})

	t.Run("admin role may download", func(t *testing.T) {
		svc := new(MockObjectionService)
		o := newTestObjection(t)
		svc.On("GetObjection", mock.Anything, o.ID).Return(o, nil)
		svc.On("DownloadAttachment", mock.Anything, o.ID, "a1").Return(download(t, o), nil)

		req := newRequest(http.MethodGet, objectionPath(o)+"/attachments/a1/download", nil)
		req.Header.Set(middleware.HeaderAuthorisedUser, "staff@ch.gov.uk")
		req.Header.Set(middleware.HeaderAuthorisedRoles, middleware.DefaultDownloadRole)
		w := httptest.NewRecorder()
		setupObjectionRouter(svc, 0).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("stranger is unauthorized", func(t *testing.T) {
		svc := new(MockObjectionService)
		o := newTestObjection(t)
		svc.On("GetObjection", mock.Anything, o.ID).Return(o, nil)

		req := newRequest(http.MethodGet, objectionPath(o)+"/attachments/a1/download", nil)
		req.Header.Set(middleware.HeaderAuthorisedUser, "staff@ch.gov.uk")
		w := httptest.NewRecorder()
		setupObjectionRouter(svc, 0).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		svc.AssertNotCalled(t, "DownloadAttachment", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("store failure is bad gateway", func(t *testing.T) {
		svc := new(MockObjectionService)
		o := newTestObjection(t)
		svc.On("GetObjection", mock.Anything, o.ID).Return(o, nil)
		svc.On("DownloadAttachment", mock.Anything, o.ID, "a1").
			Return(nil, objection.NewUpstreamError("blob download", 404, nil))

		w := httptest.NewRecorder()
		setupObjectionRouter(svc, 0).ServeHTTP(w, newRequest(http.MethodGet, objectionPath(o)+"/attachments/a1/download", nil))

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}
