package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/objections/backend/internal/domain/objection"
	"github.com/objections/backend/internal/interfaces/http/handler"
	"github.com/objections/backend/internal/interfaces/http/middleware"
)

// fakeService answers the read paths; any other call panics via the nil embedded interface
type fakeService struct {
	handler.ObjectionService
	objections map[uuid.UUID]*objection.Objection
}

func (f *fakeService) GetObjection(_ context.Context, id uuid.UUID) (*objection.Objection, error) {
	o, ok := f.objections[id]
	if !ok {
		return nil, objection.NewNotFoundError(id)
	}
	return o, nil
}

func (f *fakeService) GetAttachments(ctx context.Context, id uuid.UUID) ([]objection.Attachment, error) {
	o, err := f.GetObjection(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.Attachments, nil
}

func setupObjectionEngine(t *testing.T) (*gin.Engine, *objection.Objection) {
	t.Helper()
	o, err := objection.NewObjection(objection.NewObjectionParams{
		CompanyNumber: "00006400",
		CreatedBy:     objection.CreatedBy{UserID: "user-1", Email: "owner@ch.gov.uk"},
		Now:           time.Now().UTC(),
	})
	require.NoError(t, err)
	o.ID = uuid.New()

	svc := &fakeService{objections: map[uuid.UUID]*objection.Objection{o.ID: o}}
	h := handler.NewObjectionHandler(svc, "http://localhost/api/v1", 1024, zap.NewNop())

	engine := gin.New()
	engine.Use(middleware.RequestID())
	NewRouter(engine).Register(NewObjectionRoutes(h, ObjectionRoutesConfig{MaxFileSize: 1024})).Setup()
	return engine, o
}

func TestNewObjectionRoutes_Table(t *testing.T) {
	h := handler.NewObjectionHandler(&fakeService{}, "", 0, zap.NewNop())
	routes := NewObjectionRoutes(h, ObjectionRoutesConfig{}).Routes()

	base := "/company/:companyNumber/strike-off-objections"
	assert.ElementsMatch(t, []string{
		"POST " + base,
		"GET " + base,
		"GET " + base + "/:objectionId/attachments/:attachmentId/download",
		"GET " + base + "/:objectionId",
		"PATCH " + base + "/:objectionId",
		"GET " + base + "/:objectionId/attachments",
		"GET " + base + "/:objectionId/attachments/:attachmentId",
		"DELETE " + base + "/:objectionId/attachments/:attachmentId",
		"POST " + base + "/:objectionId/attachments",
	}, routes)
}

func TestNewObjectionRoutes_Interceptors(t *testing.T) {
	engine, o := setupObjectionEngine(t)
	path := "/api/v1/company/00006400/strike-off-objections/" + o.ID.String() + "/attachments"

	tests := []struct {
		name   string
		path   string
		email  string
		status int
	}{
		{"creator lists attachments", path, "owner@ch.gov.uk", http.StatusOK},
		{"other user is unauthorized", path, "other@ch.gov.uk", http.StatusUnauthorized},
		{"anonymous is unauthorized", path, "", http.StatusUnauthorized},
		{"wrong company is not found", "/api/v1/company/11111111/strike-off-objections/" + o.ID.String() + "/attachments", "owner@ch.gov.uk", http.StatusNotFound},
		{"unknown objection is not found", "/api/v1/company/00006400/strike-off-objections/" + uuid.NewString() + "/attachments", "owner@ch.gov.uk", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.email != "" {
				req.Header.Set(middleware.HeaderIdentity, "user-x")
				req.Header.Set(middleware.HeaderAuthorisedUser, tt.email)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestNewObjectionRoutes_UploadLimit(t *testing.T) {
	engine, o := setupObjectionEngine(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/company/00006400/strike-off-objections/"+o.ID.String()+"/attachments", nil)
	req.ContentLength = 1024 + middleware.MultipartOverhead + 1
	req.Header.Set(middleware.HeaderIdentity, "user-1")
	req.Header.Set(middleware.HeaderAuthorisedUser, "owner@ch.gov.uk")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestNewHealthRoutes(t *testing.T) {
	h := handler.NewHealthHandler(pingOK{}, zap.NewNop())
	engine := gin.New()
	NewRouter(engine).RegisterRoot(NewHealthRoutes(h)).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

type pingOK struct{}

func (pingOK) PingContext(context.Context) error { return nil }
