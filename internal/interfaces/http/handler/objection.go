package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appobjection "github.com/objections/backend/internal/application/objection"
	"github.com/objections/backend/internal/domain/objection"
	"github.com/objections/backend/internal/infrastructure/logger"
	"github.com/objections/backend/internal/interfaces/http/dto"
	"github.com/objections/backend/internal/interfaces/http/middleware"
)

// FileFormField is the multipart field carrying an uploaded attachment
const FileFormField = "file"

// ObjectionService is the application surface the objection routes need
type ObjectionService interface {
	middleware.ObjectionGetter
	CreateObjection(ctx context.Context, in appobjection.CreateObjectionInput) (*objection.Objection, error)
	PatchObjection(ctx context.Context, id uuid.UUID, patch objection.Patch, requestID string) error
	ListObjections(ctx context.Context, companyNumber, email string) ([]objection.Objection, error)
	GetAttachments(ctx context.Context, id uuid.UUID) ([]objection.Attachment, error)
	GetAttachment(ctx context.Context, id uuid.UUID, attachmentID string) (objection.Attachment, error)
	AddAttachment(ctx context.Context, in appobjection.AddAttachmentInput) (string, error)
	DeleteAttachment(ctx context.Context, id uuid.UUID, attachmentID string) error
	DownloadAttachment(ctx context.Context, id uuid.UUID, attachmentID string) (*appobjection.Download, error)
}

var _ ObjectionService = (*appobjection.ObjectionService)(nil)

// ObjectionHandler handles the strike-off objection API endpoints
type ObjectionHandler struct {
	BaseHandler
	service     ObjectionService
	apiURL      string
	maxFileSize int64
	logger      *zap.Logger
}

// NewObjectionHandler creates a new ObjectionHandler. apiURL is the public
// base URL attachment links are built from.
func NewObjectionHandler(service ObjectionService, apiURL string, maxFileSize int64, logger *zap.Logger) *ObjectionHandler {
	return &ObjectionHandler{
		service:     service,
		apiURL:      strings.TrimRight(apiURL, "/"),
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// Service returns the service the handler delegates to
func (h *ObjectionHandler) Service() ObjectionService {
	return h.service
}

// Create godoc
//
//	@Summary		Create an objection
//	@Description	Opens an objection against the company's strike-off. The initial status comes from the eligibility check.
//	@Tags			objections
//	@Produce		json
//	@Param			companyNumber	path		string	true	"Company number"
//	@Success		201				{object}	dto.Response{data=dto.IDResponse}
//	@Failure		401				{object}	dto.Response
//	@Failure		502				{object}	dto.Response
//	@Router			/company/{companyNumber}/strike-off-objections [post]
func (h *ObjectionHandler) Create(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		h.Unauthorized(c, "Caller identity is missing")
		return
	}

	o, err := h.service.CreateObjection(c.Request.Context(), appobjection.CreateObjectionInput{
		CompanyNumber: c.Param("companyNumber"),
		RequestID:     getRequestID(c),
		CreatedBy: objection.CreatedBy{
			UserID: identity.UserID,
			Email:  identity.Email,
			Client: identity.Type,
		},
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, dto.IDResponse{ID: o.ID.String()})
}

// List godoc
//
//	@Summary		List the caller's objections for a company
//	@Tags			objections
//	@Produce		json
//	@Param			companyNumber	path		string	true	"Company number"
//	@Success		200				{object}	dto.Response{data=[]dto.ObjectionResponse}
//	@Router			/company/{companyNumber}/strike-off-objections [get]
func (h *ObjectionHandler) List(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		h.Unauthorized(c, "Caller identity is missing")
		return
	}

	objections, err := h.service.ListObjections(c.Request.Context(), c.Param("companyNumber"), identity.Email)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]dto.ObjectionResponse, len(objections))
	for i := range objections {
		out[i] = dto.NewObjectionResponse(&objections[i])
	}
	h.Success(c, out)
}

// Get godoc
//
//	@Summary		Get an objection
//	@Tags			objections
//	@Produce		json
//	@Param			companyNumber	path		string	true	"Company number"
//	@Param			objectionId		path		string	true	"Objection ID"
//	@Success		200				{object}	dto.Response{data=dto.ObjectionResponse}
//	@Failure		404				{object}	dto.Response
//	@Router			/company/{companyNumber}/strike-off-objections/{objectionId} [get]
func (h *ObjectionHandler) Get(c *gin.Context) {
	o, ok := middleware.GetObjection(c)
	if !ok {
		h.InternalError(c, "objection not loaded")
		return
	}
	h.Success(c, dto.NewObjectionResponse(o))
}

// Patch godoc
//
//	@Summary		Update an objection
//	@Description	Applies a partial update. Setting status to SUBMITTED submits the objection.
//	@Tags			objections
//	@Accept			json
//	@Param			companyNumber	path	string						true	"Company number"
//	@Param			objectionId		path	string						true	"Objection ID"
//	@Param			request			body	dto.PatchObjectionRequest	true	"Fields to change"
//	@Success		204
//	@Failure		400	{object}	dto.Response
//	@Failure		422	{object}	dto.Response
//	@Failure		409	{object}	dto.Response
//	@Router			/company/{companyNumber}/strike-off-objections/{objectionId} [patch]
func (h *ObjectionHandler) Patch(c *gin.Context) {
	o, ok := middleware.GetObjection(c)
	if !ok {
		h.InternalError(c, "objection not loaded")
		return
	}

	var req dto.PatchObjectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	patch, err := req.ToPatch()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if err := h.service.PatchObjection(c.Request.Context(), o.ID, patch, getRequestID(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListAttachments godoc
//
//	@Summary		List an objection's attachments
//	@Tags			attachments
//	@Produce		json
//	@Param			companyNumber	path		string	true	"Company number"
//	@Param			objectionId		path		string	true	"Objection ID"
//	@Success		200				{object}	dto.Response{data=[]dto.AttachmentResponse}
//	@Router			/company/{companyNumber}/strike-off-objections/{objectionId}/attachments [get]
func (h *ObjectionHandler) ListAttachments(c *gin.Context) {
	o, ok := middleware.GetObjection(c)
	if !ok {
		h.InternalError(c, "objection not loaded")
		return
	}

	attachments, err := h.service.GetAttachments(c.Request.Context(), o.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewAttachmentResponses(attachments))
}

// GetAttachment godoc
//
//	@Summary		Get an attachment's metadata
//	@Tags			attachments
//	@Produce		json
//	@Param			companyNumber	path		string	true	"Company number"
//	@Param			objectionId		path		string	true	"Objection ID"
//	@Param			attachmentId	path		string	true	"Attachment ID"
//	@Success		200				{object}	dto.Response{data=dto.AttachmentResponse}
//	@Failure		404				{object}	dto.Response
//	@Router			/company/{companyNumber}/strike-off-objections/{objectionId}/attachments/{attachmentId} [get]
func (h *ObjectionHandler) GetAttachment(c *gin.Context) {
	o, ok := middleware.GetObjection(c)
	if !ok {
		h.InternalError(c, "objection not loaded")
		return
	}

	attachment, err := h.service.GetAttachment(c.Request.Context(), o.ID, c.Param("attachmentId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewAttachmentResponse(attachment))
}

// AddAttachment godoc
//
//	@Summary		Upload an attachment
//	@Tags			attachments
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			companyNumber	path		string	true	"Company number"
//	@Param			objectionId		path		string	true	"Objection ID"
//	@Param			file			formData	file	true	"Attachment content"
//	@Success		202				{object}	dto.Response{data=dto.IDResponse}
//	@Failure		413				{object}	dto.Response
//	@Failure		502				{object}	dto.Response
//	@Router			/company/{companyNumber}/strike-off-objections/{objectionId}/attachments [post]
func (h *ObjectionHandler) AddAttachment(c *gin.Context) {
	o, ok := middleware.GetObjection(c)
	if !ok {
		h.InternalError(c, "objection not loaded")
		return
	}

	fh, err := c.FormFile(FileFormField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.ErrorWithCode(c, dto.ErrCodeFileTooLarge, "Attachment exceeds maximum allowed size")
			return
		}
		h.BadRequest(c, "Multipart field \""+FileFormField+"\" is required")
		return
	}
	if h.maxFileSize > 0 && fh.Size > h.maxFileSize {
		h.ErrorWithCode(c, dto.ErrCodeFileTooLarge, fmt.Sprintf("Attachment exceeds maximum allowed size of %d bytes", h.maxFileSize))
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.BadRequest(c, "Uploaded file could not be read")
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		h.BadRequest(c, "Uploaded file could not be read")
		return
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(content)
	}

	attachmentID, err := h.service.AddAttachment(c.Request.Context(), appobjection.AddAttachmentInput{
		ObjectionID: o.ID,
		Content:     content,
		FileName:    fh.Filename,
		ContentType: contentType,
		Size:        int64(len(content)),
		LinkBaseURI: h.attachmentsURI(o),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, dto.IDResponse{ID: attachmentID})
}

// DeleteAttachment godoc
//
//	@Summary		Delete an attachment
//	@Tags			attachments
//	@Param			companyNumber	path	string	true	"Company number"
//	@Param			objectionId		path	string	true	"Objection ID"
//	@Param			attachmentId	path	string	true	"Attachment ID"
//	@Success		204
//	@Failure		404	{object}	dto.Response
//	@Failure		502	{object}	dto.Response
//	@Router			/company/{companyNumber}/strike-off-objections/{objectionId}/attachments/{attachmentId} [delete]
func (h *ObjectionHandler) DeleteAttachment(c *gin.Context) {
	o, ok := middleware.GetObjection(c)
	if !ok {
		h.InternalError(c, "objection not loaded")
		return
	}

	if err := h.service.DeleteAttachment(c.Request.Context(), o.ID, c.Param("attachmentId")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// DownloadAttachment godoc
//
//	@Summary		Download an attachment
//	@Tags			attachments
//	@Produce		octet-stream
//	@Param			companyNumber	path	string	true	"Company number"
//	@Param			objectionId		path	string	true	"Objection ID"
//	@Param			attachmentId	path	string	true	"Attachment ID"
//	@Success		200
//	@Failure		401	{object}	dto.Response
//	@Failure		404	{object}	dto.Response
//	@Failure		502	{object}	dto.Response
//	@Router			/company/{companyNumber}/strike-off-objections/{objectionId}/attachments/{attachmentId}/download [get]
func (h *ObjectionHandler) DownloadAttachment(c *gin.Context) {
	o, ok := middleware.GetObjection(c)
	if !ok {
		h.InternalError(c, "objection not loaded")
		return
	}

	download, err := h.service.DownloadAttachment(c.Request.Context(), o.ID, c.Param("attachmentId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer func() {
		if cerr := download.Body.Close(); cerr != nil {
			logger.Enrich(c.Request.Context(), h.logger).Warn("closing attachment stream", zap.Error(cerr))
		}
	}()

	length := download.ContentLength
	if length <= 0 {
		length = -1
	}
	c.DataFromReader(http.StatusOK, length, download.ContentType, download.Body, map[string]string{
		"Content-Disposition": contentDisposition(download.Attachment.Name),
	})
}

func (h *ObjectionHandler) attachmentsURI(o *objection.Objection) string {
	return fmt.Sprintf("%s/company/%s/strike-off-objections/%s/attachments", h.apiURL, o.CompanyNumber, o.ID)
}

func contentDisposition(fileName string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": fileName}); v != "" {
		return v
	}
	return "attachment"
}
