package router

import (
	"github.com/objections/backend/internal/interfaces/http/handler"
	"github.com/objections/backend/internal/interfaces/http/middleware"
)

// ObjectionRoutesConfig configures the objection routes
type ObjectionRoutesConfig struct {
	// DownloadRole lets internal staff download any attachment
	DownloadRole string
	// MaxFileSize caps uploaded attachment size in bytes
	MaxFileSize int64
}

// NewObjectionRoutes builds the strike-off objection route group:
//
//	POST   /company/:companyNumber/strike-off-objections
//	GET    /company/:companyNumber/strike-off-objections
//	GET    /company/:companyNumber/strike-off-objections/:objectionId
//	PATCH  /company/:companyNumber/strike-off-objections/:objectionId
//	GET    .../:objectionId/attachments
//	POST   .../:objectionId/attachments
//	GET    .../:objectionId/attachments/:attachmentId
//	DELETE .../:objectionId/attachments/:attachmentId
//	GET    .../:objectionId/attachments/:attachmentId/download
func NewObjectionRoutes(h *handler.ObjectionHandler, cfg ObjectionRoutesConfig) *DomainGroup {
	objections := NewDomainGroup("objections", "/company/:companyNumber/strike-off-objections").
		Use(middleware.Identify())
	objections.
		POST("", h.Create).
		GET("", h.List)

	item := objections.Group("objection", "/:objectionId").
		Use(middleware.LoadObjection(h.Service()), middleware.CheckCompanyNumber())
	item.GET("/attachments/:attachmentId/download",
		middleware.AuthorizeDownload(cfg.DownloadRole), h.DownloadAttachment)

	owned := item.Group("owned", "").Use(middleware.AuthorizeUser())
	owned.
		GET("", h.Get).
		PATCH("", h.Patch).
		GET("/attachments", h.ListAttachments).
		GET("/attachments/:attachmentId", h.GetAttachment).
		DELETE("/attachments/:attachmentId", h.DeleteAttachment).
		POST("/attachments", middleware.AttachmentUploadLimit(cfg.MaxFileSize), h.AddAttachment)

	return objections
}

// NewHealthRoutes mounts GET /health
func NewHealthRoutes(h *handler.HealthHandler) *DomainGroup {
	return NewDomainGroup("health", "/health").GET("", h.Health)
}
