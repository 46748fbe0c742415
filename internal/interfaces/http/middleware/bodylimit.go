package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/objections/backend/internal/interfaces/http/dto"
)

// MultipartOverhead is the slack allowed above the file size for multipart framing
const MultipartOverhead = 64 << 10

// AttachmentUploadLimit rejects attachment uploads whose body cannot fit a file of
// maxFileSize bytes. Declared lengths are checked up front; chunked bodies are
// cut off by http.MaxBytesReader and surface as *http.MaxBytesError to the handler.
// A non-positive maxFileSize disables the limit.
func AttachmentUploadLimit(maxFileSize int64) gin.HandlerFunc {
	if maxFileSize <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limit := maxFileSize + MultipartOverhead
	message := fmt.Sprintf("Attachment exceeds the maximum size of %d bytes", maxFileSize)
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			abort(c, dto.ErrCodeFileTooLarge, message)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
