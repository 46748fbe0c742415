package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	objectionapp "github.com/objections/backend/internal/application/objection"
	"go.uber.org/zap"
)

// APIKeyHeader carries the file-transfer API key
const APIKeyHeader = "x-api-key"

// FileTransferClient talks to the file-transfer API over HTTP.
// Non-2xx answers are reported through the result status, transport failures as errors.
type FileTransferClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewFileTransferClient creates a new file-transfer API client
func NewFileTransferClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *FileTransferClient {
	return &FileTransferClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type fileTransferUploadResponse struct {
	ID string `json:"id"`
}

// Upload posts the content as multipart field "file"
func (c *FileTransferClient) Upload(ctx context.Context, req objectionapp.UploadRequest) (*objectionapp.UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, req.FileName))
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload body: %w", err)
	}
	if _, err := part.Write(req.Content); err != nil {
		return nil, fmt.Errorf("failed to build upload body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload body: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, c.baseURL, &body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("file-transfer upload: %w", err)
	}
	defer resp.Body.Close()

	result := &objectionapp.UploadResult{Status: objectionapp.StoreStatus(resp.StatusCode)}
	if resp.StatusCode >= http.StatusBadRequest {
		c.logger.Warn("file-transfer upload rejected", zap.Int("status", resp.StatusCode))
		return result, nil
	}

	var decoded fileTransferUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	result.ID = decoded.ID
	return result, nil
}

// Delete removes the file with the given id
func (c *FileTransferClient) Delete(ctx context.Context, id string) (*objectionapp.DeleteResult, error) {
	httpReq, err := c.newRequest(ctx, http.MethodDelete, c.baseURL+"/"+id, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("file-transfer delete: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return &objectionapp.DeleteResult{Status: objectionapp.StoreStatus(resp.StatusCode)}, nil
}

// Download streams the file with the given id. The body is left open on success.
func (c *FileTransferClient) Download(ctx context.Context, id string) (*objectionapp.DownloadResult, error) {
	httpReq, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/"+id+"/download", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("file-transfer download: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		resp.Body.Close()
		return &objectionapp.DownloadResult{Status: objectionapp.StoreStatus(resp.StatusCode)}, nil
	}

	return &objectionapp.DownloadResult{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
		Status:        objectionapp.StoreStatus(resp.StatusCode),
	}, nil
}

func (c *FileTransferClient) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(APIKeyHeader, c.apiKey)
	return req, nil
}

// Ensure FileTransferClient implements BlobStore
var _ objectionapp.BlobStore = (*FileTransferClient)(nil)
