// Package storage provides blob store implementations for attachment content.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	objectionapp "github.com/objections/backend/internal/application/objection"
	infraconfig "github.com/objections/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// DefaultKeyPrefix is prepended to every object key
const DefaultKeyPrefix = "strike-off-objections/"

// s3API is the subset of the S3 client used by S3BlobStore
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3BlobStore stores attachment content in an S3-compatible bucket.
// Blob ids are generated here; the object key is the prefix plus the id.
type S3BlobStore struct {
	client    s3API
	bucket    string
	keyPrefix string
	logger    *zap.Logger
}

// S3BlobStoreOption is a functional option for configuring S3BlobStore
type S3BlobStoreOption func(*S3BlobStore)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3BlobStoreOption {
	return func(s *S3BlobStore) {
		s.logger = logger
	}
}

// WithKeyPrefix overrides DefaultKeyPrefix
func WithKeyPrefix(prefix string) S3BlobStoreOption {
	return func(s *S3BlobStore) {
		s.keyPrefix = prefix
	}
}

// NewS3BlobStore creates an S3BlobStore from configuration
func NewS3BlobStore(ctx context.Context, cfg *infraconfig.StorageConfig, opts ...S3BlobStoreOption) (*S3BlobStore, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("storage access key and secret key are required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			endpoint := cfg.Endpoint
			if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
				endpoint = "https://" + endpoint
			}
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return newS3BlobStore(client, cfg.Bucket, opts...), nil
}

func newS3BlobStore(client s3API, bucket string, opts ...S3BlobStoreOption) *S3BlobStore {
	s := &S3BlobStore{
		client:    client,
		bucket:    bucket,
		keyPrefix: DefaultKeyPrefix,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload puts the content under a fresh id
func (s *S3BlobStore) Upload(ctx context.Context, req objectionapp.UploadRequest) (*objectionapp.UploadResult, error) {
	id := uuid.New().String()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(id)),
		Body:          bytes.NewReader(req.Content),
		ContentType:   aws.String(req.ContentType),
		ContentLength: aws.Int64(int64(len(req.Content))),
		Metadata:      map[string]string{"filename": req.FileName},
	})
	if err != nil {
		if status, ok := responseStatus(err); ok {
			s.logger.Warn("s3 upload rejected", zap.Int("status", status), zap.Error(err))
			return &objectionapp.UploadResult{Status: objectionapp.StoreStatus(status)}, nil
		}
		return nil, fmt.Errorf("failed to upload object: %w", err)
	}

	s.logger.Debug("uploaded attachment blob", zap.String("attachment_id", id), zap.Int64("size", req.Size))
	return &objectionapp.UploadResult{ID: id, Status: http.StatusCreated}, nil
}

// Delete removes the object for id
func (s *S3BlobStore) Delete(ctx context.Context, id string) (*objectionapp.DeleteResult, error) {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		if status, ok := responseStatus(err); ok {
			return &objectionapp.DeleteResult{Status: objectionapp.StoreStatus(status)}, nil
		}
		return nil, fmt.Errorf("failed to delete object: %w", err)
	}
	return &objectionapp.DeleteResult{Status: http.StatusNoContent}, nil
}

// Download opens the object for id
func (s *S3BlobStore) Download(ctx context.Context, id string) (*objectionapp.DownloadResult, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return &objectionapp.DownloadResult{Status: http.StatusNotFound}, nil
		}
		if status, ok := responseStatus(err); ok {
			return &objectionapp.DownloadResult{Status: objectionapp.StoreStatus(status)}, nil
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}

	return &objectionapp.DownloadResult{
		Body:          out.Body,
		ContentType:   aws.ToString(out.ContentType),
		ContentLength: aws.ToInt64(out.ContentLength),
		Status:        http.StatusOK,
	}, nil
}

func (s *S3BlobStore) key(id string) string {
	return s.keyPrefix + id
}

// responseStatus extracts the HTTP status of a failed S3 call, if the service answered
func responseStatus(err error) (int, bool) {
	var re *awshttp.ResponseError
	if errors.As(err, &re) && re.HTTPStatusCode() != 0 {
		return re.HTTPStatusCode(), true
	}
	return 0, false
}

// Ensure S3BlobStore implements BlobStore
var _ objectionapp.BlobStore = (*S3BlobStore)(nil)
