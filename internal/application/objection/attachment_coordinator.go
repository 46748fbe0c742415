package objection

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/objections/backend/internal/domain/objection"
	"github.com/objections/backend/internal/domain/shared"
	"github.com/objections/backend/internal/infrastructure/telemetry"
)

// AddAttachmentInput carries an uploaded file for an objection
type AddAttachmentInput struct {
	ObjectionID uuid.UUID
	Content     []byte
	FileName    string
	ContentType string
	Size        int64
	// LinkBaseURI is the attachments collection URI the self/download links hang off
	LinkBaseURI string
}

// CoordinatorOption configures an AttachmentCoordinator
type CoordinatorOption func(*AttachmentCoordinator)

// WithDeleteIdempotency records confirmed store deletions so a retried delete
// does not call the store again.
func WithDeleteIdempotency(store shared.IdempotencyStore, ttl time.Duration) CoordinatorOption {
	return func(c *AttachmentCoordinator) {
		c.idempotency = store
		c.idempotencyTTL = ttl
	}
}

// AttachmentCoordinator keeps the blob store and the objection's attachment list in agreement
type AttachmentCoordinator struct {
	repo           objection.Repository
	store          BlobStore
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	clock          shared.Clock
	logger         *zap.Logger
}

// NewAttachmentCoordinator creates a new AttachmentCoordinator
func NewAttachmentCoordinator(
	repo objection.Repository,
	store BlobStore,
	clock shared.Clock,
	logger *zap.Logger,
	opts ...CoordinatorOption,
) *AttachmentCoordinator {
	c := &AttachmentCoordinator{
		repo:           repo,
		store:          store,
		clock:          clock,
		logger:         logger,
		idempotencyTTL: shared.DefaultIdempotencyConfig().TTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add uploads the file, then records it on the objection.
//
// The upload happens first. If the objection cannot be loaded or saved afterwards
// the blob stays in the store unreferenced; that is logged, not rolled back.
func (c *AttachmentCoordinator) Add(ctx context.Context, in AddAttachmentInput) (_ string, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "attachment", "add")
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrObjectionID, in.ObjectionID.String(),
		telemetry.SpanAttrFileSize, in.Size,
	)

	result, err := c.store.Upload(ctx, UploadRequest{
		Content:     in.Content,
		FileName:    in.FileName,
		ContentType: in.ContentType,
		Size:        in.Size,
	})
	if err != nil {
		return "", asUpstream("blob upload", err)
	}
	if result == nil {
		return "", objection.NewUpstreamError("blob upload", 0, fmt.Errorf("store returned no result"))
	}
	if result.Status.IsError() {
		return "", objection.NewUpstreamError("blob upload", int(result.Status), nil)
	}
	if result.ID == "" {
		return "", objection.NewUpstreamError("blob upload", int(result.Status), fmt.Errorf("store returned no attachment id"))
	}

	o, err := c.repo.FindByID(ctx, in.ObjectionID)
	if err != nil {
		c.logOrphan(in.ObjectionID, result.ID, err)
		return "", asUpstream("objection load", err)
	}

	attachment, err := objection.NewAttachment(result.ID, in.FileName, in.Size, in.ContentType, in.LinkBaseURI)
	if err != nil {
		c.logOrphan(in.ObjectionID, result.ID, err)
		return "", err
	}
	if err := o.AddAttachment(attachment); err != nil {
		c.logOrphan(in.ObjectionID, result.ID, err)
		return "", err
	}
	o.Touch(c.clock.Now())

	if err := c.repo.Save(ctx, o); err != nil {
		c.logOrphan(in.ObjectionID, result.ID, err)
		return "", asUpstream("objection save", err)
	}

	c.logger.Info("attachment added",
		zap.String("objection_id", in.ObjectionID.String()),
		zap.String("attachment_id", result.ID),
		zap.String("company_number", o.CompanyNumber),
		zap.Int64("size", in.Size),
	)
	return result.ID, nil
}

// Delete removes the blob from the store and only then from the objection.
// If the store call fails or gives no definitive status the objection is left untouched.
func (c *AttachmentCoordinator) Delete(ctx context.Context, objectionID uuid.UUID, attachmentID string) (err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "attachment", "delete")
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrObjectionID, objectionID.String(),
		telemetry.SpanAttrAttachmentID, attachmentID,
	)

	o, err := c.repo.FindByID(ctx, objectionID)
	if err != nil {
		return asUpstream("objection load", err)
	}
	if !o.HasAttachment(attachmentID) {
		return objection.NewAttachmentNotFoundError(objectionID, attachmentID)
	}

	if err := c.deleteFromStore(ctx, objectionID, attachmentID); err != nil {
		return err
	}

	if _, err := o.RemoveAttachment(attachmentID); err != nil {
		return err
	}
	o.Touch(c.clock.Now())

	if err := c.repo.Save(ctx, o); err != nil {
		c.logger.Error("attachment deleted from store but objection not saved",
			zap.String("objection_id", objectionID.String()),
			zap.String("attachment_id", attachmentID),
			zap.Error(err),
		)
		return asUpstream("objection save", err)
	}

	c.logger.Info("attachment deleted",
		zap.String("objection_id", objectionID.String()),
		zap.String("attachment_id", attachmentID),
	)
	return nil
}

func (c *AttachmentCoordinator) deleteFromStore(ctx context.Context, objectionID uuid.UUID, attachmentID string) error {
	key := deleteKey(objectionID, attachmentID)

	if c.idempotency != nil {
		done, err := c.idempotency.IsProcessed(ctx, key)
		if err != nil {
			c.logger.Warn("idempotency check failed, calling store",
				zap.String("attachment_id", attachmentID),
				zap.Error(err),
			)
		} else if done {
			c.logger.Info("store deletion already confirmed, skipping store call",
				zap.String("objection_id", objectionID.String()),
				zap.String("attachment_id", attachmentID),
			)
			return nil
		}
	}

	if err := ctx.Err(); err != nil {
		return objection.NewUpstreamError("blob delete", 0, err)
	}

	result, err := c.store.Delete(ctx, attachmentID)
	if err != nil {
		return asUpstream("blob delete", err)
	}
	if result == nil || !result.Status.IsDefinitive() {
		return objection.NewUpstreamError("blob delete", 0, fmt.Errorf("store returned no status"))
	}
	if result.Status.IsError() {
		return objection.NewUpstreamError("blob delete", int(result.Status), nil)
	}

	if c.idempotency != nil {
		if _, err := c.idempotency.MarkProcessed(ctx, key, c.idempotencyTTL); err != nil {
			c.logger.Warn("failed to record store deletion",
				zap.String("attachment_id", attachmentID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (c *AttachmentCoordinator) logOrphan(objectionID uuid.UUID, attachmentID string, err error) {
	c.logger.Warn("uploaded blob is not referenced by any objection",
		zap.String("objection_id", objectionID.String()),
		zap.String("attachment_id", attachmentID),
		zap.Error(err),
	)
}

func deleteKey(objectionID uuid.UUID, attachmentID string) string {
	return "attachment-delete:" + objectionID.String() + ":" + attachmentID
}
