package objection

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/objections/backend/internal/domain/objection"
	"github.com/objections/backend/internal/domain/shared"
	"github.com/objections/backend/internal/infrastructure/telemetry"
)

// CreateObjectionInput carries what is needed to open an objection
type CreateObjectionInput struct {
	CompanyNumber string
	RequestID     string
	CreatedBy     objection.CreatedBy
}

// Download is an attachment's metadata together with its content stream
type Download struct {
	Attachment objection.Attachment
	*DownloadResult
}

// ServiceOption configures an ObjectionService
type ServiceOption func(*ObjectionService)

// WithEligibilityRule replaces the default always-OPEN rule
func WithEligibilityRule(rule EligibilityRule) ServiceOption {
	return func(s *ObjectionService) {
		s.rule = rule
	}
}

// ObjectionService is the entry point for every objection use case
type ObjectionService struct {
	repo        objection.Repository
	coordinator *AttachmentCoordinator
	store       BlobStore
	eligibility EligibilityLookup
	rule        EligibilityRule
	processor   SubmissionProcessor
	clock       shared.Clock
	logger      *zap.Logger
}

// NewObjectionService creates a new ObjectionService
func NewObjectionService(
	repo objection.Repository,
	coordinator *AttachmentCoordinator,
	store BlobStore,
	eligibility EligibilityLookup,
	processor SubmissionProcessor,
	clock shared.Clock,
	logger *zap.Logger,
	opts ...ServiceOption,
) *ObjectionService {
	s := &ObjectionService{
		repo:        repo,
		coordinator: coordinator,
		store:       store,
		eligibility: eligibility,
		rule:        AlwaysOpen,
		processor:   processor,
		clock:       clock,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateObjection opens a new objection with the status the eligibility rule decides
func (s *ObjectionService) CreateObjection(ctx context.Context, in CreateObjectionInput) (_ *objection.Objection, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "objection", "create")
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyNumber, in.CompanyNumber,
		telemetry.SpanAttrRequestID, in.RequestID,
	)

	log := s.logger.With(
		zap.String("company_number", in.CompanyNumber),
		zap.String("request_id", in.RequestID),
	)

	actionCode, err := s.eligibility.GetActionCode(ctx, in.CompanyNumber)
	if err != nil {
		return nil, asUpstream("eligibility lookup", err)
	}
	log.Debug("company action code", zap.Int64("action_code", actionCode))

	o, err := objection.NewObjection(objection.NewObjectionParams{
		CompanyNumber: in.CompanyNumber,
		CreatedBy:     in.CreatedBy,
		RequestID:     in.RequestID,
		Now:           s.clock.Now(),
		Status:        s.rule(actionCode),
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, o); err != nil {
		return nil, asUpstream("objection save", err)
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrObjectionID, o.ID.String(),
		telemetry.SpanAttrStatus, o.Status.String(),
	)
	log.Info("objection created",
		zap.String("objection_id", o.ID.String()),
		zap.String("status", o.Status.String()),
	)
	return o, nil
}

// PatchObjection applies a partial update. A successful OPEN → SUBMITTED change
// triggers the submission processor after the objection is saved; a processor
// failure is logged and does not undo the save.
func (s *ObjectionService) PatchObjection(ctx context.Context, id uuid.UUID, patch objection.Patch, requestID string) (err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "objection", "patch")
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrObjectionID, id.String(),
		telemetry.SpanAttrRequestID, requestID,
	)

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return asUpstream("objection load", err)
	}

	merged, err := objection.Merge(existing, patch)
	if err != nil {
		return err
	}
	merged.Touch(s.clock.Now())

	if err := s.repo.Save(ctx, merged); err != nil {
		return asUpstream("objection save", err)
	}

	log := s.logger.With(
		zap.String("objection_id", id.String()),
		zap.String("company_number", merged.CompanyNumber),
		zap.String("request_id", requestID),
	)
	log.Info("objection patched", zap.String("status", merged.Status.String()))

	if objection.IsSubmission(existing.Status, merged.Status) {
		if err := s.processor.Process(ctx, merged, requestID); err != nil {
			log.Error("submission processing failed", zap.Error(err))
		}
	}
	return nil
}

// GetObjection returns the persisted objection
func (s *ObjectionService) GetObjection(ctx context.Context, id uuid.UUID) (*objection.Objection, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, asUpstream("objection load", err)
	}
	return o, nil
}

// ListObjections returns the objections filed against a company by the given user
func (s *ObjectionService) ListObjections(ctx context.Context, companyNumber, email string) ([]objection.Objection, error) {
	all, err := s.repo.FindByCompanyNumber(ctx, companyNumber)
	if err != nil {
		return nil, asUpstream("objection list", err)
	}
	owned := make([]objection.Objection, 0, len(all))
	for i := range all {
		if all[i].IsCreatedBy(email) {
			owned = append(owned, all[i])
		}
	}
	return owned, nil
}

// GetAttachments returns the objection's attachments in insertion order
func (s *ObjectionService) GetAttachments(ctx context.Context, id uuid.UUID) ([]objection.Attachment, error) {
	o, err := s.GetObjection(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.Attachments, nil
}

// GetAttachment returns one attachment, or an AttachmentNotFoundError
func (s *ObjectionService) GetAttachment(ctx context.Context, id uuid.UUID, attachmentID string) (objection.Attachment, error) {
	o, err := s.GetObjection(ctx, id)
	if err != nil {
		return objection.Attachment{}, err
	}
	return o.Attachment(attachmentID)
}

// AddAttachment uploads a file and records it on the objection
func (s *ObjectionService) AddAttachment(ctx context.Context, in AddAttachmentInput) (string, error) {
	return s.coordinator.Add(ctx, in)
}

// DeleteAttachment removes an attachment from the store and the objection
func (s *ObjectionService) DeleteAttachment(ctx context.Context, id uuid.UUID, attachmentID string) error {
	return s.coordinator.Delete(ctx, id, attachmentID)
}

// DownloadAttachment opens the stored content of an attachment on the objection
func (s *ObjectionService) DownloadAttachment(ctx context.Context, id uuid.UUID, attachmentID string) (*Download, error) {
	attachment, err := s.GetAttachment(ctx, id, attachmentID)
	if err != nil {
		return nil, err
	}

	result, err := s.store.Download(ctx, attachmentID)
	if err != nil {
		return nil, asUpstream("blob download", err)
	}
	if result == nil || !result.Status.IsDefinitive() || result.Status.IsError() {
		status := 0
		if result != nil {
			status = int(result.Status)
			if result.Body != nil {
				_ = result.Body.Close()
			}
		}
		return nil, objection.NewUpstreamError("blob download", status, nil)
	}
	if result.ContentType == "" {
		result.ContentType = attachment.ContentType
	}
	return &Download{Attachment: attachment, DownloadResult: result}, nil
}
