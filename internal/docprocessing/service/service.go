package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/visaeval/visaeval-backend/internal/docprocessing/domain"
	"github.com/visaeval/visaeval-backend/internal/docprocessing/processor"
	"github.com/visaeval/visaeval-backend/internal/docprocessing/storage"
	eligibility "github.com/visaeval/visaeval-backend/internal/eligibility/domain"
	"github.com/visaeval/visaeval-backend/pkg/database"
	"github.com/visaeval/visaeval-backend/pkg/errors"
	"github.com/visaeval/visaeval-backend/pkg/logger"
	"github.com/visaeval/visaeval-backend/pkg/messaging"
	"github.com/visaeval/visaeval-backend/pkg/metrics"
)

// AuditSchema creates the processing audit table. Rows record what was
// extracted and when the document bytes were discarded, never the content.
const AuditSchema = `
CREATE TABLE IF NOT EXISTS document_processing_audit (
	id                     UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	job_id                 TEXT NOT NULL,
	document_type          TEXT NOT NULL,
	processor              TEXT NOT NULL,
	consent_timestamp      TIMESTAMPTZ NOT NULL,
	partner_key            TEXT NOT NULL DEFAULT '',
	fields_extracted       TEXT[] NOT NULL DEFAULT '{}',
	processing_duration_ms BIGINT NOT NULL DEFAULT 0,
	document_deleted_at    TIMESTAMPTZ NOT NULL,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_document_processing_audit_job ON document_processing_audit (job_id);
`

// Service orchestrates document processing: dispatch to processors with
// fallback, keep the result in temp storage, discard the bytes.
type Service struct {
	registry  *processor.Registry
	storage   *storage.TempStorage
	db        *database.DB
	publisher messaging.EventPublisher
	log       *logger.Logger

	wg sync.WaitGroup
}

// NewService creates a new document processing service. db and publisher
// are optional.
func NewService(registry *processor.Registry, store *storage.TempStorage, db *database.DB, publisher messaging.EventPublisher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		registry:  registry,
		storage:   store,
		db:        db,
		publisher: publisher,
		log:       log.WithComponent("docprocessing"),
	}
}

// EnsureSchema creates the audit table when a database is configured.
func (s *Service) EnsureSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, AuditSchema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

// StartExtraction creates a new extraction job and processes the document asynchronously.
// Returns the job immediately so the caller can poll for results.
// The document bytes are zeroed once processing ends.
func (s *Service) StartExtraction(ctx context.Context, data []byte, docType domain.DocumentType, consentTimestamp time.Time, partnerKey string) (*domain.ExtractionJob, error) {
	if !docType.Valid() {
		storage.ZeroBytes(data)
		return nil, errors.BadRequest(fmt.Sprintf("unsupported document_type %q", docType))
	}
	if len(data) == 0 {
		return nil, errors.BadRequest("document is empty")
	}
	if consentTimestamp.IsZero() {
		storage.ZeroBytes(data)
		return nil, errors.BadRequest("consent_timestamp is required")
	}

	job := &domain.ExtractionJob{
		JobID:        storage.GenerateJobID(),
		DocumentType: docType,
		Status:       domain.StatusProcessing,
		CreatedAt:    time.Now().UTC(),
	}
	s.storage.StoreJob(job)

	processors := s.registry.FindProcessors(docType)
	if len(processors) == 0 {
		storage.ZeroBytes(data)
		s.fail(job.JobID, docType, "none", fmt.Sprintf("no processor available for document type: %s", docType))
		return s.storage.GetJob(job.JobID), nil
	}

	// Request cancellation must not stop processing, but correlation values stay.
	bgCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.process(bgCtx, job.JobID, data, docType, processors, consentTimestamp, partnerKey)
	}()

	return job, nil
}

// Wait blocks until every in-flight extraction has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) process(ctx context.Context, jobID string, data []byte, docType domain.DocumentType, processors []processor.Processor, consentTimestamp time.Time, partnerKey string) {
	start := time.Now()

	// Try processors in order; if one fails, fall through to the next
	var result *domain.ExtractionResult
	var lastErr error
	for _, proc := range processors {
		result, lastErr = proc.Process(ctx, data, docType)
		if lastErr == nil {
			break
		}
		s.log.Warn().Err(lastErr).
			Str("job_id", jobID).
			Str("processor", proc.Name()).
			Str("doc_type", string(docType)).
			Msg("processor failed, trying next")
	}

	storage.ZeroBytes(data)
	deletedAt := time.Now().UTC()
	metrics.ExtractionDuration.WithLabelValues(string(docType)).Observe(time.Since(start).Seconds())

	if lastErr != nil {
		s.fail(jobID, docType, processors[len(processors)-1].Name(), lastErr.Error())
		s.publish(ctx, jobID, docType, "", domain.StatusFailed, 0)
		return
	}

	s.storage.UpdateJob(jobID, func(j *domain.ExtractionJob) {
		j.Status = domain.StatusCompleted
		j.Result = result
		j.CompletedAt = &deletedAt
	})
	metrics.ExtractionJobs.WithLabelValues(string(docType), result.Processor, string(domain.StatusCompleted)).Inc()

	s.writeAuditLog(ctx, jobID, docType, consentTimestamp, partnerKey, result, deletedAt)
	s.publish(ctx, jobID, docType, result.Processor, domain.StatusCompleted, result.Confidence)

	s.log.Info().
		Str("job_id", jobID).
		Str("processor", result.Processor).
		Int("fields_extracted", len(result.Fields)).
		Int64("duration_ms", result.ProcessingTimeMs).
		Msg("document extraction completed")
}

func (s *Service) fail(jobID string, docType domain.DocumentType, processorName, reason string) {
	now := time.Now().UTC()
	s.storage.UpdateJob(jobID, func(j *domain.ExtractionJob) {
		j.Status = domain.StatusFailed
		j.Error = reason
		j.CompletedAt = &now
	})
	metrics.ExtractionJobs.WithLabelValues(string(docType), processorName, string(domain.StatusFailed)).Inc()
	s.log.Error().Str("job_id", jobID).Str("doc_type", string(docType)).Str("reason", reason).Msg("document extraction failed")
}

func (s *Service) publish(ctx context.Context, jobID string, docType domain.DocumentType, processorName string, status domain.ExtractionStatus, confidence float64) {
	if s.publisher == nil {
		return
	}
	event := messaging.DocumentExtractedEvent{
		JobID:        jobID,
		DocumentType: string(docType),
		Processor:    processorName,
		Status:       string(status),
		Success:      status == domain.StatusCompleted,
		Confidence:   confidence,
	}
	if err := s.publisher.Publish(ctx, messaging.EventDocumentExtracted, event); err != nil {
		s.log.Warn().Err(err).Str("job_id", jobID).Msg("failed to publish extraction event")
	}
}

// GetJob retrieves an extraction job by ID
func (s *Service) GetJob(jobID string) (*domain.ExtractionJob, error) {
	job := s.storage.GetJob(jobID)
	if job == nil {
		return nil, errors.NotFound("extraction job")
	}
	return job, nil
}

// BuildExtraction assembles completed jobs into the per-document extraction
// the profile normalizer reads. jobIDs maps a document type to its job.
func (s *Service) BuildExtraction(jobIDs map[string]string) (eligibility.RawExtraction, error) {
	var raw eligibility.RawExtraction
	for kind, jobID := range jobIDs {
		docType := domain.DocumentType(kind)
		if !docType.Valid() {
			return raw, errors.BadRequest(fmt.Sprintf("unsupported document type %q in document_job_ids", kind))
		}
		job := s.storage.GetJob(jobID)
		if job == nil {
			return raw, errors.NotFound(fmt.Sprintf("extraction job %s", jobID))
		}
		if job.DocumentType != docType {
			return raw, errors.BadRequest(fmt.Sprintf("job %s holds a %s, not a %s", jobID, job.DocumentType, docType))
		}

		switch job.Status {
		case domain.StatusCompleted:
		case domain.StatusFailed:
			// A failed job is a submitted document whose extraction did not succeed.
			if err := setDocument(&raw, docType, json.RawMessage(`{"extraction_success":false}`)); err != nil {
				return raw, err
			}
			continue
		default:
			return raw, errors.Conflict(fmt.Sprintf("extraction job %s is still %s", jobID, job.Status))
		}

		if err := setDocument(&raw, docType, job.Result.Document); err != nil {
			return raw, err
		}
	}
	return raw, nil
}

func setDocument(raw *eligibility.RawExtraction, docType domain.DocumentType, doc json.RawMessage) error {
	var target interface{}
	switch docType {
	case domain.DocumentTypeResume:
		raw.Resume = &eligibility.ResumeDoc{}
		target = raw.Resume
	case domain.DocumentTypeDegree:
		raw.Degree = &eligibility.DegreeDoc{}
		target = raw.Degree
	case domain.DocumentTypeJobOffer:
		raw.JobOffer = &eligibility.JobOfferDoc{}
		target = raw.JobOffer
	case domain.DocumentTypeSalaryProof:
		raw.SalaryProof = &eligibility.SalaryProofDoc{}
		target = raw.SalaryProof
	case domain.DocumentTypeLanguageCert:
		raw.LanguageCert = &eligibility.LanguageCertDoc{}
		target = raw.LanguageCert
	case domain.DocumentTypePassport:
		raw.Passport = &eligibility.PassportDoc{}
		target = raw.Passport
	case domain.DocumentTypeBankStatement:
		raw.BankStatement = &eligibility.BankStatementDoc{}
		target = raw.BankStatement
	}
	if err := json.Unmarshal(doc, target); err != nil {
		return errors.Internal(fmt.Sprintf("decode %s document: %v", docType, err))
	}
	return nil
}

// writeAuditLog records the processing event when a database is configured.
func (s *Service) writeAuditLog(ctx context.Context, jobID string, docType domain.DocumentType, consentTimestamp time.Time, partnerKey string, result *domain.ExtractionResult, deletedAt time.Time) {
	if s.db == nil {
		return
	}

	fieldKeys := make([]string, len(result.Fields))
	for i, f := range result.Fields {
		fieldKeys[i] = f.Key
	}

	query := `INSERT INTO document_processing_audit
		(job_id, document_type, processor, consent_timestamp, partner_key, fields_extracted, processing_duration_ms, document_deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.db.ExecContext(ctx, query,
		jobID,
		string(docType),
		result.Processor,
		consentTimestamp,
		partnerKey,
		pq.Array(fieldKeys),
		result.ProcessingTimeMs,
		deletedAt,
	)
	if err != nil {
		s.log.Error().Err(err).Str("job_id", jobID).Msg("failed to write document processing audit log")
	}
}

// AuditEntries lists the audit rows of a job, oldest first.
func (s *Service) AuditEntries(ctx context.Context, jobID string) ([]domain.ProcessingAuditEntry, error) {
	if s.db == nil {
		return nil, errors.Unavailable("audit log requires a database")
	}
	var entries []domain.ProcessingAuditEntry
	query := `SELECT id, job_id, document_type, processor, consent_timestamp, partner_key,
		fields_extracted, processing_duration_ms, document_deleted_at, created_at
		FROM document_processing_audit WHERE job_id = $1 ORDER BY created_at`
	if err := s.db.SelectContext(ctx, &entries, query, jobID); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
