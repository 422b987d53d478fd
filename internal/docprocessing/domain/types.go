package domain

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// DocumentType represents the type of document being processed. The values
// match the document kinds visa definitions list as required or optional.
type DocumentType string

const (
	DocumentTypeResume        DocumentType = "resume"
	DocumentTypeDegree        DocumentType = "degree"
	DocumentTypeJobOffer      DocumentType = "job_offer"
	DocumentTypeSalaryProof   DocumentType = "salary_proof"
	DocumentTypeLanguageCert  DocumentType = "language_cert"
	DocumentTypePassport      DocumentType = "passport"
	DocumentTypeBankStatement DocumentType = "bank_statement"
)

// DocumentTypes lists every supported type.
var DocumentTypes = []DocumentType{
	DocumentTypeResume,
	DocumentTypeDegree,
	DocumentTypeJobOffer,
	DocumentTypeSalaryProof,
	DocumentTypeLanguageCert,
	DocumentTypePassport,
	DocumentTypeBankStatement,
}

func (t DocumentType) Valid() bool {
	for _, known := range DocumentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ExtractionStatus represents the processing state of an extraction job
type ExtractionStatus string

const (
	StatusPending    ExtractionStatus = "pending"
	StatusProcessing ExtractionStatus = "processing"
	StatusCompleted  ExtractionStatus = "completed"
	StatusFailed     ExtractionStatus = "failed"
)

// ExtractionField represents a single extracted field with confidence
type ExtractionField struct {
	Key        string       `json:"key"`
	Value      string       `json:"value"`
	Confidence float64      `json:"confidence"`
	Source     DocumentType `json:"source"`
}

// ExtractionResult is the outcome of processing one document. Document holds
// the structured JSON in the shape the profile normalizer reads for
// DocumentType, with extraction_success and confidence set.
type ExtractionResult struct {
	DocumentType     DocumentType      `json:"document_type"`
	Processor        string            `json:"processor"`
	Document         json.RawMessage   `json:"document"`
	Fields           []ExtractionField `json:"fields,omitempty"`
	Confidence       float64           `json:"confidence"`
	Warnings         []string          `json:"warnings,omitempty"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
}

// ExtractionJob represents an asynchronous extraction of one document
type ExtractionJob struct {
	JobID        string            `json:"job_id"`
	DocumentType DocumentType      `json:"document_type"`
	Status       ExtractionStatus  `json:"status"`
	Result       *ExtractionResult `json:"result,omitempty"`
	Error        string            `json:"error,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
}

// ProcessingAuditEntry records that a document was processed and when its
// bytes were discarded. Document content is never stored.
type ProcessingAuditEntry struct {
	ID                   string         `db:"id" json:"id"`
	JobID                string         `db:"job_id" json:"job_id"`
	DocumentType         string         `db:"document_type" json:"document_type"`
	Processor            string         `db:"processor" json:"processor"`
	ConsentTimestamp     time.Time      `db:"consent_timestamp" json:"consent_timestamp"`
	PartnerKey           string         `db:"partner_key" json:"partner_key,omitempty"`
	FieldsExtracted      pq.StringArray `db:"fields_extracted" json:"fields_extracted"`
	ProcessingDurationMs int64          `db:"processing_duration_ms" json:"processing_duration_ms"`
	DocumentDeletedAt    time.Time      `db:"document_deleted_at" json:"document_deleted_at"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
}
