// Package repository stores completed evaluations. PostgresRepository backs
// deployments with a database; MemoryRepository is used when none is
// configured and in tests.
package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// Evaluation statuses
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// EvaluationRecord is one stored evaluation. Profile and Result hold the JSON
// documents exactly as returned to the caller.
type EvaluationRecord struct {
	ID                      string          `db:"id" json:"id"`
	RequestID               string          `db:"request_id" json:"request_id,omitempty"`
	Country                 string          `db:"country" json:"country"`
	VisaType                string          `db:"visa_type" json:"visa_type"`
	Purpose                 string          `db:"purpose" json:"purpose,omitempty"`
	ApplicantName           string          `db:"applicant_name" json:"applicant_name,omitempty"`
	ApplicantEmail          string          `db:"applicant_email" json:"applicant_email,omitempty"`
	PartnerKey              string          `db:"partner_key" json:"partner_key,omitempty"`
	Documents               pq.StringArray  `db:"documents" json:"documents"`
	Profile                 json.RawMessage `db:"profile" json:"profile"`
	Result                  json.RawMessage `db:"result" json:"result"`
	Score                   int             `db:"score" json:"score"`
	NormalizedScore         float64         `db:"normalized_score" json:"normalized_score"`
	Confidence              int             `db:"confidence" json:"confidence"`
	IsPassing               bool            `db:"is_passing" json:"is_passing"`
	UsedDefaultRequirements bool            `db:"used_default_requirements" json:"used_default_requirements"`
	Status                  string          `db:"status" json:"status"`
	CreatedAt               time.Time       `db:"created_at" json:"created_at"`
}

// ListParams filters and pages List. Empty filters match everything.
type ListParams struct {
	Country    string
	VisaType   string
	PartnerKey string
	Page       int
	PerPage    int
}

func (p *ListParams) normalize() {
	if p.PerPage <= 0 {
		p.PerPage = 20
	}
	if p.Page <= 0 {
		p.Page = 1
	}
}

func (p ListParams) offset() int {
	return (p.Page - 1) * p.PerPage
}

// Repository is the persistence port of the evaluation service.
type Repository interface {
	Create(ctx context.Context, rec *EvaluationRecord) error
	GetByID(ctx context.Context, id string) (*EvaluationRecord, error)
	List(ctx context.Context, params ListParams) ([]*EvaluationRecord, int64, error)
}
