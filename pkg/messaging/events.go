package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventEvaluationRequested = "eligibility.evaluation.requested"
	EventEvaluationCompleted = "eligibility.evaluation.completed"
	EventComparisonCompleted = "eligibility.comparison.completed"

	EventDocumentExtracted = "documents.extraction.completed"
)

// Exchange names
const (
	ExchangeEligibilityEvents = "eligibility.events"
	ExchangeDocumentEvents    = "document.events"
)

// Event is the envelope for every message on the bus.
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent marshals data into a fresh envelope.
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// EvaluationRequestedEvent asks the eligibility service to score an applicant
// asynchronously. Exactly one of Profile, Extraction or DocumentJobIDs is
// expected; Profile wins when several are present.
type EvaluationRequestedEvent struct {
	RequestID      string            `json:"request_id"`
	Country        string            `json:"country"`
	VisaType       string            `json:"visa_type"`
	Purpose        string            `json:"purpose,omitempty"`
	PartnerKey     string            `json:"partner_key,omitempty"`
	ApplicantName  string            `json:"applicant_name,omitempty"`
	ApplicantEmail string            `json:"applicant_email,omitempty"`
	Profile        json.RawMessage   `json:"profile,omitempty"`
	Extraction     json.RawMessage   `json:"extraction,omitempty"`
	DocumentJobIDs map[string]string `json:"document_job_ids,omitempty"`
}

// EvaluationCompletedEvent is published after an evaluation is stored.
type EvaluationCompletedEvent struct {
	EvaluationID            string   `json:"evaluation_id"`
	RequestID               string   `json:"request_id,omitempty"`
	PartnerKey              string   `json:"partner_key,omitempty"`
	Country                 string   `json:"country"`
	VisaType                string   `json:"visa_type"`
	Score                   int      `json:"score"`
	NormalizedScore         float64  `json:"normalized_score"`
	Confidence              int      `json:"confidence"`
	IsPassing               bool     `json:"is_passing"`
	UsedDefaultRequirements bool     `json:"used_default_requirements"`
	HardFails               []string `json:"hard_fails,omitempty"`
}

// ComparisonCompletedEvent summarises a cross-country comparison.
type ComparisonCompletedEvent struct {
	PartnerKey   string  `json:"partner_key,omitempty"`
	Evaluated    int     `json:"evaluated"`
	Skipped      int     `json:"skipped"`
	TopCountry   string  `json:"top_country,omitempty"`
	TopVisaType  string  `json:"top_visa_type,omitempty"`
	TopScore     float64 `json:"top_score,omitempty"`
	PassingCount int     `json:"passing_count"`
}

// DocumentExtractedEvent is published when an extraction job finishes.
type DocumentExtractedEvent struct {
	JobID        string  `json:"job_id"`
	DocumentType string  `json:"document_type"`
	Processor    string  `json:"processor,omitempty"`
	Status       string  `json:"status"`
	Success      bool    `json:"success"`
	Confidence   float64 `json:"confidence"`
}

func GenerateEventID() string {
	return uuid.New().String()
}
