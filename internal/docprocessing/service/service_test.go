package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visaeval/visaeval-backend/internal/docprocessing/domain"
	"github.com/visaeval/visaeval-backend/internal/docprocessing/processor"
	"github.com/visaeval/visaeval-backend/internal/docprocessing/service"
	"github.com/visaeval/visaeval-backend/internal/docprocessing/storage"
	"github.com/visaeval/visaeval-backend/pkg/database"
	"github.com/visaeval/visaeval-backend/pkg/errors"
	"github.com/visaeval/visaeval-backend/pkg/messaging"
	"github.com/visaeval/visaeval-backend/pkg/testutil"
)

// =============================================================================
// Test doubles
// =============================================================================

type stubProcessor struct {
	name     string
	types    []domain.DocumentType
	document string
	err      error
	seen     []byte
}

func (s *stubProcessor) Name() string { return s.name }

func (s *stubProcessor) CanProcess(docType domain.DocumentType) bool {
	for _, t := range s.types {
		if t == docType {
			return true
		}
	}
	return false
}

func (s *stubProcessor) Process(_ context.Context, data []byte, docType domain.DocumentType) (*domain.ExtractionResult, error) {
	s.seen = append([]byte(nil), data...)
	if s.err != nil {
		return nil, s.err
	}
	return &domain.ExtractionResult{
		DocumentType: docType,
		Processor:    s.name,
		Document:     json.RawMessage(s.document),
		Fields:       []domain.ExtractionField{{Key: "holder.nationality", Value: "IND", Confidence: 0.9, Source: docType}},
		Confidence:   0.9,
	}, nil
}

const passportDoc = `{"extraction_success":true,"confidence":0.9,"holder":{"surname":"SHARMA","nationality":"IND","date_of_birth":"1992-03-14"}}`

func newService(t *testing.T, db *database.DB, procs ...processor.Processor) (*service.Service, *testutil.MockPublisher) {
	t.Helper()
	store := storage.NewTempStorage(time.Hour, time.Minute)
	t.Cleanup(store.Close)
	pub := testutil.NewMockPublisher()
	return service.NewService(processor.NewRegistry(procs...), store, db, pub, nil), pub
}

var consent = time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)

// =============================================================================
// StartExtraction
// =============================================================================

func TestStartExtraction_Completes(t *testing.T) {
	proc := &stubProcessor{name: "mrz", types: []domain.DocumentType{domain.DocumentTypePassport}, document: passportDoc}
	svc, pub := newService(t, nil, proc)

	data := []byte("P<INDSHARMA<<PRIYA")
	job, err := svc.StartExtraction(context.Background(), data, domain.DocumentTypePassport, consent, "partner-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, job.Status)
	assert.Equal(t, domain.DocumentTypePassport, job.DocumentType)

	svc.Wait()

	assert.Equal(t, "P<INDSHARMA<<PRIYA", string(proc.seen))
	assert.Equal(t, make([]byte, len(data)), data, "document bytes must be zeroed")

	got, err := svc.GetJob(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, "mrz", got.Result.Processor)
	assert.NotNil(t, got.CompletedAt)

	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, messaging.EventDocumentExtracted, events[0].Type)
	payload := events[0].Payload.(messaging.DocumentExtractedEvent)
	assert.True(t, payload.Success)
	assert.Equal(t, job.JobID, payload.JobID)
}

func TestStartExtraction_FallsBackToNextProcessor(t *testing.T) {
	first := &stubProcessor{name: "mrz", types: []domain.DocumentType{domain.DocumentTypePassport}, err: fmt.Errorf("no machine readable zone")}
	second := &stubProcessor{name: "llm", types: domain.DocumentTypes, document: passportDoc}
	svc, _ := newService(t, nil, first, second)

	job, err := svc.StartExtraction(context.Background(), []byte("passport scan text"), domain.DocumentTypePassport, consent, "")
	require.NoError(t, err)
	svc.Wait()

	got, err := svc.GetJob(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, "llm", got.Result.Processor)
}

func TestStartExtraction_AllProcessorsFail(t *testing.T) {
	proc := &stubProcessor{name: "llm", types: domain.DocumentTypes, err: fmt.Errorf("llm: api returned 500")}
	svc, pub := newService(t, nil, proc)

	job, err := svc.StartExtraction(context.Background(), []byte("resume"), domain.DocumentTypeResume, consent, "")
	require.NoError(t, err)
	svc.Wait()

	got, err := svc.GetJob(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.Equal(t, "llm: api returned 500", got.Error)

	events := pub.Events()
	require.Len(t, events, 1)
	assert.False(t, events[0].Payload.(messaging.DocumentExtractedEvent).Success)
}

func TestStartExtraction_NoProcessor(t *testing.T) {
	svc, _ := newService(t, nil)

	data := []byte("statement")
	job, err := svc.StartExtraction(context.Background(), data, domain.DocumentTypeBankStatement, consent, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "no processor available")
	assert.Equal(t, make([]byte, len(data)), data)
}

func TestStartExtraction_RejectsBadInput(t *testing.T) {
	svc, _ := newService(t, nil)

	tests := []struct {
		name    string
		data    []byte
		docType domain.DocumentType
		consent time.Time
	}{
		{"unknown type", []byte("x"), domain.DocumentType("tax_return"), consent},
		{"empty document", nil, domain.DocumentTypeResume, consent},
		{"missing consent", []byte("x"), domain.DocumentTypeResume, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.StartExtraction(context.Background(), tt.data, tt.docType, tt.consent, "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrBadRequest))
		})
	}
}

func TestStartExtraction_WritesAuditRow(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectExec("INSERT INTO document_processing_audit").
		WithArgs(testutil.AnyUUID{}, "passport", "mrz", consent, "partner-1", sqlmock.AnyArg(), int64(0), testutil.AnyTime{}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	proc := &stubProcessor{name: "mrz", types: []domain.DocumentType{domain.DocumentTypePassport}, document: passportDoc}
	svc, _ := newService(t, database.Wrap(mockDB.DB, nil), proc)

	_, err := svc.StartExtraction(context.Background(), []byte("mrz"), domain.DocumentTypePassport, consent, "partner-1")
	require.NoError(t, err)
	svc.Wait()

	mockDB.ExpectationsWereMet(t)
}

func TestGetJob_NotFound(t *testing.T) {
	svc, _ := newService(t, nil)
	_, err := svc.GetJob("missing")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

// =============================================================================
// BuildExtraction
// =============================================================================

func TestBuildExtraction(t *testing.T) {
	passport := &stubProcessor{name: "mrz", types: []domain.DocumentType{domain.DocumentTypePassport}, document: passportDoc}
	failing := &stubProcessor{name: "llm", types: []domain.DocumentType{domain.DocumentTypeResume}, err: fmt.Errorf("unreadable")}
	svc, _ := newService(t, nil, passport, failing)

	pj, err := svc.StartExtraction(context.Background(), []byte("p"), domain.DocumentTypePassport, consent, "")
	require.NoError(t, err)
	rj, err := svc.StartExtraction(context.Background(), []byte("r"), domain.DocumentTypeResume, consent, "")
	require.NoError(t, err)
	svc.Wait()

	raw, err := svc.BuildExtraction(map[string]string{
		"passport": pj.JobID,
		"resume":   rj.JobID,
	})
	require.NoError(t, err)

	require.NotNil(t, raw.Passport)
	assert.True(t, raw.Passport.Succeeded())
	assert.Equal(t, "IND", raw.Passport.Holder.Nationality)
	assert.Equal(t, "1992-03-14", raw.Passport.Holder.DateOfBirth)

	require.NotNil(t, raw.Resume)
	assert.False(t, raw.Resume.Succeeded())
	assert.Nil(t, raw.Degree)
}

func TestBuildExtraction_Errors(t *testing.T) {
	passport := &stubProcessor{name: "mrz", types: []domain.DocumentType{domain.DocumentTypePassport}, document: passportDoc}
	svc, _ := newService(t, nil, passport)

	pj, err := svc.StartExtraction(context.Background(), []byte("p"), domain.DocumentTypePassport, consent, "")
	require.NoError(t, err)
	svc.Wait()

	tests := []struct {
		name   string
		jobIDs map[string]string
		want   error
	}{
		{"unknown kind", map[string]string{"payslip": pj.JobID}, errors.ErrBadRequest},
		{"unknown job", map[string]string{"passport": "missing"}, errors.ErrNotFound},
		{"kind mismatch", map[string]string{"degree": pj.JobID}, errors.ErrBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.BuildExtraction(tt.jobIDs)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want))
		})
	}
}
