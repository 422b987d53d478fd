package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/visaeval/visaeval-backend/internal/docprocessing/domain"
	"github.com/visaeval/visaeval-backend/internal/docprocessing/service"
	"github.com/visaeval/visaeval-backend/pkg/errors"
	"github.com/visaeval/visaeval-backend/pkg/httputil"
	"github.com/visaeval/visaeval-backend/pkg/logger"
)

const defaultMaxUpload = 10 << 20

// Handler handles HTTP requests for document extraction
type Handler struct {
	service   *service.Service
	maxUpload int64
	log       *logger.Logger
}

// NewHandler creates a new document extraction handler. maxUpload <= 0
// selects 10 MB.
func NewHandler(svc *service.Service, maxUpload int64, log *logger.Logger) *Handler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	return &Handler{
		service:   svc,
		maxUpload: maxUpload,
		log:       log,
	}
}

// Extract handles POST /documents/extract
// Accepts multipart form with:
// - file: the document (PDF or plain text)
// - document_type: resume, degree, job_offer, salary_proof, language_cert, passport or bank_statement
// - consent_timestamp: RFC 3339 timestamp of the applicant's consent
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		httputil.Error(w, errors.BadRequest("file too large or invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	docType := domain.DocumentType(r.FormValue("document_type"))
	if !docType.Valid() {
		httputil.Error(w, errors.Validation(map[string]string{
			"document_type": "must be one of resume, degree, job_offer, salary_proof, language_cert, passport, bank_statement",
		}))
		return
	}

	consentTimestamp, err := time.Parse(time.RFC3339, r.FormValue("consent_timestamp"))
	if err != nil {
		httputil.Error(w, errors.Validation(map[string]string{
			"consent_timestamp": "must be an RFC 3339 timestamp",
		}))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		httputil.Error(w, errors.BadRequest("missing file in request"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to read uploaded file")
		httputil.Error(w, errors.Internal("failed to read uploaded file"))
		return
	}

	// data is zeroed by the service once processed
	job, err := h.service.StartExtraction(r.Context(), data, docType, consentTimestamp, httputil.GetPartnerKey(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Accepted(w, job)
}

// GetResult handles GET /documents/extract/{jobId}
func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.GetJob(chi.URLParam(r, "jobId"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, job)
}

// GetAudit handles GET /documents/extract/{jobId}/audit
func (h *Handler) GetAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.AuditEntries(r.Context(), chi.URLParam(r, "jobId"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if entries == nil {
		entries = []domain.ProcessingAuditEntry{}
	}
	httputil.JSON(w, http.StatusOK, entries)
}
