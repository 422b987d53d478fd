package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/visaeval/visaeval-backend/internal/eligibility/domain"
	"github.com/visaeval/visaeval-backend/internal/eligibility/repository"
	"github.com/visaeval/visaeval-backend/internal/eligibility/service"
	"github.com/visaeval/visaeval-backend/pkg/errors"
	"github.com/visaeval/visaeval-backend/pkg/httputil"
	"github.com/visaeval/visaeval-backend/pkg/logger"
)

// EligibilityHandler handles catalog, scoring and evaluation endpoints
type EligibilityHandler struct {
	service *service.EligibilityService
	logger  *logger.Logger
}

// NewEligibilityHandler creates a new eligibility handler
func NewEligibilityHandler(svc *service.EligibilityService, log *logger.Logger) *EligibilityHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &EligibilityHandler{
		service: svc,
		logger:  log,
	}
}

// Routes mounts the eligibility endpoints on r.
func (h *EligibilityHandler) Routes(r chi.Router) {
	r.Get("/countries", h.Countries)
	r.Get("/countries/{country}/visas", h.Visas)
	r.Get("/requirements/{country}/{visaType}", h.Requirements)
	r.Get("/suggestions", h.Suggestions)
	r.Post("/suggestions", h.ScoredSuggestions)
	r.Post("/normalize", h.Normalize)
	r.Post("/evaluate", h.Evaluate)
	r.Post("/compare", h.Compare)
	r.Get("/evaluations", h.ListEvaluations)
	r.Get("/evaluations/{id}", h.GetEvaluation)
}

// ApplicantRequest is the applicant part shared by evaluate, compare and
// scored suggestions. Exactly one form is used: profile, then extraction,
// then document_job_ids.
type ApplicantRequest struct {
	Profile        *domain.ApplicantProfile `json:"profile,omitempty"`
	Extraction     *domain.RawExtraction    `json:"extraction,omitempty"`
	DocumentJobIDs map[string]string        `json:"document_job_ids,omitempty" validate:"omitempty,dive,keys,required,endkeys,required"`
	Documents      []string                 `json:"documents,omitempty" validate:"omitempty,dive,required"`
}

func (a ApplicantRequest) input() service.ApplicantInput {
	return service.ApplicantInput{
		Profile:        a.Profile,
		Extraction:     a.Extraction,
		DocumentJobIDs: a.DocumentJobIDs,
		Documents:      a.Documents,
	}
}

// EvaluateRequest is the request structure for POST /evaluate
type EvaluateRequest struct {
	ApplicantRequest
	Country        string `json:"country" validate:"required"`
	VisaType       string `json:"visa_type" validate:"required"`
	Purpose        string `json:"purpose,omitempty"`
	ApplicantName  string `json:"applicant_name,omitempty" validate:"omitempty,max=200"`
	ApplicantEmail string `json:"applicant_email,omitempty" validate:"omitempty,email"`
}

// CompareRequest is the request structure for POST /compare
type CompareRequest struct {
	ApplicantRequest
	Countries []string `json:"countries,omitempty" validate:"omitempty,dive,required"`
}

// SuggestRequest is the request structure for POST /suggestions
type SuggestRequest struct {
	ApplicantRequest
	Country string `json:"country,omitempty"`
	Purpose string `json:"purpose" validate:"required"`
}

// Countries lists catalog countries with their visa types
func (h *EligibilityHandler) Countries(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, h.service.Countries())
}

// Visas lists the visa definitions of one country
func (h *EligibilityHandler) Visas(w http.ResponseWriter, r *http.Request) {
	visas, err := h.service.Visas(chi.URLParam(r, "country"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, visas)
}

// Requirements returns one visa definition
func (h *EligibilityHandler) Requirements(w http.ResponseWriter, r *http.Request) {
	def, err := h.service.Requirements(chi.URLParam(r, "country"), chi.URLParam(r, "visaType"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, def)
}

// Suggestions lists visas for a purpose in catalog order
func (h *EligibilityHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	suggestions, err := h.service.Suggest(q.Get("country"), q.Get("purpose"), nil)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, suggestions)
}

// ScoredSuggestions lists visas for a purpose ranked for the applicant
func (h *EligibilityHandler) ScoredSuggestions(w http.ResponseWriter, r *http.Request) {
	var req SuggestRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	in := req.input()
	suggestions, err := h.service.Suggest(req.Country, req.Purpose, &in)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, suggestions)
}

// Normalize derives a profile from a raw extraction
func (h *EligibilityHandler) Normalize(w http.ResponseWriter, r *http.Request) {
	var raw domain.RawExtraction
	if err := httputil.DecodeJSON(r, &raw); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, h.service.Normalize(raw))
}

// Evaluate scores and stores one evaluation
func (h *EligibilityHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	eval, err := h.service.Evaluate(r.Context(), service.EvaluateInput{
		ApplicantInput: req.input(),
		RequestID:      httputil.GetRequestID(r.Context()),
		Country:        req.Country,
		VisaType:       req.VisaType,
		Purpose:        req.Purpose,
		PartnerKey:     httputil.GetPartnerKey(r.Context()),
		ApplicantName:  req.ApplicantName,
		ApplicantEmail: req.ApplicantEmail,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.Created(w, eval)
}

// Compare ranks the applicant across catalog visas
func (h *EligibilityHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	cmp, err := h.service.Compare(r.Context(), service.CompareInput{
		ApplicantInput: req.input(),
		Countries:      req.Countries,
		PartnerKey:     httputil.GetPartnerKey(r.Context()),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, cmp)
}

// ListEvaluations lists stored evaluations, scoped to the caller's partner key
func (h *EligibilityHandler) ListEvaluations(w http.ResponseWriter, r *http.Request) {
	page, perPage := httputil.Pagination(r)
	q := r.URL.Query()

	records, total, err := h.service.List(r.Context(), repository.ListParams{
		Country:    strings.TrimSpace(q.Get("country")),
		VisaType:   strings.TrimSpace(q.Get("visa_type")),
		PartnerKey: httputil.GetPartnerKey(r.Context()),
		Page:       page,
		PerPage:    perPage,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.JSONWithMeta(w, http.StatusOK, records, httputil.NewMeta(page, perPage, total))
}

// GetEvaluation returns one stored evaluation
func (h *EligibilityHandler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, rec)
}

// fail renders err and logs anything that surfaces as a server-side failure.
func (h *EligibilityHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *errors.AppError
	if !errors.As(err, &appErr) || appErr.StatusCode >= http.StatusInternalServerError {
		httputil.RequestLogger(h.logger, r).WithError(err).Error().
			Str("path", r.URL.Path).
			Msg("eligibility request failed")
	}
	httputil.Error(w, err)
}
