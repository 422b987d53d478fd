package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/visaeval/visaeval-backend/internal/eligibility/catalog"
	"github.com/visaeval/visaeval-backend/internal/eligibility/comparator"
	"github.com/visaeval/visaeval-backend/internal/eligibility/domain"
	"github.com/visaeval/visaeval-backend/internal/eligibility/events"
	"github.com/visaeval/visaeval-backend/internal/eligibility/normalizer"
	"github.com/visaeval/visaeval-backend/internal/eligibility/repository"
	"github.com/visaeval/visaeval-backend/internal/eligibility/scoring"
	"github.com/visaeval/visaeval-backend/internal/travel"
	"github.com/visaeval/visaeval-backend/pkg/errors"
	"github.com/visaeval/visaeval-backend/pkg/logger"
	"github.com/visaeval/visaeval-backend/pkg/metrics"
)

// ExtractionProvider assembles finished document extraction jobs.
type ExtractionProvider interface {
	BuildExtraction(jobIDs map[string]string) (domain.RawExtraction, error)
}

// TravelLookup answers passport/destination entry rules.
type TravelLookup interface {
	Requirements(ctx context.Context, passport, destination string) (*travel.Requirement, error)
}

// EligibilityService handles evaluation business logic
type EligibilityService struct {
	catalog     *catalog.Catalog
	engine      *scoring.Engine
	comparator  *comparator.Comparator
	repo        repository.Repository
	publisher   *events.EligibilityEventPublisher
	extractions ExtractionProvider
	travel      TravelLookup
	logger      *logger.Logger
	now         func() time.Time
}

// NewEligibilityService creates a new eligibility service. publisher,
// extractions and travel may be nil.
func NewEligibilityService(
	cat *catalog.Catalog,
	repo repository.Repository,
	publisher *events.EligibilityEventPublisher,
	extractions ExtractionProvider,
	travelLookup TravelLookup,
	log *logger.Logger,
) *EligibilityService {
	if log == nil {
		log = logger.Nop()
	}
	engine := scoring.NewEngine(cat)
	return &EligibilityService{
		catalog:     cat,
		engine:      engine,
		comparator:  comparator.New(engine, cat),
		repo:        repo,
		publisher:   publisher,
		extractions: extractions,
		travel:      travelLookup,
		logger:      log.WithComponent("eligibility"),
		now:         time.Now,
	}
}

// ApplicantInput carries the applicant in one of three forms. Profile wins
// over Extraction, which wins over DocumentJobIDs.
type ApplicantInput struct {
	Profile        *domain.ApplicantProfile `json:"profile,omitempty"`
	Extraction     *domain.RawExtraction    `json:"extraction,omitempty"`
	DocumentJobIDs map[string]string        `json:"document_job_ids,omitempty"`
	// Documents lists document kinds supplied outside the extraction.
	Documents []string `json:"documents,omitempty"`
}

// EvaluateInput is one evaluation request.
type EvaluateInput struct {
	ApplicantInput
	RequestID      string
	Country        string
	VisaType       string
	Purpose        string
	PartnerKey     string
	ApplicantName  string
	ApplicantEmail string
}

// Evaluation is the stored outcome of Evaluate.
type Evaluation struct {
	ID                 string                   `json:"id"`
	CreatedAt          time.Time                `json:"created_at"`
	Result             *domain.EvaluationResult `json:"result"`
	Profile            *domain.ApplicantProfile `json:"profile"`
	DataQuality        *domain.DataQuality      `json:"data_quality,omitempty"`
	SubmittedDocuments []string                 `json:"submitted_documents"`
	MissingDocuments   []string                 `json:"missing_documents"`
	OptionalDocuments  []string                 `json:"optional_documents,omitempty"`
	OfficialSources    []domain.OfficialSource  `json:"official_sources,omitempty"`
	Travel             *travel.Requirement      `json:"travel,omitempty"`
}

// applicant is a resolved ApplicantInput.
type applicant struct {
	profile   *domain.ApplicantProfile
	raw       *domain.RawExtraction
	submitted []string
	name      string
	email     string
}

func (s *EligibilityService) resolve(in ApplicantInput) (*applicant, error) {
	a := &applicant{}
	switch {
	case in.Profile != nil:
		a.profile = in.Profile
	case in.Extraction != nil:
		a.raw = in.Extraction
	case len(in.DocumentJobIDs) > 0:
		if s.extractions == nil {
			return nil, errors.Unavailable("document extraction is not enabled")
		}
		raw, err := s.extractions.BuildExtraction(in.DocumentJobIDs)
		if err != nil {
			return nil, err
		}
		a.raw = &raw
	default:
		return nil, errors.BadRequest("one of profile, extraction or document_job_ids is required")
	}

	if a.raw != nil {
		p := normalizer.Normalize(*a.raw, s.now())
		a.profile = &p
		a.submitted = normalizer.SubmittedDocuments(*a.raw)
		a.name, a.email = normalizer.Identity(*a.raw)
	}
	a.submitted = mergeDocuments(a.submitted, in.Documents)
	return a, nil
}

// Evaluate scores the applicant for one (country, visa type), stores the
// evaluation and publishes evaluation.completed.
func (s *EligibilityService) Evaluate(ctx context.Context, in EvaluateInput) (*Evaluation, error) {
	a, err := s.resolve(in.ApplicantInput)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Score(in.Country, in.VisaType, a.profile)
	if err != nil {
		return nil, err
	}
	def := s.catalog.Definition(in.Country, in.VisaType)

	// Identity is fixed before encoding so the stored result carries it.
	eval := &Evaluation{
		ID:                 uuid.New().String(),
		CreatedAt:          s.now().UTC().Truncate(time.Microsecond),
		Result:             result,
		Profile:            a.profile,
		SubmittedDocuments: a.submitted,
		MissingDocuments:   missingDocuments(def.RequiredDocuments, a.submitted),
		OptionalDocuments:  def.OptionalDocuments,
		OfficialSources:    def.OfficialSources,
	}
	if a.raw != nil {
		q := normalizer.Quality(*a.raw)
		eval.DataQuality = &q
	}
	eval.Travel = s.lookupTravel(ctx, a.profile.Nationality, result.Country)

	profileJSON, err := json.Marshal(a.profile)
	if err != nil {
		return nil, errors.Internal("failed to encode profile")
	}
	resultJSON, err := json.Marshal(eval)
	if err != nil {
		return nil, errors.Internal("failed to encode result")
	}

	rec := &repository.EvaluationRecord{
		ID:                      eval.ID,
		CreatedAt:               eval.CreatedAt,
		RequestID:               in.RequestID,
		Country:                 result.Country,
		VisaType:                result.VisaType,
		Purpose:                 in.Purpose,
		ApplicantName:           firstNonEmpty(in.ApplicantName, a.name),
		ApplicantEmail:          strings.ToLower(firstNonEmpty(in.ApplicantEmail, a.email)),
		PartnerKey:              in.PartnerKey,
		Documents:               a.submitted,
		Profile:                 profileJSON,
		Result:                  resultJSON,
		Score:                   result.Score,
		NormalizedScore:         result.NormalizedScore,
		Confidence:              result.Confidence,
		IsPassing:               result.IsPassing,
		UsedDefaultRequirements: result.UsedDefaultRequirements,
		Status:                  repository.StatusCompleted,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	metrics.ObserveEvaluation(result.Country, result.VisaType, result.NormalizedScore, result.IsPassing)
	s.publisher.PublishEvaluationCompleted(ctx, rec, in.RequestID, result)

	s.logger.Info().
		Str("evaluation_id", rec.ID).
		Str("country", result.Country).
		Str("visa_type", result.VisaType).
		Int("score", result.Score).
		Bool("passing", result.IsPassing).
		Msg("evaluation completed")

	return eval, nil
}

func (s *EligibilityService) lookupTravel(ctx context.Context, nationality, destination string) *travel.Requirement {
	if s.travel == nil || strings.TrimSpace(nationality) == "" {
		return nil
	}
	req, err := s.travel.Requirements(ctx, nationality, destination)
	if err != nil {
		s.logger.Debug().Err(err).Str("nationality", nationality).Str("destination", destination).Msg("travel lookup skipped")
		return nil
	}
	return req
}

// CompareInput is one comparison request. An empty Countries compares the
// whole catalog.
type CompareInput struct {
	ApplicantInput
	Countries  []string
	PartnerKey string
}

// Comparison ranks one applicant across catalog visas.
type Comparison struct {
	Profile  *domain.ApplicantProfile `json:"profile"`
	Rankings []domain.Ranking         `json:"rankings"`
	Skipped  []domain.PairError       `json:"skipped"`
}

// Compare ranks the applicant and publishes comparison.completed.
func (s *EligibilityService) Compare(ctx context.Context, in CompareInput) (*Comparison, error) {
	a, err := s.resolve(in.ApplicantInput)
	if err != nil {
		return nil, err
	}

	rankings, skipped, err := s.comparator.CompareAcross(a.profile, in.Countries)
	if err != nil {
		return nil, err
	}
	if rankings == nil {
		rankings = []domain.Ranking{}
	}
	if skipped == nil {
		skipped = []domain.PairError{}
	}

	metrics.ComparisonsTotal.Inc()
	metrics.ComparisonPairsSkipped.Add(float64(len(skipped)))
	for _, pe := range skipped {
		s.logger.Warn().Str("country", pe.Country).Str("visa_type", pe.VisaType).Str("error", pe.Error).Msg("comparison pair skipped")
	}
	s.publisher.PublishComparisonCompleted(ctx, in.PartnerKey, rankings, skipped)

	return &Comparison{Profile: a.profile, Rankings: rankings, Skipped: skipped}, nil
}

// Get returns a stored evaluation record.
func (s *EligibilityService) Get(ctx context.Context, id string) (*repository.EvaluationRecord, error) {
	return s.repo.GetByID(ctx, id)
}

// List lists stored evaluations with pagination
func (s *EligibilityService) List(ctx context.Context, params repository.ListParams) ([]*repository.EvaluationRecord, int64, error) {
	return s.repo.List(ctx, params)
}

// CountrySummary is a catalog country with its visa types.
type CountrySummary struct {
	Name      string   `json:"name"`
	VisaTypes []string `json:"visa_types"`
}

// Countries lists the catalog in declaration order.
func (s *EligibilityService) Countries() []CountrySummary {
	names := s.catalog.ListCountries()
	out := make([]CountrySummary, len(names))
	for i, name := range names {
		out[i] = CountrySummary{Name: name, VisaTypes: s.catalog.ListVisaTypes(name)}
	}
	return out
}

// Visas returns the definitions of one country.
func (s *EligibilityService) Visas(country string) ([]domain.VisaDefinition, error) {
	types := s.catalog.ListVisaTypes(country)
	if types == nil {
		return nil, errors.NotFound("country")
	}
	out := make([]domain.VisaDefinition, 0, len(types))
	for _, t := range types {
		def, _ := s.catalog.Lookup(country, t)
		out = append(out, def)
	}
	return out, nil
}

// Requirements returns one catalog definition. Unlike scoring, a miss is an
// error here: the default set is not a published requirement.
func (s *EligibilityService) Requirements(country, visaType string) (domain.VisaDefinition, error) {
	def, ok := s.catalog.Lookup(country, visaType)
	if !ok {
		return domain.VisaDefinition{}, errors.NotFound("visa configuration")
	}
	return def, nil
}

// Suggestion is a visa matching a travel purpose, scored when an applicant
// was supplied.
type Suggestion struct {
	Country         string  `json:"country"`
	VisaType        string  `json:"visa_type"`
	Description     string  `json:"description,omitempty"`
	PassingScore    int     `json:"passing_score"`
	NormalizedScore float64 `json:"normalized_score,omitempty"`
	Score           *int    `json:"score,omitempty"`
	IsPassing       *bool   `json:"is_passing,omitempty"`
}

// Suggest lists the visas tagged with purpose, optionally within one country.
// With an applicant the list is ranked by score, catalog order breaking ties.
func (s *EligibilityService) Suggest(country, purpose string, in *ApplicantInput) ([]Suggestion, error) {
	if strings.TrimSpace(purpose) == "" {
		return nil, errors.Validation(map[string]string{"purpose": "is required"})
	}
	if country != "" && !s.catalog.HasCountry(country) {
		return nil, errors.NotFound("country")
	}

	var profile *domain.ApplicantProfile
	if in != nil {
		a, err := s.resolve(*in)
		if err != nil {
			return nil, err
		}
		profile = a.profile
	}

	defs := s.catalog.SuggestByPurpose(country, purpose)
	out := make([]Suggestion, 0, len(defs))
	for _, def := range defs {
		sg := Suggestion{
			Country:      def.Country,
			VisaType:     def.VisaType,
			Description:  def.Description,
			PassingScore: def.PassingScore,
		}
		if profile != nil {
			result, err := scoring.ScoreDefinition(def, profile)
			if err != nil {
				return nil, err
			}
			sg.NormalizedScore = result.NormalizedScore
			sg.Score = &result.Score
			sg.IsPassing = &result.IsPassing
		}
		out = append(out, sg)
	}
	if profile != nil {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].NormalizedScore > out[j].NormalizedScore
		})
	}
	return out, nil
}

// NormalizeOutput is the profile derived from an extraction.
type NormalizeOutput struct {
	Profile            domain.ApplicantProfile `json:"profile"`
	DataQuality        domain.DataQuality      `json:"data_quality"`
	SubmittedDocuments []string                `json:"submitted_documents"`
	ApplicantName      string                  `json:"applicant_name,omitempty"`
	ApplicantEmail     string                  `json:"applicant_email,omitempty"`
}

// Normalize derives a profile from an extraction without scoring it.
func (s *EligibilityService) Normalize(raw domain.RawExtraction) NormalizeOutput {
	name, email := normalizer.Identity(raw)
	submitted := normalizer.SubmittedDocuments(raw)
	if submitted == nil {
		submitted = []string{}
	}
	return NormalizeOutput{
		Profile:            normalizer.Normalize(raw, s.now()),
		DataQuality:        normalizer.Quality(raw),
		SubmittedDocuments: submitted,
		ApplicantName:      name,
		ApplicantEmail:     email,
	}
}

// missingDocuments returns the required kinds not in submitted, in required order.
func missingDocuments(required, submitted []string) []string {
	have := make(map[string]bool, len(submitted))
	for _, d := range submitted {
		have[d] = true
	}
	out := []string{}
	for _, d := range required {
		if !have[d] {
			out = append(out, d)
		}
	}
	return out
}

// mergeDocuments unions extra into base, keeping domain.DocumentKinds order
// and dropping unknown kinds.
func mergeDocuments(base, extra []string) []string {
	have := make(map[string]bool, len(base)+len(extra))
	for _, d := range base {
		have[d] = true
	}
	for _, d := range extra {
		have[strings.ToLower(strings.TrimSpace(d))] = true
	}
	out := []string{}
	for _, kind := range domain.DocumentKinds {
		if have[kind] {
			out = append(out, kind)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

