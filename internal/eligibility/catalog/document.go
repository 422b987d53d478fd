package catalog

import (
	"fmt"
	"strings"

	"github.com/visaeval/visaeval-backend/internal/eligibility/domain"
)

// catalogDoc mirrors catalog.yaml. Thresholds are flat in the document and
// become the per-kind domain structs on conversion.
type catalogDoc struct {
	Version   string       `yaml:"version"`
	Countries []countryDoc `yaml:"countries"`
}

type countryDoc struct {
	Name  string    `yaml:"name"`
	Visas []visaDoc `yaml:"visas"`
}

type visaDoc struct {
	Type              string           `yaml:"type"`
	Description       string           `yaml:"description"`
	PassingScore      *int             `yaml:"passing_score"`
	Purposes          []string         `yaml:"purposes"`
	RequiredDocuments []string         `yaml:"required_documents"`
	OptionalDocuments []string         `yaml:"optional_documents"`
	OfficialSources   []sourceDoc      `yaml:"official_sources"`
	Requirements      []requirementDoc `yaml:"requirements"`
}

type sourceDoc struct {
	Title     string `yaml:"title"`
	URL       string `yaml:"url"`
	Relevance string `yaml:"relevance"`
}

type requirementDoc struct {
	Kind             string   `yaml:"kind"`
	Required         bool     `yaml:"required"`
	Weight           float64  `yaml:"weight"`
	HardFailCap      *int     `yaml:"hard_fail_cap"`
	FailBelowMinimum bool     `yaml:"fail_below_minimum"`
	MinLevel         string   `yaml:"min_level"`
	MinYears         float64  `yaml:"min_years"`
	BonusYears       float64  `yaml:"bonus_years"`
	MinAmount        float64  `yaml:"min_amount"`
	ShortageMin      *float64 `yaml:"shortage_min_amount"`
	Currency         string   `yaml:"currency"`
	Language         string   `yaml:"language"`
	MinAge           int      `yaml:"min_age"`
	MaxAge           int      `yaml:"max_age"`
	OptimalMin       int      `yaml:"optimal_min"`
	OptimalMax       int      `yaml:"optimal_max"`
	Occupations      []string `yaml:"occupations"`
}

func (v visaDoc) toDomain(country string) (domain.VisaDefinition, error) {
	visaType := strings.TrimSpace(v.Type)
	if visaType == "" {
		return domain.VisaDefinition{}, fmt.Errorf("visa without a type")
	}

	passing := domain.DefaultPassingScore
	if v.PassingScore != nil {
		passing = *v.PassingScore
	}
	if passing < 0 || passing > 100 {
		return domain.VisaDefinition{}, fmt.Errorf("passing score must be within [0,100], got %d", passing)
	}

	if len(v.Requirements) == 0 {
		return domain.VisaDefinition{}, fmt.Errorf("no requirements")
	}
	seen := make(map[domain.Kind]bool, len(v.Requirements))
	reqs := make([]domain.RequirementSpec, 0, len(v.Requirements))
	for _, r := range v.Requirements {
		spec, err := r.toDomain()
		if err != nil {
			return domain.VisaDefinition{}, err
		}
		if seen[spec.Kind] {
			return domain.VisaDefinition{}, fmt.Errorf("duplicate requirement %s", spec.Kind)
		}
		seen[spec.Kind] = true
		reqs = append(reqs, spec)
	}

	for _, d := range append(append([]string(nil), v.RequiredDocuments...), v.OptionalDocuments...) {
		if !domain.ValidDocumentKind(d) {
			return domain.VisaDefinition{}, fmt.Errorf("unknown document kind %q", d)
		}
	}

	purposes := make([]string, 0, len(v.Purposes))
	for _, p := range v.Purposes {
		purposes = append(purposes, normalizePurpose(p))
	}

	sources := make([]domain.OfficialSource, 0, len(v.OfficialSources))
	for _, s := range v.OfficialSources {
		sources = append(sources, domain.OfficialSource{Title: s.Title, URL: s.URL, Relevance: s.Relevance})
	}

	return domain.VisaDefinition{
		Country:           country,
		VisaType:          visaType,
		Description:       v.Description,
		PassingScore:      passing,
		Requirements:      reqs,
		RequiredDocuments: v.RequiredDocuments,
		OptionalDocuments: v.OptionalDocuments,
		Purposes:          purposes,
		OfficialSources:   sources,
	}, nil
}

func (r requirementDoc) toDomain() (domain.RequirementSpec, error) {
	kind := domain.Kind(strings.TrimSpace(r.Kind))
	spec := domain.RequirementSpec{
		Kind:             kind,
		Required:         r.Required,
		Weight:           r.Weight,
		HardFailCap:      r.HardFailCap,
		FailBelowMinimum: r.FailBelowMinimum,
	}

	switch kind {
	case domain.KindEducation:
		spec.Thresholds = domain.EducationThresholds{MinLevel: domain.EducationLevel(strings.ToLower(r.MinLevel))}
	case domain.KindExperience:
		spec.Thresholds = domain.ExperienceThresholds{MinYears: r.MinYears, BonusYears: r.BonusYears}
	case domain.KindSalary:
		spec.Thresholds = domain.SalaryThresholds{
			MinAmount:                         r.MinAmount,
			Currency:                          strings.ToUpper(r.Currency),
			AlternateMinForShortageOccupation: r.ShortageMin,
		}
	case domain.KindJobOffer:
		spec.Thresholds = domain.JobOfferThresholds{}
	case domain.KindLanguage:
		spec.Thresholds = domain.LanguageThresholds{
			MinLevel: domain.CEFRLevel(strings.ToUpper(r.MinLevel)),
			Language: r.Language,
		}
	case domain.KindAge:
		spec.Thresholds = domain.AgeThresholds{
			MinAge:     r.MinAge,
			MaxAge:     r.MaxAge,
			OptimalMin: r.OptimalMin,
			OptimalMax: r.OptimalMax,
		}
	case domain.KindOccupation:
		occupations := make([]string, 0, len(r.Occupations))
		for _, o := range r.Occupations {
			occupations = append(occupations, strings.ToLower(strings.TrimSpace(o)))
		}
		spec.Thresholds = domain.OccupationThresholds{EligibleOccupations: occupations}
	case domain.KindFinancialProof:
		spec.Thresholds = domain.FinancialProofThresholds{MinAmount: r.MinAmount, Currency: strings.ToUpper(r.Currency)}
	default:
		return domain.RequirementSpec{}, fmt.Errorf("unknown requirement kind %q", r.Kind)
	}

	if err := spec.Validate(); err != nil {
		return domain.RequirementSpec{}, err
	}
	return spec, nil
}
