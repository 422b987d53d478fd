package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/visaeval/visaeval-backend/internal/eligibility/catalog"
	"github.com/visaeval/visaeval-backend/internal/eligibility/domain"
	"github.com/visaeval/visaeval-backend/pkg/errors"
)

// ScoreCeiling is the highest normalized score the engine ever reports. Scores
// are computed from extracted, not independently verified, documents.
const ScoreCeiling = 85.0

// Catalog is the read side of the visa catalog the engine needs.
type Catalog interface {
	Lookup(country, visaType string) (domain.VisaDefinition, bool)
}

// Engine scores applicant profiles against visa definitions. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	catalog Catalog
}

// NewEngine creates an engine backed by c.
func NewEngine(c Catalog) *Engine {
	return &Engine{catalog: c}
}

// Score evaluates profile for (country, visaType). A catalog miss falls back to
// the default requirement set, unknown profile fields are scored by policy, and
// only a malformed call returns an error.
func (e *Engine) Score(country, visaType string, profile *domain.ApplicantProfile) (*domain.EvaluationResult, error) {
	if strings.TrimSpace(country) == "" {
		return nil, errors.InvalidCallContract("country is required")
	}
	if strings.TrimSpace(visaType) == "" {
		return nil, errors.InvalidCallContract("visa type is required")
	}

	def, ok := e.catalog.Lookup(country, visaType)
	return ScoreDefinition(catalog.Resolve(country, visaType, def, ok), profile)
}

// ScoreDefinition evaluates profile against an already resolved definition.
func ScoreDefinition(def domain.VisaDefinition, profile *domain.ApplicantProfile) (*domain.EvaluationResult, error) {
	if profile == nil {
		return nil, errors.InvalidCallContract("profile is required")
	}
	if err := profile.Validate(); err != nil {
		return nil, errors.InvalidCallContract(err.Error())
	}
	for _, spec := range def.Requirements {
		if err := spec.Validate(); err != nil {
			return nil, errors.InvalidCallContract(fmt.Sprintf("visa definition %s/%s: %v", def.Country, def.VisaType, err))
		}
	}

	passing := def.PassingScore
	if passing == 0 {
		passing = domain.DefaultPassingScore
	}

	result := &domain.EvaluationResult{
		Country:                 def.Country,
		VisaType:                def.VisaType,
		UsedDefaultRequirements: def.IsDefault,
		PassingScore:            passing,
		Breakdown:               make(map[domain.Kind]domain.ScoreBreakdown, len(def.Requirements)),
		MetRequirements:         []string{},
		FailedRequirements:      []string{},
		Warnings:                []string{},
		HardFails:               []string{},
	}

	var (
		raw        float64
		appliedCap *int
	)
	for _, spec := range def.Requirements {
		d := scoreDimension(def, spec, profile)

		raw += d.score
		result.TotalWeight += spec.Weight
		result.Breakdown[spec.Kind] = d.breakdown
		result.MetRequirements = append(result.MetRequirements, d.met...)
		result.FailedRequirements = append(result.FailedRequirements, d.failed...)
		result.Warnings = append(result.Warnings, d.warnings...)

		if d.breakdown.HardFail != nil {
			result.HardFails = append(result.HardFails, *d.breakdown.HardFail)
			if c := d.breakdown.Cap; c != nil && (appliedCap == nil || *c < *appliedCap) {
				v := *c
				appliedCap = &v
			}
		}
	}
	result.RawScore = round2(raw)

	normalized := 0.0
	if result.TotalWeight > 0 {
		normalized = raw / result.TotalWeight * 100
	}
	if appliedCap != nil {
		normalized = math.Min(normalized, float64(*appliedCap))
		result.AppliedCap = appliedCap
	}
	normalized = math.Max(0, math.Min(normalized, ScoreCeiling))

	result.NormalizedScore = normalized
	result.Score = int(math.Round(normalized))
	result.IsPassing = normalized >= float64(passing)
	result.Confidence = Confidence(profile)

	return result, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
