package comparator

import (
	"fmt"
	"sort"

	"github.com/visaeval/visaeval-backend/internal/eligibility/domain"
	"github.com/visaeval/visaeval-backend/pkg/errors"
)

// Scorer is the slice of the scoring engine the comparator drives.
type Scorer interface {
	Score(country, visaType string, profile *domain.ApplicantProfile) (*domain.EvaluationResult, error)
}

// Catalog enumerates the pairs to compare.
type Catalog interface {
	ListCountries() []string
	ListVisaTypes(country string) []string
	CanonicalCountry(country string) (string, bool)
}

// Comparator ranks one profile across catalog visas.
type Comparator struct {
	scorer  Scorer
	catalog Catalog
}

func New(scorer Scorer, catalog Catalog) *Comparator {
	return &Comparator{scorer: scorer, catalog: catalog}
}

// CompareAcross scores profile against every catalog pair, or only the pairs
// of the given countries, and returns rankings sorted by normalized score
// descending with catalog order breaking ties. A pair that fails is skipped
// and reported in the second return value, as is a requested country the
// catalog does not know. Only a malformed profile is an error.
func (c *Comparator) CompareAcross(profile *domain.ApplicantProfile, countries []string) ([]domain.Ranking, []domain.PairError, error) {
	if profile == nil {
		return nil, nil, errors.InvalidCallContract("profile is required")
	}
	if err := profile.Validate(); err != nil {
		return nil, nil, errors.InvalidCallContract(err.Error())
	}

	var (
		rankings []domain.Ranking
		skipped  []domain.PairError
	)

	for _, country := range c.countries(countries, &skipped) {
		for _, visaType := range c.catalog.ListVisaTypes(country) {
			result, err := c.scoreSafely(country, visaType, profile)
			if err != nil {
				skipped = append(skipped, domain.PairError{Country: country, VisaType: visaType, Error: err.Error()})
				continue
			}
			rankings = append(rankings, domain.Ranking{
				Country:                 result.Country,
				VisaType:                result.VisaType,
				NormalizedScore:         result.NormalizedScore,
				Score:                   result.Score,
				Confidence:              result.Confidence,
				PassingScore:            result.PassingScore,
				IsPassing:               result.IsPassing,
				UsedDefaultRequirements: result.UsedDefaultRequirements,
			})
		}
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].NormalizedScore > rankings[j].NormalizedScore
	})
	return rankings, skipped, nil
}

// countries resolves the requested subset in catalog order. Duplicates collapse
// and unknown names are reported.
func (c *Comparator) countries(requested []string, skipped *[]domain.PairError) []string {
	all := c.catalog.ListCountries()
	if len(requested) == 0 {
		return all
	}

	wanted := make(map[string]bool, len(requested))
	for _, r := range requested {
		name, ok := c.catalog.CanonicalCountry(r)
		if !ok {
			*skipped = append(*skipped, domain.PairError{Country: r, Error: "country not in catalog"})
			continue
		}
		wanted[name] = true
	}

	out := make([]string, 0, len(wanted))
	for _, country := range all {
		if wanted[country] {
			out = append(out, country)
		}
	}
	return out
}

// scoreSafely turns a panic in one pair into an error so the rest of the
// comparison still runs.
func (c *Comparator) scoreSafely(country, visaType string, profile *domain.ApplicantProfile) (result *domain.EvaluationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("scoring panicked: %v", r)
		}
	}()
	return c.scorer.Score(country, visaType, profile)
}
