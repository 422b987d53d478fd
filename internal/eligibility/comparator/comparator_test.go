package comparator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visaeval/visaeval-backend/internal/eligibility/catalog"
	"github.com/visaeval/visaeval-backend/internal/eligibility/domain"
	"github.com/visaeval/visaeval-backend/internal/eligibility/scoring"
	"github.com/visaeval/visaeval-backend/pkg/errors"
)

// fakeScorer returns fixed scores per visa type and fails or panics on demand.
type fakeScorer struct {
	scores map[string]float64
	fail   map[string]bool
	panics map[string]bool
}

func (f *fakeScorer) Score(country, visaType string, _ *domain.ApplicantProfile) (*domain.EvaluationResult, error) {
	if f.panics[visaType] {
		panic("boom")
	}
	if f.fail[visaType] {
		return nil, fmt.Errorf("scoring %s failed", visaType)
	}
	return &domain.EvaluationResult{Country: country, VisaType: visaType, NormalizedScore: f.scores[visaType]}, nil
}

func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load()
	require.NoError(t, err)
	return c
}

func TestCompareAcross_RealEngine(t *testing.T) {
	c := loadCatalog(t)
	cmp := New(scoring.NewEngine(c), c)

	profile := &domain.ApplicantProfile{
		Education:   &domain.Education{Level: domain.EducationMaster, Verified: true},
		Salary:      &domain.Salary{Amount: 60000, Currency: "EUR", Verified: true},
		HasJobOffer: true,
		Languages:   []domain.Language{{Language: "English", Level: domain.CEFRC1, Verified: true}},
	}

	rankings, skipped, err := cmp.CompareAcross(profile, nil)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Len(t, rankings, len(c.All()))

	for i := 1; i < len(rankings); i++ {
		assert.GreaterOrEqual(t, rankings[i-1].NormalizedScore, rankings[i].NormalizedScore)
	}
}

func TestCompareAcross_StableTies(t *testing.T) {
	c := loadCatalog(t)
	cmp := New(&fakeScorer{scores: map[string]float64{}}, c)

	rankings, _, err := cmp.CompareAcross(&domain.ApplicantProfile{}, nil)
	require.NoError(t, err)

	var got []string
	for _, r := range rankings {
		got = append(got, r.Country+"/"+r.VisaType)
	}
	var want []string
	for _, def := range c.All() {
		want = append(want, def.Country+"/"+def.VisaType)
	}
	assert.Equal(t, want, got)
}

func TestCompareAcross_SortsAndKeepsCatalogOrderWithinTies(t *testing.T) {
	c := loadCatalog(t)
	cmp := New(&fakeScorer{scores: map[string]float64{
		"Job Seeker Visa": 70,
		"ICT Permit":      50,
		"EU Blue Card":    50,
	}}, c)

	rankings, skipped, err := cmp.CompareAcross(&domain.ApplicantProfile{}, []string{"germany"})
	require.NoError(t, err)
	assert.Empty(t, skipped)

	require.Len(t, rankings, 3)
	assert.Equal(t, "Job Seeker Visa", rankings[0].VisaType)
	assert.Equal(t, "EU Blue Card", rankings[1].VisaType)
	assert.Equal(t, "ICT Permit", rankings[2].VisaType)
}

func TestCompareAcross_SkipsFailingPairs(t *testing.T) {
	c := loadCatalog(t)
	cmp := New(&fakeScorer{
		scores: map[string]float64{"Job Seeker Visa": 10},
		fail:   map[string]bool{"ICT Permit": true},
		panics: map[string]bool{"EU Blue Card": true},
	}, c)

	rankings, skipped, err := cmp.CompareAcross(&domain.ApplicantProfile{}, []string{"Germany", "Atlantis"})
	require.NoError(t, err)

	require.Len(t, rankings, 1)
	assert.Equal(t, "Job Seeker Visa", rankings[0].VisaType)

	require.Len(t, skipped, 3)
	assert.Equal(t, domain.PairError{Country: "Atlantis", Error: "country not in catalog"}, skipped[0])
	assert.Equal(t, "EU Blue Card", skipped[1].VisaType)
	assert.Contains(t, skipped[1].Error, "panicked")
	assert.Equal(t, "ICT Permit", skipped[2].VisaType)
}

func TestCompareAcross_CountrySubsetFollowsCatalogOrder(t *testing.T) {
	c := loadCatalog(t)
	cmp := New(&fakeScorer{scores: map[string]float64{}}, c)

	rankings, _, err := cmp.CompareAcross(&domain.ApplicantProfile{}, []string{"UK", "Canada", "uk"})
	require.NoError(t, err)

	require.Len(t, rankings, 2)
	assert.Equal(t, "Canada", rankings[0].Country)
	assert.Equal(t, "UK", rankings[1].Country)
}

func TestCompareAcross_InvalidProfile(t *testing.T) {
	c := loadCatalog(t)
	cmp := New(scoring.NewEngine(c), c)

	_, _, err := cmp.CompareAcross(nil, nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidCallContract))

	_, _, err = cmp.CompareAcross(&domain.ApplicantProfile{Salary: &domain.Salary{Amount: -1}}, nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidCallContract))
}
