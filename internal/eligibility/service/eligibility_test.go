package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visaeval/visaeval-backend/internal/eligibility/catalog"
	"github.com/visaeval/visaeval-backend/internal/eligibility/domain"
	"github.com/visaeval/visaeval-backend/internal/eligibility/events"
	"github.com/visaeval/visaeval-backend/internal/eligibility/repository"
	"github.com/visaeval/visaeval-backend/internal/eligibility/service"
	"github.com/visaeval/visaeval-backend/internal/travel"
	"github.com/visaeval/visaeval-backend/pkg/errors"
	"github.com/visaeval/visaeval-backend/pkg/messaging"
	"github.com/visaeval/visaeval-backend/pkg/testutil"
)

// =============================================================================
// Test doubles
// =============================================================================

type fakeExtractions struct {
	raw domain.RawExtraction
	err error
	got map[string]string
}

func (f *fakeExtractions) BuildExtraction(jobIDs map[string]string) (domain.RawExtraction, error) {
	f.got = jobIDs
	return f.raw, f.err
}

type fakeTravel struct {
	calls [][2]string
	err   error
}

func (f *fakeTravel) Requirements(_ context.Context, passport, destination string) (*travel.Requirement, error) {
	f.calls = append(f.calls, [2]string{passport, destination})
	if f.err != nil {
		return nil, f.err
	}
	return &travel.Requirement{Passport: passport, VisaRequired: true, Source: travel.SourceOffline}, nil
}

type fixture struct {
	svc         *service.EligibilityService
	repo        *repository.MemoryRepository
	pub         *testutil.MockPublisher
	extractions *fakeExtractions
	travel      *fakeTravel
	factory     *testutil.FixtureFactory
}

func setup(t *testing.T) *fixture {
	t.Helper()
	cat, err := catalog.Load()
	require.NoError(t, err)

	f := &fixture{
		repo:        repository.NewMemoryRepository(),
		pub:         testutil.NewMockPublisher(),
		extractions: &fakeExtractions{},
		travel:      &fakeTravel{},
		factory:     testutil.NewFixtureFactory(),
	}
	f.svc = service.NewEligibilityService(cat, f.repo, events.NewWithPublisher(f.pub, nil), f.extractions, f.travel, nil)
	return f
}

func sampleExtraction(t *testing.T) domain.RawExtraction {
	t.Helper()
	var raw domain.RawExtraction
	require.NoError(t, json.Unmarshal([]byte(testutil.ExtractionJSON), &raw))
	return raw
}

// =============================================================================
// Evaluate
// =============================================================================

func TestEvaluate_Profile(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	eval, err := f.svc.Evaluate(ctx, service.EvaluateInput{
		ApplicantInput: service.ApplicantInput{
			Profile:   f.factory.Profile(),
			Documents: []string{"Degree", "resume", "selfie"},
		},
		RequestID:      "req-1",
		Country:        "germany",
		VisaType:       "eu blue card",
		Purpose:        "work",
		PartnerKey:     "partner-1",
		ApplicantName:  "Priya Sharma",
		ApplicantEmail: "Priya@Example.com",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, eval.ID)
	assert.Equal(t, "Germany", eval.Result.Country)
	assert.Equal(t, "EU Blue Card", eval.Result.VisaType)
	assert.False(t, eval.Result.UsedDefaultRequirements)
	assert.Equal(t, []string{"resume", "degree"}, eval.SubmittedDocuments)
	assert.Equal(t, []string{"job_offer", "salary_proof"}, eval.MissingDocuments)
	assert.NotEmpty(t, eval.OfficialSources)
	assert.Nil(t, eval.DataQuality)
	require.NotNil(t, eval.Travel)
	assert.Equal(t, [][2]string{{"India", "Germany"}}, f.travel.calls)

	rec, err := f.svc.Get(ctx, eval.ID)
	require.NoError(t, err)
	assert.Equal(t, "priya@example.com", rec.ApplicantEmail)
	assert.Equal(t, "partner-1", rec.PartnerKey)
	assert.Equal(t, eval.Result.Score, rec.Score)
	assert.Equal(t, repository.StatusCompleted, rec.Status)

	published := f.pub.Events()
	require.Len(t, published, 1)
	assert.Equal(t, messaging.EventEvaluationCompleted, published[0].Type)
	payload := published[0].Payload.(messaging.EvaluationCompletedEvent)
	assert.Equal(t, eval.ID, payload.EvaluationID)
	assert.Equal(t, "req-1", payload.RequestID)
	assert.Equal(t, eval.Result.IsPassing, payload.IsPassing)
}

func TestEvaluate_StoredResultCarriesIdentity(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	eval, err := f.svc.Evaluate(ctx, service.EvaluateInput{
		ApplicantInput: service.ApplicantInput{Profile: f.factory.Profile()},
		Country:        "Germany",
		VisaType:       "EU Blue Card",
	})
	require.NoError(t, err)
	require.NotEmpty(t, eval.ID)
	assert.False(t, eval.CreatedAt.IsZero())

	rec, err := f.svc.Get(ctx, eval.ID)
	require.NoError(t, err)
	assert.Equal(t, eval.ID, rec.ID)
	assert.True(t, eval.CreatedAt.Equal(rec.CreatedAt))

	var stored service.Evaluation
	require.NoError(t, json.Unmarshal(rec.Result, &stored))
	assert.Equal(t, eval.ID, stored.ID)
	assert.True(t, eval.CreatedAt.Equal(stored.CreatedAt))
	assert.Equal(t, eval.Result.Score, stored.Result.Score)
}

func TestEvaluate_Extraction(t *testing.T) {
	f := setup(t)
	raw := sampleExtraction(t)

	eval, err := f.svc.Evaluate(context.Background(), service.EvaluateInput{
		ApplicantInput: service.ApplicantInput{Extraction: &raw},
		Country:        "Germany",
		VisaType:       "EU Blue Card",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"resume", "degree", "job_offer", "language_cert", "passport"}, eval.SubmittedDocuments)
	assert.Equal(t, []string{"salary_proof"}, eval.MissingDocuments)
	require.NotNil(t, eval.DataQuality)
	assert.Equal(t, 100, eval.DataQuality.OverallConfidence)
	assert.Equal(t, domain.EducationMaster, eval.Profile.Education.Level)
	assert.Equal(t, "IND", eval.Profile.Nationality)

	rec, err := f.svc.Get(context.Background(), eval.ID)
	require.NoError(t, err)
	assert.Equal(t, "Priya Sharma", rec.ApplicantName)
	assert.Equal(t, "priya@example.com", rec.ApplicantEmail)
}

func TestEvaluate_DocumentJobs(t *testing.T) {
	f := setup(t)
	f.extractions.raw = sampleExtraction(t)

	jobs := map[string]string{"resume": "job-1", "passport": "job-2"}
	eval, err := f.svc.Evaluate(context.Background(), service.EvaluateInput{
		ApplicantInput: service.ApplicantInput{DocumentJobIDs: jobs},
		Country:        "Canada",
		VisaType:       "Express Entry",
	})
	require.NoError(t, err)
	assert.Equal(t, jobs, f.extractions.got)
	assert.Equal(t, "Canada", eval.Result.Country)
}

func TestEvaluate_ProfileWinsOverExtraction(t *testing.T) {
	f := setup(t)
	raw := sampleExtraction(t)
	profile := f.factory.Profile(testutil.WithNationality("Brazil"))

	eval, err := f.svc.Evaluate(context.Background(), service.EvaluateInput{
		ApplicantInput: service.ApplicantInput{Profile: profile, Extraction: &raw, DocumentJobIDs: map[string]string{"resume": "x"}},
		Country:        "Germany",
		VisaType:       "EU Blue Card",
	})
	require.NoError(t, err)
	assert.Equal(t, "Brazil", eval.Profile.Nationality)
	assert.Nil(t, f.extractions.got)
}

func TestEvaluate_UnknownVisaUsesDefaults(t *testing.T) {
	f := setup(t)

	eval, err := f.svc.Evaluate(context.Background(), service.EvaluateInput{
		ApplicantInput: service.ApplicantInput{Profile: f.factory.Profile()},
		Country:        "Portugal",
		VisaType:       "Digital Nomad",
	})
	require.NoError(t, err)
	assert.True(t, eval.Result.UsedDefaultRequirements)
	assert.Equal(t, []string{"resume", "passport"}, eval.MissingDocuments)
}

func TestEvaluate_TravelFailureIsIgnored(t *testing.T) {
	f := setup(t)
	f.travel.err = fmt.Errorf("rapidapi down")

	eval, err := f.svc.Evaluate(context.Background(), service.EvaluateInput{
		ApplicantInput: service.ApplicantInput{Profile: f.factory.Profile()},
		Country:        "Germany",
		VisaType:       "EU Blue Card",
	})
	require.NoError(t, err)
	assert.Nil(t, eval.Travel)
}

func TestEvaluate_Errors(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name  string
		setup func()
		in    service.EvaluateInput
		want  error
	}{
		{
			name: "no applicant",
			in:   service.EvaluateInput{Country: "Germany", VisaType: "EU Blue Card"},
			want: errors.ErrBadRequest,
		},
		{
			name: "blank visa type",
			in:   service.EvaluateInput{ApplicantInput: service.ApplicantInput{Profile: f.factory.Profile()}, Country: "Germany"},
			want: errors.ErrInvalidCallContract,
		},
		{
			name: "negative salary",
			in: service.EvaluateInput{
				ApplicantInput: service.ApplicantInput{Profile: f.factory.Profile(testutil.WithSalary(-1, "EUR", true))},
				Country:        "Germany",
				VisaType:       "EU Blue Card",
			},
			want: errors.ErrInvalidCallContract,
		},
		{
			name:  "extraction job missing",
			setup: func() { f.extractions.err = errors.NotFound("extraction job") },
			in: service.EvaluateInput{
				ApplicantInput: service.ApplicantInput{DocumentJobIDs: map[string]string{"resume": "gone"}},
				Country:        "Germany",
				VisaType:       "EU Blue Card",
			},
			want: errors.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			_, err := f.svc.Evaluate(context.Background(), tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	f.pub.AssertNoEventsPublished(t)
}

func TestEvaluate_DocumentJobsWithoutExtraction(t *testing.T) {
	cat, err := catalog.Load()
	require.NoError(t, err)
	svc := service.NewEligibilityService(cat, repository.NewMemoryRepository(), nil, nil, nil, nil)

	_, err = svc.Evaluate(context.Background(), service.EvaluateInput{
		ApplicantInput: service.ApplicantInput{DocumentJobIDs: map[string]string{"resume": "job-1"}},
		Country:        "Germany",
		VisaType:       "EU Blue Card",
	})
	assert.True(t, errors.Is(err, errors.ErrUnavailable))
}

// =============================================================================
// Compare
// =============================================================================

func TestCompare(t *testing.T) {
	f := setup(t)

	cmp, err := f.svc.Compare(context.Background(), service.CompareInput{
		ApplicantInput: service.ApplicantInput{Profile: f.factory.Profile()},
		Countries:      []string{"Germany", "Atlantis"},
		PartnerKey:     "partner-1",
	})
	require.NoError(t, err)

	require.Len(t, cmp.Rankings, 3)
	for i := 1; i < len(cmp.Rankings); i++ {
		assert.GreaterOrEqual(t, cmp.Rankings[i-1].NormalizedScore, cmp.Rankings[i].NormalizedScore)
	}
	require.Len(t, cmp.Skipped, 1)
	assert.Equal(t, "Atlantis", cmp.Skipped[0].Country)

	published := f.pub.Events()
	require.Len(t, published, 1)
	payload := published[0].Payload.(messaging.ComparisonCompletedEvent)
	assert.Equal(t, 3, payload.Evaluated)
	assert.Equal(t, 1, payload.Skipped)
	assert.Equal(t, cmp.Rankings[0].VisaType, payload.TopVisaType)
	assert.Equal(t, "partner-1", payload.PartnerKey)
}

func TestCompare_WholeCatalog(t *testing.T) {
	f := setup(t)
	cat, err := catalog.Load()
	require.NoError(t, err)

	cmp, err := f.svc.Compare(context.Background(), service.CompareInput{
		ApplicantInput: service.ApplicantInput{Profile: f.factory.EmptyProfile()},
	})
	require.NoError(t, err)
	assert.Len(t, cmp.Rankings, len(cat.All()))
	assert.Equal(t, []domain.PairError{}, cmp.Skipped)
}

// =============================================================================
// Catalog queries
// =============================================================================

func TestCountriesAndVisas(t *testing.T) {
	f := setup(t)

	countries := f.svc.Countries()
	require.Len(t, countries, 9)
	assert.Equal(t, "Germany", countries[0].Name)
	assert.Equal(t, []string{"EU Blue Card", "ICT Permit", "Job Seeker Visa"}, countries[0].VisaTypes)

	visas, err := f.svc.Visas("GERMANY")
	require.NoError(t, err)
	require.Len(t, visas, 3)
	assert.Equal(t, 60, visas[0].PassingScore)

	_, err = f.svc.Visas("Atlantis")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestRequirements(t *testing.T) {
	f := setup(t)

	def, err := f.svc.Requirements("uk", "skilled worker visa")
	require.NoError(t, err)
	assert.Equal(t, "UK", def.Country)
	assert.NotEmpty(t, def.Requirements)

	_, err = f.svc.Requirements("Germany", "Golden Visa")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestSuggest(t *testing.T) {
	f := setup(t)

	plain, err := f.svc.Suggest("Germany", "Skilled Migration", nil)
	require.NoError(t, err)
	require.Len(t, plain, 2)
	assert.Equal(t, "EU Blue Card", plain[0].VisaType)
	assert.Equal(t, "Job Seeker Visa", plain[1].VisaType)
	assert.Nil(t, plain[0].Score)

	scored, err := f.svc.Suggest("", "work", &service.ApplicantInput{Profile: f.factory.Profile()})
	require.NoError(t, err)
	require.NotEmpty(t, scored)
	for i, sg := range scored {
		require.NotNil(t, sg.Score)
		if i > 0 {
			assert.GreaterOrEqual(t, scored[i-1].NormalizedScore, sg.NormalizedScore)
		}
	}

	_, err = f.svc.Suggest("", " ", nil)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = f.svc.Suggest("Atlantis", "work", nil)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestNormalize(t *testing.T) {
	f := setup(t)

	out := f.svc.Normalize(sampleExtraction(t))
	assert.Equal(t, "Priya Sharma", out.ApplicantName)
	require.NotNil(t, out.Profile.Salary)
	assert.Equal(t, 66000.0, out.Profile.Salary.Amount)
	assert.Equal(t, "EUR", out.Profile.Salary.Currency)
	assert.True(t, out.DataQuality.PassportVerified)
	assert.Contains(t, out.SubmittedDocuments, "job_offer")

	empty := f.svc.Normalize(domain.RawExtraction{})
	assert.Equal(t, []string{}, empty.SubmittedDocuments)
	assert.Equal(t, 0, empty.DataQuality.OverallConfidence)
}

// =============================================================================
// List
// =============================================================================

func TestList(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, c := range []struct{ country, visa, partner string }{
		{"Germany", "EU Blue Card", "p1"},
		{"Canada", "Express Entry", "p1"},
		{"Germany", "ICT Permit", "p2"},
	} {
		_, err := f.svc.Evaluate(ctx, service.EvaluateInput{
			ApplicantInput: service.ApplicantInput{Profile: f.factory.Profile()},
			Country:        c.country,
			VisaType:       c.visa,
			PartnerKey:     c.partner,
		})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	recs, total, err := f.svc.List(ctx, repository.ListParams{PartnerKey: "p1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, recs, 2)

	recs, total, err = f.svc.List(ctx, repository.ListParams{Country: "germany", PerPage: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, recs, 1)
	assert.Equal(t, "ICT Permit", recs[0].VisaType)
}
