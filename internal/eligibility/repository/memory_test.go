package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visaeval/visaeval-backend/pkg/errors"
)

func newRecord(country, visaType, partner string) *EvaluationRecord {
	return &EvaluationRecord{
		Country:    country,
		VisaType:   visaType,
		PartnerKey: partner,
		Profile:    json.RawMessage(`{"has_job_offer":true}`),
		Result:     json.RawMessage(`{"score":70}`),
		Score:      70,
		Confidence: 60,
	}
}

// steppingClock returns a clock advancing one second per call.
func steppingClock() func() time.Time {
	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestMemoryRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	rec := newRecord("Germany", "EU Blue Card", "acme")
	require.NoError(t, repo.Create(ctx, rec))

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.NotNil(t, rec.Documents)

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Country, got.Country)
	assert.JSONEq(t, `{"score":70}`, string(got.Result))

	// Mutating the returned copy leaves the stored record alone.
	got.Country = "Mutated"
	got.Result[0] = '['
	again, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Germany", again.Country)
	assert.JSONEq(t, `{"score":70}`, string(again.Result))
}

func TestMemoryRepository_CreateKeepsCallerIdentity(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	created := time.Date(2024, 3, 9, 8, 30, 0, 0, time.UTC)

	rec := newRecord("Germany", "EU Blue Card", "acme")
	rec.ID = "5f0c8a57-2f5e-4d7c-9a55-6f1f7f3f1b2a"
	rec.CreatedAt = created
	require.NoError(t, repo.Create(ctx, rec))

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got.CreatedAt)
}

func TestMemoryRepository_DuplicateID(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	rec := newRecord("Canada", "Express Entry", "")
	require.NoError(t, repo.Create(ctx, rec))

	dup := newRecord("Canada", "Express Entry", "")
	dup.ID = rec.ID
	err := repo.Create(ctx, dup)
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestMemoryRepository_GetMissing(t *testing.T) {
	_, err := NewMemoryRepository().GetByID(context.Background(), "nope")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestMemoryRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	repo.now = steppingClock()

	records := []*EvaluationRecord{
		newRecord("Germany", "EU Blue Card", "acme"),
		newRecord("Canada", "Express Entry", "acme"),
		newRecord("Germany", "Job Seeker Visa", "globex"),
		newRecord("germany", "EU Blue Card", "acme"),
	}
	for _, rec := range records {
		require.NoError(t, repo.Create(ctx, rec))
	}

	tests := []struct {
		name      string
		params    ListParams
		wantIDs   []string
		wantTotal int64
	}{
		{
			name:      "all newest first",
			params:    ListParams{},
			wantIDs:   []string{records[3].ID, records[2].ID, records[1].ID, records[0].ID},
			wantTotal: 4,
		},
		{
			name:      "country ignores case",
			params:    ListParams{Country: "GERMANY"},
			wantIDs:   []string{records[3].ID, records[2].ID, records[0].ID},
			wantTotal: 3,
		},
		{
			name:      "partner key",
			params:    ListParams{PartnerKey: "globex"},
			wantIDs:   []string{records[2].ID},
			wantTotal: 1,
		},
		{
			name:      "country and visa type",
			params:    ListParams{Country: "Germany", VisaType: "eu blue card"},
			wantIDs:   []string{records[3].ID, records[0].ID},
			wantTotal: 2,
		},
		{
			name:      "second page",
			params:    ListParams{Page: 2, PerPage: 3},
			wantIDs:   []string{records[0].ID},
			wantTotal: 4,
		},
		{
			name:      "page past the end",
			params:    ListParams{Page: 5, PerPage: 3},
			wantIDs:   []string{},
			wantTotal: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := repo.List(ctx, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)

			ids := []string{}
			for _, rec := range got {
				ids = append(ids, rec.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}
