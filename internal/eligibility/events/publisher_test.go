package events_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visaeval/visaeval-backend/internal/eligibility/domain"
	"github.com/visaeval/visaeval-backend/internal/eligibility/events"
	"github.com/visaeval/visaeval-backend/internal/eligibility/repository"
	"github.com/visaeval/visaeval-backend/pkg/messaging"
	"github.com/visaeval/visaeval-backend/pkg/testutil"
)

func TestPublishEvaluationCompleted(t *testing.T) {
	pub := testutil.NewMockPublisher()
	p := events.NewWithPublisher(pub, nil)

	rec := &repository.EvaluationRecord{ID: "eval-1", PartnerKey: "partner-1"}
	result := &domain.EvaluationResult{
		Country:         "Germany",
		VisaType:        "EU Blue Card",
		Score:           72,
		NormalizedScore: 72.4,
		Confidence:      90,
		IsPassing:       true,
		HardFails:       []string{},
	}
	p.PublishEvaluationCompleted(context.Background(), rec, "req-9", result)

	pub.AssertEventPublished(t, messaging.EventEvaluationCompleted)
	got := pub.Events()[0].Payload.(messaging.EvaluationCompletedEvent)
	assert.Equal(t, "eval-1", got.EvaluationID)
	assert.Equal(t, "req-9", got.RequestID)
	assert.Equal(t, "partner-1", got.PartnerKey)
	assert.Equal(t, 72, got.Score)
	assert.True(t, got.IsPassing)
}

func TestPublishComparisonCompleted(t *testing.T) {
	pub := testutil.NewMockPublisher()
	p := events.NewWithPublisher(pub, nil)

	rankings := []domain.Ranking{
		{Country: "Canada", VisaType: "Express Entry", NormalizedScore: 80, IsPassing: true},
		{Country: "Germany", VisaType: "EU Blue Card", NormalizedScore: 70, IsPassing: true},
		{Country: "Poland", VisaType: "Work Permit Type C", NormalizedScore: 40},
	}
	skipped := []domain.PairError{{Country: "Atlantis", Error: "country not in catalog"}}
	p.PublishComparisonCompleted(context.Background(), "partner-1", rankings, skipped)

	require.Len(t, pub.Events(), 1)
	got := pub.Events()[0].Payload.(messaging.ComparisonCompletedEvent)
	assert.Equal(t, messaging.ComparisonCompletedEvent{
		PartnerKey:   "partner-1",
		Evaluated:    3,
		Skipped:      1,
		TopCountry:   "Canada",
		TopVisaType:  "Express Entry",
		TopScore:     80,
		PassingCount: 2,
	}, got)
}

func TestPublisher_NilSafe(t *testing.T) {
	var nilPublisher *events.EligibilityEventPublisher
	assert.NotPanics(t, func() {
		nilPublisher.PublishComparisonCompleted(context.Background(), "", nil, nil)
	})

	noBroker := events.NewWithPublisher(nil, nil)
	assert.NotPanics(t, func() {
		noBroker.PublishEvaluationCompleted(context.Background(), &repository.EvaluationRecord{}, "", &domain.EvaluationResult{})
	})
}

func TestPublisher_ErrorIsSwallowed(t *testing.T) {
	pub := testutil.NewMockPublisher()
	pub.Err = fmt.Errorf("broker gone")
	p := events.NewWithPublisher(pub, nil)

	assert.NotPanics(t, func() {
		p.PublishComparisonCompleted(context.Background(), "", nil, nil)
	})
}
