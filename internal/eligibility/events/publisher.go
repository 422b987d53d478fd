package events

import (
	"context"

	"github.com/visaeval/visaeval-backend/internal/eligibility/domain"
	"github.com/visaeval/visaeval-backend/internal/eligibility/repository"
	"github.com/visaeval/visaeval-backend/pkg/logger"
	"github.com/visaeval/visaeval-backend/pkg/messaging"
)

// ServiceName is the event source of the eligibility service.
const ServiceName = "eligibility-service"

// EligibilityEventPublisher publishes eligibility events. A publisher without
// a broker drops events, so the service runs standalone.
type EligibilityEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewEligibilityEventPublisher creates a publisher on the eligibility exchange.
func NewEligibilityEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*EligibilityEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeEligibilityEvents, ServiceName, log)
	if err != nil {
		return nil, err
	}
	return NewWithPublisher(publisher, log), nil
}

// NewWithPublisher wraps an existing publisher; pub may be nil.
func NewWithPublisher(pub messaging.EventPublisher, log *logger.Logger) *EligibilityEventPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &EligibilityEventPublisher{publisher: pub, logger: log}
}

// PublishEvaluationCompleted publishes an evaluation completed event
func (p *EligibilityEventPublisher) PublishEvaluationCompleted(ctx context.Context, rec *repository.EvaluationRecord, requestID string, result *domain.EvaluationResult) {
	if p == nil || p.publisher == nil {
		return
	}
	data := messaging.EvaluationCompletedEvent{
		EvaluationID:            rec.ID,
		RequestID:               requestID,
		PartnerKey:              rec.PartnerKey,
		Country:                 result.Country,
		VisaType:                result.VisaType,
		Score:                   result.Score,
		NormalizedScore:         result.NormalizedScore,
		Confidence:              result.Confidence,
		IsPassing:               result.IsPassing,
		UsedDefaultRequirements: result.UsedDefaultRequirements,
		HardFails:               result.HardFails,
	}

	if err := p.publisher.Publish(ctx, messaging.EventEvaluationCompleted, data); err != nil {
		p.logger.Error().Err(err).Str("evaluation_id", rec.ID).Msg("failed to publish evaluation completed event")
	}
}

// PublishComparisonCompleted publishes a comparison summary; rankings are
// expected best first.
func (p *EligibilityEventPublisher) PublishComparisonCompleted(ctx context.Context, partnerKey string, rankings []domain.Ranking, skipped []domain.PairError) {
	if p == nil || p.publisher == nil {
		return
	}
	data := messaging.ComparisonCompletedEvent{
		PartnerKey: partnerKey,
		Evaluated:  len(rankings),
		Skipped:    len(skipped),
	}
	if len(rankings) > 0 {
		data.TopCountry = rankings[0].Country
		data.TopVisaType = rankings[0].VisaType
		data.TopScore = rankings[0].NormalizedScore
	}
	for _, r := range rankings {
		if r.IsPassing {
			data.PassingCount++
		}
	}

	if err := p.publisher.Publish(ctx, messaging.EventComparisonCompleted, data); err != nil {
		p.logger.Error().Err(err).Int("evaluated", data.Evaluated).Msg("failed to publish comparison completed event")
	}
}
