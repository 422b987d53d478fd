package consumers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/visaeval/visaeval-backend/internal/eligibility/domain"
	"github.com/visaeval/visaeval-backend/internal/eligibility/service"
	"github.com/visaeval/visaeval-backend/pkg/errors"
	"github.com/visaeval/visaeval-backend/pkg/logger"
	"github.com/visaeval/visaeval-backend/pkg/messaging"
)

// QueueName is the queue partner evaluation requests are consumed from.
const QueueName = "eligibility-service.evaluation-requests"

// Evaluator is the part of the eligibility service the consumer drives.
type Evaluator interface {
	Evaluate(ctx context.Context, in service.EvaluateInput) (*service.Evaluation, error)
}

// EvaluationRequestConsumer consumes evaluation requests submitted over the bus
type EvaluationRequestConsumer struct {
	consumer  *messaging.Consumer
	evaluator Evaluator
	logger    *logger.Logger
}

// NewEvaluationRequestConsumer creates a new evaluation request consumer
func NewEvaluationRequestConsumer(rmq *messaging.RabbitMQ, evaluator Evaluator, log *logger.Logger) (*EvaluationRequestConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, QueueName, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeEligibilityEvents, messaging.EventEvaluationRequested); err != nil {
		return nil, err
	}

	c := &EvaluationRequestConsumer{
		consumer:  consumer,
		evaluator: evaluator,
		logger:    log,
	}
	consumer.RegisterHandler(messaging.EventEvaluationRequested, c.handleEvaluationRequested)

	return c, nil
}

// Start starts consuming messages
func (c *EvaluationRequestConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// handleEvaluationRequested evaluates one request. Requests that can never
// succeed are acknowledged and logged; everything else is returned for retry.
func (c *EvaluationRequestConsumer) handleEvaluationRequested(ctx context.Context, event *messaging.Event) error {
	var data messaging.EvaluationRequestedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("decode evaluation request: %w", err)
	}

	in, err := toInput(data)
	if err != nil {
		c.logger.Error().Err(err).Str("request_id", data.RequestID).Msg("discarding malformed evaluation request")
		return nil
	}
	if event.CorrelationID != "" {
		ctx = messaging.WithCorrelationID(ctx, event.CorrelationID)
	}

	eval, err := c.evaluator.Evaluate(ctx, in)
	if err != nil {
		if permanent(err) {
			c.logger.Warn().Err(err).
				Str("request_id", data.RequestID).
				Str("country", data.Country).
				Str("visa_type", data.VisaType).
				Msg("evaluation request rejected")
			return nil
		}
		return err
	}

	c.logger.Info().
		Str("request_id", data.RequestID).
		Str("evaluation_id", eval.ID).
		Int("score", eval.Result.Score).
		Msg("evaluation request processed")
	return nil
}

func toInput(data messaging.EvaluationRequestedEvent) (service.EvaluateInput, error) {
	in := service.EvaluateInput{
		RequestID:      data.RequestID,
		Country:        data.Country,
		VisaType:       data.VisaType,
		Purpose:        data.Purpose,
		PartnerKey:     data.PartnerKey,
		ApplicantName:  data.ApplicantName,
		ApplicantEmail: data.ApplicantEmail,
	}
	in.DocumentJobIDs = data.DocumentJobIDs

	if len(data.Profile) > 0 && string(data.Profile) != "null" {
		var p domain.ApplicantProfile
		if err := json.Unmarshal(data.Profile, &p); err != nil {
			return in, fmt.Errorf("decode profile: %w", err)
		}
		in.Profile = &p
	}
	if len(data.Extraction) > 0 && string(data.Extraction) != "null" {
		var raw domain.RawExtraction
		if err := json.Unmarshal(data.Extraction, &raw); err != nil {
			return in, fmt.Errorf("decode extraction: %w", err)
		}
		in.Extraction = &raw
	}
	return in, nil
}

// permanent reports errors a redelivery cannot fix.
func permanent(err error) bool {
	return errors.Is(err, errors.ErrBadRequest) ||
		errors.Is(err, errors.ErrValidation) ||
		errors.Is(err, errors.ErrInvalidCallContract) ||
		errors.Is(err, errors.ErrNotFound)
}
