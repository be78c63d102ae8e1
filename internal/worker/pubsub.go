package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types carried in JobMessage.
const (
	JobProviderProbe = "provider_probe"
	JobHealthCheck   = "health_check"
)

// JobMessage is the Pub/Sub payload that triggers a job.
type JobMessage struct {
	JobType string `json:"job_type"`
}

// Processor runs the job named by a message payload.
type Processor struct {
	probe       *ProbeJob
	healthCheck *ProbeJob
	logger      zerolog.Logger
}

// NewProcessor creates a Processor around probe.
func NewProcessor(probe *ProbeJob, logger zerolog.Logger) *Processor {
	return &Processor{
		probe:       probe,
		healthCheck: probe.WithConfig(HealthCheckConfig()),
		logger:      logger,
	}
}

// Process runs the job in data. A nil error means the message should be
// acked; malformed payloads and unknown job types are acked so they are not
// redelivered.
func (p *Processor) Process(ctx context.Context, data []byte) error {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		p.logger.Error().Err(err).Msg("dropping malformed job message")
		return nil
	}

	switch msg.JobType {
	case JobProviderProbe:
		return p.runProbe(ctx)
	case JobHealthCheck:
		return p.runHealthCheck(ctx)
	default:
		p.logger.Warn().Str("job_type", msg.JobType).Msg("unknown job type")
		return nil
	}
}

func (p *Processor) runProbe(ctx context.Context) error {
	result := p.probe.Run(ctx)

	// Consider it successful if at least half the points succeeded.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many probe failures: %d/%d", result.Failed, result.TotalPoints)
	}
	return nil
}

func (p *Processor) runHealthCheck(ctx context.Context) error {
	result := p.healthCheck.Run(ctx)
	if result.Failed > 0 {
		return fmt.Errorf("health check failed: %d errors", len(result.Errors))
	}
	p.logger.Debug().Msg("health check passed")
	return nil
}

// PubSubHandler feeds Pub/Sub messages to a Processor.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	processor        *Processor
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Processor        *Processor
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Probes are slow and fan out to every provider; keep few in flight.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 2
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		processor:        cfg.Processor,
		logger:           cfg.Logger,
	}, nil
}

// Start receives messages until ctx is canceled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		startTime := time.Now()
		logger := h.logger.With().
			Str("message_id", msg.ID).
			Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
			Logger()

		if err := h.processor.Process(ctx, msg.Data); err != nil {
			logger.Error().Err(err).Msg("job failed")
			msg.Nack()
			return
		}

		logger.Info().Dur("duration", time.Since(startTime)).Msg("message processed")
		msg.Ack()
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}
