package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/powderlines/powderlines/internal/quality"
	"github.com/powderlines/powderlines/internal/resort"
)

// Job types accepted on the collection subscription.
const (
	JobConditions = "conditions"
	JobTrails     = "trails"
	JobContacts   = "contacts"
	JobQuality    = "quality_check"
)

// JobMessage is the Pub/Sub envelope for collection jobs. A resort id
// narrows the job to one resort; otherwise the job covers every enabled
// resort in the registry, or every resort when collect_all is set.
type JobMessage struct {
	JobType    string `json:"job_type"`
	ResortID   int64  `json:"resort_id,omitempty"`
	CollectAll bool   `json:"collect_all,omitempty"`
}

// PubSubHandler handles Pub/Sub messages for the collection worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	registry         *resort.Registry
	collector        *Collector
	trails           *TrailCollector
	contacts         *ContactCollector
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Registry         *resort.Registry
	Collector        *Collector
	Trails           *TrailCollector
	Contacts         *ContactCollector
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// One sweep at a time; overlapping sweeps would double-hit the
	// upstream providers. Full sweeps run well past the default lease.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 1
	subscriber.ReceiveSettings.MaxExtension = 30 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		registry:         cfg.Registry,
		collector:        cfg.Collector,
		trails:           cfg.Trails,
		contacts:         cfg.Contacts,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	var job JobMessage
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		// Poison message; redelivery would fail the same way.
		logger.Error().Err(err).Msg("failed to parse message, dropping")
		msg.Ack()
		return
	}

	var err error
	switch job.JobType {
	case JobConditions:
		err = h.handleCollect(ctx, job)
	case JobTrails:
		err = h.handleTrails(ctx, job)
	case JobContacts:
		err = h.handleContacts(ctx, job)
	case JobQuality:
		err = h.handleQuality(ctx)
	default:
		logger.Warn().Str("job_type", job.JobType).Msg("unknown job type")
		msg.Ack() // Ack unknown messages to prevent redelivery
		return
	}

	if err != nil {
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
		return
	}

	duration := time.Since(startTime)
	logger.Info().
		Str("job_type", job.JobType).
		Dur("duration", duration).
		Msg("job completed successfully")

	msg.Ack()
}

func (h *PubSubHandler) handleCollect(ctx context.Context, job JobMessage) error {
	resorts, err := h.targets(job)
	if err != nil {
		return err
	}

	result := h.collector.Run(ctx, resorts)

	// Consider it successful if more than half succeeded. A mostly
	// failed sweep usually means an upstream outage; redelivery gives it
	// another chance.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many collection failures: %d/%d", result.Failed, result.TotalResorts)
	}

	return nil
}

func (h *PubSubHandler) handleTrails(ctx context.Context, job JobMessage) error {
	resorts, err := h.targets(job)
	if err != nil {
		return err
	}

	result := h.trails.Run(ctx, resorts)

	if result.Failed > result.Successful {
		return fmt.Errorf("too many trail import failures: %d/%d", result.Failed, result.TotalResorts)
	}

	return nil
}

func (h *PubSubHandler) handleContacts(ctx context.Context, job JobMessage) error {
	resorts, err := h.targets(job)
	if err != nil {
		return err
	}

	result := h.contacts.Run(ctx, resorts)

	if result.Failed > result.Successful {
		return fmt.Errorf("too many contact lookup failures: %d/%d", result.Failed, result.TotalResorts)
	}

	return nil
}

func (h *PubSubHandler) handleQuality(ctx context.Context) error {
	reports, _, err := h.collector.QualityCheck(ctx)
	if err != nil {
		return err
	}

	for _, rep := range reports {
		if rep.Status == quality.LevelError {
			h.logger.Warn().
				Str("resort", rep.ResortName).
				Float64("score", rep.Score).
				Msg("resort failed quality check")
		}
	}

	return nil
}

// targets resolves the resorts a job applies to.
func (h *PubSubHandler) targets(job JobMessage) ([]resort.Descriptor, error) {
	if job.ResortID != 0 {
		desc, ok := h.registry.ByID(job.ResortID)
		if !ok {
			return nil, fmt.Errorf("resort %d not in registry", job.ResortID)
		}
		return []resort.Descriptor{desc}, nil
	}

	if job.CollectAll {
		return h.registry.Resorts, nil
	}
	return h.registry.Enabled(), nil
}
