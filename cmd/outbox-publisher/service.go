package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/partyhub-backend/pkg/config"
	"github.com/angelmondragon/partyhub-backend/pkg/db/models"
	"github.com/angelmondragon/partyhub-backend/pkg/logger"
	"github.com/angelmondragon/partyhub-backend/pkg/metrics"
	"github.com/angelmondragon/partyhub-backend/pkg/outbox"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	ClaimBatch(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(tx *gorm.DB, at time.Time, ids ...int64) error
	RecordFailure(tx *gorm.DB, id int64, cause error) error
	Park(tx *gorm.DB, id int64, cause error, ceiling int) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*outbox.ResolvedEvent, error)
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
	ResumePublish(orderingKey string)
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	Metrics          *metrics.OutboxMetrics
}

// Service relays committed outbox rows to Pub/Sub under per-party ordering keys.
// Once one event of a party fails, the party's later events in the batch are
// deferred so consumers never observe them out of order. Rows that cannot be
// decoded, or that exhaust their attempts, are parked at the attempt ceiling.
type Service struct {
	cfg              *config.Config
	logg             *logger.Logger
	db               dbClient
	repo             outboxRepository
	pubsub           pubSubClient
	registry         registryResolver
	publisherFactory publisherFactory
	metrics          *metrics.OutboxMetrics
	batchSize        int
	maxAttempts      int
	pollInterval     time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	var errs error
	for _, dep := range []struct {
		missing bool
		name    string
	}{
		{params.Config == nil, "config"},
		{params.Logger == nil, "logger"},
		{params.DB == nil, "database client"},
		{params.PubSub == nil, "pubsub client"},
		{params.Repository == nil, "outbox repository"},
		{params.Registry == nil, "event registry"},
	} {
		if dep.missing {
			errs = multierr.Append(errs, fmt.Errorf("%s is required", dep.name))
		}
	}
	if errs != nil {
		return nil, errs
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = func(topic string) publisher {
			return newGCPPublisher(params.PubSub.Publisher(topic))
		}
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.Outbox.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		cfg:              params.Config,
		logg:             params.Logger,
		db:               params.DB,
		repo:             params.Repository,
		pubsub:           params.PubSub,
		registry:         params.Registry,
		publisherFactory: factory,
		metrics:          params.Metrics,
		batchSize:        batch,
		maxAttempts:      maxAttempts,
		pollInterval:     time.Duration(pollMs) * time.Millisecond,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	return pingDependency(ctx, s.logg, "pubsub", s.pubsub.Ping)
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	wait := newBackoff(s.pollInterval, maxBackoff)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		stats, err := s.processBatch(ctx)
		s.metrics.ObserveBatch(stats.claimed, stats.published, stats.failed, stats.parked, stats.deferred)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox.batch.failed", err)
			wait.grow()
		case stats.claimed > 0:
			s.logg.Debug(s.logg.WithFields(ctx, stats.fields()), "outbox.batch.done")
			wait.reset()
			// A non-empty batch means more rows may be waiting.
			continue
		default:
			wait.reset()
		}

		if err := sleepCtx(ctx, wait.next()); err != nil {
			return err
		}
	}
}

type batchStats struct {
	claimed   int
	published int
	failed    int
	parked    int
	deferred  int
}

func (b batchStats) fields() map[string]any {
	return map[string]any{
		"claimed":   b.claimed,
		"published": b.published,
		"failed":    b.failed,
		"parked":    b.parked,
		"deferred":  b.deferred,
	}
}

func (s *Service) processBatch(ctx context.Context) (batchStats, error) {
	var stats batchStats
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.ClaimBatch(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		stats = batchStats{claimed: len(events)}

		stalled := make(map[int64]bool)
		published := make([]int64, 0, len(events))
		for _, event := range events {
			if stalled[event.PartyID] {
				stats.deferred++
				continue
			}

			resolved, err := s.registry.Resolve(event)
			if err != nil {
				stats.parked++
				if err := s.park(ctx, tx, event, "undecodable", err, nil); err != nil {
					return err
				}
				continue
			}

			fields := s.eventFields(event, resolved.Envelope, resolved.Descriptor.Topic)
			pubErr := s.publishResolved(ctx, event, resolved)
			if pubErr == nil {
				published = append(published, event.ID)
				s.logg.Info(s.logg.WithFields(ctx, fields), "outbox.event.published")
				continue
			}

			stalled[event.PartyID] = true
			var nonRetry outbox.NonRetryableError
			attempt := event.AttemptCount + 1
			switch {
			case errors.As(pubErr, &nonRetry):
				stats.parked++
				if err := s.park(ctx, tx, event, "non_retryable", pubErr, fields); err != nil {
					return err
				}
			case attempt >= s.maxAttempts:
				stats.parked++
				if err := s.park(ctx, tx, event, "max_attempts", fmt.Errorf("max publish attempts reached: %w", pubErr), fields); err != nil {
					return err
				}
			default:
				stats.failed++
				fields["attempt_count"] = attempt
				fields["error"] = pubErr.Error()
				s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox.event.publish_failed")
				if err := s.repo.RecordFailure(tx, event.ID, pubErr); err != nil {
					return fmt.Errorf("record failure %d: %w", event.ID, err)
				}
			}
		}

		stats.published = len(published)
		if err := s.repo.MarkPublished(tx, time.Now().UTC(), published...); err != nil {
			return fmt.Errorf("mark published: %w", err)
		}
		return nil
	})
	return stats, err
}

func (s *Service) park(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason string, cause error, fields map[string]any) error {
	if fields == nil {
		fields = s.eventFields(event, outbox.PayloadEnvelope{}, "")
	}
	fields["terminal_reason"] = reason
	fields["error"] = cause.Error()
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox.event.parked")

	if err := s.repo.Park(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("park %d: %w", event.ID, err)
	}
	return nil
}

func (s *Service) publishResolved(ctx context.Context, event models.OutboxEvent, resolved *outbox.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.publisherFactory(topic)
	if pub == nil {
		return outbox.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	key := outbox.OrderingKey(event.PartyID)
	msg := &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: key,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   strconv.FormatInt(event.AggregateID, 10),
			"party_id":       strconv.FormatInt(event.PartyID, 10),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return outbox.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	if _, err := result.Get(publishCtx); err != nil {
		// An ordered publisher pauses the key after a failure until resumed.
		pub.ResumePublish(key)
		return err
	}
	return nil
}

func (s *Service) eventFields(event models.OutboxEvent, envelope outbox.PayloadEnvelope, topic string) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID,
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID,
		"party_id":       event.PartyID,
		"attempt_count":  event.AttemptCount,
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if topic != "" {
		fields["topic"] = topic
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}
