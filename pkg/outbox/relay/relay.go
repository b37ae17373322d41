// Package relay moves committed outbox rows onto Pub/Sub.
//
// Rows are read oldest first under a row lock, published with the aggregate
// as ordering key and marked in the same transaction. When a publish for an
// aggregate fails, later rows of that aggregate in the batch are held back so
// subscribers never see an order's status change before its creation.
package relay

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/registry"
	"github.com/angelmondragon/marketplace-backend/pkg/pubsub"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

// Sink delivers one message. *pubsub.Client satisfies it.
type Sink interface {
	Ping(context.Context) error
	Send(context.Context, pubsub.Message) (string, error)
}

type store interface {
	ClaimBatch(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(tx *gorm.DB, id uuid.UUID) error
	RecordFailure(tx *gorm.DB, id uuid.UUID, err error) error
	Park(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
	Pending(maxAttempts int) (int64, error)
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// Metrics is the subset of metrics.OutboxMetrics the relay reports to.
type Metrics interface {
	ObserveBatch(time.Duration)
	IncPublished(eventType string)
	IncFailed(eventType string)
	SetPending(n int64)
}

type Settings struct {
	BatchSize      int
	PollInterval   time.Duration
	MaxAttempts    int
	PublishTimeout time.Duration
}

// SettingsFrom converts env config, filling defaults for unset values.
func SettingsFrom(cfg config.OutboxConfig) Settings {
	s := Settings{
		BatchSize:      cfg.BatchSize,
		PollInterval:   time.Duration(cfg.PollIntervalMS) * time.Millisecond,
		MaxAttempts:    cfg.MaxAttempts,
		PublishTimeout: time.Duration(cfg.PublishTimeout) * time.Millisecond,
	}
	return s.withDefaults()
}

func (s Settings) withDefaults() Settings {
	if s.BatchSize <= 0 {
		s.BatchSize = defaultBatchSize
	}
	if s.PollInterval <= 0 {
		s.PollInterval = defaultPollInterval
	}
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = defaultMaxAttempts
	}
	if s.PublishTimeout <= 0 {
		s.PublishTimeout = defaultPublishTimeout
	}
	return s
}

type Params struct {
	Settings Settings
	Logger   *logger.Logger
	DB       txRunner
	Store    store
	Registry resolver
	Sink     Sink
	Metrics  Metrics
}

type Relay struct {
	settings Settings
	logg     *logger.Logger
	db       txRunner
	store    store
	registry resolver
	sink     Sink
	metrics  Metrics
	jitter   func(time.Duration) time.Duration
}

// BatchResult counts what one pass did with the rows it locked.
type BatchResult struct {
	Fetched   int
	Published int
	Failed    int
	Terminal  int
	Held      int
}

func New(p Params) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database client is required")
	case p.Store == nil:
		return nil, errors.New("outbox store is required")
	case p.Registry == nil:
		return nil, errors.New("event registry is required")
	case p.Sink == nil:
		return nil, errors.New("sink is required")
	case p.Metrics == nil:
		return nil, errors.New("metrics are required")
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Relay{
		settings: p.Settings.withDefaults(),
		logg:     p.Logger,
		db:       p.DB,
		store:    p.Store,
		registry: p.Registry,
		sink:     p.Sink,
		metrics:  p.Metrics,
		jitter: func(d time.Duration) time.Duration {
			if d <= 0 {
				return 0
			}
			return d + time.Duration(rng.Int63n(int64(jitterWindow)))
		},
	}, nil
}

// Run drains the outbox until ctx is done. An empty pass sleeps one poll
// interval; a failing pass backs off exponentially up to maxBackoff.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := r.sink.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping failed: %w", err)
	}

	interval := r.settings.PollInterval
	backoff := interval
	for {
		if err := ctx.Err(); err != nil {
			r.logg.Info(ctx, "outbox relay stopping")
			return err
		}

		res, err := r.Drain(ctx)
		if err != nil {
			r.logg.Error(ctx, "outbox relay batch failed", err)
			backoff = min(backoff*2, maxBackoff)
			if err := sleep(ctx, r.jitter(backoff)); err != nil {
				return err
			}
			continue
		}
		backoff = interval

		// a full batch means more rows are likely waiting
		if res.Fetched >= r.settings.BatchSize && res.Held == 0 {
			continue
		}
		if err := sleep(ctx, r.jitter(interval)); err != nil {
			return err
		}
	}
}

// Drain runs one pass over at most BatchSize pending rows.
func (r *Relay) Drain(ctx context.Context) (BatchResult, error) {
	var res BatchResult
	started := time.Now()
	defer func() {
		if res.Fetched > 0 {
			r.metrics.ObserveBatch(time.Since(started))
		}
		if pending, err := r.store.Pending(r.settings.MaxAttempts); err == nil {
			r.metrics.SetPending(pending)
		}
	}()

	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		res = BatchResult{}
		rows, err := r.store.ClaimBatch(tx, r.settings.BatchSize, r.settings.MaxAttempts)
		if err != nil {
			return err
		}
		res.Fetched = len(rows)

		blocked := map[string]bool{}
		for _, row := range rows {
			key := row.Aggregate()
			if blocked[key] {
				res.Held++
				continue
			}
			outcome, err := r.relayOne(ctx, tx, row)
			if err != nil {
				return err
			}
			switch outcome {
			case outcomePublished:
				res.Published++
			case outcomeFailed:
				res.Failed++
				blocked[key] = true
			case outcomeTerminal:
				res.Terminal++
			}
		}
		return nil
	})
	return res, err
}

type outcome int

const (
	outcomePublished outcome = iota + 1
	outcomeFailed
	outcomeTerminal
)

func (r *Relay) relayOne(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) (outcome, error) {
	ctx = r.logg.WithFields(ctx, rowFields(row))

	resolved, err := r.registry.Resolve(row)
	if err != nil {
		return outcomeTerminal, r.terminal(ctx, tx, row, "non_retryable", err)
	}
	msg := message(row, resolved)
	ctx = r.logg.WithField(ctx, "event_id", resolved.Envelope.EventID)

	publishCtx, cancel := context.WithTimeout(ctx, r.settings.PublishTimeout)
	serverID, err := r.sink.Send(publishCtx, msg)
	cancel()
	if err != nil {
		var nonRetry registry.NonRetryableError
		if errors.As(err, &nonRetry) {
			return outcomeTerminal, r.terminal(ctx, tx, row, "non_retryable", err)
		}
		r.metrics.IncFailed(string(row.EventType))
		if row.AttemptCount+1 >= r.settings.MaxAttempts {
			return outcomeTerminal, r.terminal(ctx, tx, row, "max_attempts", fmt.Errorf("max publish attempts reached: %w", err))
		}
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "outbox publish failed")
		if markErr := r.store.RecordFailure(tx, row.ID, err); markErr != nil {
			return 0, fmt.Errorf("mark failure %s: %w", row.ID, markErr)
		}
		return outcomeFailed, nil
	}

	if err := r.store.MarkPublished(tx, row.ID); err != nil {
		return 0, fmt.Errorf("mark published %s: %w", row.ID, err)
	}
	r.metrics.IncPublished(string(row.EventType))
	r.logg.Info(r.logg.WithField(ctx, "message_id", serverID), "outbox event published")
	return outcomePublished, nil
}

func (r *Relay) terminal(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason string, cause error) error {
	ctx = r.logg.WithFields(ctx, map[string]any{"terminal_reason": reason, "error": cause.Error()})
	r.logg.Warn(ctx, "outbox event dropped")
	if err := r.store.Park(tx, row.ID, cause, r.settings.MaxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	return nil
}

func message(row models.OutboxEvent, resolved *registry.ResolvedEvent) pubsub.Message {
	env := resolved.Envelope
	attrs := map[string]string{
		"event_id":       env.EventID,
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID.String(),
		"version":        fmt.Sprint(env.Version),
		"occurred_at":    env.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	if env.Actor != nil {
		attrs["actor_id"] = env.Actor.UserID.String()
		if env.Actor.Role != "" {
			attrs["actor_role"] = string(env.Actor.Role)
		}
	}
	return pubsub.Message{
		Topic:       resolved.Descriptor.Topic,
		OrderingKey: row.Aggregate(),
		Data:        row.Payload,
		Attributes:  attrs,
	}
}

func rowFields(row models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"ordering_key":  row.Aggregate(),
		"attempt_count": row.AttemptCount,
	}
	if row.LastError != nil {
		fields["last_error"] = *row.LastError
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
