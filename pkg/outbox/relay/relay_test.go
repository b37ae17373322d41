package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/registry"
	"github.com/angelmondragon/marketplace-backend/pkg/pubsub"
)

type fakeSink struct {
	mu   sync.Mutex
	sent []pubsub.Message
	fail map[string]error
}

func (f *fakeSink) Ping(context.Context) error { return nil }

func (f *fakeSink) Send(_ context.Context, msg pubsub.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[msg.OrderingKey]; err != nil {
		return "", err
	}
	f.sent = append(f.sent, msg)
	return "srv-" + msg.Attributes["event_id"], nil
}

type fakeMetrics struct {
	published map[string]int
	failed    map[string]int
	pending   int64
	batches   int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{published: map[string]int{}, failed: map[string]int{}}
}

func (m *fakeMetrics) ObserveBatch(time.Duration)    { m.batches++ }
func (m *fakeMetrics) IncPublished(eventType string) { m.published[eventType]++ }
func (m *fakeMetrics) IncFailed(eventType string)    { m.failed[eventType]++ }
func (m *fakeMetrics) SetPending(n int64)            { m.pending = n }

type harness struct {
	relay   *Relay
	conn    *gorm.DB
	sink    *fakeSink
	metrics *fakeMetrics
	base    time.Time
	n       int
}

func newHarness(t *testing.T, maxAttempts int) *harness {
	t.Helper()
	client, conn := dbtest.Client(t)
	reg, err := registry.NewEventRegistry(config.PubSubConfig{DomainTopic: "marketplace-events"})
	require.NoError(t, err)

	h := &harness{
		conn:    conn,
		sink:    &fakeSink{fail: map[string]error{}},
		metrics: newFakeMetrics(),
		base:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	h.relay, err = New(Params{
		Settings: Settings{BatchSize: 10, MaxAttempts: maxAttempts},
		Logger:   logger.New(logger.Options{ServiceName: "relay-test", Output: io.Discard}),
		DB:       client,
		Store:    outbox.NewRepository(conn),
		Registry: reg,
		Sink:     h.sink,
		Metrics:  h.metrics,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) insert(t *testing.T, eventType enums.OutboxEventType, aggType enums.OutboxAggregateType, aggID uuid.UUID, data any) models.OutboxEvent {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	env, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: h.base,
		Actor:      &outbox.ActorRef{UserID: uuid.New(), Role: enums.UserRoleBuyer},
		Data:       raw,
	})
	require.NoError(t, err)
	return h.insertRaw(t, eventType, aggType, aggID, env)
}

func (h *harness) insertRaw(t *testing.T, eventType enums.OutboxEventType, aggType enums.OutboxAggregateType, aggID uuid.UUID, payload []byte) models.OutboxEvent {
	t.Helper()
	h.n++
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: aggType,
		AggregateID:   aggID,
		Payload:       payload,
		CreatedAt:     h.base.Add(time.Duration(h.n) * time.Second),
	}
	require.NoError(t, outbox.NewRepository(h.conn).Append(h.conn, row))
	return row
}

func (h *harness) reload(t *testing.T, id uuid.UUID) models.OutboxEvent {
	t.Helper()
	var row models.OutboxEvent
	require.NoError(t, h.conn.First(&row, "id = ?", id).Error)
	return row
}

func orderCreated(orderID uuid.UUID) payloads.OrderCreatedEvent {
	return payloads.OrderCreatedEvent{OrderID: orderID, BuyerID: uuid.New(), SellerID: uuid.New(), ProductID: uuid.New(), Quantity: 2, TotalPrice: "20.00", Source: "direct"}
}

func statusChanged(orderID uuid.UUID) payloads.OrderStatusChangedEvent {
	return payloads.OrderStatusChangedEvent{OrderID: orderID, BuyerID: uuid.New(), SellerID: uuid.New(), From: enums.OrderStatusPending, To: enums.OrderStatusConfirmed}
}

func TestDrainPublishesInOrderWithAggregateKey(t *testing.T) {
	h := newHarness(t, 5)
	orderID := uuid.New()
	first := h.insert(t, enums.EventOrderCreated, enums.AggregateOrder, orderID, orderCreated(orderID))
	second := h.insert(t, enums.EventOrderStatusChanged, enums.AggregateOrder, orderID, statusChanged(orderID))

	res, err := h.relay.Drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, BatchResult{Fetched: 2, Published: 2}, res)

	require.Len(t, h.sink.sent, 2)
	require.Equal(t, "order_created", h.sink.sent[0].Attributes["event_type"])
	require.Equal(t, "order_status_changed", h.sink.sent[1].Attributes["event_type"])
	for _, msg := range h.sink.sent {
		require.Equal(t, "order:"+orderID.String(), msg.OrderingKey)
		require.Equal(t, "marketplace-events", msg.Topic)
		require.Equal(t, "buyer", msg.Attributes["actor_role"])
		require.Equal(t, "1", msg.Attributes["version"])
	}

	require.NotNil(t, h.reload(t, first.ID).PublishedAt)
	require.NotNil(t, h.reload(t, second.ID).PublishedAt)
	require.Equal(t, 1, h.metrics.published["order_created"])
	require.Zero(t, h.metrics.pending)
	require.Equal(t, 1, h.metrics.batches)
}

func TestDrainHoldsBackAggregateAfterFailure(t *testing.T) {
	h := newHarness(t, 5)
	stuck := uuid.New()
	other := uuid.New()
	created := h.insert(t, enums.EventOrderCreated, enums.AggregateOrder, stuck, orderCreated(stuck))
	changed := h.insert(t, enums.EventOrderStatusChanged, enums.AggregateOrder, stuck, statusChanged(stuck))
	unrelated := h.insert(t, enums.EventOrderCreated, enums.AggregateOrder, other, orderCreated(other))
	h.sink.fail["order:"+stuck.String()] = errors.New("unavailable")

	res, err := h.relay.Drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, BatchResult{Fetched: 3, Published: 1, Failed: 1, Held: 1}, res)

	row := h.reload(t, created.ID)
	require.Nil(t, row.PublishedAt)
	require.Equal(t, 1, row.AttemptCount)
	require.NotNil(t, row.LastError)
	require.Equal(t, "unavailable", *row.LastError)

	held := h.reload(t, changed.ID)
	require.Nil(t, held.PublishedAt)
	require.Zero(t, held.AttemptCount)
	require.NotNil(t, h.reload(t, unrelated.ID).PublishedAt)
	require.EqualValues(t, 2, h.metrics.pending)

	delete(h.sink.fail, "order:"+stuck.String())
	res, err = h.relay.Drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, res.Published)
	require.Equal(t, "order_created", h.sink.sent[1].Attributes["event_type"])
	require.Equal(t, "order_status_changed", h.sink.sent[2].Attributes["event_type"])
}

func TestDrainParksUndecodableRows(t *testing.T) {
	h := newHarness(t, 5)
	bad := h.insertRaw(t, enums.EventMessageSent, enums.AggregateMessage, uuid.New(), []byte(`{"version":1,"data":null}`))

	res, err := h.relay.Drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Terminal)
	require.Empty(t, h.sink.sent)

	row := h.reload(t, bad.ID)
	require.Nil(t, row.PublishedAt)
	require.Equal(t, 5, row.AttemptCount)

	res, err = h.relay.Drain(context.Background())
	require.NoError(t, err)
	require.Zero(t, res.Fetched)
}

func TestDrainParksRowAtMaxAttempts(t *testing.T) {
	h := newHarness(t, 2)
	sellerID := uuid.New()
	row := h.insert(t, enums.EventSellerEnabled, enums.AggregateSeller, sellerID, payloads.SellerEnabledEvent{ProfileID: uuid.New(), SellerID: sellerID, StoreName: "Shop"})
	h.sink.fail["seller:"+sellerID.String()] = errors.New("deadline exceeded")

	res, err := h.relay.Drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Failed)

	res, err = h.relay.Drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Terminal)

	got := h.reload(t, row.ID)
	require.Equal(t, 2, got.AttemptCount)
	require.Contains(t, *got.LastError, "max publish attempts reached")
	require.Equal(t, 2, h.metrics.failed["seller_enabled"])
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, 5)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.relay.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestNewValidatesParams(t *testing.T) {
	_, err := New(Params{})
	require.EqualError(t, err, "logger is required")
}

func TestSettingsFromFillsDefaults(t *testing.T) {
	s := SettingsFrom(config.OutboxConfig{BatchSize: 5})
	require.Equal(t, 5, s.BatchSize)
	require.Equal(t, defaultPollInterval, s.PollInterval)
	require.Equal(t, defaultMaxAttempts, s.MaxAttempts)
	require.Equal(t, defaultPublishTimeout, s.PublishTimeout)
}
