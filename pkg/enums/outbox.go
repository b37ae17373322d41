package enums

import "slices"

// OutboxAggregateType is the aggregate_type column of outbox_events. Events
// for the same aggregate are published in order.
type OutboxAggregateType string

const (
	AggregateProfile OutboxAggregateType = "profile"
	AggregateSeller  OutboxAggregateType = "seller"
	AggregateOrder   OutboxAggregateType = "order"
	AggregateMessage OutboxAggregateType = "message"
)

var aggregateTypes = []OutboxAggregateType{AggregateProfile, AggregateSeller, AggregateOrder, AggregateMessage}

func (a OutboxAggregateType) IsValid() bool { return slices.Contains(aggregateTypes, a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(aggregateTypes, value, "aggregate type")
}

type OutboxEventType string

const (
	EventIdentityProvisioned OutboxEventType = "identity_provisioned"
	EventSellerEnabled       OutboxEventType = "seller_enabled"
	EventSellerDisabled      OutboxEventType = "seller_disabled"
	EventOrderCreated        OutboxEventType = "order_created"
	EventOrderStatusChanged  OutboxEventType = "order_status_changed"
	EventMessageSent         OutboxEventType = "message_sent"
)

var eventTypes = []OutboxEventType{
	EventIdentityProvisioned,
	EventSellerEnabled,
	EventSellerDisabled,
	EventOrderCreated,
	EventOrderStatusChanged,
	EventMessageSent,
}

func (e OutboxEventType) IsValid() bool { return slices.Contains(eventTypes, e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(eventTypes, value, "event type")
}
