package enums

// OutboxEventType distinguishes the domain events stored in outbox_events.
type OutboxEventType string

const (
	EventUserRegistered         OutboxEventType = "user.registered"
	EventPasswordResetRequested OutboxEventType = "user.password_reset_requested"
	EventOrderPlaced            OutboxEventType = "order.placed"
)

// String implements fmt.Stringer.
func (e OutboxEventType) String() string {
	return string(e)
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateUser  OutboxAggregateType = "user"
	AggregateOrder OutboxAggregateType = "order"
)

// String implements fmt.Stringer.
func (a OutboxAggregateType) String() string {
	return string(a)
}

// OutboxStatus tracks publication of an outbox row.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
)

// String implements fmt.Stringer.
func (s OutboxStatus) String() string {
	return string(s)
}
