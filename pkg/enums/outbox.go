package enums

// OutboxAggregateType names the catalog entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateCategory OutboxAggregateType = "category"
	AggregateProduct  OutboxAggregateType = "product"
)

var aggregateTypes = []OutboxAggregateType{AggregateCategory, AggregateProduct}

func (a OutboxAggregateType) IsValid() bool { return known(a, aggregateTypes) }

// OutboxEventType names a catalog change published through the outbox.
type OutboxEventType string

const (
	EventCategoryCreated       OutboxEventType = "category_created"
	EventCategoryUpdated       OutboxEventType = "category_updated"
	EventCategoryDeleted       OutboxEventType = "category_deleted"
	EventProductCreated        OutboxEventType = "product_created"
	EventProductUpdated        OutboxEventType = "product_updated"
	EventProductDeleted        OutboxEventType = "product_deleted"
	EventProductImagesReplaced OutboxEventType = "product_images_replaced"
)

var eventTypes = []OutboxEventType{
	EventCategoryCreated,
	EventCategoryUpdated,
	EventCategoryDeleted,
	EventProductCreated,
	EventProductUpdated,
	EventProductDeleted,
	EventProductImagesReplaced,
}

func (e OutboxEventType) IsValid() bool { return known(e, eventTypes) }

// OutboxDLQErrorReason records why a row left the outbox without being published.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return known(r, []OutboxDLQErrorReason{OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable})
}
