package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/catalog-admin/pkg/config"
	"github.com/angelmondragon/catalog-admin/pkg/db/models"
	"github.com/angelmondragon/catalog-admin/pkg/enums"
	"github.com/angelmondragon/catalog-admin/pkg/outbox"
	"github.com/angelmondragon/catalog-admin/pkg/outbox/payloads"
)

// catalogEvents lists every event the admin emits and the payload it carries.
var catalogEvents = []struct {
	eventType enums.OutboxEventType
	aggregate enums.OutboxAggregateType
	payload   func() any
}{
	{enums.EventCategoryCreated, enums.AggregateCategory, func() any { return &payloads.CategoryEvent{} }},
	{enums.EventCategoryUpdated, enums.AggregateCategory, func() any { return &payloads.CategoryEvent{} }},
	{enums.EventCategoryDeleted, enums.AggregateCategory, func() any { return &payloads.CategoryEvent{} }},
	{enums.EventProductCreated, enums.AggregateProduct, func() any { return &payloads.ProductEvent{} }},
	{enums.EventProductUpdated, enums.AggregateProduct, func() any { return &payloads.ProductEvent{} }},
	{enums.EventProductDeleted, enums.AggregateProduct, func() any { return &payloads.ProductDeletedEvent{} }},
	{enums.EventProductImagesReplaced, enums.AggregateProduct, func() any { return &payloads.ProductImagesReplacedEvent{} }},
}

// EventDescriptor routes one event type.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// ResolvedEvent is an outbox row with its envelope and typed payload decoded.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry validates outbox rows before they are published.
type EventRegistry struct {
	descriptors map[enums.OutboxEventType]EventDescriptor
	decoders    *DecoderRegistry
}

// NonRetryableError marks a row that can never be published as stored.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func nonRetryable(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

// NewEventRegistry routes every catalog event to the configured topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topic := strings.TrimSpace(cfg.CatalogTopic)
	if topic == "" {
		return nil, errors.New("catalog topic is required")
	}
	reg := &EventRegistry{
		descriptors: make(map[enums.OutboxEventType]EventDescriptor, len(catalogEvents)),
		decoders:    NewDecoderRegistry(),
	}
	for _, ev := range catalogEvents {
		reg.descriptors[ev.eventType] = EventDescriptor{EventType: ev.eventType, AggregateType: ev.aggregate, Topic: topic}
		reg.decoders.Register(ev.eventType, 1, JSONDecoder(ev.payload))
	}
	return reg, nil
}

// Resolve checks the row against its descriptor and decodes the payload for
// the envelope's version. Every failure is non-retryable.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.descriptors[event.EventType]
	switch {
	case !ok:
		return nil, nonRetryable("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, nonRetryable("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case strings.TrimSpace(event.AggregateID) == "":
		return nil, nonRetryable("missing aggregate_id")
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, nonRetryable("decode envelope: %w", err)
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nonRetryable("payload missing for %s", event.EventType)
	}
	version := envelope.Version
	if version == 0 {
		version = 1
	}
	payload, err := r.decoders.Decode(event.EventType, version, envelope.Data)
	if err != nil {
		return nil, nonRetryable("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
