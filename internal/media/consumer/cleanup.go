package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/catalog-admin/pkg/enums"
	"github.com/angelmondragon/catalog-admin/pkg/logger"
	"github.com/angelmondragon/catalog-admin/pkg/outbox"
	"github.com/angelmondragon/catalog-admin/pkg/outbox/payloads"
	"github.com/angelmondragon/catalog-admin/pkg/storage"
)

// ConsumerName scopes idempotency markers for this consumer.
const ConsumerName = "media-cleanup"

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type decoder interface {
	Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (interface{}, error)
}

type idempotencyGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Release(ctx context.Context, consumer, eventID string) error
}

type objectDeleter interface {
	Delete(ctx context.Context, key string) error
}

type referenceChecker interface {
	StorageKeyInUse(ctx context.Context, key string) (bool, error)
}

// Params bundles the cleanup consumer dependencies.
type Params struct {
	Subscription receiver
	Decoders     decoder
	Idempotency  idempotencyGuard
	Store        objectDeleter
	References   referenceChecker
	Logger       *logger.Logger
}

// CleanupConsumer deletes storage objects orphaned by product deletions and image replacements.
type CleanupConsumer struct {
	subscription receiver
	decoders     decoder
	idempotency  idempotencyGuard
	store        objectDeleter
	references   referenceChecker
	logg         *logger.Logger
}

// NewCleanupConsumer validates and wires the consumer.
func NewCleanupConsumer(p Params) (*CleanupConsumer, error) {
	if p.Subscription == nil {
		return nil, errors.New("catalog subscription is required")
	}
	if p.Decoders == nil {
		return nil, errors.New("decoder registry is required")
	}
	if p.Idempotency == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if p.Store == nil {
		return nil, errors.New("object store is required")
	}
	if p.References == nil {
		return nil, errors.New("reference checker is required")
	}
	if p.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &CleanupConsumer{
		subscription: p.Subscription,
		decoders:     p.Decoders,
		idempotency:  p.Idempotency,
		store:        p.Store,
		references:   p.References,
		logg:         p.Logger,
	}, nil
}

// Run processes catalog events until the context is canceled or the subscription errors.
func (c *CleanupConsumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack     bool
	nack    bool
	deleted int
}

func (c *CleanupConsumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	fields := map[string]any{
		"message_id":   msg.ID,
		"event_type":   string(eventType),
		"aggregate_id": msg.Attributes["aggregate_id"],
	}
	logCtx := c.logg.WithFields(ctx, fields)

	if eventType != enums.EventProductDeleted && eventType != enums.EventProductImagesReplaced {
		c.logg.Debug(logCtx, "skipping catalog event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	eventID := strings.TrimSpace(envelope.EventID)
	if eventID == "" {
		eventID = msg.Attributes["event_id"]
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID)

	keys, err := c.orphanedKeys(eventType, envelope)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		return processResult{ack: true}
	}
	if len(keys) == 0 {
		return processResult{ack: true}
	}

	seen, err := c.idempotency.CheckAndMarkProcessed(logCtx, ConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if seen {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	deleted := 0
	for _, key := range keys {
		keyCtx := c.logg.WithField(logCtx, "storage_key", key)
		inUse, err := c.references.StorageKeyInUse(keyCtx, key)
		if err != nil {
			return c.retry(keyCtx, eventID, fmt.Errorf("check references: %w", err))
		}
		if inUse {
			c.logg.Info(keyCtx, "storage object still referenced")
			continue
		}
		if err := c.store.Delete(keyCtx, key); err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				continue
			}
			return c.retry(keyCtx, eventID, fmt.Errorf("delete object: %w", err))
		}
		deleted++
	}

	c.logg.Info(c.logg.WithField(logCtx, "objects_deleted", strconv.Itoa(deleted)), "media cleanup complete")
	return processResult{ack: true, deleted: deleted}
}

func (c *CleanupConsumer) orphanedKeys(eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) ([]string, error) {
	version := envelope.Version
	if version == 0 {
		version = 1
	}
	payload, err := c.decoders.Decode(eventType, version, envelope.Data)
	if err != nil {
		return nil, err
	}
	switch p := payload.(type) {
	case *payloads.ProductDeletedEvent:
		return p.StorageKeys, nil
	case *payloads.ProductImagesReplacedEvent:
		return p.RemovedStorageKeys, nil
	default:
		return nil, fmt.Errorf("unexpected payload %T", payload)
	}
}

func (c *CleanupConsumer) retry(ctx context.Context, eventID string, err error) processResult {
	c.logg.Error(ctx, "media cleanup failed", err)
	if releaseErr := c.idempotency.Release(ctx, ConsumerName, eventID); releaseErr != nil {
		c.logg.Error(ctx, "failed to release idempotency marker", releaseErr)
	}
	return processResult{nack: true}
}
