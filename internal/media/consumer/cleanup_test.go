package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/catalog-admin/pkg/config"
	"github.com/angelmondragon/catalog-admin/pkg/enums"
	"github.com/angelmondragon/catalog-admin/pkg/logger"
	"github.com/angelmondragon/catalog-admin/pkg/outbox"
	"github.com/angelmondragon/catalog-admin/pkg/outbox/payloads"
	"github.com/angelmondragon/catalog-admin/pkg/outbox/registry"
	"github.com/angelmondragon/catalog-admin/pkg/storage"
)

type stubReceiver struct{}

func (stubReceiver) Receive(context.Context, func(context.Context, *pubsub.Message)) error {
	return nil
}

type memoryGuard struct {
	seen     map[string]bool
	released []string
	err      error
}

func (m *memoryGuard) CheckAndMarkProcessed(_ context.Context, consumer, eventID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	key := consumer + ":" + eventID
	if m.seen[key] {
		return true, nil
	}
	m.seen[key] = true
	return false, nil
}

func (m *memoryGuard) Release(_ context.Context, consumer, eventID string) error {
	key := consumer + ":" + eventID
	delete(m.seen, key)
	m.released = append(m.released, key)
	return nil
}

type recordingDeleter struct {
	deleted []string
	errs    map[string]error
}

func (r *recordingDeleter) Delete(_ context.Context, key string) error {
	r.deleted = append(r.deleted, key)
	return r.errs[key]
}

type stubReferences struct {
	inUse map[string]bool
}

func (s stubReferences) StorageKeyInUse(_ context.Context, key string) (bool, error) {
	return s.inUse[key], nil
}

type harness struct {
	consumer *CleanupConsumer
	guard    *memoryGuard
	deleter  *recordingDeleter
}

func newHarness(t *testing.T, refs map[string]bool) harness {
	t.Helper()
	reg, err := registry.NewEventRegistry(config.PubSubConfig{CatalogTopic: "catalog-events"})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	guard := &memoryGuard{seen: map[string]bool{}}
	deleter := &recordingDeleter{errs: map[string]error{}}
	c, err := NewCleanupConsumer(Params{
		Subscription: stubReceiver{},
		Decoders:     registry.DecoderRegistryFor(reg),
		Idempotency:  guard,
		Store:        deleter,
		References:   stubReferences{inUse: refs},
		Logger:       logger.Nop(),
	})
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	return harness{consumer: c, guard: guard, deleter: deleter}
}

func buildMessage(t *testing.T, eventType enums.OutboxEventType, eventID string, data any) *pubsub.Message {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &pubsub.Message{
		ID:   "msg-" + eventID,
		Data: envelope,
		Attributes: map[string]string{
			"event_id":   eventID,
			"event_type": string(eventType),
		},
	}
}

func TestCleanupDeletesUnreferencedKeys(t *testing.T) {
	h := newHarness(t, map[string]bool{"kept.png": true})
	msg := buildMessage(t, enums.EventProductImagesReplaced, "evt-1", payloads.ProductImagesReplacedEvent{
		ProductID:          4,
		RemovedStorageKeys: []string{"old.png", "kept.png"},
	})

	result := h.consumer.process(context.Background(), msg)
	if !result.ack || result.deleted != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(h.deleter.deleted) != 1 || h.deleter.deleted[0] != "old.png" {
		t.Fatalf("unexpected deletions %v", h.deleter.deleted)
	}

	again := h.consumer.process(context.Background(), msg)
	if !again.ack || len(h.deleter.deleted) != 1 {
		t.Fatalf("redelivered event should be skipped, got %+v", again)
	}
}

func TestCleanupTreatsMissingObjectAsDone(t *testing.T) {
	h := newHarness(t, nil)
	h.deleter.errs["gone.png"] = storage.ErrObjectNotFound
	msg := buildMessage(t, enums.EventProductDeleted, "evt-2", payloads.ProductDeletedEvent{
		ProductID:   9,
		StorageKeys: []string{"gone.png", "live.png"},
	})

	result := h.consumer.process(context.Background(), msg)
	if !result.ack || result.deleted != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCleanupNacksAndReleasesOnStorageError(t *testing.T) {
	h := newHarness(t, nil)
	h.deleter.errs["a.png"] = errors.New("503 from storage")
	msg := buildMessage(t, enums.EventProductDeleted, "evt-3", payloads.ProductDeletedEvent{
		ProductID:   1,
		StorageKeys: []string{"a.png"},
	})

	result := h.consumer.process(context.Background(), msg)
	if !result.nack {
		t.Fatalf("expected nack, got %+v", result)
	}
	if len(h.guard.released) != 1 || h.guard.seen[ConsumerName+":evt-3"] {
		t.Fatalf("expected idempotency marker released, got %v", h.guard.released)
	}
}

func TestCleanupSkipsOtherEvents(t *testing.T) {
	h := newHarness(t, nil)
	msg := buildMessage(t, enums.EventCategoryCreated, "evt-4", payloads.CategoryEvent{CategoryID: 1, Name: "Audio"})
	result := h.consumer.process(context.Background(), msg)
	if !result.ack || len(h.deleter.deleted) != 0 {
		t.Fatalf("expected skip, got %+v", result)
	}
}

func TestCleanupAcksUndecodableEnvelope(t *testing.T) {
	h := newHarness(t, nil)
	msg := &pubsub.Message{
		ID:         "bad",
		Data:       []byte("not json"),
		Attributes: map[string]string{"event_type": string(enums.EventProductDeleted)},
	}
	if result := h.consumer.process(context.Background(), msg); !result.ack {
		t.Fatalf("expected poison message to be acked, got %+v", result)
	}
}
