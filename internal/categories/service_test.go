package categories

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/catalog-admin/pkg/db"
	"github.com/angelmondragon/catalog-admin/pkg/db/dbtest"
	"github.com/angelmondragon/catalog-admin/pkg/db/models"
	"github.com/angelmondragon/catalog-admin/pkg/enums"
	pkgerrors "github.com/angelmondragon/catalog-admin/pkg/errors"
	"github.com/angelmondragon/catalog-admin/pkg/outbox"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type recordingEmitter struct {
	events []outbox.DomainEvent
}

func (r *recordingEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

func newTestService(t *testing.T) (Service, *db.Client, *recordingEmitter) {
	t.Helper()
	client := dbtest.New(t)
	emitter := &recordingEmitter{}
	svc, err := NewService(NewRepository(client.DB()), client, emitter)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, client, emitter
}

func TestCreateAndListOrders(t *testing.T) {
	svc, client, emitter := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"Shoes", "Audio", "Cameras"} {
		if _, err := svc.Create(ctx, 1, CreateInput{Name: "  " + name + " "}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	// Spread created_at so the newest-first ordering is deterministic.
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"Shoes", "Audio", "Cameras"} {
		client.DB().Model(&models.Category{}).Where("name = ?", name).Update("created_at", base.Add(time.Duration(i)*time.Hour))
	}

	byName, err := svc.List(ctx, OrderNameAsc)
	if err != nil {
		t.Fatalf("list by name: %v", err)
	}
	if got := names(byName); got != "Audio,Cameras,Shoes" {
		t.Fatalf("unexpected name order %s", got)
	}

	byCreated, err := svc.List(ctx, OrderCreatedDesc)
	if err != nil {
		t.Fatalf("list by created: %v", err)
	}
	if got := names(byCreated); got != "Cameras,Audio,Shoes" {
		t.Fatalf("unexpected created order %s", got)
	}

	if len(emitter.events) != 3 || emitter.events[0].EventType != enums.EventCategoryCreated {
		t.Fatalf("expected three created events, got %+v", emitter.events)
	}
}

func TestCreateRequiresName(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), 1, CreateInput{Name: "   "})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdatePartialAndMissing(t *testing.T) {
	svc, _, emitter := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateInput{Name: "Shoes"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "Sneakers"
	updated, err := svc.Update(ctx, 1, created.ID, UpdateInput{Name: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Sneakers" || updated.ID != created.ID {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if last := emitter.events[len(emitter.events)-1]; last.EventType != enums.EventCategoryUpdated {
		t.Fatalf("expected update event, got %s", last.EventType)
	}

	unchanged, err := svc.Update(ctx, 1, created.ID, UpdateInput{})
	if err != nil || unchanged.Name != "Sneakers" {
		t.Fatalf("empty update should be a no-op, got %+v err=%v", unchanged, err)
	}

	if _, err := svc.Update(ctx, 1, 9999, UpdateInput{Name: &name}); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc, client, _ := newTestService(t)
	ctx := context.Background()

	free, _ := svc.Create(ctx, 1, CreateInput{Name: "Empty"})
	used, _ := svc.Create(ctx, 1, CreateInput{Name: "Used"})
	if err := client.DB().Create(&models.Product{Name: "Phone", Price: decimal.NewFromInt(10), CategoryID: used.ID}).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	if err := svc.Delete(ctx, 1, free.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, 1, free.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}

	err := svc.Delete(ctx, 1, used.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for referenced category, got %v", err)
	}
	if msg := pkgerrors.As(err).Message(); msg == "" || msg == pkgerrors.MetadataFor(pkgerrors.CodeConflict).PublicMessage {
		t.Fatalf("expected backend message passed through, got %q", msg)
	}

	list, _ := svc.List(ctx, OrderNameAsc)
	if names(list) != "Used" {
		t.Fatalf("referenced category must remain, got %s", names(list))
	}
}

func TestParseOrder(t *testing.T) {
	if o, ok := ParseOrder(""); !ok || o != OrderCreatedDesc {
		t.Fatalf("expected default created order")
	}
	if o, ok := ParseOrder("NAME"); !ok || o != OrderNameAsc {
		t.Fatalf("expected name order")
	}
	if _, ok := ParseOrder("price"); ok {
		t.Fatal("expected unknown order rejected")
	}
}

func names(list []CategoryDTO) string {
	out := ""
	for i, c := range list {
		if i > 0 {
			out += ","
		}
		out += c.Name
	}
	return out
}
