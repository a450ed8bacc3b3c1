package products

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
	"github.com/angelmondragon/catalog-admin/pkg/outbox/payloads"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingEmitter struct {
	events []outbox.DomainEvent
}

func (r *recordingEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEmitter) types() []enums.OutboxEventType {
	out := make([]enums.OutboxEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type fixture struct {
	svc      Service
	client   *db.Client
	emitter  *recordingEmitter
	category int64
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.New(t)
	category := models.Category{Name: "Audio"}
	require.NoError(t, client.DB().Create(&category).Error)

	emitter := &recordingEmitter{}
	svc, err := NewService(NewRepository(client.DB()), client, emitter)
	require.NoError(t, err)
	return fixture{svc: svc, client: client, emitter: emitter, category: category.ID}
}

func (f fixture) input(name string) ProductInput {
	return ProductInput{
		Name:        name,
		Description: "  wireless  ",
		Price:       decimal.RequireFromString("19.90"),
		CategoryID:  f.category,
		Inventory:   3,
	}
}

func key(v string) *string { return &v }

func TestCreateWithImagesAssignsDisplayOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dto, err := f.svc.Create(ctx, 7, f.input(" Headphones "), []ImageInput{
		{URL: "https://cdn/a.png", StorageKey: key("a.png")},
		{URL: "https://cdn/b.mp4", IsMain: true, FileType: enums.MediaFileTypeVideo, StorageKey: key("b.mp4")},
	})
	require.NoError(t, err)
	require.Equal(t, "Headphones", dto.Name)
	require.Equal(t, "wireless", dto.Description)
	require.Len(t, dto.Images, 2)
	require.Equal(t, 0, dto.Images[0].DisplayOrder)
	require.Equal(t, enums.MediaFileTypeImage, dto.Images[0].FileType)
	require.True(t, dto.Images[1].IsMain)
	require.Equal(t, []enums.OutboxEventType{enums.EventProductCreated}, f.emitter.types())
	require.Equal(t, int64(7), f.emitter.events[0].Actor.AdminID)
}

func TestCreateRejectsUnknownCategory(t *testing.T) {
	f := newFixture(t)
	in := f.input("Speaker")
	in.CategoryID = f.category + 100

	_, err := f.svc.Create(context.Background(), 1, in, nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
	require.Equal(t, "category does not exist", pkgerrors.As(err).Message())
	require.Empty(t, f.emitter.events)

	var count int64
	require.NoError(t, f.client.DB().Model(&models.Product{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCreateRejectsMultipleMainImages(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), 1, f.input("Speaker"), []ImageInput{
		{URL: "a", IsMain: true},
		{URL: "b", IsMain: true},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
	require.ErrorIs(t, err, ErrMultipleMain)
}

func TestListJoinsImagesInMemory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, 1, f.input("First"), []ImageInput{{URL: "one", IsMain: true}})
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, 1, f.input("Second"), nil)
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.client.DB().Model(&models.Product{}).Where("id = ?", first.ID).Update("created_at", base)
	f.client.DB().Model(&models.Product{}).Where("id = ?", second.ID).Update("created_at", base.Add(time.Hour))

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Second", list[0].Name)
	require.NotNil(t, list[0].Images)
	require.Empty(t, list[0].Images)
	require.Len(t, list[1].Images, 1)
	require.Equal(t, "one", list[1].Images[0].URL)
}

func TestListEmpty(t *testing.T) {
	f := newFixture(t)
	list, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.NotNil(t, list)
	require.Empty(t, list)
}

func TestUpdatePartialAndReplaceImages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, 1, f.input("Speaker"), []ImageInput{
		{URL: "old-1", IsMain: true, StorageKey: key("old-1.png")},
		{URL: "old-2", StorageKey: key("old-2.png")},
	})
	require.NoError(t, err)

	price := decimal.RequireFromString("25")
	images := []ImageInput{
		{URL: "old-2", StorageKey: key("old-2.png")},
		{URL: "new-1", IsMain: true, StorageKey: key("new-1.png")},
	}
	updated, err := f.svc.Update(ctx, 1, created.ID, UpdateInput{Price: &price}, &images)
	require.NoError(t, err)
	require.Equal(t, "Speaker", updated.Name)
	require.True(t, updated.Price.Equal(price))
	require.Len(t, updated.Images, 2)
	require.Equal(t, "old-2", updated.Images[0].URL)
	require.True(t, updated.Images[1].IsMain)

	require.Equal(t, []enums.OutboxEventType{
		enums.EventProductCreated,
		enums.EventProductUpdated,
		enums.EventProductImagesReplaced,
	}, f.emitter.types())
	replaced, ok := f.emitter.events[2].Data.(payloads.ProductImagesReplacedEvent)
	require.True(t, ok)
	require.Equal(t, []string{"old-1.png"}, replaced.RemovedStorageKeys)
	require.Equal(t, 2, replaced.ImageCount)
}

func TestUpdateMissingProduct(t *testing.T) {
	f := newFixture(t)
	name := "Ghost"
	_, err := f.svc.Update(context.Background(), 1, 999, UpdateInput{Name: &name}, nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
	require.Empty(t, f.emitter.events)
}

func TestDeleteEmitsStorageKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, 1, f.input("Speaker"), []ImageInput{
		{URL: "a", IsMain: true, StorageKey: key("a.png")},
		{URL: "external"},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, 1, created.ID))

	var images int64
	require.NoError(t, f.client.DB().Model(&models.ProductImage{}).Count(&images).Error)
	require.Zero(t, images)

	last := f.emitter.events[len(f.emitter.events)-1]
	require.Equal(t, enums.EventProductDeleted, last.EventType)
	require.Equal(t, []string{"a.png"}, last.Data.(payloads.ProductDeletedEvent).StorageKeys)

	err = f.svc.Delete(ctx, 1, created.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestGetMissingProduct(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), 42)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}
