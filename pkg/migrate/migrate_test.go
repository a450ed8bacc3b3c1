package migrate_test

import (
	"context"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/angelmondragon/catalog-admin/pkg/config"
	"github.com/angelmondragon/catalog-admin/pkg/db"
	"github.com/angelmondragon/catalog-admin/pkg/db/dbtest"
	"github.com/angelmondragon/catalog-admin/pkg/db/models"
	"github.com/angelmondragon/catalog-admin/pkg/logger"
	"github.com/angelmondragon/catalog-admin/pkg/migrate"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := migrate.ValidateFS(migrate.Migrations, migrate.DefaultDir); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestProductImageMigrationConstraints(t *testing.T) {
	data, err := fs.ReadFile(migrate.Migrations, "migrations/20240901120300_create_product_images.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	content := string(data)
	for _, want := range []string{
		"REFERENCES products(id) ON DELETE CASCADE",
		"CHECK (file_type IN ('image', 'video'))",
		"ON product_images (product_id) WHERE is_main",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected migration to contain %q", want)
		}
	}
}

func TestUpBootstrapsSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migrate_up?mode=memory&cache=shared&_foreign_keys=on"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	client := db.NewFromGorm(conn)

	if err := migrate.Up(context.Background(), client); err != nil {
		t.Fatalf("up: %v", err)
	}
	for _, table := range []string{"admin_users", "categories", "products", "product_images", "outbox_events", "outbox_dlq"} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("expected table %s", table)
		}
	}
}

func TestSQLiteSchemaEnforcesCatalogConstraints(t *testing.T) {
	conn := dbtest.New(t).DB()

	category := models.Category{Name: "Audio"}
	if err := conn.Create(&category).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	negative := models.Product{Name: "Speaker", Price: decimal.NewFromInt(-1), CategoryID: category.ID}
	if err := conn.Omit("Category").Create(&negative).Error; err == nil {
		t.Fatal("expected negative price to violate products_price_check")
	}
	understocked := models.Product{Name: "Speaker", Inventory: -1, CategoryID: category.ID}
	if err := conn.Omit("Category").Create(&understocked).Error; err == nil {
		t.Fatal("expected negative inventory to violate products_inventory_check")
	}

	product := models.Product{Name: "Speaker", Price: decimal.NewFromInt(10), CategoryID: category.ID}
	if err := conn.Omit("Category").Create(&product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	first := models.ProductImage{ProductID: product.ID, ImageURL: "https://cdn.test/a.png", IsMain: true, FileType: "image"}
	if err := conn.Omit("Product").Create(&first).Error; err != nil {
		t.Fatalf("create main image: %v", err)
	}
	second := models.ProductImage{ProductID: product.ID, ImageURL: "https://cdn.test/b.png", IsMain: true, FileType: "image"}
	if err := conn.Omit("Product").Create(&second).Error; err == nil {
		t.Fatal("expected a second main image to violate product_images_one_main_idx")
	}
	extra := models.ProductImage{ProductID: product.ID, ImageURL: "https://cdn.test/c.png", FileType: "image"}
	if err := conn.Omit("Product").Create(&extra).Error; err != nil {
		t.Fatalf("non-main images are unrestricted: %v", err)
	}
	audio := models.ProductImage{ProductID: product.ID, ImageURL: "https://cdn.test/d.mp3", FileType: "audio"}
	if err := conn.Omit("Product").Create(&audio).Error; err == nil {
		t.Fatal("expected unknown file type to violate product_images_file_type_check")
	}
}

func TestMaybeRunSkipsWhenDisabled(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	if err := migrate.MaybeRun(context.Background(), cfg, logger.Nop(), nil); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestValidateFSReportsEveryProblem(t *testing.T) {
	fsys := fstest.MapFS{
		"m/20240101000000_ok.sql":      {Data: []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\n")},
		"m/20240101000000_dup.sql":     {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"m/bad-name.sql":               {Data: []byte("-- +goose Up\n")},
		"m/20240102000000_no_down.sql": {Data: []byte("-- +goose Up\n")},
		"m/README.md":                  {Data: []byte("ignored")},
	}
	err := migrate.ValidateFS(fsys, "m")
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"already used", "bad-name.sql", "missing -- +goose Down"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
	if err := migrate.ValidateFS(fstest.MapFS{"m/README.md": {}}, "m"); err == nil {
		t.Fatal("expected error for empty migration dir")
	}
}
