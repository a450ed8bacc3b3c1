package products

import (
	"context"
	"errors"

	"github.com/angelmondragon/catalog-admin/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists products and their images.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// ListProducts returns every product, newest first.
func (r *Repository) ListProducts(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// FindByID returns (nil, nil) when no product has the id.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// ListImages loads the images of the given products ordered by display_order.
func (r *Repository) ListImages(ctx context.Context, productIDs []int64) ([]models.ProductImage, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var rows []models.ProductImage
	err := r.db.WithContext(ctx).
		Where("product_id IN ?", productIDs).
		Order("product_id ASC").
		Order("display_order ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit("Category").Create(product).Error
}

// UpdateProduct applies the given columns and reports how many rows matched.
func (r *Repository) UpdateProduct(ctx context.Context, id int64, columns map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(columns)
	return res.RowsAffected, res.Error
}

// DeleteProduct hard-deletes the product; its images cascade.
func (r *Repository) DeleteProduct(ctx context.Context, id int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	return res.RowsAffected, res.Error
}

// ReplaceImages swaps the full image set of a product and returns the rows it removed.
// Callers run it inside a transaction.
func (r *Repository) ReplaceImages(ctx context.Context, productID int64, images []models.ProductImage) ([]models.ProductImage, error) {
	tx := r.db.WithContext(ctx)

	var previous []models.ProductImage
	if err := tx.Where("product_id = ?", productID).Find(&previous).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("product_id = ?", productID).Delete(&models.ProductImage{}).Error; err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return previous, nil
	}
	for i := range images {
		images[i].ID = 0
		images[i].ProductID = productID
	}
	if err := tx.Omit("Product").Create(&images).Error; err != nil {
		return nil, err
	}
	return previous, nil
}

// StorageKeyInUse reports whether any image row still points at the storage key.
func (r *Repository) StorageKeyInUse(ctx context.Context, key string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProductImage{}).
		Where("storage_key = ?", key).
		Count(&count).Error
	return count > 0, err
}
