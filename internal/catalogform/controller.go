// Package catalogform drives the product and category admin forms: validation,
// media upload, persistence and list refresh.
package catalogform

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/angelmondragon/catalog-admin/internal/categories"
	"github.com/angelmondragon/catalog-admin/internal/media"
	"github.com/angelmondragon/catalog-admin/internal/products"
	pkgerrors "github.com/angelmondragon/catalog-admin/pkg/errors"
	"github.com/angelmondragon/catalog-admin/pkg/lock"
	"github.com/angelmondragon/catalog-admin/pkg/logger"
)

const (
	deleteProductPrompt  = "Are you sure you want to delete this product?"
	deleteCategoryPrompt = "Are you sure you want to delete this category?"
)

type uploader interface {
	Upload(ctx context.Context, staging *media.Staging, progress media.ProgressSink) ([]media.Result, error)
}

type storageStatus interface {
	Status(ctx context.Context) (media.ProbeResult, error)
}

type locker interface {
	Hold(ctx context.Context, name string) (func(context.Context) error, error)
}

// Params wires the controller. Storage and Locker are optional.
type Params struct {
	Products   products.Service
	Categories categories.Service
	Uploader   uploader
	Storage    storageStatus
	Locker     locker
	Limits     media.Limits
	Logger     *logger.Logger
}

// Controller builds form instances and runs the category/delete workflows.
type Controller struct {
	products   products.Service
	categories categories.Service
	uploader   uploader
	storage    storageStatus
	locker     locker
	limits     media.Limits
	logg       *logger.Logger
}

// NewController validates the dependencies.
func NewController(p Params) (*Controller, error) {
	if p.Products == nil {
		return nil, fmt.Errorf("product service required")
	}
	if p.Categories == nil {
		return nil, fmt.Errorf("category service required")
	}
	if p.Uploader == nil {
		return nil, fmt.Errorf("uploader required")
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Controller{
		products:   p.Products,
		categories: p.Categories,
		uploader:   p.Uploader,
		storage:    p.Storage,
		locker:     p.Locker,
		limits:     p.Limits,
		logg:       logg,
	}, nil
}

// NewProductForm returns an empty create form with the default category selected.
func (c *Controller) NewProductForm(ctx context.Context) (*ProductForm, error) {
	form := &ProductForm{ctrl: c, state: StateIdle, Staging: media.NewStaging(c.limits)}
	fields, err := c.defaultFields(ctx)
	if err != nil {
		return nil, err
	}
	form.Fields = fields
	return form, nil
}

// LoadForEdit pre-populates a form from the stored product and its images.
func (c *Controller) LoadForEdit(ctx context.Context, productID int64) (*ProductForm, error) {
	product, err := c.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	form := &ProductForm{
		ctrl:      c,
		state:     StateIdle,
		editingID: &product.ID,
		Staging:   media.NewStaging(c.limits),
		Fields:    fieldsFromProduct(product),
	}
	for _, img := range product.Images {
		form.Staging.StageUploaded(img.URL, img.IsMain, img.FileType, img.StorageKey)
	}
	return form, nil
}

// CategoryResult is returned after a successful category submit.
type CategoryResult struct {
	Category   *categories.CategoryDTO  `json:"category"`
	Categories []categories.CategoryDTO `json:"categories"`
}

// SubmitCategory creates (id == nil) or renames a category and returns the refreshed list.
func (c *Controller) SubmitCategory(ctx context.Context, adminID int64, id *int64, name string) (*CategoryResult, error) {
	trimmed, err := requireText(name, "category name is required")
	if err != nil {
		return nil, err
	}

	var saved *categories.CategoryDTO
	if id == nil {
		saved, err = c.categories.Create(ctx, adminID, categories.CreateInput{Name: trimmed})
	} else {
		saved, err = c.categories.Update(ctx, adminID, *id, categories.UpdateInput{Name: &trimmed})
	}
	if err != nil {
		return nil, err
	}

	list, err := c.categories.List(ctx, categories.OrderCreatedDesc)
	if err != nil {
		return nil, err
	}
	return &CategoryResult{Category: saved, Categories: list}, nil
}

// DeleteCategory removes a category after explicit confirmation and returns the refreshed list.
// A failed delete leaves the row intact and returns the backend error unchanged.
func (c *Controller) DeleteCategory(ctx context.Context, adminID, id int64, confirm bool) ([]categories.CategoryDTO, error) {
	if !confirm {
		return nil, confirmationRequired(deleteCategoryPrompt)
	}
	if err := c.categories.Delete(ctx, adminID, id); err != nil {
		return nil, err
	}
	return c.categories.List(ctx, categories.OrderCreatedDesc)
}

// DeleteProduct removes a product after explicit confirmation and returns the refreshed list.
func (c *Controller) DeleteProduct(ctx context.Context, adminID, id int64, confirm bool) ([]products.ProductDTO, error) {
	if !confirm {
		return nil, confirmationRequired(deleteProductPrompt)
	}
	release, err := c.hold(ctx, id)
	if err != nil {
		return nil, err
	}
	defer c.release(ctx, release)

	if err := c.products.Delete(ctx, adminID, id); err != nil {
		return nil, err
	}
	return c.products.List(ctx)
}

func (c *Controller) defaultFields(ctx context.Context) (ProductFields, error) {
	list, err := c.categories.List(ctx, categories.OrderNameAsc)
	if err != nil {
		return ProductFields{}, err
	}
	fields := ProductFields{}
	if len(list) > 0 {
		fields.CategoryID = strconv.FormatInt(list[0].ID, 10)
	}
	return fields, nil
}

func (c *Controller) hold(ctx context.Context, productID int64) (func(context.Context) error, error) {
	if c.locker == nil {
		return nil, nil
	}
	release, err := c.locker.Hold(ctx, fmt.Sprintf("product:%d", productID))
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "this product is being saved by another request")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire product lock")
	}
	return release, nil
}

func (c *Controller) release(ctx context.Context, release func(context.Context) error) {
	if release == nil {
		return
	}
	if err := release(context.WithoutCancel(ctx)); err != nil {
		c.logg.Error(ctx, "catalogform.lock.release_failed", err)
	}
}

func confirmationRequired(prompt string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, prompt).WithDetails(map[string]any{"confirm_required": true})
}
