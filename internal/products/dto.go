package products

import (
	"time"

	"github.com/angelmondragon/catalog-admin/pkg/db/models"
	"github.com/angelmondragon/catalog-admin/pkg/enums"
	"github.com/shopspring/decimal"
)

// ProductDTO is the product payload returned to the admin UI, images included.
type ProductDTO struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	CategoryID     int64           `json:"category"`
	Inventory      int             `json:"inventory"`
	Brand          *string         `json:"brand,omitempty"`
	Model          *string         `json:"model,omitempty"`
	Specifications *string         `json:"specifications,omitempty"`
	FreeShipping   bool            `json:"free_shipping"`
	Returnable     bool            `json:"returnable"`
	Warranty       bool            `json:"warranty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Images         []ImageDTO      `json:"product_images"`
}

// ImageDTO is one ordered media entry of a product.
type ImageDTO struct {
	ID           int64               `json:"id"`
	URL          string              `json:"image_url"`
	IsMain       bool                `json:"is_main"`
	DisplayOrder int                 `json:"display_order"`
	FileType     enums.MediaFileType `json:"file_type"`
	StorageKey   string              `json:"storage_key,omitempty"`
}

// ProductInput carries every writable product field.
type ProductInput struct {
	Name           string
	Description    string
	Price          decimal.Decimal
	CategoryID     int64
	Inventory      int
	Brand          *string
	Model          *string
	Specifications *string
	FreeShipping   bool
	Returnable     bool
	Warranty       bool
}

// UpdateInput lists the fields to change; nil fields are left untouched.
// With ClearOptional set, nil brand, model and specifications are written as NULL.
type UpdateInput struct {
	Name           *string
	Description    *string
	Price          *decimal.Decimal
	CategoryID     *int64
	Inventory      *int
	Brand          *string
	Model          *string
	Specifications *string
	FreeShipping   *bool
	Returnable     *bool
	Warranty       *bool
	ClearOptional  bool
}

// FromProductInput builds an update that overwrites every field, NULLs included.
func FromProductInput(in ProductInput) UpdateInput {
	return UpdateInput{
		Name:           &in.Name,
		Description:    &in.Description,
		Price:          &in.Price,
		CategoryID:     &in.CategoryID,
		Inventory:      &in.Inventory,
		Brand:          in.Brand,
		Model:          in.Model,
		Specifications: in.Specifications,
		FreeShipping:   &in.FreeShipping,
		Returnable:     &in.Returnable,
		Warranty:       &in.Warranty,
		ClearOptional:  true,
	}
}

// ImageInput describes one image of a replacement set. Display order is the slice position.
type ImageInput struct {
	URL        string
	IsMain     bool
	FileType   enums.MediaFileType
	StorageKey *string
}

func (u UpdateInput) columns() map[string]any {
	cols := map[string]any{}
	if u.Name != nil {
		cols["name"] = *u.Name
	}
	if u.Description != nil {
		cols["description"] = *u.Description
	}
	if u.Price != nil {
		cols["price"] = *u.Price
	}
	if u.CategoryID != nil {
		cols["category"] = *u.CategoryID
	}
	if u.Inventory != nil {
		cols["inventory"] = *u.Inventory
	}
	u.optionalText(cols, "brand", u.Brand)
	u.optionalText(cols, "model", u.Model)
	u.optionalText(cols, "specifications", u.Specifications)
	if u.FreeShipping != nil {
		cols["free_shipping"] = *u.FreeShipping
	}
	if u.Returnable != nil {
		cols["returnable"] = *u.Returnable
	}
	if u.Warranty != nil {
		cols["warranty"] = *u.Warranty
	}
	return cols
}

func (u UpdateInput) optionalText(cols map[string]any, column string, value *string) {
	switch {
	case value != nil:
		cols[column] = *value
	case u.ClearOptional:
		cols[column] = nil
	}
}

// NewProductDTO builds a DTO from the persisted rows; images must already be ordered.
func NewProductDTO(product *models.Product, images []models.ProductImage) ProductDTO {
	dto := ProductDTO{
		ID:             product.ID,
		Name:           product.Name,
		Description:    product.Description,
		Price:          product.Price,
		CategoryID:     product.CategoryID,
		Inventory:      product.Inventory,
		Brand:          product.Brand,
		Model:          product.Model,
		Specifications: product.Specifications,
		FreeShipping:   product.FreeShipping,
		Returnable:     product.Returnable,
		Warranty:       product.Warranty,
		CreatedAt:      product.CreatedAt,
		UpdatedAt:      product.UpdatedAt,
		Images:         make([]ImageDTO, 0, len(images)),
	}
	for _, img := range images {
		dto.Images = append(dto.Images, ImageDTO{
			ID:           img.ID,
			URL:          img.ImageURL,
			IsMain:       img.IsMain,
			DisplayOrder: img.DisplayOrder,
			FileType:     img.FileType,
			StorageKey:   derefString(img.StorageKey),
		})
	}
	return dto
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
