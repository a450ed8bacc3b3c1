package models

import (
	"time"

	"github.com/angelmondragon/catalog-admin/pkg/enums"
)

// ProductImage stores one ordered media entry (image or video) for a product.
type ProductImage struct {
	ID           int64               `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID    int64               `gorm:"column:product_id;not null;index;uniqueIndex:product_images_one_main_idx,where:is_main"`
	Product      *Product            `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	ImageURL     string              `gorm:"column:image_url;not null"`
	IsMain       bool                `gorm:"column:is_main;not null;default:false"`
	DisplayOrder int                 `gorm:"column:display_order;not null;default:0"`
	FileType     enums.MediaFileType `gorm:"column:file_type;type:text;not null;default:'image';check:product_images_file_type_check,file_type IN ('image', 'video')"`
	StorageKey   *string             `gorm:"column:storage_key"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (ProductImage) TableName() string {
	return "product_images"
}
