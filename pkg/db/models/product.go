package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog listing. Images are loaded separately and joined in memory.
// The constraint tags mirror the goose schema for SQLite databases built from the models.
type Product struct {
	ID             int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Name           string          `gorm:"column:name;not null"`
	Description    string          `gorm:"column:description;not null;default:''"`
	Price          decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null;check:products_price_check,price >= 0"`
	CategoryID     int64           `gorm:"column:category;not null;index"`
	Category       *Category       `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT"`
	Inventory      int             `gorm:"column:inventory;not null;default:0;check:products_inventory_check,inventory >= 0"`
	Brand          *string         `gorm:"column:brand"`
	Model          *string         `gorm:"column:model"`
	Specifications *string         `gorm:"column:specifications"`
	FreeShipping   bool            `gorm:"column:free_shipping;not null;default:false"`
	Returnable     bool            `gorm:"column:returnable;not null;default:false"`
	Warranty       bool            `gorm:"column:warranty;not null;default:false"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string {
	return "products"
}
