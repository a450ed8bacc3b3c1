package payloads

// CategoryEvent describes a created, updated or deleted category.
type CategoryEvent struct {
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name,omitempty"`
}

// ProductEvent describes a created or updated product.
type ProductEvent struct {
	ProductID  int64  `json:"product_id"`
	Name       string `json:"name"`
	CategoryID int64  `json:"category_id"`
	Price      string `json:"price"`
}

// ProductDeletedEvent lists the storage objects orphaned by a product deletion.
type ProductDeletedEvent struct {
	ProductID   int64    `json:"product_id"`
	StorageKeys []string `json:"storage_keys"`
}

// ProductImagesReplacedEvent is emitted when a product's media set is swapped.
type ProductImagesReplacedEvent struct {
	ProductID          int64    `json:"product_id"`
	ImageCount         int      `json:"image_count"`
	RemovedStorageKeys []string `json:"removed_storage_keys"`
}
