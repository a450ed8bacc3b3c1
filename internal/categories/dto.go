package categories

import (
	"strings"
	"time"

	"github.com/angelmondragon/catalog-admin/pkg/db/models"
)

// Order selects how categories are listed.
type Order string

const (
	// OrderCreatedDesc lists the newest categories first (categories screen).
	OrderCreatedDesc Order = "created_at"
	// OrderNameAsc lists categories alphabetically (product form dropdown).
	OrderNameAsc Order = "name"
)

// ParseOrder maps the query value to an Order, defaulting to newest first.
func ParseOrder(value string) (Order, bool) {
	switch Order(strings.ToLower(strings.TrimSpace(value))) {
	case "", OrderCreatedDesc:
		return OrderCreatedDesc, true
	case OrderNameAsc:
		return OrderNameAsc, true
	default:
		return "", false
	}
}

// CategoryDTO is the category payload returned to the admin UI.
type CategoryDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateInput carries the fields of a new category.
type CreateInput struct {
	Name string
}

// UpdateInput carries the fields to change; nil fields are left untouched.
type UpdateInput struct {
	Name *string
}

func newCategoryDTO(m *models.Category) CategoryDTO {
	return CategoryDTO{
		ID:        m.ID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
