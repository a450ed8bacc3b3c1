package adminusers

import (
	"time"

	"github.com/angelmondragon/catalog-admin/pkg/db/models"
)

// AdminDTO is the public view of an admin user. The password hash never leaves the package.
type AdminDTO struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateRequest is the payload accepted by the add-admin endpoint.
type CreateRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// FromModel maps a persisted admin onto its DTO.
func FromModel(m *models.AdminUser) *AdminDTO {
	if m == nil {
		return nil
	}
	return &AdminDTO{
		ID:        m.ID,
		Email:     m.Email,
		CreatedAt: m.CreatedAt,
	}
}
