package categories

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/angelmondragon/catalog-admin/pkg/db"
	"github.com/angelmondragon/catalog-admin/pkg/db/models"
	"github.com/angelmondragon/catalog-admin/pkg/enums"
	pkgerrors "github.com/angelmondragon/catalog-admin/pkg/errors"
	"github.com/angelmondragon/catalog-admin/pkg/outbox"
	"github.com/angelmondragon/catalog-admin/pkg/outbox/payloads"
	"gorm.io/gorm"
)

// Service exposes category management operations.
type Service interface {
	List(ctx context.Context, order Order) ([]CategoryDTO, error)
	Create(ctx context.Context, adminID int64, input CreateInput) (*CategoryDTO, error)
	Update(ctx context.Context, adminID, id int64, input UpdateInput) (*CategoryDTO, error)
	Delete(ctx context.Context, adminID, id int64) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo    *Repository
	tx      txRunner
	emitter outbox.Emitter
}

// NewService constructs the category service.
func NewService(repo *Repository, dbClient *db.Client, emitter outbox.Emitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{repo: repo, tx: dbClient, emitter: emitter}, nil
}

func (s *service) List(ctx context.Context, order Order) ([]CategoryDTO, error) {
	rows, err := s.repo.List(ctx, order)
	if err != nil {
		return nil, pkgerrors.Passthrough(pkgerrors.CodeDependency, err)
	}
	out := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, newCategoryDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, adminID int64, input CreateInput) (*CategoryDTO, error) {
	name, err := requireName(input.Name)
	if err != nil {
		return nil, err
	}

	category := &models.Category{Name: name}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, category); err != nil {
			return pkgerrors.Passthrough(pkgerrors.CodeDependency, err)
		}
		return s.emit(ctx, tx, adminID, enums.EventCategoryCreated, category)
	}); err != nil {
		return nil, err
	}
	dto := newCategoryDTO(category)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, adminID, id int64, input UpdateInput) (*CategoryDTO, error) {
	updates := map[string]any{}
	if input.Name != nil {
		name, err := requireName(*input.Name)
		if err != nil {
			return nil, err
		}
		updates["name"] = name
	}

	var updated *models.Category
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if len(updates) > 0 {
			affected, err := repo.Update(ctx, id, updates)
			if err != nil {
				return pkgerrors.Passthrough(pkgerrors.CodeDependency, err)
			}
			if affected == 0 {
				return notFound(id)
			}
		}
		found, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Passthrough(pkgerrors.CodeDependency, err)
		}
		if found == nil {
			return notFound(id)
		}
		updated = found
		if len(updates) == 0 {
			return nil
		}
		return s.emit(ctx, tx, adminID, enums.EventCategoryUpdated, found)
	}); err != nil {
		return nil, err
	}
	dto := newCategoryDTO(updated)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, adminID, id int64) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.WithTx(tx).Delete(ctx, id)
		if err != nil {
			if db.IsForeignKeyViolation(err) {
				return pkgerrors.Passthrough(pkgerrors.CodeConflict, err)
			}
			return pkgerrors.Passthrough(pkgerrors.CodeDependency, err)
		}
		if affected == 0 {
			return notFound(id)
		}
		return s.emit(ctx, tx, adminID, enums.EventCategoryDeleted, &models.Category{ID: id})
	})
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, adminID int64, eventType enums.OutboxEventType, category *models.Category) error {
	err := s.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateCategory,
		AggregateID:   strconv.FormatInt(category.ID, 10),
		Actor:         &outbox.ActorRef{AdminID: adminID},
		Data:          payloads.CategoryEvent{CategoryID: category.ID, Name: category.Name},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue category event")
	}
	return nil
}

func requireName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}
	return name, nil
}

func notFound(id int64) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("category %d not found", id))
}
