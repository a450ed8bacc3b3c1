package products

import (
	"context"
	"errors"
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

// ErrMultipleMain is returned when an image set flags more than one main image.
var ErrMultipleMain = errors.New("only one image can be marked as main")

// Service exposes product management operations.
type Service interface {
	List(ctx context.Context) ([]ProductDTO, error)
	Get(ctx context.Context, id int64) (*ProductDTO, error)
	Create(ctx context.Context, adminID int64, input ProductInput, images []ImageInput) (*ProductDTO, error)
	Update(ctx context.Context, adminID, id int64, input UpdateInput, images *[]ImageInput) (*ProductDTO, error)
	ReplaceImages(ctx context.Context, adminID, id int64, images []ImageInput) (*ProductDTO, error)
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

// NewService constructs the product service.
func NewService(repo *Repository, dbClient *db.Client, emitter outbox.Emitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{repo: repo, tx: dbClient, emitter: emitter}, nil
}

func (s *service) List(ctx context.Context) ([]ProductDTO, error) {
	rows, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, pkgerrors.Passthrough(pkgerrors.CodeDependency, err)
	}
	if len(rows) == 0 {
		return []ProductDTO{}, nil
	}

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	images, err := s.repo.ListImages(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Passthrough(pkgerrors.CodeDependency, err)
	}

	byProduct := make(map[int64][]models.ProductImage, len(rows))
	for _, img := range images {
		byProduct[img.ProductID] = append(byProduct[img.ProductID], img)
	}

	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewProductDTO(&rows[i], byProduct[rows[i].ID]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id int64) (*ProductDTO, error) {
	return s.load(ctx, s.repo, id)
}

func (s *service) Create(ctx context.Context, adminID int64, input ProductInput, images []ImageInput) (*ProductDTO, error) {
	if err := validateInput(FromProductInput(input)); err != nil {
		return nil, err
	}
	rows, err := buildImages(images)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:           strings.TrimSpace(input.Name),
		Description:    strings.TrimSpace(input.Description),
		Price:          input.Price,
		CategoryID:     input.CategoryID,
		Inventory:      input.Inventory,
		Brand:          input.Brand,
		Model:          input.Model,
		Specifications: input.Specifications,
		FreeShipping:   input.FreeShipping,
		Returnable:     input.Returnable,
		Warranty:       input.Warranty,
	}

	var created *ProductDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateProduct(ctx, product); err != nil {
			return writeError(err)
		}
		if len(rows) > 0 {
			if _, err := repo.ReplaceImages(ctx, product.ID, rows); err != nil {
				return writeError(err)
			}
		}
		if err := s.emitProduct(ctx, tx, adminID, enums.EventProductCreated, product); err != nil {
			return err
		}
		dto, err := s.load(ctx, repo, product.ID)
		if err != nil {
			return err
		}
		created = dto
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, adminID, id int64, input UpdateInput, images *[]ImageInput) (*ProductDTO, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	var rows []models.ProductImage
	if images != nil {
		built, err := buildImages(*images)
		if err != nil {
			return nil, err
		}
		rows = built
	}
	columns := input.columns()

	var updated *ProductDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if len(columns) > 0 {
			affected, err := repo.UpdateProduct(ctx, id, columns)
			if err != nil {
				return writeError(err)
			}
			if affected == 0 {
				return notFound(id)
			}
		}
		product, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Passthrough(pkgerrors.CodeDependency, err)
		}
		if product == nil {
			return notFound(id)
		}
		if len(columns) > 0 {
			if err := s.emitProduct(ctx, tx, adminID, enums.EventProductUpdated, product); err != nil {
				return err
			}
		}
		if images != nil {
			if err := s.replaceImages(ctx, tx, adminID, id, rows); err != nil {
				return err
			}
		}
		dto, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		updated = dto
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) ReplaceImages(ctx context.Context, adminID, id int64, images []ImageInput) (*ProductDTO, error) {
	rows, err := buildImages(images)
	if err != nil {
		return nil, err
	}

	var out *ProductDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Passthrough(pkgerrors.CodeDependency, err)
		}
		if product == nil {
			return notFound(id)
		}
		if err := s.replaceImages(ctx, tx, adminID, id, rows); err != nil {
			return err
		}
		dto, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		out = dto
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) Delete(ctx context.Context, adminID, id int64) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		images, err := repo.ListImages(ctx, []int64{id})
		if err != nil {
			return pkgerrors.Passthrough(pkgerrors.CodeDependency, err)
		}
		affected, err := repo.DeleteProduct(ctx, id)
		if err != nil {
			return writeError(err)
		}
		if affected == 0 {
			return notFound(id)
		}
		return s.emit(ctx, tx, adminID, enums.EventProductDeleted, id, payloads.ProductDeletedEvent{
			ProductID:   id,
			StorageKeys: storageKeys(images),
		})
	})
}

func (s *service) replaceImages(ctx context.Context, tx *gorm.DB, adminID, productID int64, rows []models.ProductImage) error {
	removed, err := s.repo.WithTx(tx).ReplaceImages(ctx, productID, rows)
	if err != nil {
		return writeError(err)
	}
	return s.emit(ctx, tx, adminID, enums.EventProductImagesReplaced, productID, payloads.ProductImagesReplacedEvent{
		ProductID:          productID,
		ImageCount:         len(rows),
		RemovedStorageKeys: removedKeys(removed, rows),
	})
}

func (s *service) load(ctx context.Context, repo *Repository, id int64) (*ProductDTO, error) {
	product, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Passthrough(pkgerrors.CodeDependency, err)
	}
	if product == nil {
		return nil, notFound(id)
	}
	images, err := repo.ListImages(ctx, []int64{id})
	if err != nil {
		return nil, pkgerrors.Passthrough(pkgerrors.CodeDependency, err)
	}
	dto := NewProductDTO(product, images)
	return &dto, nil
}

func (s *service) emitProduct(ctx context.Context, tx *gorm.DB, adminID int64, eventType enums.OutboxEventType, product *models.Product) error {
	return s.emit(ctx, tx, adminID, eventType, product.ID, payloads.ProductEvent{
		ProductID:  product.ID,
		Name:       product.Name,
		CategoryID: product.CategoryID,
		Price:      product.Price.StringFixed(2),
	})
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, adminID int64, eventType enums.OutboxEventType, productID int64, data any) error {
	err := s.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateProduct,
		AggregateID:   strconv.FormatInt(productID, 10),
		Actor:         &outbox.ActorRef{AdminID: adminID},
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue product event")
	}
	return nil
}

func validateInput(input UpdateInput) error {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.Price != nil && input.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be zero or greater")
	}
	if input.CategoryID != nil && *input.CategoryID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	if input.Inventory != nil && *input.Inventory < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "inventory must be zero or greater")
	}
	return nil
}

// buildImages turns an ordered input set into rows with display_order 0..n-1.
func buildImages(images []ImageInput) ([]models.ProductImage, error) {
	rows := make([]models.ProductImage, 0, len(images))
	mains := 0
	for i, img := range images {
		url := strings.TrimSpace(img.URL)
		if url == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("image %d has no url", i))
		}
		fileType := img.FileType
		if fileType == "" {
			fileType = enums.MediaFileTypeImage
		}
		if !fileType.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("image %d has invalid file type %q", i, fileType))
		}
		if img.IsMain {
			mains++
		}
		rows = append(rows, models.ProductImage{
			ImageURL:     url,
			IsMain:       img.IsMain,
			DisplayOrder: i,
			FileType:     fileType,
			StorageKey:   img.StorageKey,
		})
	}
	if mains > 1 {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrMultipleMain, ErrMultipleMain.Error())
	}
	return rows, nil
}

func storageKeys(images []models.ProductImage) []string {
	keys := make([]string, 0, len(images))
	for _, img := range images {
		if img.StorageKey != nil && *img.StorageKey != "" {
			keys = append(keys, *img.StorageKey)
		}
	}
	return keys
}

// removedKeys lists storage keys present before the replacement but absent from the new set.
func removedKeys(previous, current []models.ProductImage) []string {
	kept := make(map[string]struct{}, len(current))
	for _, key := range storageKeys(current) {
		kept[key] = struct{}{}
	}
	out := []string{}
	for _, key := range storageKeys(previous) {
		if _, ok := kept[key]; !ok {
			out = append(out, key)
		}
	}
	return out
}

func writeError(err error) error {
	if db.IsForeignKeyViolation(err) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "category does not exist")
	}
	if db.IsUniqueViolation(err, "product_images_one_main_idx") {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, ErrMultipleMain.Error())
	}
	return pkgerrors.Passthrough(pkgerrors.CodeDependency, err)
}

func notFound(id int64) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %d not found", id))
}
