package catalogform

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/angelmondragon/catalog-admin/internal/media"
	"github.com/angelmondragon/catalog-admin/internal/products"
	pkgerrors "github.com/angelmondragon/catalog-admin/pkg/errors"
	"github.com/shopspring/decimal"
)

// State is the lifecycle position of a form instance.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
)

// ProductFields mirrors the product form inputs. Price and category arrive as raw text.
type ProductFields struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Price          string `json:"price"`
	CategoryID     string `json:"category"`
	Brand          string `json:"brand"`
	Model          string `json:"model"`
	Specifications string `json:"specifications"`
	Inventory      int    `json:"inventory"`
	FreeShipping   bool   `json:"free_shipping"`
	Returnable     bool   `json:"returnable"`
	Warranty       bool   `json:"warranty"`
}

// ProductResult is returned after a successful product submit.
type ProductResult struct {
	Product  *products.ProductDTO  `json:"product"`
	Products []products.ProductDTO `json:"products"`
	Warnings []media.FailedItem    `json:"warnings,omitempty"`
}

// ProductForm is one create or edit form. It is not shared between requests.
type ProductForm struct {
	ctrl      *Controller
	mu        sync.Mutex
	state     State
	busy      bool
	editingID *int64
	lastError string

	Fields  ProductFields
	Staging *media.Staging
}

// State reports the current lifecycle state.
func (f *ProductForm) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// LastError is the message of the most recent failed submit.
func (f *ProductForm) LastError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastError
}

// EditingID is the product being edited, nil for a create form.
func (f *ProductForm) EditingID() *int64 {
	return f.editingID
}

// RetainUploaded drops already-uploaded items whose URL is not listed.
func (f *ProductForm) RetainUploaded(urls []string) error {
	keep := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		keep[strings.TrimSpace(u)] = struct{}{}
	}
	for _, item := range f.Staging.Items() {
		if !item.Uploaded {
			continue
		}
		if _, ok := keep[item.PublicURL]; ok {
			continue
		}
		if err := f.Staging.Remove(item.ID); err != nil {
			return err
		}
	}
	return nil
}

// SetMainIndex flags the staged item at position index as main.
func (f *ProductForm) SetMainIndex(index int) error {
	items := f.Staging.Items()
	if index < 0 || index >= len(items) {
		return pkgerrors.New(pkgerrors.CodeValidation, "main media index is out of range")
	}
	return f.Staging.SetMain(items[index].ID)
}

// Validate checks the fields without touching the network, except for the
// storage readiness lookup when no media is staged.
func (f *ProductForm) Validate(ctx context.Context) (products.ProductInput, error) {
	name, err := requireText(f.Fields.Name, "product name is required")
	if err != nil {
		return products.ProductInput{}, err
	}

	rawPrice, err := requireText(f.Fields.Price, "price is required")
	if err != nil {
		return products.ProductInput{}, err
	}
	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		return products.ProductInput{}, pkgerrors.New(pkgerrors.CodeValidation, "price must be a number")
	}
	if price.IsNegative() {
		return products.ProductInput{}, pkgerrors.New(pkgerrors.CodeValidation, "price must be zero or greater")
	}

	categoryID, err := strconv.ParseInt(strings.TrimSpace(f.Fields.CategoryID), 10, 64)
	if err != nil || categoryID <= 0 {
		return products.ProductInput{}, pkgerrors.New(pkgerrors.CodeValidation, "please select a category")
	}

	if f.Fields.Inventory < 0 {
		return products.ProductInput{}, pkgerrors.New(pkgerrors.CodeValidation, "inventory must be zero or greater")
	}

	if f.Staging.Len() == 0 && f.ctrl.storage != nil {
		status, err := f.ctrl.storage.Status(ctx)
		if err != nil {
			return products.ProductInput{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check storage status")
		}
		if !status.Available {
			return products.ProductInput{}, pkgerrors.New(pkgerrors.CodeValidation, "storage is not ready: "+status.Message)
		}
	}

	return products.ProductInput{
		Name:           name,
		Description:    strings.TrimSpace(f.Fields.Description),
		Price:          price.Round(2),
		CategoryID:     categoryID,
		Inventory:      f.Fields.Inventory,
		Brand:          optionalText(f.Fields.Brand),
		Model:          optionalText(f.Fields.Model),
		Specifications: optionalText(f.Fields.Specifications),
		FreeShipping:   f.Fields.FreeShipping,
		Returnable:     f.Fields.Returnable,
		Warranty:       f.Fields.Warranty,
	}, nil
}

// Submit validates, uploads pending media and saves the product with its images.
// A partial upload still saves the product; the failed items come back as warnings.
// On failure the form keeps its fields and staged media.
func (f *ProductForm) Submit(ctx context.Context, adminID int64, progress media.ProgressSink) (*ProductResult, error) {
	if err := f.begin(); err != nil {
		return nil, err
	}

	result, err := f.submit(ctx, adminID, progress)
	f.finish(err)
	if err != nil {
		logCtx := f.ctrl.logg.WithField(ctx, "state", string(StateFailed))
		if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			f.ctrl.logg.Warn(logCtx, "catalogform.product.rejected")
		} else {
			f.ctrl.logg.Error(logCtx, "catalogform.product.failed", err)
		}
		return nil, err
	}
	return result, nil
}

func (f *ProductForm) submit(ctx context.Context, adminID int64, progress media.ProgressSink) (*ProductResult, error) {
	input, err := f.Validate(ctx)
	if err != nil {
		return nil, err
	}
	f.setState(StateSubmitting)

	if f.editingID != nil {
		release, err := f.ctrl.hold(ctx, *f.editingID)
		if err != nil {
			return nil, err
		}
		defer f.ctrl.release(ctx, release)
	}

	uploaded, err := f.ctrl.uploader.Upload(ctx, f.Staging, progress)
	var warnings []media.FailedItem
	if partial, ok := media.AsPartialUpload(err); ok {
		warnings = partial.Failed
	} else if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload media")
	}
	images := imageInputs(uploaded)

	var saved *products.ProductDTO
	if f.editingID == nil {
		saved, err = f.ctrl.products.Create(ctx, adminID, input, images)
	} else {
		// blank optional text is stored as NULL, matching create
		saved, err = f.ctrl.products.Update(ctx, adminID, *f.editingID, products.FromProductInput(input), &images)
	}
	if err != nil {
		return nil, err
	}
	f.setState(StateSuccess)

	list, err := f.ctrl.products.List(ctx)
	if err != nil {
		return nil, err
	}
	defaults, err := f.ctrl.defaultFields(ctx)
	if err != nil {
		return nil, err
	}
	f.Fields = defaults
	f.Staging.Reset()
	f.editingID = nil

	return &ProductResult{Product: saved, Products: list, Warnings: warnings}, nil
}

func (f *ProductForm) begin() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "a submission is already in progress")
	}
	f.busy = true
	f.state = StateValidating
	f.lastError = ""
	return nil
}

func (f *ProductForm) finish(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = false
	if err != nil {
		f.state = StateFailed
		if typed := pkgerrors.As(err); typed != nil {
			f.lastError = typed.Message()
		} else {
			f.lastError = err.Error()
		}
		return
	}
	// the form is cleared on success and ready for the next entry
	f.state = StateIdle
}

func (f *ProductForm) setState(state State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
}

// Reset returns the form to Idle with empty fields and no staged media.
func (f *ProductForm) Reset(ctx context.Context) error {
	defaults, err := f.ctrl.defaultFields(ctx)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Fields = defaults
	f.Staging.Reset()
	f.editingID = nil
	f.state = StateIdle
	f.lastError = ""
	return nil
}

// imageInputs maps upload output to image rows, forcing the first item main when none is flagged.
func imageInputs(results []media.Result) []products.ImageInput {
	images := make([]products.ImageInput, 0, len(results))
	mainSeen := false
	for _, r := range results {
		isMain := r.IsMain && !mainSeen
		if isMain {
			mainSeen = true
		}
		var key *string
		if r.StorageKey != "" {
			k := r.StorageKey
			key = &k
		}
		images = append(images, products.ImageInput{
			URL:        r.URL,
			IsMain:     isMain,
			FileType:   r.FileType,
			StorageKey: key,
		})
	}
	if !mainSeen && len(images) > 0 {
		images[0].IsMain = true
	}
	return images
}

func fieldsFromProduct(p *products.ProductDTO) ProductFields {
	return ProductFields{
		Name:           p.Name,
		Description:    p.Description,
		Price:          p.Price.StringFixed(2),
		CategoryID:     strconv.FormatInt(p.CategoryID, 10),
		Brand:          derefString(p.Brand),
		Model:          derefString(p.Model),
		Specifications: derefString(p.Specifications),
		Inventory:      p.Inventory,
		FreeShipping:   p.FreeShipping,
		Returnable:     p.Returnable,
		Warranty:       p.Warranty,
	}
}

func requireText(value, message string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, message)
	}
	return trimmed, nil
}

func optionalText(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
