package controllers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/angelmondragon/catalog-admin/api/middleware"
	"github.com/angelmondragon/catalog-admin/api/responses"
	"github.com/angelmondragon/catalog-admin/api/validators"
	"github.com/angelmondragon/catalog-admin/internal/catalogform"
	"github.com/angelmondragon/catalog-admin/internal/media"
	"github.com/angelmondragon/catalog-admin/internal/products"
	"github.com/angelmondragon/catalog-admin/pkg/logger"
	"github.com/angelmondragon/catalog-admin/pkg/types"
)

const warningPartialUpload = "PARTIAL_UPLOAD"

type productLister interface {
	List(ctx context.Context) ([]products.ProductDTO, error)
}

type productForms interface {
	NewProductForm(ctx context.Context) (*catalogform.ProductForm, error)
	LoadForEdit(ctx context.Context, productID int64) (*catalogform.ProductForm, error)
	DeleteProduct(ctx context.Context, adminID, id int64, confirm bool) ([]products.ProductDTO, error)
}

type progressSinks interface {
	Sink(uploadID string) media.ProgressSink
}

type productFormResponse struct {
	ProductID *int64                    `json:"product_id,omitempty"`
	Fields    catalogform.ProductFields `json:"fields"`
	Media     []media.PendingItem       `json:"media"`
}

// ProductsList returns every product with its images.
func ProductsList(svc productLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ProductsNewForm returns the defaults of an empty create form.
func ProductsNewForm(forms productForms, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := forms.NewProductForm(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProductFormResponse(form))
	}
}

// ProductsEditForm returns the stored product mapped onto form fields and uploaded media.
func ProductsEditForm(forms productForms, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		form, err := forms.LoadForEdit(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProductFormResponse(form))
	}
}

// ProductsCreate accepts the multipart product form, uploads its media and saves the product.
func ProductsCreate(forms productForms, progress progressSinks, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := parseProductSubmission(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		form, err := forms.NewProductForm(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		submitProduct(w, r, form, sub, progress, http.StatusCreated, logg)
	}
}

// ProductsUpdate edits a product. Existing images not listed in keep_images are dropped.
func ProductsUpdate(forms productForms, progress progressSinks, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sub, err := parseProductSubmission(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		form, err := forms.LoadForEdit(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		submitProduct(w, r, form, sub, progress, http.StatusOK, logg)
	}
}

// ProductsDelete requires ?confirm=true and returns the refreshed list.
func ProductsDelete(forms productForms, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		confirm, err := validators.ParseQueryBool(r, "confirm")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := forms.DeleteProduct(r.Context(), middleware.AdminIDFromContext(r.Context()), id, confirm)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"products": list})
	}
}

func submitProduct(w http.ResponseWriter, r *http.Request, form *catalogform.ProductForm, sub *productSubmission, progress progressSinks, status int, logg *logger.Logger) {
	ctx := r.Context()
	if err := sub.apply(form); err != nil {
		responses.WriteError(ctx, logg, w, err)
		return
	}

	var sink media.ProgressSink
	if sub.UploadID != "" {
		if logg != nil {
			ctx = logg.WithUploadID(ctx, sub.UploadID)
		}
		if progress != nil {
			sink = progress.Sink(sub.UploadID)
		}
	}

	result, err := form.Submit(ctx, middleware.AdminIDFromContext(ctx), sink)
	if err != nil {
		responses.WriteError(ctx, logg, w, err)
		return
	}
	if len(result.Warnings) == 0 {
		responses.WriteSuccessStatus(w, status, result)
		return
	}
	warning := types.APIWarning{
		Code:    warningPartialUpload,
		Message: fmt.Sprintf("%d media item(s) failed to upload", len(result.Warnings)),
		Details: result.Warnings,
	}
	responses.WriteSuccessWithWarnings(w, status, result, []types.APIWarning{warning})
}

func newProductFormResponse(form *catalogform.ProductForm) productFormResponse {
	return productFormResponse{
		ProductID: form.EditingID(),
		Fields:    form.Fields,
		Media:     form.Staging.Items(),
	}
}
