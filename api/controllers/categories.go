package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/catalog-admin/api/middleware"
	"github.com/angelmondragon/catalog-admin/api/responses"
	"github.com/angelmondragon/catalog-admin/api/validators"
	"github.com/angelmondragon/catalog-admin/internal/catalogform"
	"github.com/angelmondragon/catalog-admin/internal/categories"
	pkgerrors "github.com/angelmondragon/catalog-admin/pkg/errors"
	"github.com/angelmondragon/catalog-admin/pkg/logger"
)

type categoryLister interface {
	List(ctx context.Context, order categories.Order) ([]categories.CategoryDTO, error)
}

type categoryForms interface {
	SubmitCategory(ctx context.Context, adminID int64, id *int64, name string) (*catalogform.CategoryResult, error)
	DeleteCategory(ctx context.Context, adminID, id int64, confirm bool) ([]categories.CategoryDTO, error)
}

type categoryRequest struct {
	Name string `json:"name"`
}

// CategoriesList returns categories newest first, or alphabetically with ?order=name.
func CategoriesList(svc categoryLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, ok := categories.ParseOrder(r.URL.Query().Get("order"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order must be name or created_at").WithDetails(map[string]any{"field": "order"}))
			return
		}
		list, err := svc.List(r.Context(), order)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func CategoriesCreate(forms categoryForms, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body categoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := forms.SubmitCategory(r.Context(), middleware.AdminIDFromContext(r.Context()), nil, body.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func CategoriesUpdate(forms categoryForms, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body categoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := forms.SubmitCategory(r.Context(), middleware.AdminIDFromContext(r.Context()), &id, body.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CategoriesDelete requires ?confirm=true and returns the refreshed list.
func CategoriesDelete(forms categoryForms, logg *logger.Logger) http.HandlerFunc {
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
		list, err := forms.DeleteCategory(r.Context(), middleware.AdminIDFromContext(r.Context()), id, confirm)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"categories": list})
	}
}
