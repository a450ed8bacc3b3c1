package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/catalog-admin/api/responses"
	pkgerrors "github.com/angelmondragon/catalog-admin/pkg/errors"
	"github.com/angelmondragon/catalog-admin/pkg/logger"
)

type progressReader interface {
	Get(ctx context.Context, uploadID string) (int, bool, error)
}

type uploadProgressResponse struct {
	UploadID string `json:"upload_id"`
	Percent  int    `json:"percent"`
	Done     bool   `json:"done"`
}

// UploadProgress reports the latest percentage published for an upload batch.
func UploadProgress(tracker progressReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uploadID := strings.TrimSpace(chi.URLParam(r, "uploadID"))
		if uploadID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "upload id is required"))
			return
		}

		percent, ok, err := tracker.Get(r.Context(), uploadID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read upload progress"))
			return
		}
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "upload not found"))
			return
		}
		responses.WriteSuccess(w, uploadProgressResponse{UploadID: uploadID, Percent: percent, Done: percent >= 100})
	}
}
