package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/catalog-admin/internal/catalogform"
	"github.com/angelmondragon/catalog-admin/internal/media"
	pkgerrors "github.com/angelmondragon/catalog-admin/pkg/errors"
)

const multipartMemory = 32 << 20

// productSubmission is the decoded multipart body of a product create or update.
type productSubmission struct {
	Fields     catalogform.ProductFields
	Files      []media.File
	MainIndex  *int
	UploadID   string
	KeepImages []string
	keepSet    bool
}

func parseProductSubmission(r *http.Request) (*productSubmission, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request body too large")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body")
	}

	sub := &productSubmission{UploadID: strings.TrimSpace(r.FormValue("upload_id"))}

	raw := strings.TrimSpace(r.FormValue("payload"))
	if raw == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payload is required").WithDetails(map[string]any{"field": "payload"})
	}
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&sub.Fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payload").WithDetails(map[string]any{"error": err.Error()})
	}

	if v := strings.TrimSpace(r.FormValue("main_index")); v != "" {
		idx, err := strconv.Atoi(v)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "main_index must be numeric").WithDetails(map[string]any{"field": "main_index"})
		}
		sub.MainIndex = &idx
	}

	if values, ok := r.MultipartForm.Value["keep_images"]; ok && len(values) > 0 {
		sub.keepSet = true
		if strings.TrimSpace(values[0]) != "" {
			if err := json.Unmarshal([]byte(values[0]), &sub.KeepImages); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "keep_images must be a JSON array of URLs")
			}
		}
	}

	for _, header := range r.MultipartForm.File["media"] {
		file, err := readPart(header)
		if err != nil {
			return nil, err
		}
		sub.Files = append(sub.Files, file)
	}
	return sub, nil
}

func readPart(header *multipart.FileHeader) (media.File, error) {
	f, err := header.Open()
	if err != nil {
		return media.File{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read "+header.Filename)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return media.File{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read "+header.Filename)
	}
	return media.File{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// apply copies the submission onto the form: fields, kept images, new files, then the main selection.
func (s *productSubmission) apply(form *catalogform.ProductForm) error {
	form.Fields = s.Fields
	if s.keepSet {
		if err := form.RetainUploaded(s.KeepImages); err != nil {
			return err
		}
	}
	for _, file := range s.Files {
		if _, err := form.Staging.Stage(file); err != nil {
			return err
		}
	}
	if s.MainIndex != nil {
		return form.SetMainIndex(*s.MainIndex)
	}
	return nil
}
