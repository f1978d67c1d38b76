package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"catalog-admin-service/internal/domain"
	"catalog-admin-service/internal/drafts"
	"catalog-admin-service/internal/listing"
	"catalog-admin-service/internal/media"
	"catalog-admin-service/internal/variants"
)

// DraftCreateInput starts a draft. With ProductID set the draft edits that
// product; otherwise Form (or an empty form) is used.
type DraftCreateInput struct {
	ProductID int64         `json:"product_id" validate:"gte=0"`
	Form      *listing.Form `json:"form"`
}

// DraftUpdateInput replaces the given sections of a draft form.
type DraftUpdateInput struct {
	Catalogue *listing.CatalogueFields `json:"catalogue"`
	Product   *listing.ProductFields   `json:"product"`
	UsageType *string                  `json:"usage_type"`
	Platform  *string                  `json:"platform"`
}

// SizeFieldInput edits one cell of the size grid.
type SizeFieldInput struct {
	Field string `json:"field" validate:"required,oneof=price mrp inventory sku"`
	Value string `json:"value"`
}

// loadDraft fetches the draft named in the URL and writes the error response on failure.
func (h *HTTPHandler) loadDraft(w http.ResponseWriter, r *http.Request) (*drafts.Draft, bool) {
	d, err := h.drafts.Get(r.Context(), chi.URLParam(r, "draftId"))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load draft")
		return nil, false
	}
	return d, true
}

func (h *HTTPHandler) saveDraft(w http.ResponseWriter, r *http.Request, d *drafts.Draft, code int) {
	if err := h.drafts.Save(r.Context(), d); err != nil {
		respondWithServiceError(w, r, err, "Failed to save draft")
		return
	}
	respondWithJSON(w, code, d)
}

func (h *HTTPHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var input DraftCreateInput
	if err := decodeJSON(r, &input, true); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	form := input.Form
	if input.ProductID > 0 {
		product, err := h.backend.GetProduct(r.Context(), input.ProductID)
		if err != nil {
			respondWithServiceError(w, r, err, "Failed to load product")
			return
		}
		catalogue, err := h.backend.GetCatalogue(r.Context(), product.CatalogueID)
		if err != nil {
			zap.L().Warn("failed to load catalogue for edit draft, deriving SKUs from the product name",
				zap.Int64("product_id", product.ID), zap.Int64("catalogue_id", product.CatalogueID), zap.Error(err))
			catalogue = nil
		}
		form = listing.FromProduct(product, catalogue)
	}
	if form == nil {
		form = listing.NewForm()
	}
	form.SyncSKUs()

	d, err := h.drafts.Create(r.Context(), form)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to create draft")
		return
	}
	respondWithJSON(w, http.StatusCreated, d)
}

func (h *HTTPHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	d, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, d)
}

func (h *HTTPHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	var input DraftUpdateInput
	if err := decodeJSON(r, &input, false); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	d, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	if input.Catalogue != nil {
		d.Form.Catalogue = *input.Catalogue
	}
	if input.Product != nil {
		d.Form.Product = *input.Product
	}
	if input.UsageType != nil {
		d.Form.UsageType = *input.UsageType
	}
	if input.Platform != nil {
		d.Form.Platform = *input.Platform
	}
	d.Form.SyncSKUs()

	h.saveDraft(w, r, d, http.StatusOK)
}

func (h *HTTPHandler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.drafts.Delete(r.Context(), chi.URLParam(r, "draftId")); err != nil {
		respondWithServiceError(w, r, err, "Failed to delete draft")
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}

// --- Size Grid Handlers ---

func (h *HTTPHandler) SelectSize(w http.ResponseWriter, r *http.Request) {
	d, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	if err := d.Form.Grid().Select(chi.URLParam(r, "size")); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.saveDraft(w, r, d, http.StatusOK)
}

func (h *HTTPHandler) DeselectSize(w http.ResponseWriter, r *http.Request) {
	d, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	d.Form.Grid().Deselect(chi.URLParam(r, "size"))
	h.saveDraft(w, r, d, http.StatusOK)
}

func (h *HTTPHandler) SetSizeField(w http.ResponseWriter, r *http.Request) {
	var input SizeFieldInput
	if err := decodeJSON(r, &input, false); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	d, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	err := d.Form.Grid().Set(chi.URLParam(r, "size"), variants.Field(input.Field), input.Value)
	switch {
	case errors.Is(err, variants.ErrSizeNotSelected):
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.saveDraft(w, r, d, http.StatusOK)
}

// --- Image Handlers ---

func (h *HTTPHandler) AddDraftImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Missing image file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to read image: "+err.Error())
		return
	}

	image, err := media.OptimizeFile(domain.MediaFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, h.maxImageDim)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to process image")
		return
	}

	d, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	d.Form.Images = append(d.Form.Images, image)
	zap.L().Debug("image added to draft",
		zap.String("draft_id", d.ID), zap.String("filename", image.Filename), zap.Int("bytes", len(image.Data)))

	h.saveDraft(w, r, d, http.StatusCreated)
}

func (h *HTTPHandler) RemoveDraftImage(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid image index")
		return
	}

	d, ok := h.loadDraft(w, r)
	if !ok {
		return
	}
	if index >= len(d.Form.Images) {
		respondWithError(w, http.StatusNotFound, "Image not found")
		return
	}
	d.Form.Images = append(d.Form.Images[:index], d.Form.Images[index+1:]...)
	h.saveDraft(w, r, d, http.StatusOK)
}

// --- Submission ---

func (h *HTTPHandler) SubmitDraft(w http.ResponseWriter, r *http.Request) {
	d, ok := h.loadDraft(w, r)
	if !ok {
		return
	}

	result, err := h.assembler.Submit(r.Context(), d.Form)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to submit listing")
		return
	}

	if err := h.drafts.Delete(r.Context(), d.ID); err != nil && !errors.Is(err, drafts.ErrDraftNotFound) {
		zap.L().Warn("submitted draft not deleted", zap.String("draft_id", d.ID), zap.Error(err))
	}

	if result.Media == nil {
		result.Media = []domain.MediaAsset{}
	}
	code := http.StatusOK
	if result.Created {
		code = http.StatusCreated
	}
	respondWithJSON(w, code, result)
}
