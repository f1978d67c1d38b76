package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"catalog-admin-service/internal/cart"
	"catalog-admin-service/internal/domain"
	"catalog-admin-service/internal/drafts"
	"catalog-admin-service/internal/listing"
	"catalog-admin-service/internal/media"
	"catalog-admin-service/internal/reference"
	"catalog-admin-service/internal/remote"
	"catalog-admin-service/internal/sku"
	"catalog-admin-service/internal/store"
)

// CartLoader rehydrates an owner's cart from persistent storage.
type CartLoader interface {
	Load(ctx context.Context, s *cart.Store, owner string) (bool, error)
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker.
type HealthCheckFunc func(ctx context.Context) error

func (f HealthCheckFunc) Ping(ctx context.Context) error { return f(ctx) }

// Dependencies are the collaborators of HTTPHandler. CartLoader and Health may be nil.
// Health is keyed by dependency name.
type Dependencies struct {
	Backend           store.Backend
	Drafts            drafts.Storer
	Carts             *cart.Store
	CartLoader        CartLoader
	Health            map[string]HealthChecker
	AdminSecret       []byte
	MaxImageDimension int
	MaxUploadBytes    int64
	// StorefrontLimiter throttles the cart and wishlist routes when set.
	StorefrontLimiter *RateLimiter
}

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	backend     store.Backend
	drafts      drafts.Storer
	assembler   *listing.Assembler
	reference   *reference.Loader
	carts       *cart.Store
	cartLoader  CartLoader
	health      map[string]HealthChecker
	adminSecret []byte
	maxImageDim int
	maxUpload   int64
	limiter     *RateLimiter
	validate    *validator.Validate
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(deps Dependencies) *HTTPHandler {
	maxUpload := deps.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &HTTPHandler{
		backend:     deps.Backend,
		drafts:      deps.Drafts,
		assembler:   listing.NewAssembler(deps.Backend),
		reference:   reference.NewLoader(deps.Backend),
		carts:       deps.Carts,
		cartLoader:  deps.CartLoader,
		health:      deps.Health,
		adminSecret: deps.AdminSecret,
		maxImageDim: deps.MaxImageDimension,
		maxUpload:   maxUpload,
		limiter:     deps.StorefrontLimiter,
		validate:    validator.New(),
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// SubmitErrorResponse is returned when a submission fails after validation.
type SubmitErrorResponse struct {
	Error          string   `json:"error"`
	Stage          string   `json:"stage"`
	RolledBack     []string `json:"rolled_back"`
	RollbackErrors []string `json:"rollback_errors,omitempty"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil { // Avoid writing empty body for 204 No Content
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			zap.L().Error("Failed to encode JSON response", zap.Error(err))
		}
	}
}

// decodeJSON decodes the request body into v. An empty body is accepted when allowEmpty is set.
func decodeJSON(r *http.Request, v interface{}, allowEmpty bool) error {
	defer r.Body.Close()
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	return err
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// statusFor maps service and backend errors onto HTTP status codes.
func statusFor(err error) int {
	var apiErr *remote.APIError
	var urlErr *url.Error
	switch {
	case errors.Is(err, store.ErrProductNotFound),
		errors.Is(err, store.ErrCatalogueNotFound),
		errors.Is(err, store.ErrVariantNotFound),
		errors.Is(err, drafts.ErrDraftNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrSKUExists),
		errors.Is(err, store.ErrSlugExists),
		errors.Is(err, store.ErrCatalogueInUse):
		return http.StatusConflict
	case errors.Is(err, store.ErrInvalidReference),
		errors.Is(err, drafts.ErrInvalidID),
		errors.Is(err, media.ErrNotImage):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrMediaUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr):
		switch apiErr.StatusCode {
		case http.StatusNotFound, http.StatusConflict:
			return apiErr.StatusCode
		}
		return http.StatusBadGateway
	case errors.As(err, &urlErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondWithServiceError writes err with its mapped status. Backend messages
// are passed through; internal errors are replaced by fallback.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var verr *listing.ValidationError
	if errors.As(err, &verr) {
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Fields: verr.Fields})
		return
	}

	var serr *listing.SubmitError
	if errors.As(err, &serr) {
		status := statusFor(serr.Cause)
		if status != http.StatusNotFound && status != http.StatusConflict && status != http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		resp := SubmitErrorResponse{Error: serr.Error(), Stage: string(serr.Stage), RolledBack: serr.RolledBack}
		if resp.RolledBack == nil {
			resp.RolledBack = []string{}
		}
		for _, e := range serr.RollbackErrs {
			resp.RollbackErrors = append(resp.RollbackErrors, e.Error())
		}
		zap.L().Error("listing submission failed", zap.String("path", r.URL.Path), zap.Error(err))
		respondWithJSON(w, status, resp)
		return
	}

	status := statusFor(err)
	zap.L().Error("request failed", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))

	var apiErr *remote.APIError
	switch {
	case errors.As(err, &apiErr):
		respondWithError(w, status, apiErr.Message)
	case status == http.StatusInternalServerError:
		respondWithError(w, status, fallback)
	default:
		respondWithError(w, status, err.Error())
	}
}

// --- Reference & SKU Handlers ---

func (h *HTTPHandler) GetReference(w http.ResponseWriter, r *http.Request) {
	data, err := h.reference.Load(r.Context())
	if err != nil {
		zap.L().Error("reference data unavailable", zap.Error(err))
		respondWithError(w, http.StatusBadGateway, "Reference data unavailable")
		return
	}
	respondWithJSON(w, http.StatusOK, data)
}

// SKUInput defines the expected input for generating a SKU.
type SKUInput struct {
	Article string `json:"article" validate:"max=255"`
	Color   string `json:"color" validate:"max=100"`
	Size    string `json:"size" validate:"max=20"`
}

func (h *HTTPHandler) GenerateSKU(w http.ResponseWriter, r *http.Request) {
	var input SKUInput
	if err := decodeJSON(r, &input, false); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"sku": sku.Generate(input.Article, input.Color, input.Size)})
}

// --- Product, Catalogue & Variant Handlers ---

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	product, err := h.backend.GetProduct(r.Context(), productID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to retrieve product")
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	var input domain.ProductUpdate
	if err := decodeJSON(r, &input, false); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if input.Status != nil && !input.Status.Valid() {
		respondWithError(w, http.StatusBadRequest, "Invalid status: must be draft, live or archived")
		return
	}
	if input.Price != nil && input.MRP != nil && !domain.DiscountValid(*input.Price, *input.MRP) {
		respondWithError(w, http.StatusBadRequest, "price must not exceed mrp")
		return
	}
	for _, v := range input.Variants {
		if v.PriceOverride.Valid && v.MRPOverride.Valid && !domain.DiscountValid(v.PriceOverride.Decimal, v.MRPOverride.Decimal) {
			respondWithError(w, http.StatusBadRequest, "price_override must not exceed mrp_override for size "+v.Size)
			return
		}
	}

	updated, err := h.backend.UpdateProduct(r.Context(), productID, input)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update product")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	if err := h.backend.DeleteProduct(r.Context(), productID); err != nil {
		respondWithServiceError(w, r, err, "Failed to delete product")
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}

func (h *HTTPHandler) DeleteCatalogue(w http.ResponseWriter, r *http.Request) {
	catalogueID, ok := pathID(r, "catalogueId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid catalogue ID format")
		return
	}
	if err := h.backend.DeleteCatalogue(r.Context(), catalogueID); err != nil {
		respondWithServiceError(w, r, err, "Failed to delete catalogue")
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}

// StockUpdateInput defines the expected input for setting a variant's stock.
type StockUpdateInput struct {
	StockQuantity *int32 `json:"stock_quantity" validate:"required,gte=0"`
}

func (h *HTTPHandler) UpdateVariantStock(w http.ResponseWriter, r *http.Request) {
	variantID, ok := pathID(r, "variantId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid variant ID format")
		return
	}

	var input StockUpdateInput
	if err := decodeJSON(r, &input, false); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	variant, err := h.backend.UpdateVariantStock(r.Context(), variantID, *input.StockQuantity)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update stock")
		return
	}
	respondWithJSON(w, http.StatusOK, variant)
}

// --- Health ---

func (h *HTTPHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	code, overall := http.StatusOK, "healthy"
	deps := make(map[string]string, len(h.health))
	for name, hc := range h.health {
		deps[name] = "healthy"
		if err := hc.Ping(ctx); err != nil {
			zap.L().Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			deps[name] = "unhealthy"
			code, overall = http.StatusServiceUnavailable, "unhealthy"
		}
	}
	respondWithJSON(w, code, map[string]interface{}{
		"status":       overall,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"dependencies": deps,
	})
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", h.Healthz)

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuth(h.adminSecret))

			r.Get("/reference", h.GetReference) // GET /api/v1/admin/reference
			r.Post("/sku", h.GenerateSKU)       // POST /api/v1/admin/sku

			r.Route("/drafts", func(r chi.Router) {
				r.Post("/", h.CreateDraft)
				r.Route("/{draftId}", func(r chi.Router) {
					r.Get("/", h.GetDraft)
					r.Put("/", h.UpdateDraft)
					r.Delete("/", h.DeleteDraft)
					r.Post("/sizes/{size}", h.SelectSize)
					r.Delete("/sizes/{size}", h.DeselectSize)
					r.Patch("/sizes/{size}", h.SetSizeField)
					r.Post("/images", h.AddDraftImage)
					r.Delete("/images/{index}", h.RemoveDraftImage)
					r.Post("/submit", h.SubmitDraft)
				})
			})

			r.Route("/products/{productId}", func(r chi.Router) {
				r.Get("/", h.GetProduct)
				r.Patch("/", h.UpdateProduct)
				r.Delete("/", h.DeleteProduct)
			})
			r.Delete("/catalogues/{catalogueId}", h.DeleteCatalogue)
			r.Put("/variants/{variantId}/stock", h.UpdateVariantStock)
		})

		r.Group(func(r chi.Router) {
			if h.limiter != nil {
				r.Use(h.limiter.Middleware)
			}
			r.Route("/carts/{ownerId}", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Post("/items", h.AddCartItem)
				r.Patch("/items/{variantId}", h.UpdateCartItem)
				r.Delete("/items/{variantId}", h.RemoveCartItem)
			})
			r.Post("/wishlists/{ownerId}/{productId}", h.ToggleWishlist)
		})
	})
}
