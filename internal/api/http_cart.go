package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"catalog-admin-service/internal/cart"
)

// CartResponse is a cart with its computed total.
type CartResponse struct {
	cart.Cart
	Total decimal.Decimal `json:"total"`
}

// CartItemInput adds a variant to a cart. The unit price is read from the backend.
type CartItemInput struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	VariantID int64 `json:"variant_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// CartQuantityInput sets the quantity of a cart line. Zero removes it.
type CartQuantityInput struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
}

func newCartResponse(c cart.Cart) CartResponse {
	if c.Items == nil {
		c.Items = []cart.Item{}
	}
	if c.Wishlist == nil {
		c.Wishlist = []int64{}
	}
	return CartResponse{Cart: c, Total: c.Total()}
}

// ownerCart returns the owner id from the URL after making sure any persisted
// cart has been loaded into memory.
func (h *HTTPHandler) ownerCart(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := strings.TrimSpace(chi.URLParam(r, "ownerId"))
	if owner == "" {
		respondWithError(w, http.StatusBadRequest, "Owner ID is required")
		return "", false
	}
	if h.cartLoader != nil && !h.carts.Has(owner) {
		if _, err := h.cartLoader.Load(r.Context(), h.carts, owner); err != nil {
			zap.L().Warn("failed to load persisted cart", zap.String("owner", owner), zap.Error(err))
		}
	}
	return owner, true
}

func respondWithCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrItemNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, cart.ErrEmptyOwner):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		zap.L().Error("cart operation failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Cart operation failed")
	}
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.ownerCart(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, newCartResponse(h.carts.Get(owner)))
}

func (h *HTTPHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.ownerCart(w, r)
	if !ok {
		return
	}

	var input CartItemInput
	if err := decodeJSON(r, &input, false); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	product, err := h.backend.GetProduct(r.Context(), input.ProductID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load product")
		return
	}
	var item *cart.Item
	for _, v := range product.Variants {
		if v.ID != input.VariantID {
			continue
		}
		if !v.IsActive {
			respondWithError(w, http.StatusBadRequest, "Variant is not available")
			return
		}
		price := product.Price
		if v.PriceOverride.Valid {
			price = v.PriceOverride.Decimal
		}
		item = &cart.Item{VariantID: v.ID, ProductID: product.ID, SKU: v.SKU, Quantity: input.Quantity, UnitPrice: price}
		break
	}
	if item == nil {
		respondWithError(w, http.StatusNotFound, "Variant not found for product")
		return
	}

	c, err := h.carts.AddItem(owner, *item)
	if err != nil {
		respondWithCartError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newCartResponse(c))
}

func (h *HTTPHandler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	variantID, ok := pathID(r, "variantId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid variant ID format")
		return
	}
	owner, ok := h.ownerCart(w, r)
	if !ok {
		return
	}

	var input CartQuantityInput
	if err := decodeJSON(r, &input, false); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	c, err := h.carts.UpdateQuantity(owner, variantID, *input.Quantity)
	if err != nil {
		respondWithCartError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newCartResponse(c))
}

func (h *HTTPHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	variantID, ok := pathID(r, "variantId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid variant ID format")
		return
	}
	owner, ok := h.ownerCart(w, r)
	if !ok {
		return
	}

	c, err := h.carts.RemoveItem(owner, variantID)
	if err != nil {
		respondWithCartError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newCartResponse(c))
}

func (h *HTTPHandler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}
	owner, ok := h.ownerCart(w, r)
	if !ok {
		return
	}

	c, added, err := h.carts.ToggleWishlist(owner, productID)
	if err != nil {
		respondWithCartError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"wishlisted": added,
		"cart":       newCartResponse(c),
	})
}
