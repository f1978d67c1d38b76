package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus is the publication state of a color SKU.
type ProductStatus string

const (
	StatusDraft    ProductStatus = "draft"
	StatusLive     ProductStatus = "live"
	StatusArchived ProductStatus = "archived"
)

// Valid reports whether s is one of the known statuses.
func (s ProductStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusLive, StatusArchived:
		return true
	}
	return false
}

// Product is one color variant of a Catalogue (a "color SKU").
// The json tags correspond to the fields the catalogue backend sends and expects.
type Product struct {
	ID               int64            `json:"id"`
	CatalogueID      int64            `json:"catalogue_id"`
	Name             string           `json:"name"`
	Slug             string           `json:"slug"`
	Color            string           `json:"color"`
	ColorHex         *string          `json:"color_hex,omitempty"`
	BrandID          int64            `json:"brand_id"`
	CategoryIDs      []int64          `json:"category_ids,omitempty"`
	MRP              decimal.Decimal  `json:"mrp"`
	Price            decimal.Decimal  `json:"price"`
	Status           ProductStatus    `json:"status"`
	Tags             []string         `json:"tags,omitempty"`
	ShortDescription *string          `json:"short_description,omitempty"`
	LongDescription  *string          `json:"long_description,omitempty"`
	Specifications   *json.RawMessage `json:"specifications,omitempty"`   // Free-form JSON, stored as JSONB.
	FootwearDetails  *json.RawMessage `json:"footwear_details,omitempty"` // Same.
	Variants         []Variant        `json:"variants,omitempty"`
	Media            []MediaAsset     `json:"media,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// PrimaryMedia returns the asset flagged primary, or nil.
func (p *Product) PrimaryMedia() *MediaAsset {
	for i := range p.Media {
		if p.Media[i].IsPrimary {
			return &p.Media[i]
		}
	}
	return nil
}

// Variant is one size of a Product. Stock is owned here.
type Variant struct {
	ID            int64               `json:"id"`
	ProductID     int64               `json:"product_id"`
	Size          string              `json:"size"`
	SKU           string              `json:"sku"`
	StockQuantity int32               `json:"stock_quantity"`
	PriceOverride decimal.NullDecimal `json:"price_override"`
	MRPOverride   decimal.NullDecimal `json:"mrp_override"`
	IsActive      bool                `json:"is_active"`
}

// MediaAsset is an image attached to a product, optionally scoped to a variant.
type MediaAsset struct {
	ID           int64  `json:"id"`
	ProductID    int64  `json:"product_id"`
	VariantID    *int64 `json:"variant_id,omitempty"`
	URL          string `json:"url"`
	UsageType    string `json:"usage_type"`
	Platform     string `json:"platform"`
	IsPrimary    bool   `json:"is_primary"`
	DisplayOrder int    `json:"display_order"`
}

// DiscountValid reports whether price does not exceed mrp.
// A zero mrp means "not present" and always passes.
func DiscountValid(price, mrp decimal.Decimal) bool {
	if mrp.IsZero() || price.IsZero() {
		return true
	}
	return price.LessThanOrEqual(mrp)
}
