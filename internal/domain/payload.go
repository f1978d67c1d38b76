package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// CatalogueCreate is the body of a createCatalogue call.
type CatalogueCreate struct {
	Name        string  `json:"name"`
	Slug        string  `json:"slug,omitempty"`
	Description *string `json:"description,omitempty"`
	CategoryID  int64   `json:"category_id"`
	Gender      Gender  `json:"gender"`
	IsActive    bool    `json:"is_active"`
}

// ProductCreate is the body of a createProduct call, variants embedded.
type ProductCreate struct {
	Name             string           `json:"name"`
	Slug             string           `json:"slug"`
	CatalogueID      int64            `json:"catalogue_id"`
	BrandID          int64            `json:"brand_id"`
	CategoryIDs      []int64          `json:"category_ids"`
	Color            string           `json:"color"`
	ColorHex         *string          `json:"color_hex,omitempty"`
	MRP              decimal.Decimal  `json:"mrp"`
	Price            decimal.Decimal  `json:"price"`
	Tags             []string         `json:"tags"`
	Status           ProductStatus    `json:"status"`
	ShortDescription *string          `json:"short_description,omitempty"`
	LongDescription  *string          `json:"long_description,omitempty"`
	Specifications   *json.RawMessage `json:"specifications,omitempty"`
	FootwearDetails  *json.RawMessage `json:"footwear_details,omitempty"`
	Variants         []VariantCreate  `json:"variants"`
}

// VariantCreate is one element of ProductCreate.Variants. It is also used by
// ProductUpdate, where a non-zero ID targets an existing variant.
type VariantCreate struct {
	ID            int64               `json:"id,omitempty"`
	Size          string              `json:"size"`
	SKU           string              `json:"sku"`
	StockQuantity int32               `json:"stock_quantity"`
	PriceOverride decimal.NullDecimal `json:"price_override"`
	MRPOverride   decimal.NullDecimal `json:"mrp_override"`
	IsActive      bool                `json:"is_active"`
}

// ProductUpdate carries the partial fields of an updateProduct call.
// Nil fields are left untouched by the backend.
type ProductUpdate struct {
	Name             *string          `json:"name,omitempty"`
	Slug             *string          `json:"slug,omitempty"`
	BrandID          *int64           `json:"brand_id,omitempty"`
	CategoryIDs      []int64          `json:"category_ids,omitempty"`
	Color            *string          `json:"color,omitempty"`
	ColorHex         *string          `json:"color_hex,omitempty"`
	MRP              *decimal.Decimal `json:"mrp,omitempty"`
	Price            *decimal.Decimal `json:"price,omitempty"`
	Tags             []string         `json:"tags,omitempty"`
	Status           *ProductStatus   `json:"status,omitempty"`
	ShortDescription *string          `json:"short_description,omitempty"`
	LongDescription  *string          `json:"long_description,omitempty"`
	Specifications   *json.RawMessage `json:"specifications,omitempty"`
	FootwearDetails  *json.RawMessage `json:"footwear_details,omitempty"`
	Variants         []VariantCreate  `json:"variants,omitempty"`
}

// MediaOptions are the form fields sent alongside an uploaded image.
type MediaOptions struct {
	UsageType    string `json:"usage_type"`
	Platform     string `json:"platform"`
	DisplayOrder int    `json:"display_order"`
	IsPrimary    bool   `json:"is_primary"`
}

// MediaFile is an image held in memory before upload.
type MediaFile struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}
