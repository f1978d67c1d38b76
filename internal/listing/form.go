// Package listing turns an admin's listing form into backend calls: it validates
// the form, builds create/update payloads and runs the submission sequence with
// compensating deletes.
package listing

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"catalog-admin-service/internal/domain"
	"catalog-admin-service/internal/sku"
	"catalog-admin-service/internal/variants"
)

// Defaults for uploaded listing images.
const (
	DefaultUsageType = "gallery"
	DefaultPlatform  = "web"
)

// CatalogueFields selects an existing catalogue (ID > 0) or describes a new one.
type CatalogueFields struct {
	ID          int64         `json:"id,omitempty"`
	Name        string        `json:"name" validate:"required,max=255"`
	Description *string       `json:"description,omitempty"`
	CategoryID  int64         `json:"category_id" validate:"required,gt=0"`
	Gender      domain.Gender `json:"gender" validate:"required,oneof=men women unisex kids"`
	IsActive    bool          `json:"is_active"`
}

// IsNew reports whether submitting the form creates the catalogue.
func (c CatalogueFields) IsNew() bool { return c.ID == 0 }

// ProductFields are the color-level fields of the listing.
type ProductFields struct {
	Name             string               `json:"name" validate:"required,max=255"`
	Color            string               `json:"color" validate:"required,max=100"`
	ColorHex         *string              `json:"color_hex,omitempty" validate:"omitempty,hexcolor"`
	BaseSKU          string               `json:"base_sku" validate:"required,max=100"`
	BrandID          int64                `json:"brand_id" validate:"required,gt=0"`
	CategoryIDs      []int64              `json:"category_ids,omitempty" validate:"omitempty,dive,gt=0"`
	Tags             []string             `json:"tags,omitempty"`
	Status           domain.ProductStatus `json:"status,omitempty" validate:"omitempty,oneof=draft live archived"`
	ShortDescription *string              `json:"short_description,omitempty"`
	LongDescription  *string              `json:"long_description,omitempty"`
	Specifications   *json.RawMessage     `json:"specifications,omitempty"`
	FootwearDetails  *json.RawMessage     `json:"footwear_details,omitempty"`
	MRP              decimal.NullDecimal  `json:"mrp"`
	Price            decimal.NullDecimal  `json:"price"`
}

// Form is the full state of one listing being built or edited.
type Form struct {
	// ProductID is set when the form edits an existing product.
	ProductID int64              `json:"product_id,omitempty"`
	Catalogue CatalogueFields    `json:"catalogue"`
	Product   ProductFields      `json:"product"`
	Sizes     *variants.Grid     `json:"sizes"`
	Images    []domain.MediaFile `json:"images,omitempty"`
	UsageType string             `json:"usage_type,omitempty"`
	Platform  string             `json:"platform,omitempty"`
}

// NewForm returns an empty form with an empty size grid.
func NewForm() *Form {
	return &Form{Sizes: variants.NewGrid("")}
}

// Grid returns the size grid, creating it on first use.
func (f *Form) Grid() *variants.Grid {
	if f.Sizes == nil {
		f.Sizes = variants.NewGrid(f.Product.BaseSKU)
	}
	return f.Sizes
}

// IsUpdate reports whether the form targets an existing product.
func (f *Form) IsUpdate() bool { return f.ProductID > 0 }

// SyncSKUs derives the base SKU from the article and color when none was typed,
// then re-derives the SKU of every size row not edited by hand.
func (f *Form) SyncSKUs() {
	if f.Product.BaseSKU == "" && f.Product.Color != "" {
		article := f.Catalogue.Name
		if article == "" {
			article = f.Product.Name
		}
		f.Product.BaseSKU = sku.Base(article, f.Product.Color)
	}
	f.Grid().Rebase(f.Product.BaseSKU)
}

func (f *Form) usageType() string {
	if f.UsageType == "" {
		return DefaultUsageType
	}
	return f.UsageType
}

func (f *Form) platform() string {
	if f.Platform == "" {
		return DefaultPlatform
	}
	return f.Platform
}
