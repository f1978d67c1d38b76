package listing

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"catalog-admin-service/internal/domain"
	"catalog-admin-service/internal/sku"
	"catalog-admin-service/internal/variants"
)

// BuildCatalogueCreate returns the createCatalogue body for a new catalogue.
func BuildCatalogueCreate(f *Form) domain.CatalogueCreate {
	return domain.CatalogueCreate{
		Name:        strings.TrimSpace(f.Catalogue.Name),
		Slug:        domain.Slugify(f.Catalogue.Name),
		Description: f.Catalogue.Description,
		CategoryID:  f.Catalogue.CategoryID,
		Gender:      f.Catalogue.Gender,
		IsActive:    f.Catalogue.IsActive,
	}
}

// BuildCreatePayload returns the createProduct body: product fields plus one
// variant per selected size, in selection order.
func BuildCreatePayload(f *Form, catalogueID int64) domain.ProductCreate {
	rows := f.Grid().Rows()
	price, mrp := productPricing(f.Product, rows)

	status := f.Product.Status
	if status == "" {
		status = domain.StatusDraft
	}

	out := domain.ProductCreate{
		Name:             strings.TrimSpace(f.Product.Name),
		Slug:             productSlug(f.Product.Name, f.Product.Color),
		CatalogueID:      catalogueID,
		BrandID:          f.Product.BrandID,
		CategoryIDs:      categoryIDs(f),
		Color:            strings.TrimSpace(f.Product.Color),
		ColorHex:         f.Product.ColorHex,
		MRP:              mrp,
		Price:            price,
		Tags:             tags(f.Product.Tags),
		Status:           status,
		ShortDescription: f.Product.ShortDescription,
		LongDescription:  f.Product.LongDescription,
		Specifications:   f.Product.Specifications,
		FootwearDetails:  f.Product.FootwearDetails,
		Variants:         make([]domain.VariantCreate, 0, len(rows)),
	}
	for _, row := range rows {
		out.Variants = append(out.Variants, variantFromRow(row, 0))
	}
	return out
}

// BuildUpdatePayload returns the updateProduct body. Rows are matched to existing
// variants by size; existing sizes that are no longer selected are deactivated.
func BuildUpdatePayload(f *Form, existing []domain.Variant) domain.ProductUpdate {
	rows := f.Grid().Rows()
	price, mrp := productPricing(f.Product, rows)

	name := strings.TrimSpace(f.Product.Name)
	color := strings.TrimSpace(f.Product.Color)
	slug := productSlug(name, color)
	brandID := f.Product.BrandID

	out := domain.ProductUpdate{
		Name:             &name,
		Slug:             &slug,
		BrandID:          &brandID,
		CategoryIDs:      categoryIDs(f),
		Color:            &color,
		ColorHex:         f.Product.ColorHex,
		MRP:              &mrp,
		Price:            &price,
		Tags:             f.Product.Tags,
		ShortDescription: f.Product.ShortDescription,
		LongDescription:  f.Product.LongDescription,
		Specifications:   f.Product.Specifications,
		FootwearDetails:  f.Product.FootwearDetails,
	}
	if f.Product.Status != "" {
		status := f.Product.Status
		out.Status = &status
	}

	bySize := make(map[string]domain.Variant, len(existing))
	for _, v := range existing {
		bySize[v.Size] = v
	}
	for _, row := range rows {
		var id int64
		if v, ok := bySize[row.Size]; ok {
			id = v.ID
			delete(bySize, row.Size)
		}
		out.Variants = append(out.Variants, variantFromRow(row, id))
	}
	for _, v := range existing {
		if _, dropped := bySize[v.Size]; !dropped || !v.IsActive {
			continue
		}
		out.Variants = append(out.Variants, domain.VariantCreate{
			ID:            v.ID,
			Size:          v.Size,
			SKU:           v.SKU,
			StockQuantity: v.StockQuantity,
			PriceOverride: v.PriceOverride,
			MRPOverride:   v.MRPOverride,
			IsActive:      false,
		})
	}
	return out
}

// FromProduct loads an existing product into a form for editing. Active variants
// become selected sizes carrying their stored SKU; inactive ones are left out so
// an unchanged submission keeps them inactive. The base SKU is derived from the
// catalogue name when c is given, as for new listings, else from the product name.
func FromProduct(p *domain.Product, c *domain.Catalogue) *Form {
	catalogue := CatalogueFields{ID: p.CatalogueID}
	article := p.Name
	if c != nil {
		catalogue.Name = c.Name
		catalogue.Description = c.Description
		catalogue.CategoryID = c.CategoryID
		catalogue.Gender = c.Gender
		catalogue.IsActive = c.IsActive
		if strings.TrimSpace(c.Name) != "" {
			article = c.Name
		}
	}

	f := &Form{
		ProductID: p.ID,
		Catalogue: catalogue,
		Product: ProductFields{
			Name:             p.Name,
			Color:            p.Color,
			ColorHex:         p.ColorHex,
			BaseSKU:          sku.Base(article, p.Color),
			BrandID:          p.BrandID,
			CategoryIDs:      p.CategoryIDs,
			Tags:             p.Tags,
			Status:           p.Status,
			ShortDescription: p.ShortDescription,
			LongDescription:  p.LongDescription,
			Specifications:   p.Specifications,
			FootwearDetails:  p.FootwearDetails,
			MRP:              nullable(p.MRP),
			Price:            nullable(p.Price),
		},
	}
	grid := variants.NewGrid(f.Product.BaseSKU)
	for _, v := range p.Variants {
		if !v.IsActive {
			continue
		}
		if err := grid.Select(v.Size); err != nil {
			continue
		}
		price := v.PriceOverride
		if !price.Valid {
			price = nullable(p.Price)
		}
		mrp := v.MRPOverride
		if !mrp.Valid {
			mrp = nullable(p.MRP)
		}
		// The first row fans out, so it is filled before any other size exists.
		_ = grid.Set(v.Size, variants.FieldPrice, nullString(price))
		_ = grid.Set(v.Size, variants.FieldMRP, nullString(mrp))
		_ = grid.Set(v.Size, variants.FieldInventory, strconv.Itoa(int(v.StockQuantity)))
		_ = grid.Set(v.Size, variants.FieldSKU, v.SKU)
	}
	f.Sizes = grid
	return f
}

func variantFromRow(row variants.Row, id int64) domain.VariantCreate {
	var stock int32
	if row.Inventory != nil {
		stock = *row.Inventory
	}
	return domain.VariantCreate{
		ID:            id,
		Size:          row.Size,
		SKU:           strings.TrimSpace(row.SKUID),
		StockQuantity: stock,
		PriceOverride: row.Price,
		MRPOverride:   row.MRP,
		IsActive:      true,
	}
}

// productPricing falls back to the first row for any product-level price not given.
func productPricing(p ProductFields, rows []variants.Row) (price, mrp decimal.Decimal) {
	if p.Price.Valid {
		price = p.Price.Decimal
	} else if len(rows) > 0 && rows[0].Price.Valid {
		price = rows[0].Price.Decimal
	}
	if p.MRP.Valid {
		mrp = p.MRP.Decimal
	} else if len(rows) > 0 && rows[0].MRP.Valid {
		mrp = rows[0].MRP.Decimal
	}
	return price, mrp
}

// productSlug slugs name and color, leaving the color out when the name already ends with it.
func productSlug(name, color string) string {
	nameSlug := domain.Slugify(name)
	colorSlug := domain.Slugify(color)
	if colorSlug == "" || nameSlug == colorSlug || strings.HasSuffix(nameSlug, "-"+colorSlug) {
		return nameSlug
	}
	return domain.Slugify(name, color)
}

func categoryIDs(f *Form) []int64 {
	if len(f.Product.CategoryIDs) > 0 {
		return f.Product.CategoryIDs
	}
	if f.Catalogue.CategoryID > 0 {
		return []int64{f.Catalogue.CategoryID}
	}
	return []int64{}
}

func tags(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func nullable(d decimal.Decimal) decimal.NullDecimal {
	if d.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
