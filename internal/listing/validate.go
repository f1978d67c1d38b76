package listing

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"catalog-admin-service/internal/domain"
)

// ValidationError lists every field that blocks a submission, keyed by a dotted
// path such as "product.brand_id" or "sizes.8.price".
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "listing: validation failed: " + strings.Join(keys, ", ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the form without touching the network. It returns a
// *ValidationError describing all problems found, or nil.
func Validate(f *Form) error {
	fields := map[string]string{}

	if f.Catalogue.IsNew() && !f.IsUpdate() {
		collect(fields, "catalogue", validate.Struct(f.Catalogue))
	}
	collect(fields, "product", validate.Struct(f.Product))

	grid := f.Grid()
	if grid.Len() == 0 {
		fields["sizes"] = "select at least one size"
	}

	// Product-level pricing is checked as sent, including values taken from the first size.
	if price, mrp := productPricing(f.Product, grid.Rows()); !domain.DiscountValid(price, mrp) {
		if f.Product.Price.Valid {
			fields["product.price"] = "must not exceed mrp"
		} else {
			fields["product.mrp"] = "must not be below the price of the first size"
		}
	}

	seen := make(map[string]string, grid.Len())
	for _, row := range grid.Rows() {
		prefix := "sizes." + row.Size + "."
		switch {
		case !row.Price.Valid:
			fields[prefix+"price"] = "is required"
		case !row.Price.Decimal.IsPositive():
			fields[prefix+"price"] = "must be greater than 0"
		default:
			if mrp, ok := effectiveMRP(row.MRP, f.Product.MRP); ok && !domain.DiscountValid(row.Price.Decimal, mrp) {
				fields[prefix+"price"] = "must not exceed mrp"
			}
		}
		if row.Inventory != nil && *row.Inventory < 0 {
			fields[prefix+"inventory"] = "must not be negative"
		}

		code := strings.TrimSpace(row.SKUID)
		if code == "" {
			fields[prefix+"sku"] = "is required"
			continue
		}
		if other, dup := seen[code]; dup {
			fields[prefix+"sku"] = fmt.Sprintf("duplicates the SKU of size %s", other)
			continue
		}
		seen[code] = row.Size
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func effectiveMRP(row, product decimal.NullDecimal) (decimal.Decimal, bool) {
	if row.Valid {
		return row.Decimal, true
	}
	if product.Valid {
		return product.Decimal, true
	}
	return decimal.Decimal{}, false
}

func collect(fields map[string]string, prefix string, err error) {
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields[prefix] = err.Error()
		return
	}
	for _, fe := range verrs {
		fields[prefix+"."+fe.Field()] = fieldMessage(fe)
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "hexcolor":
		return "must be a hex color such as #8B4513"
	}
	return "is invalid"
}
