// Package variants maintains the per-size price/stock rows of a color SKU
// while an admin builds a listing.
package variants

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"catalog-admin-service/internal/sku"
)

var (
	ErrSizeNotSelected = errors.New("variants: size not selected")
	ErrUnknownField    = errors.New("variants: unknown field")
	ErrInvalidValue    = errors.New("variants: invalid value")
	ErrEmptySize       = errors.New("variants: size is empty")
)

// Field names an editable column of a Row.
type Field string

const (
	FieldPrice     Field = "price"
	FieldMRP       Field = "mrp"
	FieldInventory Field = "inventory"
	FieldSKU       Field = "sku"
)

// fansOut reports whether an edit of f on the first row is copied to every row.
func (f Field) fansOut() bool {
	return f == FieldPrice || f == FieldMRP || f == FieldInventory
}

// Row is the price/stock tuple for one selected size.
type Row struct {
	Size      string              `json:"size"`
	Price     decimal.NullDecimal `json:"price"`
	MRP       decimal.NullDecimal `json:"mrp"`
	Inventory *int32              `json:"inventory,omitempty"`
	SKUID     string              `json:"sku_id"`
	// SKUEdited is set once the admin types a SKU by hand; Rebase leaves such rows alone.
	SKUEdited bool `json:"sku_edited,omitempty"`
}

// Grid maps selected sizes to rows, in selection order.
//
// The first selected row is special: a new size is seeded from it, and editing its
// price, mrp or inventory writes that value to every selected row.
type Grid struct {
	skuBase string
	order   []string
	rows    map[string]*Row
}

// NewGrid returns an empty grid whose row SKUs are derived from skuBase.
func NewGrid(skuBase string) *Grid {
	return &Grid{skuBase: skuBase, rows: make(map[string]*Row)}
}

func (g *Grid) init() {
	if g.rows == nil {
		g.rows = make(map[string]*Row)
	}
}

// SKUBase returns the base the grid derives row SKUs from.
func (g *Grid) SKUBase() string { return g.skuBase }

// Len returns the number of selected sizes.
func (g *Grid) Len() int { return len(g.order) }

// Sizes returns the selected sizes in selection order.
func (g *Grid) Sizes() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// First returns the first selected size.
func (g *Grid) First() (string, bool) {
	if len(g.order) == 0 {
		return "", false
	}
	return g.order[0], true
}

// Selected reports whether size is part of the grid.
func (g *Grid) Selected(size string) bool {
	_, ok := g.rows[size]
	return ok
}

// Row returns a copy of the row for size.
func (g *Grid) Row(size string) (Row, bool) {
	r, ok := g.rows[size]
	if !ok {
		return Row{}, false
	}
	return r.clone(), true
}

// Rows returns copies of all rows in selection order.
func (g *Grid) Rows() []Row {
	out := make([]Row, 0, len(g.order))
	for _, s := range g.order {
		out = append(out, g.rows[s].clone())
	}
	return out
}

// Select adds size to the grid. The new row copies price, mrp and inventory
// from the first row when one exists.
func (g *Grid) Select(size string) error {
	size = strings.TrimSpace(size)
	if size == "" {
		return ErrEmptySize
	}
	g.init()
	if _, ok := g.rows[size]; ok {
		return nil
	}
	row := &Row{Size: size, SKUID: sku.WithSize(g.skuBase, size)}
	if first, ok := g.First(); ok {
		seed := g.rows[first]
		row.Price = seed.Price
		row.MRP = seed.MRP
		if seed.Inventory != nil {
			inv := *seed.Inventory
			row.Inventory = &inv
		}
	}
	g.rows[size] = row
	g.order = append(g.order, size)
	return nil
}

// Deselect removes size. The next size in selection order becomes first.
func (g *Grid) Deselect(size string) {
	if _, ok := g.rows[size]; !ok {
		return
	}
	delete(g.rows, size)
	for i, s := range g.order {
		if s == size {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

// Toggle selects size if absent, otherwise deselects it. It returns whether
// size is selected afterwards.
func (g *Grid) Toggle(size string) (bool, error) {
	if g.Selected(size) {
		g.Deselect(size)
		return false, nil
	}
	if err := g.Select(size); err != nil {
		return false, err
	}
	return true, nil
}

// Set writes value into field of the row for size. An empty value clears the field.
// Price, mrp and inventory edits on the first row are applied to every row.
func (g *Grid) Set(size string, field Field, value string) error {
	target, ok := g.rows[size]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSizeNotSelected, size)
	}
	value = strings.TrimSpace(value)

	apply, err := g.setter(field, value)
	if err != nil {
		return err
	}

	if first, _ := g.First(); field.fansOut() && size == first {
		for _, s := range g.order {
			apply(g.rows[s])
		}
		return nil
	}
	apply(target)
	return nil
}

func (g *Grid) setter(field Field, value string) (func(*Row), error) {
	switch field {
	case FieldPrice, FieldMRP:
		var d decimal.NullDecimal
		if value != "" {
			v, err := decimal.NewFromString(value)
			if err != nil || v.IsNegative() {
				return nil, fmt.Errorf("%w: %s %q", ErrInvalidValue, field, value)
			}
			d = decimal.NullDecimal{Decimal: v, Valid: true}
		}
		if field == FieldPrice {
			return func(r *Row) { r.Price = d }, nil
		}
		return func(r *Row) { r.MRP = d }, nil
	case FieldInventory:
		if value == "" {
			return func(r *Row) { r.Inventory = nil }, nil
		}
		n, err := strconv.ParseInt(value, 10, 32)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %s %q", ErrInvalidValue, field, value)
		}
		return func(r *Row) {
			v := int32(n)
			r.Inventory = &v
		}, nil
	case FieldSKU:
		return func(r *Row) {
			r.SKUID = value
			r.SKUEdited = value != ""
			if value == "" {
				r.SKUID = sku.WithSize(g.skuBase, r.Size)
			}
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
}

// Rebase changes the SKU base and re-derives the SKU of every row not edited by hand.
func (g *Grid) Rebase(skuBase string) {
	g.skuBase = skuBase
	for _, r := range g.rows {
		if !r.SKUEdited {
			r.SKUID = sku.WithSize(skuBase, r.Size)
		}
	}
}

func (r *Row) clone() Row {
	c := *r
	if r.Inventory != nil {
		inv := *r.Inventory
		c.Inventory = &inv
	}
	return c
}

type gridJSON struct {
	SKUBase string `json:"sku_base"`
	Rows    []Row  `json:"rows"`
}

// MarshalJSON encodes the grid with rows in selection order.
func (g *Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(gridJSON{SKUBase: g.skuBase, Rows: g.Rows()})
}

// UnmarshalJSON restores a grid produced by MarshalJSON.
func (g *Grid) UnmarshalJSON(b []byte) error {
	var in gridJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	g.skuBase = in.SKUBase
	g.order = g.order[:0]
	g.rows = make(map[string]*Row, len(in.Rows))
	for i := range in.Rows {
		r := in.Rows[i]
		if _, dup := g.rows[r.Size]; dup || r.Size == "" {
			continue
		}
		g.rows[r.Size] = &r
		g.order = append(g.order, r.Size)
	}
	return nil
}
