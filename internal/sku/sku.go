// Package sku derives deterministic SKU codes for catalogue variants.
//
// Format: ARTC-COL-SIZE, e.g. CLAS-BRO-9 for ("Classic Oxford", "Brown", "9").
package sku

import (
	"strings"
	"unicode"
)

const (
	articleLen = 4
	colorLen   = 3

	// Placeholders used when a segment has no usable characters.
	ArticleFallback = "PROD"
	ColorFallback   = "COL"

	separator = "-"
)

// Generate builds the SKU for one size of an article/color pair.
// An empty size yields the base SKU of the color.
func Generate(article, color, size string) string {
	parts := []string{
		token(article, articleLen, ArticleFallback),
		token(color, colorLen, ColorFallback),
	}
	if s := token(size, 0, ""); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, separator)
}

// Base is the size-less SKU of an article/color pair.
func Base(article, color string) string {
	return Generate(article, color, "")
}

// WithSize appends a size segment to an existing base SKU.
func WithSize(base, size string) string {
	s := token(size, 0, "")
	if s == "" {
		return base
	}
	if base == "" {
		return s
	}
	return base + separator + s
}

// token keeps uppercase ASCII letters and digits, truncated to n (n <= 0 means no limit).
func token(s string, n int, fallback string) string {
	var b strings.Builder
	for _, r := range s {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		if n > 0 && b.Len() >= n {
			break
		}
	}
	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}
