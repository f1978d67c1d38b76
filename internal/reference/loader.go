// Package reference loads the lookup lists an admin picks from when building a listing.
package reference

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"catalog-admin-service/internal/domain"
	"catalog-admin-service/internal/store"
)

// ErrUnavailable is returned when none of the reference sources could be loaded.
var ErrUnavailable = errors.New("reference: no reference data available")

// Source names used as keys in Data.Errors.
const (
	SourcePlatforms  = "platforms"
	SourceBrands     = "brands"
	SourceCategories = "categories"
)

// Data is the combined reference data. Lists that failed to load are empty and
// their error message is recorded in Errors.
type Data struct {
	Platforms  []domain.Platform `json:"platforms"`
	Brands     []domain.Brand    `json:"brands"`
	Categories []domain.Category `json:"categories"`
	Errors     map[string]string `json:"errors,omitempty"`
}

// Loader fetches reference data from the catalogue backend.
type Loader struct {
	source store.ReferenceStorer
}

// NewLoader creates a Loader.
func NewLoader(source store.ReferenceStorer) *Loader {
	return &Loader{source: source}
}

// Load fetches platforms, brands and categories concurrently and waits for all
// three. It returns whatever succeeded; it fails only when every source failed.
func (l *Loader) Load(ctx context.Context) (*Data, error) {
	data := &Data{
		Platforms:  []domain.Platform{},
		Brands:     []domain.Brand{},
		Categories: []domain.Category{},
	}

	var (
		mu   sync.Mutex
		errs = map[string]error{}
	)
	record := func(source string, err error) {
		mu.Lock()
		errs[source] = err
		mu.Unlock()
		zap.L().Warn("reference source failed", zap.String("source", source), zap.Error(err))
	}

	// A plain Group: one failing source must not cancel the others.
	var g errgroup.Group
	g.Go(func() error {
		platforms, err := l.source.ListPlatforms(ctx)
		if err != nil {
			record(SourcePlatforms, err)
			return nil
		}
		data.Platforms = platforms
		return nil
	})
	g.Go(func() error {
		brands, err := l.source.ListBrands(ctx)
		if err != nil {
			record(SourceBrands, err)
			return nil
		}
		data.Brands = brands
		return nil
	})
	g.Go(func() error {
		categories, err := l.source.ListCategories(ctx)
		if err != nil {
			record(SourceCategories, err)
			return nil
		}
		data.Categories = categories
		return nil
	})
	_ = g.Wait()

	if len(errs) == 3 {
		return nil, errors.Join(ErrUnavailable, errs[SourcePlatforms], errs[SourceBrands], errs[SourceCategories])
	}
	if len(errs) > 0 {
		data.Errors = make(map[string]string, len(errs))
		for source, err := range errs {
			data.Errors[source] = err.Error()
		}
	}
	return data, nil
}
