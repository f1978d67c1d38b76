// Package storetest provides a testify mock of store.Backend.
package storetest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"catalog-admin-service/internal/domain"
	"catalog-admin-service/internal/store"
)

// MockBackend is a mock implementation of store.Backend
type MockBackend struct {
	mock.Mock
}

var _ store.Backend = (*MockBackend)(nil)

func (m *MockBackend) CreateCatalogue(ctx context.Context, input domain.CatalogueCreate) (*domain.Catalogue, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Catalogue), args.Error(1)
}

func (m *MockBackend) GetCatalogue(ctx context.Context, id int64) (*domain.Catalogue, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Catalogue), args.Error(1)
}

func (m *MockBackend) DeleteCatalogue(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBackend) CreateProduct(ctx context.Context, input domain.ProductCreate) (*domain.Product, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockBackend) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockBackend) UpdateProduct(ctx context.Context, id int64, input domain.ProductUpdate) (*domain.Product, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockBackend) DeleteProduct(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBackend) UpdateVariantStock(ctx context.Context, variantID int64, quantity int32) (*domain.Variant, error) {
	args := m.Called(ctx, variantID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Variant), args.Error(1)
}

func (m *MockBackend) UploadProductMedia(ctx context.Context, productID, variantID int64, file domain.MediaFile, opts domain.MediaOptions) (*domain.MediaAsset, error) {
	args := m.Called(ctx, productID, variantID, file, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MediaAsset), args.Error(1)
}

func (m *MockBackend) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	args := m.Called(ctx)
	var brands []domain.Brand
	if arg0 := args.Get(0); arg0 != nil {
		brands = arg0.([]domain.Brand)
	}
	return brands, args.Error(1)
}

func (m *MockBackend) ListCategories(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	var categories []domain.Category
	if arg0 := args.Get(0); arg0 != nil {
		categories = arg0.([]domain.Category)
	}
	return categories, args.Error(1)
}

func (m *MockBackend) ListPlatforms(ctx context.Context) ([]domain.Platform, error) {
	args := m.Called(ctx)
	var platforms []domain.Platform
	if arg0 := args.Get(0); arg0 != nil {
		platforms = arg0.([]domain.Platform)
	}
	return platforms, args.Error(1)
}
