package store

import (
	"context"

	"catalog-admin-service/internal/domain"
)

// CatalogueStorer defines the catalogue (article) operations of the catalogue backend.
type CatalogueStorer interface {
	CreateCatalogue(ctx context.Context, input domain.CatalogueCreate) (*domain.Catalogue, error)
	GetCatalogue(ctx context.Context, id int64) (*domain.Catalogue, error)
	DeleteCatalogue(ctx context.Context, id int64) error
}

// ProductStorer defines the product (color SKU) and variant operations.
type ProductStorer interface {
	CreateProduct(ctx context.Context, input domain.ProductCreate) (*domain.Product, error) // Returns the product with created variant IDs
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, input domain.ProductUpdate) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	UpdateVariantStock(ctx context.Context, variantID int64, quantity int32) (*domain.Variant, error)
}

// MediaStorer uploads product images.
type MediaStorer interface {
	UploadProductMedia(ctx context.Context, productID, variantID int64, file domain.MediaFile, opts domain.MediaOptions) (*domain.MediaAsset, error)
}

// ReferenceStorer lists the flat reference entities.
type ReferenceStorer interface {
	ListBrands(ctx context.Context) ([]domain.Brand, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListPlatforms(ctx context.Context) ([]domain.Platform, error)
}

// Backend is the full catalogue backend contract. Both the REST client and
// PostgresStore implement it.
type Backend interface {
	CatalogueStorer
	ProductStorer
	MediaStorer
	ReferenceStorer
}
