package listing

import (
	"context"
	"errors"
	"testing"

	"catalog-admin-service/internal/domain"
	"catalog-admin-service/internal/store"
	"catalog-admin-service/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func withImages(f *Form, names ...string) *Form {
	for _, n := range names {
		f.Images = append(f.Images, domain.MediaFile{Filename: n, ContentType: "image/jpeg", Data: []byte(n)})
	}
	return f
}

func createdProduct() *domain.Product {
	return &domain.Product{
		ID:          11,
		CatalogueID: 7,
		Name:        "Classic Oxford Brown",
		Variants: []domain.Variant{
			{ID: 101, Size: "7", SKU: "CLAS-BRO-7"},
			{ID: 102, Size: "8", SKU: "CLAS-BRO-8"},
			{ID: 103, Size: "9", SKU: "CLAS-BRO-9"},
		},
	}
}

func TestAssembler_CreateWithNewCatalogue(t *testing.T) {
	backend := new(storetest.MockBackend)
	f := withImages(newValidForm(t), "front.jpg", "side.jpg")

	backend.On("CreateCatalogue", mock.Anything, mock.MatchedBy(func(in domain.CatalogueCreate) bool {
		return in.Name == "Classic Oxford" && in.CategoryID == 3 && in.Gender == domain.GenderMen
	})).Return(&domain.Catalogue{ID: 7, Name: "Classic Oxford", CategoryID: 3}, nil).Once()

	backend.On("CreateProduct", mock.Anything, mock.MatchedBy(func(in domain.ProductCreate) bool {
		return in.CatalogueID == 7 && len(in.Variants) == 3 && in.Slug == "classic-oxford-brown"
	})).Return(createdProduct(), nil).Once()

	backend.On("UploadProductMedia", mock.Anything, int64(11), int64(101), f.Images[0],
		domain.MediaOptions{UsageType: DefaultUsageType, Platform: DefaultPlatform, DisplayOrder: 0, IsPrimary: true}).
		Return(&domain.MediaAsset{ID: 1, ProductID: 11, IsPrimary: true}, nil).Once()
	backend.On("UploadProductMedia", mock.Anything, int64(11), int64(101), f.Images[1],
		domain.MediaOptions{UsageType: DefaultUsageType, Platform: DefaultPlatform, DisplayOrder: 1, IsPrimary: false}).
		Return(&domain.MediaAsset{ID: 2, ProductID: 11, DisplayOrder: 1}, nil).Once()

	res, err := NewAssembler(backend).Submit(context.Background(), f)

	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.True(t, res.CatalogueCreated)
	assert.Equal(t, int64(11), res.Product.ID)
	assert.Len(t, res.Media, 2)
	require.NotNil(t, res.Product.PrimaryMedia())
	backend.AssertExpectations(t)
	backend.AssertNotCalled(t, "DeleteProduct", mock.Anything, mock.Anything)
	backend.AssertNotCalled(t, "DeleteCatalogue", mock.Anything, mock.Anything)
}

func TestAssembler_ValidationFailureMakesNoCalls(t *testing.T) {
	backend := new(storetest.MockBackend)
	f := newValidForm(t)
	f.Product.BrandID = 0

	res, err := NewAssembler(backend).Submit(context.Background(), f)

	assert.Nil(t, res)
	fields := validationFields(t, err)
	assert.Contains(t, fields, "product.brand_id")
	backend.AssertExpectations(t)
	assert.Empty(t, backend.Calls)
}

func TestAssembler_ImageFailureRollsBackProductThenCatalogue(t *testing.T) {
	backend := new(storetest.MockBackend)
	f := withImages(newValidForm(t), "front.jpg")
	uploadErr := errors.New("payload too large")

	var order []string
	backend.On("CreateCatalogue", mock.Anything, mock.Anything).Return(&domain.Catalogue{ID: 7}, nil).Once()
	backend.On("CreateProduct", mock.Anything, mock.Anything).Return(createdProduct(), nil).Once()
	backend.On("UploadProductMedia", mock.Anything, int64(11), int64(101), mock.Anything, mock.Anything).
		Return(nil, uploadErr).Once()
	backend.On("DeleteProduct", mock.Anything, int64(11)).
		Run(func(mock.Arguments) { order = append(order, "product") }).Return(nil).Once()
	backend.On("DeleteCatalogue", mock.Anything, int64(7)).
		Run(func(mock.Arguments) { order = append(order, "catalogue") }).Return(nil).Once()

	res, err := NewAssembler(backend).Submit(context.Background(), f)

	assert.Nil(t, res)
	var serr *SubmitError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, StageMedia, serr.Stage)
	assert.ErrorIs(t, err, uploadErr)
	assert.Equal(t, []string{"product 11", "catalogue 7"}, serr.RolledBack)
	assert.Empty(t, serr.RollbackErrs)
	assert.Equal(t, []string{"product", "catalogue"}, order)
	assert.Contains(t, err.Error(), "rolled back product 11, catalogue 7")
	backend.AssertExpectations(t)
}

func TestAssembler_ImageFailureKeepsExistingCatalogue(t *testing.T) {
	backend := new(storetest.MockBackend)
	f := withImages(newValidForm(t), "front.jpg")
	f.Catalogue = CatalogueFields{ID: 7}

	backend.On("GetCatalogue", mock.Anything, int64(7)).Return(&domain.Catalogue{ID: 7, CategoryID: 9}, nil).Once()
	backend.On("CreateProduct", mock.Anything, mock.MatchedBy(func(in domain.ProductCreate) bool {
		return len(in.CategoryIDs) == 1 && in.CategoryIDs[0] == 9
	})).Return(createdProduct(), nil).Once()
	backend.On("UploadProductMedia", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("timeout")).Once()
	backend.On("DeleteProduct", mock.Anything, int64(11)).Return(nil).Once()

	_, err := NewAssembler(backend).Submit(context.Background(), f)

	var serr *SubmitError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, []string{"product 11"}, serr.RolledBack)
	backend.AssertExpectations(t)
	backend.AssertNotCalled(t, "DeleteCatalogue", mock.Anything, mock.Anything)
}

func TestAssembler_ProductFailureDeletesNewCatalogue(t *testing.T) {
	backend := new(storetest.MockBackend)
	f := newValidForm(t)

	backend.On("CreateCatalogue", mock.Anything, mock.Anything).Return(&domain.Catalogue{ID: 7}, nil).Once()
	backend.On("CreateProduct", mock.Anything, mock.Anything).Return(nil, store.ErrSKUExists).Once()
	backend.On("DeleteCatalogue", mock.Anything, int64(7)).Return(nil).Once()

	_, err := NewAssembler(backend).Submit(context.Background(), f)

	var serr *SubmitError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, StageProduct, serr.Stage)
	assert.ErrorIs(t, err, store.ErrSKUExists)
	assert.Equal(t, []string{"catalogue 7"}, serr.RolledBack)
	backend.AssertExpectations(t)
	backend.AssertNotCalled(t, "DeleteProduct", mock.Anything, mock.Anything)
}

func TestAssembler_CatalogueFailureStopsEarly(t *testing.T) {
	backend := new(storetest.MockBackend)
	f := newValidForm(t)

	backend.On("CreateCatalogue", mock.Anything, mock.Anything).Return(nil, store.ErrSlugExists).Once()

	_, err := NewAssembler(backend).Submit(context.Background(), f)

	var serr *SubmitError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, StageCatalogue, serr.Stage)
	assert.Empty(t, serr.RolledBack)
	backend.AssertExpectations(t)
	backend.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
}

func TestAssembler_RollbackErrorsAreReported(t *testing.T) {
	backend := new(storetest.MockBackend)
	f := withImages(newValidForm(t), "front.jpg")

	backend.On("CreateCatalogue", mock.Anything, mock.Anything).Return(&domain.Catalogue{ID: 7}, nil).Once()
	backend.On("CreateProduct", mock.Anything, mock.Anything).Return(createdProduct(), nil).Once()
	backend.On("UploadProductMedia", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("bad gateway")).Once()
	backend.On("DeleteProduct", mock.Anything, int64(11)).Return(errors.New("connection refused")).Once()
	backend.On("DeleteCatalogue", mock.Anything, int64(7)).Return(store.ErrCatalogueInUse).Once()

	_, err := NewAssembler(backend).Submit(context.Background(), f)

	var serr *SubmitError
	require.True(t, errors.As(err, &serr))
	assert.Empty(t, serr.RolledBack)
	require.Len(t, serr.RollbackErrs, 2)
	assert.ErrorIs(t, serr.RollbackErrs[1], store.ErrCatalogueInUse)
	assert.Contains(t, err.Error(), "rollback incomplete")
	backend.AssertExpectations(t)
}

func TestAssembler_RollbackRunsAfterCancellation(t *testing.T) {
	backend := new(storetest.MockBackend)
	f := withImages(newValidForm(t), "front.jpg")
	ctx, cancel := context.WithCancel(context.Background())

	backend.On("CreateCatalogue", mock.Anything, mock.Anything).Return(&domain.Catalogue{ID: 7}, nil).Once()
	backend.On("CreateProduct", mock.Anything, mock.Anything).Return(createdProduct(), nil).Once()
	backend.On("UploadProductMedia", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).Return(nil, context.Canceled).Once()
	backend.On("DeleteProduct", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }), int64(11)).
		Return(nil).Once()
	backend.On("DeleteCatalogue", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }), int64(7)).
		Return(nil).Once()

	_, err := NewAssembler(backend).Submit(ctx, f)

	assert.ErrorIs(t, err, context.Canceled)
	backend.AssertExpectations(t)
}

func TestAssembler_UpdateDoesNotRollBack(t *testing.T) {
	backend := new(storetest.MockBackend)
	f := withImages(newValidForm(t), "extra.jpg")
	f.ProductID = 11

	existing := createdProduct()
	existing.Variants = existing.Variants[:1]
	existing.Media = []domain.MediaAsset{{ID: 1, ProductID: 11, IsPrimary: true}}

	backend.On("GetProduct", mock.Anything, int64(11)).Return(existing, nil).Once()
	backend.On("UpdateProduct", mock.Anything, int64(11), mock.MatchedBy(func(in domain.ProductUpdate) bool {
		return len(in.Variants) == 3 && in.Variants[0].ID == 101 && in.Variants[1].ID == 0
	})).Return(createdProduct(), nil).Once()
	backend.On("UploadProductMedia", mock.Anything, int64(11), int64(101), f.Images[0],
		domain.MediaOptions{UsageType: DefaultUsageType, Platform: DefaultPlatform, DisplayOrder: 1, IsPrimary: false}).
		Return(nil, errors.New("storage down")).Once()

	_, err := NewAssembler(backend).Submit(context.Background(), f)

	var serr *SubmitError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, StageMedia, serr.Stage)
	assert.Empty(t, serr.RolledBack)
	backend.AssertExpectations(t)
	backend.AssertNotCalled(t, "DeleteProduct", mock.Anything, mock.Anything)
	backend.AssertNotCalled(t, "DeleteCatalogue", mock.Anything, mock.Anything)
}

func TestAssembler_UpdateMakesFirstImagePrimaryWhenNone(t *testing.T) {
	backend := new(storetest.MockBackend)
	f := withImages(newValidForm(t), "a.jpg")
	f.ProductID = 11

	existing := createdProduct()
	backend.On("GetProduct", mock.Anything, int64(11)).Return(existing, nil).Once()
	backend.On("UpdateProduct", mock.Anything, int64(11), mock.Anything).Return(createdProduct(), nil).Once()
	backend.On("UploadProductMedia", mock.Anything, int64(11), int64(101), mock.Anything,
		mock.MatchedBy(func(o domain.MediaOptions) bool { return o.IsPrimary && o.DisplayOrder == 0 })).
		Return(&domain.MediaAsset{ID: 3, IsPrimary: true}, nil).Once()

	res, err := NewAssembler(backend).Submit(context.Background(), f)

	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Len(t, res.Media, 1)
	backend.AssertExpectations(t)
}
