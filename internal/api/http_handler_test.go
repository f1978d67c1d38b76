package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"catalog-admin-service/internal/cart"
	"catalog-admin-service/internal/domain"
	"catalog-admin-service/internal/drafts"
	"catalog-admin-service/internal/kv/kvtest"
	"catalog-admin-service/internal/listing"
	"catalog-admin-service/internal/remote"
	"catalog-admin-service/internal/store"
	"catalog-admin-service/internal/store/storetest"
)

var testSecret = []byte("test-secret")

type testEnv struct {
	server  *httptest.Server
	backend *storetest.MockBackend
	kv      *kvtest.Memory
	carts   *cart.Store
	token   string
}

// Helper for setting up tests with a chi router and handler
func setupTestChiServer(t *testing.T) *testEnv {
	t.Helper()
	backend := new(storetest.MockBackend)
	mem := kvtest.NewMemory()
	carts := cart.NewStore()
	persister := cart.NewRedisPersister(mem, time.Hour)
	unsubscribe := carts.Subscribe(persister.Listener())

	handler := NewHTTPHandler(Dependencies{
		Backend:           backend,
		Drafts:            drafts.NewRedisStore(mem, time.Hour),
		Carts:             carts,
		CartLoader:        persister,
		AdminSecret:       testSecret,
		MaxImageDimension: 200,
	})
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
		unsubscribe()
	})
	return &testEnv{server: server, backend: backend, kv: mem, carts: carts, token: signToken(t, AdminRole, testSecret)}
}

func signToken(t *testing.T, role string, secret []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "admin-1",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func decodeBody[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return out
}

// newDraft creates a draft holding a valid new-catalogue listing with sizes 7 and 8.
func (e *testEnv) newDraft(t *testing.T) string {
	t.Helper()
	res := e.do(t, http.MethodPost, "/api/v1/admin/drafts", nil)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	id := decodeBody[drafts.Draft](t, res).ID

	res = e.do(t, http.MethodPut, "/api/v1/admin/drafts/"+id, map[string]interface{}{
		"catalogue": map[string]interface{}{"name": "Classic Oxford", "category_id": 3, "gender": "men", "is_active": true},
		"product":   map[string]interface{}{"name": "Classic Oxford Brown", "color": "Brown", "brand_id": 2},
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	for _, size := range []string{"7", "8"} {
		res = e.do(t, http.MethodPost, "/api/v1/admin/drafts/"+id+"/sizes/"+size, nil)
		require.Equal(t, http.StatusOK, res.StatusCode)
	}
	res = e.do(t, http.MethodPatch, "/api/v1/admin/drafts/"+id+"/sizes/7", SizeFieldInput{Field: "price", Value: "2999"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	res = e.do(t, http.MethodPatch, "/api/v1/admin/drafts/"+id+"/sizes/7", SizeFieldInput{Field: "inventory", Value: "4"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	return id
}

func TestAdminAuth(t *testing.T) {
	env := setupTestChiServer(t)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"wrong signature", "Bearer " + signToken(t, AdminRole, []byte("other")), http.StatusUnauthorized},
		{"not admin", "Bearer " + signToken(t, "customer", testSecret), http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/v1/admin/sku", bytes.NewBufferString(`{}`))
			require.NoError(t, err)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			res, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer res.Body.Close()
			assert.Equal(t, tc.want, res.StatusCode)
		})
	}
}

func TestHealthz_NoAuthRequired(t *testing.T) {
	env := setupTestChiServer(t)

	res, err := http.Get(env.server.URL + "/api/v1/healthz")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestHealthz_ReportsUnhealthyDependency(t *testing.T) {
	handler := NewHTTPHandler(Dependencies{
		Health: map[string]HealthChecker{
			"redis":   HealthCheckFunc(func(context.Context) error { return nil }),
			"backend": HealthCheckFunc(func(context.Context) error { return errors.New("connection refused") }),
		},
	})
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var body struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, map[string]string{"redis": "healthy", "backend": "unhealthy"}, body.Dependencies)
}

func TestGenerateSKU(t *testing.T) {
	env := setupTestChiServer(t)

	res := env.do(t, http.MethodPost, "/api/v1/admin/sku", SKUInput{Article: "Classic Oxford", Color: "Brown", Size: "9"})

	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeBody[map[string]string](t, res)
	assert.Equal(t, "CLAS-BRO-9", body["sku"])
}

func TestGetReference_PartialFailure(t *testing.T) {
	env := setupTestChiServer(t)
	env.backend.On("ListBrands", mock.Anything).Return([]domain.Brand{{ID: 2, Name: "Oxfords & Co"}}, nil).Once()
	env.backend.On("ListCategories", mock.Anything).Return([]domain.Category{{ID: 3, Name: "Formal"}}, nil).Once()
	env.backend.On("ListPlatforms", mock.Anything).Return(nil, errors.New("timeout")).Once()

	res := env.do(t, http.MethodGet, "/api/v1/admin/reference", nil)

	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeBody[map[string]json.RawMessage](t, res)
	assert.Contains(t, string(body["brands"]), "Oxfords")
	assert.Contains(t, string(body["errors"]), "timeout")
	env.backend.AssertExpectations(t)
}

func TestGetReference_AllSourcesDown(t *testing.T) {
	env := setupTestChiServer(t)
	env.backend.On("ListBrands", mock.Anything).Return(nil, errors.New("down")).Once()
	env.backend.On("ListCategories", mock.Anything).Return(nil, errors.New("down")).Once()
	env.backend.On("ListPlatforms", mock.Anything).Return(nil, errors.New("down")).Once()

	res := env.do(t, http.MethodGet, "/api/v1/admin/reference", nil)

	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
}

func TestDraft_SizeGridFansOutFirstRow(t *testing.T) {
	env := setupTestChiServer(t)
	id := env.newDraft(t)

	res := env.do(t, http.MethodGet, "/api/v1/admin/drafts/"+id, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	d := decodeBody[drafts.Draft](t, res)

	assert.Equal(t, "CLAS-BRO", d.Form.Product.BaseSKU)
	rows := d.Form.Grid().Rows()
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, "2999", row.Price.Decimal.String(), "size %s", row.Size)
		require.NotNil(t, row.Inventory)
		assert.EqualValues(t, 4, *row.Inventory)
	}
	assert.Equal(t, "CLAS-BRO-8", rows[1].SKUID)
}

func TestDraft_SizeFieldErrors(t *testing.T) {
	env := setupTestChiServer(t)
	id := env.newDraft(t)

	res := env.do(t, http.MethodPatch, "/api/v1/admin/drafts/"+id+"/sizes/11", SizeFieldInput{Field: "price", Value: "10"})
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = env.do(t, http.MethodPatch, "/api/v1/admin/drafts/"+id+"/sizes/7", SizeFieldInput{Field: "colour", Value: "10"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = env.do(t, http.MethodPatch, "/api/v1/admin/drafts/"+id+"/sizes/7", SizeFieldInput{Field: "price", Value: "cheap"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestDraft_NotFoundAndInvalidID(t *testing.T) {
	env := setupTestChiServer(t)

	res := env.do(t, http.MethodGet, "/api/v1/admin/drafts/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = env.do(t, http.MethodGet, "/api/v1/admin/drafts/6f1c1d1e-8c1b-4d4e-9a57-0d7d1c2b3a4f", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestDraft_FromExistingProduct(t *testing.T) {
	env := setupTestChiServer(t)
	product := &domain.Product{
		ID: 11, CatalogueID: 5, Name: "Classic Oxford Brown", Color: "Brown", BrandID: 2,
		MRP: decimal.NewFromInt(3999), Price: decimal.NewFromInt(2999), Status: domain.StatusLive,
		Variants: []domain.Variant{{ID: 101, Size: "7", SKU: "CLAS-BRO-7", StockQuantity: 3, IsActive: true}},
	}
	env.backend.On("GetProduct", mock.Anything, int64(11)).Return(product, nil).Once()
	env.backend.On("GetCatalogue", mock.Anything, int64(5)).
		Return(&domain.Catalogue{ID: 5, Name: "Derby Classic", CategoryID: 3, Gender: domain.GenderMen}, nil).Once()

	res := env.do(t, http.MethodPost, "/api/v1/admin/drafts", DraftCreateInput{ProductID: 11})

	require.Equal(t, http.StatusCreated, res.StatusCode)
	d := decodeBody[drafts.Draft](t, res)
	assert.True(t, d.Form.IsUpdate())
	assert.Equal(t, []string{"7"}, d.Form.Grid().Sizes())
	assert.Equal(t, "DERB-BRO", d.Form.Product.BaseSKU)
	env.backend.AssertExpectations(t)
}

func TestDraft_FromExistingProductCatalogueUnavailable(t *testing.T) {
	env := setupTestChiServer(t)
	product := &domain.Product{
		ID: 11, CatalogueID: 5, Name: "Classic Oxford Brown", Color: "Brown", BrandID: 2,
		Variants: []domain.Variant{{ID: 101, Size: "7", SKU: "CLAS-BRO-7", IsActive: true}},
	}
	env.backend.On("GetProduct", mock.Anything, int64(11)).Return(product, nil).Once()
	env.backend.On("GetCatalogue", mock.Anything, int64(5)).Return(nil, errors.New("timeout")).Once()

	res := env.do(t, http.MethodPost, "/api/v1/admin/drafts", DraftCreateInput{ProductID: 11})

	require.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, "CLAS-BRO", decodeBody[drafts.Draft](t, res).Form.Product.BaseSKU)
}

func pngUpload(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestDraft_AddImageOptimizes(t *testing.T) {
	env := setupTestChiServer(t)
	id := env.newDraft(t)

	var png bytes.Buffer
	require.NoError(t, imaging.Encode(&png, imaging.New(800, 400, color.NRGBA{R: 200, A: 255}), imaging.PNG))

	upload := func(name string, data []byte) *http.Response {
		body, contentType := pngUpload(t, name, data)
		req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/v1/admin/drafts/"+id+"/images", body)
		require.NoError(t, err)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+env.token)
		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { res.Body.Close() })
		return res
	}

	res := upload("front.png", png.Bytes())
	require.Equal(t, http.StatusCreated, res.StatusCode)
	d := decodeBody[drafts.Draft](t, res)
	require.Len(t, d.Form.Images, 1)
	assert.Equal(t, "front.jpg", d.Form.Images[0].Filename)
	assert.Equal(t, "image/jpeg", d.Form.Images[0].ContentType)

	res = upload("notes.txt", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = env.do(t, http.MethodDelete, "/api/v1/admin/drafts/"+id+"/images/0", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, decodeBody[drafts.Draft](t, res).Form.Images)
}

func TestSubmitDraft_CreatesListingAndDeletesDraft(t *testing.T) {
	env := setupTestChiServer(t)
	id := env.newDraft(t)

	catalogue := &domain.Catalogue{ID: 5, Name: "Classic Oxford", CategoryID: 3, Gender: domain.GenderMen}
	product := &domain.Product{
		ID: 11, CatalogueID: 5, Name: "Classic Oxford Brown",
		Variants: []domain.Variant{{ID: 101, Size: "7"}, {ID: 102, Size: "8"}},
	}
	env.backend.On("CreateCatalogue", mock.Anything, mock.MatchedBy(func(in domain.CatalogueCreate) bool {
		return in.Name == "Classic Oxford" && in.CategoryID == 3
	})).Return(catalogue, nil).Once()
	env.backend.On("CreateProduct", mock.Anything, mock.MatchedBy(func(in domain.ProductCreate) bool {
		return in.CatalogueID == 5 && len(in.Variants) == 2 && in.Price.Equal(decimal.NewFromInt(2999))
	})).Return(product, nil).Once()

	res := env.do(t, http.MethodPost, "/api/v1/admin/drafts/"+id+"/submit", nil)

	require.Equal(t, http.StatusCreated, res.StatusCode)
	result := decodeBody[listing.Result](t, res)
	assert.True(t, result.Created)
	assert.True(t, result.CatalogueCreated)
	assert.Equal(t, int64(11), result.Product.ID)
	env.backend.AssertExpectations(t)

	res = env.do(t, http.MethodGet, "/api/v1/admin/drafts/"+id, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestSubmitDraft_ValidationFailure(t *testing.T) {
	env := setupTestChiServer(t)
	res := env.do(t, http.MethodPost, "/api/v1/admin/drafts", nil)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	id := decodeBody[drafts.Draft](t, res).ID

	res = env.do(t, http.MethodPost, "/api/v1/admin/drafts/"+id+"/submit", nil)

	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	errResp := decodeBody[ErrorResponse](t, res)
	assert.Contains(t, errResp.Fields, "product.name")
	assert.Contains(t, errResp.Fields, "sizes")
	env.backend.AssertNotCalled(t, "CreateCatalogue", mock.Anything, mock.Anything)
}

func TestSubmitDraft_ProductFailureRollsBackCatalogue(t *testing.T) {
	env := setupTestChiServer(t)
	id := env.newDraft(t)

	env.backend.On("CreateCatalogue", mock.Anything, mock.Anything).
		Return(&domain.Catalogue{ID: 5, CategoryID: 3}, nil).Once()
	env.backend.On("CreateProduct", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: %w", store.ErrSKUExists, &remote.APIError{StatusCode: 409, Message: "sku exists"})).Once()
	env.backend.On("DeleteCatalogue", mock.Anything, int64(5)).Return(nil).Once()

	res := env.do(t, http.MethodPost, "/api/v1/admin/drafts/"+id+"/submit", nil)

	require.Equal(t, http.StatusConflict, res.StatusCode)
	body := decodeBody[SubmitErrorResponse](t, res)
	assert.Equal(t, string(listing.StageProduct), body.Stage)
	assert.Equal(t, []string{"catalogue 5"}, body.RolledBack)
	env.backend.AssertExpectations(t)

	res = env.do(t, http.MethodGet, "/api/v1/admin/drafts/"+id, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode, "failed submissions keep the draft")
}

func TestUpdateProduct(t *testing.T) {
	env := setupTestChiServer(t)

	res := env.do(t, http.MethodPatch, "/api/v1/admin/products/11", map[string]string{"price": "5000", "mrp": "3999"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = env.do(t, http.MethodPatch, "/api/v1/admin/products/11", map[string]string{"status": "sold"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	env.backend.On("UpdateProduct", mock.Anything, int64(11), mock.MatchedBy(func(in domain.ProductUpdate) bool {
		return in.Name != nil && *in.Name == "Oxford Tan" && in.Price == nil
	})).Return(&domain.Product{ID: 11, Name: "Oxford Tan"}, nil).Once()

	res = env.do(t, http.MethodPatch, "/api/v1/admin/products/11", domain.ProductUpdate{Name: PtrTo("Oxford Tan")})

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "Oxford Tan", decodeBody[domain.Product](t, res).Name)
	env.backend.AssertExpectations(t)
}

func TestBackendErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		want    int
		message string
	}{
		{"not found", store.ErrProductNotFound, http.StatusNotFound, store.ErrProductNotFound.Error()},
		{"server error", &remote.APIError{StatusCode: 500, Message: "database exploded"}, http.StatusBadGateway, "database exploded"},
		{"internal", errors.New("sql: connection refused"), http.StatusInternalServerError, "Failed to retrieve product"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := setupTestChiServer(t)
			env.backend.On("GetProduct", mock.Anything, int64(11)).Return(nil, tc.err).Once()

			res := env.do(t, http.MethodGet, "/api/v1/admin/products/11", nil)

			assert.Equal(t, tc.want, res.StatusCode)
			assert.Equal(t, tc.message, decodeBody[ErrorResponse](t, res).Error)
		})
	}
}

func TestDeleteCatalogue_InUse(t *testing.T) {
	env := setupTestChiServer(t)
	env.backend.On("DeleteCatalogue", mock.Anything, int64(5)).Return(store.ErrCatalogueInUse).Once()

	res := env.do(t, http.MethodDelete, "/api/v1/admin/catalogues/5", nil)

	assert.Equal(t, http.StatusConflict, res.StatusCode)
}

func TestDeleteProduct(t *testing.T) {
	env := setupTestChiServer(t)
	env.backend.On("DeleteProduct", mock.Anything, int64(11)).Return(nil).Once()

	res := env.do(t, http.MethodDelete, "/api/v1/admin/products/11", nil)

	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	env.backend.AssertExpectations(t)
}

func TestUpdateVariantStock(t *testing.T) {
	env := setupTestChiServer(t)

	res := env.do(t, http.MethodPut, "/api/v1/admin/variants/101/stock", map[string]int{"stock_quantity": -1})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	env.backend.On("UpdateVariantStock", mock.Anything, int64(101), int32(0)).
		Return(&domain.Variant{ID: 101, StockQuantity: 0}, nil).Once()
	res = env.do(t, http.MethodPut, "/api/v1/admin/variants/101/stock", map[string]int{"stock_quantity": 0})
	assert.Equal(t, http.StatusOK, res.StatusCode)
	env.backend.AssertExpectations(t)
}

func oxfordForCart() *domain.Product {
	return &domain.Product{
		ID: 11, Price: decimal.NewFromInt(2999),
		Variants: []domain.Variant{
			{ID: 101, Size: "7", SKU: "CLAS-BRO-7", IsActive: true},
			{ID: 102, Size: "8", SKU: "CLAS-BRO-8", IsActive: true, PriceOverride: decimal.NewNullDecimal(decimal.NewFromInt(2499))},
			{ID: 103, Size: "9", SKU: "CLAS-BRO-9", IsActive: false},
		},
	}
}

func TestCart_AddUsesBackendPrice(t *testing.T) {
	env := setupTestChiServer(t)
	env.backend.On("GetProduct", mock.Anything, int64(11)).Return(oxfordForCart(), nil)

	res := env.do(t, http.MethodPost, "/api/v1/carts/u1/items", CartItemInput{ProductID: 11, VariantID: 101, Quantity: 2})
	require.Equal(t, http.StatusOK, res.StatusCode)
	res = env.do(t, http.MethodPost, "/api/v1/carts/u1/items", CartItemInput{ProductID: 11, VariantID: 102, Quantity: 1})
	require.Equal(t, http.StatusOK, res.StatusCode)

	c := decodeBody[CartResponse](t, res)
	require.Len(t, c.Items, 2)
	assert.True(t, c.Total.Equal(decimal.NewFromInt(2*2999+2499)), c.Total.String())

	res = env.do(t, http.MethodPost, "/api/v1/carts/u1/items", CartItemInput{ProductID: 11, VariantID: 103, Quantity: 1})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	res = env.do(t, http.MethodPost, "/api/v1/carts/u1/items", CartItemInput{ProductID: 11, VariantID: 999, Quantity: 1})
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	_, persisted := env.kv.Value("cart:owner:u1")
	assert.True(t, persisted)
}

func TestCart_UpdateAndRemove(t *testing.T) {
	env := setupTestChiServer(t)
	_, err := env.carts.AddItem("u1", cart.Item{VariantID: 101, ProductID: 11, Quantity: 1, UnitPrice: decimal.NewFromInt(100)})
	require.NoError(t, err)

	res := env.do(t, http.MethodPatch, "/api/v1/carts/u1/items/101", map[string]int{"quantity": 3})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, decodeBody[CartResponse](t, res).Total.Equal(decimal.NewFromInt(300)))

	res = env.do(t, http.MethodPatch, "/api/v1/carts/u1/items/101", map[string]int{"quantity": 0})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, decodeBody[CartResponse](t, res).Items)

	res = env.do(t, http.MethodDelete, "/api/v1/carts/u1/items/101", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestCart_LoadsPersistedCart(t *testing.T) {
	env := setupTestChiServer(t)
	persister := cart.NewRedisPersister(env.kv, time.Hour)
	require.NoError(t, persister.Save(context.Background(), cart.Cart{
		OwnerID: "u2",
		Items:   []cart.Item{{VariantID: 101, ProductID: 11, Quantity: 2, UnitPrice: decimal.NewFromInt(50)}},
	}))

	res := env.do(t, http.MethodGet, "/api/v1/carts/u2", nil)

	require.Equal(t, http.StatusOK, res.StatusCode)
	c := decodeBody[CartResponse](t, res)
	assert.Len(t, c.Items, 1)
	assert.True(t, c.Total.Equal(decimal.NewFromInt(100)))
}

func TestWishlistToggle(t *testing.T) {
	env := setupTestChiServer(t)

	res := env.do(t, http.MethodPost, "/api/v1/wishlists/u1/11", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeBody[map[string]json.RawMessage](t, res)
	assert.Equal(t, "true", string(body["wishlisted"]))

	res = env.do(t, http.MethodPost, "/api/v1/wishlists/u1/11", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	body = decodeBody[map[string]json.RawMessage](t, res)
	assert.Equal(t, "false", string(body["wishlisted"]))
}

// PtrTo returns a pointer to v.
func PtrTo[T any](v T) *T {
	return &v
}
