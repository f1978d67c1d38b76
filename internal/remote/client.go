package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"catalog-admin-service/internal/domain"
	"catalog-admin-service/internal/store"
)

// APIError is a non-2xx answer from the catalogue backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote: backend returned %d: %s", e.StatusCode, e.Message)
}

// Client implements store.Backend against the catalogue backend's REST API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

var _ store.Backend = (*Client)(nil)

// NewClient creates a Client. token is sent as a bearer token when non-empty.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("remote: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("remote: read %s %s response: %w", method, path, err)
	}
	zap.L().Debug("backend call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, payload)}
	}
	return payload, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in interface{}) ([]byte, error) {
	if in == nil {
		return c.do(ctx, method, path, "", nil)
	}
	b, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("remote: encode %s %s body: %w", method, path, err)
	}
	return c.do(ctx, method, path, "application/json", bytes.NewReader(b))
}

// errorMessage pulls the server's message out of an error body.
func errorMessage(status int, body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch {
		case parsed.Message != "":
			return parsed.Message
		case parsed.Error != "":
			return parsed.Error
		case parsed.Detail != "":
			return parsed.Detail
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 512 {
		return text
	}
	return http.StatusText(status)
}

// classify wraps an APIError with the store sentinel callers match on.
func classify(err error, notFound error) error {
	apiErr, ok := err.(*APIError)
	if !ok {
		return err
	}
	switch apiErr.StatusCode {
	case http.StatusNotFound:
		if notFound != nil {
			return fmt.Errorf("%w: %w", notFound, apiErr)
		}
	case http.StatusConflict:
		msg := strings.ToLower(apiErr.Message)
		switch {
		case strings.Contains(msg, "sku"):
			return fmt.Errorf("%w: %w", store.ErrSKUExists, apiErr)
		case strings.Contains(msg, "slug"):
			return fmt.Errorf("%w: %w", store.ErrSlugExists, apiErr)
		}
	}
	return apiErr
}

// --- CatalogueStorer Implementation ---

func (c *Client) CreateCatalogue(ctx context.Context, input domain.CatalogueCreate) (*domain.Catalogue, error) {
	body, err := c.doJSON(ctx, http.MethodPost, "/catalogues", input)
	if err != nil {
		return nil, classify(err, nil)
	}
	return DecodeOne[domain.Catalogue](body)
}

func (c *Client) GetCatalogue(ctx context.Context, id int64) (*domain.Catalogue, error) {
	body, err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/catalogues/%d", id), nil)
	if err != nil {
		return nil, classify(err, store.ErrCatalogueNotFound)
	}
	return DecodeOne[domain.Catalogue](body)
}

func (c *Client) DeleteCatalogue(ctx context.Context, id int64) error {
	_, err := c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/catalogues/%d", id), nil)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusConflict {
			return fmt.Errorf("%w: %w", store.ErrCatalogueInUse, apiErr)
		}
		return classify(err, store.ErrCatalogueNotFound)
	}
	return nil
}

// --- ProductStorer Implementation ---

func (c *Client) CreateProduct(ctx context.Context, input domain.ProductCreate) (*domain.Product, error) {
	body, err := c.doJSON(ctx, http.MethodPost, "/products", input)
	if err != nil {
		return nil, classify(err, nil)
	}
	return DecodeOne[domain.Product](body)
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	body, err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), nil)
	if err != nil {
		return nil, classify(err, store.ErrProductNotFound)
	}
	return DecodeOne[domain.Product](body)
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, input domain.ProductUpdate) (*domain.Product, error) {
	body, err := c.doJSON(ctx, http.MethodPatch, fmt.Sprintf("/products/%d", id), input)
	if err != nil {
		return nil, classify(err, store.ErrProductNotFound)
	}
	return DecodeOne[domain.Product](body)
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	_, err := c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/products/%d", id), nil)
	if err != nil {
		return classify(err, store.ErrProductNotFound)
	}
	return nil
}

func (c *Client) UpdateVariantStock(ctx context.Context, variantID int64, quantity int32) (*domain.Variant, error) {
	in := map[string]int32{"stock_quantity": quantity}
	body, err := c.doJSON(ctx, http.MethodPatch, fmt.Sprintf("/variants/%d", variantID), in)
	if err != nil {
		return nil, classify(err, store.ErrVariantNotFound)
	}
	return DecodeOne[domain.Variant](body)
}

// --- MediaStorer Implementation ---

// UploadProductMedia sends the image as multipart/form-data. variantID 0 uploads a
// product-level asset.
func (c *Client) UploadProductMedia(ctx context.Context, productID, variantID int64, file domain.MediaFile, opts domain.MediaOptions) (*domain.MediaAsset, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Filename))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("remote: create file part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, fmt.Errorf("remote: write file part: %w", err)
	}

	fields := map[string]string{
		"usage_type":    opts.UsageType,
		"platform":      opts.Platform,
		"display_order": strconv.Itoa(opts.DisplayOrder),
		"is_primary":    strconv.FormatBool(opts.IsPrimary),
	}
	if variantID > 0 {
		fields["variant_id"] = strconv.FormatInt(variantID, 10)
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("remote: write field %s: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("remote: close multipart body: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/products/%d/media", productID), w.FormDataContentType(), &buf)
	if err != nil {
		return nil, classify(err, store.ErrProductNotFound)
	}
	return DecodeOne[domain.MediaAsset](body)
}

// --- ReferenceStorer Implementation ---

func (c *Client) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	body, err := c.doJSON(ctx, http.MethodGet, "/brands", nil)
	if err != nil {
		return nil, err
	}
	return DecodeList[domain.Brand](body)
}

func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	body, err := c.doJSON(ctx, http.MethodGet, "/categories", nil)
	if err != nil {
		return nil, err
	}
	return DecodeList[domain.Category](body)
}

func (c *Client) ListPlatforms(ctx context.Context) ([]domain.Platform, error) {
	body, err := c.doJSON(ctx, http.MethodGet, "/platforms", nil)
	if err != nil {
		return nil, err
	}
	return DecodeList[domain.Platform](body)
}
