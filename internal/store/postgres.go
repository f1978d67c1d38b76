package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"catalog-admin-service/internal/domain"
)

// Predefined errors for store operations
var (
	ErrCatalogueNotFound = errors.New("store: catalogue not found")
	ErrCatalogueInUse    = errors.New("store: catalogue still has products")
	ErrProductNotFound   = errors.New("store: product not found")
	ErrVariantNotFound   = errors.New("store: variant not found")
	ErrSKUExists         = errors.New("store: variant SKU already exists for product")
	ErrSlugExists        = errors.New("store: slug already exists")
	ErrInvalidReference  = errors.New("store: referenced catalogue, brand or category does not exist")
	ErrMediaUnavailable  = errors.New("store: media storage not configured")
)

// Postgres error codes the store maps to sentinels.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// PostgresStore implements Backend on top of PostgreSQL.
type PostgresStore struct {
	db    *sql.DB
	media ObjectStore
}

// NewPostgresStore creates a new PostgresStore. media may be nil, in which case
// UploadProductMedia fails with ErrMediaUnavailable.
func NewPostgresStore(db *sql.DB, media ObjectStore) *PostgresStore {
	return &PostgresStore{db: db, media: media}
}

// Ping checks the connection pool.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// mapConstraintError translates constraint violations into store sentinels, or returns nil.
func mapConstraintError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		if strings.Contains(pqErr.Constraint, "sku") || strings.Contains(pqErr.Detail, "(sku)") {
			return ErrSKUExists
		}
		if strings.Contains(pqErr.Constraint, "slug") || strings.Contains(pqErr.Detail, "(slug)") {
			return ErrSlugExists
		}
	case pqForeignKeyViolation:
		return ErrInvalidReference
	}
	return nil
}

// --- CatalogueStorer Implementation ---

func (s *PostgresStore) CreateCatalogue(ctx context.Context, input domain.CatalogueCreate) (*domain.Catalogue, error) {
	query := `
		INSERT INTO catalog.catalogues (name, slug, description, category_id, gender, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, name, slug, description, category_id, gender, is_active, created_at, updated_at;
	`
	slug := input.Slug
	if slug == "" {
		slug = domain.Slugify(input.Name)
	}
	row := s.db.QueryRowContext(ctx, query,
		input.Name, slug, input.Description, input.CategoryID, string(input.Gender), input.IsActive)

	var c domain.Catalogue
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CategoryID, &c.Gender, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if mapped := mapConstraintError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("store: CreateCatalogue failed to scan row: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) GetCatalogue(ctx context.Context, id int64) (*domain.Catalogue, error) {
	query := `
		SELECT id, name, slug, description, category_id, gender, is_active, created_at, updated_at
		FROM catalog.catalogues
		WHERE id = $1;
	`
	var c domain.Catalogue
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Slug, &c.Description, &c.CategoryID, &c.Gender, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCatalogueNotFound
		}
		return nil, fmt.Errorf("store: GetCatalogue failed to scan row: %w", err)
	}
	return &c, nil
}

// DeleteCatalogue removes a catalogue. Catalogues still referenced by products
// are refused by the products.catalogue_id foreign key.
func (s *PostgresStore) DeleteCatalogue(ctx context.Context, id int64) error {
	query := `DELETE FROM catalog.catalogues WHERE id = $1;`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
			return ErrCatalogueInUse
		}
		return fmt.Errorf("store: DeleteCatalogue failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteCatalogue failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCatalogueNotFound
	}
	return nil
}

// --- ProductStorer Implementation ---

const productColumns = `id, catalogue_id, name, slug, color, color_hex, brand_id, category_ids, mrp, price,
		status, tags, short_description, long_description, specifications, footwear_details, created_at, updated_at`

const variantColumns = `id, product_id, size, sku, stock_quantity, price_override, mrp_override, is_active`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var specs, footwear sql.NullString
	err := row.Scan(
		&p.ID, &p.CatalogueID, &p.Name, &p.Slug, &p.Color, &p.ColorHex, &p.BrandID, pq.Array(&p.CategoryIDs),
		&p.MRP, &p.Price, &p.Status, pq.Array(&p.Tags), &p.ShortDescription, &p.LongDescription,
		&specs, &footwear, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Specifications = rawJSON(specs)
	p.FootwearDetails = rawJSON(footwear)
	return &p, nil
}

func scanVariant(row rowScanner) (*domain.Variant, error) {
	var v domain.Variant
	err := row.Scan(&v.ID, &v.ProductID, &v.Size, &v.SKU, &v.StockQuantity, &v.PriceOverride, &v.MRPOverride, &v.IsActive)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func rawJSON(s sql.NullString) *json.RawMessage {
	if !s.Valid || s.String == "" || s.String == "null" {
		return nil
	}
	raw := json.RawMessage(s.String)
	return &raw
}

// jsonArg passes free-form JSON as a JSONB argument, SQL NULL when absent.
func jsonArg(raw *json.RawMessage) interface{} {
	if raw == nil || len(*raw) == 0 {
		return nil
	}
	return []byte(*raw)
}

// CreateProduct inserts the product and its variants in one transaction.
func (s *PostgresStore) CreateProduct(ctx context.Context, input domain.ProductCreate) (*domain.Product, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: CreateProduct failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	query := `
		INSERT INTO catalog.products
			(catalogue_id, name, slug, color, color_hex, brand_id, category_ids, mrp, price,
			 status, tags, short_description, long_description, specifications, footwear_details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING ` + productColumns + `;`

	status := input.Status
	if status == "" {
		status = domain.StatusDraft
	}
	created, err := scanProduct(tx.QueryRowContext(ctx, query,
		input.CatalogueID, input.Name, input.Slug, input.Color, input.ColorHex, input.BrandID,
		pq.Array(input.CategoryIDs), input.MRP, input.Price, string(status), pq.Array(input.Tags),
		input.ShortDescription, input.LongDescription, jsonArg(input.Specifications), jsonArg(input.FootwearDetails),
	))
	if err != nil {
		if mapped := mapConstraintError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("store: CreateProduct failed to scan product row: %w", err)
	}

	created.Variants = make([]domain.Variant, 0, len(input.Variants))
	for _, vin := range input.Variants {
		v, err := insertVariant(ctx, tx, created.ID, vin)
		if err != nil {
			return nil, err
		}
		created.Variants = append(created.Variants, *v)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: CreateProduct failed to commit: %w", err)
	}
	zap.L().Debug("product created", zap.Int64("product_id", created.ID), zap.Int("variants", len(created.Variants)))
	return created, nil
}

func insertVariant(ctx context.Context, tx *sql.Tx, productID int64, vin domain.VariantCreate) (*domain.Variant, error) {
	query := `
		INSERT INTO catalog.variants (product_id, size, sku, stock_quantity, price_override, mrp_override, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + variantColumns + `;`
	v, err := scanVariant(tx.QueryRowContext(ctx, query,
		productID, vin.Size, vin.SKU, vin.StockQuantity, vin.PriceOverride, vin.MRPOverride, vin.IsActive))
	if err != nil {
		if mapped := mapConstraintError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("store: insert variant %q failed: %w", vin.SKU, err)
	}
	return v, nil
}

func (s *PostgresStore) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM catalog.products WHERE id = $1;`
	p, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: GetProduct failed to scan row: %w", err)
	}

	if p.Variants, err = s.listVariants(ctx, id); err != nil {
		return nil, err
	}
	if p.Media, err = s.listMedia(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) listVariants(ctx context.Context, productID int64) ([]domain.Variant, error) {
	query := `SELECT ` + variantColumns + ` FROM catalog.variants WHERE product_id = $1 ORDER BY id ASC;`
	rows, err := s.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("store: listVariants failed to query: %w", err)
	}
	defer rows.Close()

	variants := []domain.Variant{}
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("store: listVariants failed to scan row: %w", err)
		}
		variants = append(variants, *v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: listVariants iteration error: %w", err)
	}
	return variants, nil
}

// UpdateProduct applies the non-nil fields of input. Variants with an ID are
// updated in place; variants without one are inserted.
func (s *PostgresStore) UpdateProduct(ctx context.Context, id int64, input domain.ProductUpdate) (*domain.Product, error) {
	var setClauses []string
	var args []interface{}
	argID := 1
	set := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argID))
		args = append(args, value)
		argID++
	}

	if input.Name != nil {
		set("name", *input.Name)
	}
	if input.Slug != nil {
		set("slug", *input.Slug)
	}
	if input.BrandID != nil {
		set("brand_id", *input.BrandID)
	}
	if input.CategoryIDs != nil {
		set("category_ids", pq.Array(input.CategoryIDs))
	}
	if input.Color != nil {
		set("color", *input.Color)
	}
	if input.ColorHex != nil {
		set("color_hex", *input.ColorHex)
	}
	if input.MRP != nil {
		set("mrp", *input.MRP)
	}
	if input.Price != nil {
		set("price", *input.Price)
	}
	if input.Tags != nil {
		set("tags", pq.Array(input.Tags))
	}
	if input.Status != nil {
		set("status", string(*input.Status))
	}
	if input.ShortDescription != nil {
		set("short_description", *input.ShortDescription)
	}
	if input.LongDescription != nil {
		set("long_description", *input.LongDescription)
	}
	if input.Specifications != nil {
		set("specifications", jsonArg(input.Specifications))
	}
	if input.FootwearDetails != nil {
		set("footwear_details", jsonArg(input.FootwearDetails))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: UpdateProduct failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	// Always touch updated_at so a variants-only update still proves the product exists.
	query := fmt.Sprintf("UPDATE catalog.products SET %s WHERE id = $%d RETURNING id;",
		strings.Join(append(setClauses, "updated_at = CURRENT_TIMESTAMP"), ", "), argID)
	args = append(args, id)

	var updatedID int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&updatedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		if mapped := mapConstraintError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("store: UpdateProduct failed to update product: %w", err)
	}

	for _, vin := range input.Variants {
		if vin.ID == 0 {
			if _, err := insertVariant(ctx, tx, id, vin); err != nil {
				return nil, err
			}
			continue
		}
		if err := updateVariant(ctx, tx, id, vin); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: UpdateProduct failed to commit: %w", err)
	}
	return s.GetProduct(ctx, id)
}

func updateVariant(ctx context.Context, tx *sql.Tx, productID int64, vin domain.VariantCreate) error {
	query := `
		UPDATE catalog.variants
		SET size = $1, sku = $2, stock_quantity = $3, price_override = $4, mrp_override = $5, is_active = $6
		WHERE id = $7 AND product_id = $8;
	`
	result, err := tx.ExecContext(ctx, query,
		vin.Size, vin.SKU, vin.StockQuantity, vin.PriceOverride, vin.MRPOverride, vin.IsActive, vin.ID, productID)
	if err != nil {
		if mapped := mapConstraintError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("store: update variant %d failed: %w", vin.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update variant %d failed to get rows affected: %w", vin.ID, err)
	}
	if rowsAffected == 0 {
		return ErrVariantNotFound
	}
	return nil
}

// DeleteProduct removes a product; variants and media rows cascade. Objects behind
// the media rows are then removed from object storage on a best-effort basis.
func (s *PostgresStore) DeleteProduct(ctx context.Context, id int64) error {
	var mediaURLs []string
	if s.media != nil {
		urls, err := s.listMediaURLs(ctx, id)
		if err != nil {
			zap.L().Warn("failed to list media before product delete", zap.Int64("product_id", id), zap.Error(err))
		}
		mediaURLs = urls
	}

	query := `DELETE FROM catalog.products WHERE id = $1;`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: DeleteProduct failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteProduct failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}
	s.removeObjects(ctx, id, mediaURLs)
	return nil
}

func (s *PostgresStore) UpdateVariantStock(ctx context.Context, variantID int64, quantity int32) (*domain.Variant, error) {
	query := `
		UPDATE catalog.variants
		SET stock_quantity = $1
		WHERE id = $2
		RETURNING ` + variantColumns + `;`
	v, err := scanVariant(s.db.QueryRowContext(ctx, query, quantity, variantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVariantNotFound
		}
		return nil, fmt.Errorf("store: UpdateVariantStock failed to scan row: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		zap.L().Info("Closing database connection pool...")
		if err := s.db.Close(); err != nil {
			zap.L().Error("Failed to close database connection pool", zap.Error(err))
			return err
		}
		zap.L().Info("Database connection pool closed")
	}
	return nil
}
