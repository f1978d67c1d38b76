package store

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"catalog-admin-service/internal/domain"
)

// ObjectStore persists image bytes and returns where they can be fetched from.
type ObjectStore interface {
	Put(ctx context.Context, productID int64, file domain.MediaFile) (key, url string, err error)
	Remove(ctx context.Context, key string) error
	// KeyFor maps a URL returned by Put back to its key.
	KeyFor(url string) (key string, ok bool)
}

const mediaColumns = `id, product_id, variant_id, url, usage_type, platform, is_primary, display_order`

// UploadProductMedia stores the file in object storage and records it against the
// product. When opts.IsPrimary is set any previous primary asset of the product is
// demoted in the same transaction, so exactly one asset stays primary.
func (s *PostgresStore) UploadProductMedia(ctx context.Context, productID, variantID int64, file domain.MediaFile, opts domain.MediaOptions) (*domain.MediaAsset, error) {
	if s.media == nil {
		return nil, ErrMediaUnavailable
	}

	key, url, err := s.media.Put(ctx, productID, file)
	if err != nil {
		return nil, fmt.Errorf("store: UploadProductMedia failed to store object: %w", err)
	}

	asset, err := s.insertMedia(ctx, productID, variantID, url, opts)
	if err != nil {
		if rmErr := s.media.Remove(ctx, key); rmErr != nil {
			zap.L().Warn("failed to remove orphaned media object", zap.String("key", key), zap.Error(rmErr))
		}
		return nil, err
	}
	return asset, nil
}

func (s *PostgresStore) insertMedia(ctx context.Context, productID, variantID int64, url string, opts domain.MediaOptions) (*domain.MediaAsset, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: insertMedia failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if opts.IsPrimary {
		demote := `UPDATE catalog.media_assets SET is_primary = FALSE WHERE product_id = $1 AND is_primary;`
		if _, err := tx.ExecContext(ctx, demote, productID); err != nil {
			return nil, fmt.Errorf("store: insertMedia failed to demote primary: %w", err)
		}
	}

	var variantArg sql.NullInt64
	if variantID > 0 {
		variantArg = sql.NullInt64{Int64: variantID, Valid: true}
	}
	query := `
		INSERT INTO catalog.media_assets (product_id, variant_id, url, usage_type, platform, is_primary, display_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + mediaColumns + `;`
	asset, err := scanMedia(tx.QueryRowContext(ctx, query,
		productID, variantArg, url, opts.UsageType, opts.Platform, opts.IsPrimary, opts.DisplayOrder))
	if err != nil {
		if mapped := mapConstraintError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("store: insertMedia failed to scan row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: insertMedia failed to commit: %w", err)
	}
	return asset, nil
}

func scanMedia(row rowScanner) (*domain.MediaAsset, error) {
	var m domain.MediaAsset
	var variantID sql.NullInt64
	if err := row.Scan(&m.ID, &m.ProductID, &variantID, &m.URL, &m.UsageType, &m.Platform, &m.IsPrimary, &m.DisplayOrder); err != nil {
		return nil, err
	}
	if variantID.Valid {
		v := variantID.Int64
		m.VariantID = &v
	}
	return &m, nil
}

func (s *PostgresStore) listMedia(ctx context.Context, productID int64) ([]domain.MediaAsset, error) {
	query := `SELECT ` + mediaColumns + ` FROM catalog.media_assets WHERE product_id = $1 ORDER BY display_order ASC, id ASC;`
	rows, err := s.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("store: listMedia failed to query: %w", err)
	}
	defer rows.Close()

	assets := []domain.MediaAsset{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("store: listMedia failed to scan row: %w", err)
		}
		assets = append(assets, *m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: listMedia iteration error: %w", err)
	}
	return assets, nil
}

func (s *PostgresStore) listMediaURLs(ctx context.Context, productID int64) ([]string, error) {
	query := `SELECT url FROM catalog.media_assets WHERE product_id = $1;`
	rows, err := s.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("store: listMediaURLs failed to query: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("store: listMediaURLs failed to scan row: %w", err)
		}
		urls = append(urls, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: listMediaURLs iteration error: %w", err)
	}
	return urls, nil
}

// removeObjects deletes the stored objects behind urls. Failures are logged only.
func (s *PostgresStore) removeObjects(ctx context.Context, productID int64, urls []string) {
	for _, u := range urls {
		key, ok := s.media.KeyFor(u)
		if !ok {
			zap.L().Warn("media url not owned by object store, skipping", zap.Int64("product_id", productID), zap.String("url", u))
			continue
		}
		if err := s.media.Remove(ctx, key); err != nil {
			zap.L().Warn("failed to remove media object", zap.Int64("product_id", productID), zap.String("key", key), zap.Error(err))
		}
	}
}
