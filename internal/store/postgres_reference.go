package store

import (
	"context"
	"fmt"

	"catalog-admin-service/internal/domain"
)

// --- ReferenceStorer Implementation ---

// reference tables share one shape, so one query serves all three.
func (s *PostgresStore) listReference(ctx context.Context, table string, each func(id int64, name, slug string, active bool)) error {
	query := fmt.Sprintf(`SELECT id, name, slug, is_active FROM catalog.%s ORDER BY name ASC;`, table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("store: list %s failed to query: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id         int64
			name, slug string
			active     bool
		)
		if err := rows.Scan(&id, &name, &slug, &active); err != nil {
			return fmt.Errorf("store: list %s failed to scan row: %w", table, err)
		}
		each(id, name, slug, active)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("store: list %s iteration error: %w", table, err)
	}
	return nil
}

func (s *PostgresStore) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	brands := []domain.Brand{}
	err := s.listReference(ctx, "brands", func(id int64, name, slug string, active bool) {
		brands = append(brands, domain.Brand{ID: id, Name: name, Slug: slug, IsActive: active})
	})
	if err != nil {
		return nil, err
	}
	return brands, nil
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories := []domain.Category{}
	err := s.listReference(ctx, "categories", func(id int64, name, slug string, active bool) {
		categories = append(categories, domain.Category{ID: id, Name: name, Slug: slug, IsActive: active})
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *PostgresStore) ListPlatforms(ctx context.Context) ([]domain.Platform, error) {
	platforms := []domain.Platform{}
	err := s.listReference(ctx, "platforms", func(id int64, name, slug string, active bool) {
		platforms = append(platforms, domain.Platform{ID: id, Name: name, Slug: slug, IsActive: active})
	})
	if err != nil {
		return nil, err
	}
	return platforms, nil
}
