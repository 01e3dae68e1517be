package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"

	"furnish-service/internal/models"
	"furnish-service/internal/util"
)

const productColumns = `id, name, category, subcategory, room_type, style, price, currency,
	width_cm, height_cm, depth_cm, dimensions_confidence, proportion_w_h, proportion_w_d,
	visual_description, luxury_score, rating, in_stock, source_domain, product_url,
	image_key, image_usable, color, primary_material`

// DefaultSearchLimit applies when a query carries no limit
const DefaultSearchLimit = 20

// buildSearchQuery renders q with ? placeholders. Slice arguments are expanded by sqlx.In.
func buildSearchQuery(q models.ProductQuery) (string, []interface{}, error) {
	where := []string{"in_stock = TRUE"}
	var args []interface{}

	if len(q.Categories) > 0 {
		cats := make([]string, 0, len(q.Categories))
		for _, c := range q.Categories {
			cats = append(cats, strings.ToLower(c))
		}
		where = append(where, "LOWER(category) IN (?)")
		args = append(args, cats)
	}
	if q.RoomType != "" {
		where = append(where, "LOWER(room_type) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.RoomType)+"%")
	}
	if q.Style != "" {
		where = append(where, "(style IS NULL OR LOWER(style) LIKE ?)")
		args = append(args, "%"+strings.ToLower(q.Style)+"%")
	}
	if q.MinPrice != nil {
		where = append(where, "price >= ?")
		args = append(args, *q.MinPrice)
	}
	if q.MaxPrice != nil {
		where = append(where, "price <= ?")
		args = append(args, *q.MaxPrice)
	}
	if q.MaxWidth != nil {
		where = append(where, "(width_cm IS NULL OR width_cm <= ?)")
		args = append(args, *q.MaxWidth)
	}
	if len(q.PreferredSources) > 0 {
		where = append(where, "source_domain IN (?)")
		args = append(args, q.PreferredSources)
	}
	if q.RequireUsableImage {
		where = append(where, "image_usable = TRUE AND image_key IS NOT NULL AND image_key <> ''")
	}
	if q.RequireProportions {
		where = append(where, "proportion_w_h IS NOT NULL")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	args = append(args, limit)

	query := "SELECT " + productColumns + " FROM products WHERE " + strings.Join(where, " AND ") +
		" ORDER BY rating DESC NULLS LAST, id LIMIT ?"

	return sqlx.In(query, args...)
}

// SearchProducts runs a filtered catalog query ordered by rating, best first
func (s *Store) SearchProducts(ctx context.Context, q models.ProductQuery) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "Store.SearchProducts")
	defer span.End()
	span.SetAttributes(
		attribute.StringSlice("catalog.categories", q.Categories),
		attribute.String("catalog.room_type", q.RoomType),
		attribute.Int("catalog.limit", q.Limit),
	)

	start := time.Now()
	defer func() {
		util.CatalogQueryLatency.Observe(time.Since(start).Seconds())
	}()

	query, args, err := buildSearchQuery(q)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	products := []models.Product{}
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		util.CatalogQueryErrorsTotal.Inc()
		util.RecordError(span, err)
		return nil, fmt.Errorf("catalog search: %w", err)
	}
	span.SetAttributes(attribute.Int("catalog.results", len(products)))
	return products, nil
}

// Search satisfies matcher.Catalog
func (s *Store) Search(ctx context.Context, q models.ProductQuery) ([]models.Product, error) {
	return s.SearchProducts(ctx, q)
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		s.db.Rebind("SELECT "+productColumns+" FROM products WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// UpsertProducts inserts products, leaving rows with an existing id untouched
func (s *Store) UpsertProducts(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES (:id, :name, :category, :subcategory, :room_type, :style, :price, :currency,
			:width_cm, :height_cm, :depth_cm, :dimensions_confidence, :proportion_w_h, :proportion_w_d,
			:visual_description, :luxury_score, :rating, :in_stock, :source_domain, :product_url,
			:image_key, :image_usable, :color, :primary_material)
		ON CONFLICT (id) DO NOTHING`

	for i := range products {
		p := products[i]
		if p.Currency == "" {
			p.Currency = "EUR"
		}
		if p.DimensionsConfidence == "" {
			p.DimensionsConfidence = models.DimensionsAbsent
		}
		if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
			return fmt.Errorf("failed to insert product %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// CountProducts returns the number of catalog rows
func (s *Store) CountProducts(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM products")
	return n, err
}

// LoadProductsFromFile reads a JSON array of products, used to seed local catalogs
func LoadProductsFromFile(path string) ([]models.Product, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read products file: %w", err)
	}

	var products []models.Product
	if err := json.Unmarshal(b, &products); err != nil {
		return nil, fmt.Errorf("unmarshal products: %w", err)
	}
	return products, nil
}
