package service

import (
	"context"
	"fmt"
	"strings"

	"furnish-service/internal/matcher"
	"furnish-service/internal/models"
	"furnish-service/internal/util"
)

// Catalog browsing limits
const (
	DefaultSearchLimit       = 20
	MaxSearchLimit           = 100
	DefaultAlternativesLimit = 5
	MaxAlternativesLimit     = 20
)

// SearchRequest is the catalog browse filter set
type SearchRequest struct {
	Category string   `form:"category"`
	RoomType string   `form:"room_type"`
	Style    string   `form:"style"`
	MinPrice *float64 `form:"min_price"`
	MaxPrice *float64 `form:"max_price"`
	Source   string   `form:"source"`
	Limit    int      `form:"limit"`
}

// Alternative is a swap candidate for a slot
type Alternative struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Price      float64  `json:"price"`
	Currency   string   `json:"currency"`
	ImageURL   string   `json:"image_url"`
	ProductURL string   `json:"product_url"`
	Source     string   `json:"source"`
	WidthCM    *float64 `json:"width_cm,omitempty"`
	Rating     *float64 `json:"rating,omitempty"`
}

// SearchProducts browses the catalog
func (s *DesignService) SearchProducts(ctx context.Context, req *SearchRequest) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "DesignService.SearchProducts")
	defer span.End()

	if req.MinPrice != nil && *req.MinPrice < 0 {
		return nil, fmt.Errorf("%w: min_price must not be negative", ErrInvalidRequest)
	}
	if req.MinPrice != nil && req.MaxPrice != nil && *req.MinPrice > *req.MaxPrice {
		return nil, fmt.Errorf("%w: min_price exceeds max_price", ErrInvalidRequest)
	}

	q := models.ProductQuery{
		RoomType: matcher.NormalizeRoomType(req.RoomType),
		Style:    strings.TrimSpace(req.Style),
		MinPrice: req.MinPrice,
		MaxPrice: req.MaxPrice,
		Limit:    clampLimit(req.Limit, DefaultSearchLimit, MaxSearchLimit),
	}
	if c := strings.TrimSpace(req.Category); c != "" {
		q.Categories = []string{c}
	}
	if src := strings.TrimSpace(req.Source); src != "" {
		q.PreferredSources = []string{src}
	}

	products, err := s.catalog.SearchProducts(ctx, q)
	if err != nil {
		util.RecordError(span, err)
		return nil, &matcher.CatalogError{Slot: "search", Err: err}
	}
	return products, nil
}

// GetProduct retrieves one product
func (s *DesignService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "DesignService.GetProduct")
	defer span.End()

	return s.catalog.GetProductByID(ctx, id)
}

// Alternatives lists in-stock products with a usable image that could fill slot instead of the matched one
func (s *DesignService) Alternatives(ctx context.Context, slot, roomType string, limit int) ([]Alternative, error) {
	ctx, span := util.StartSpan(ctx, "DesignService.Alternatives")
	defer span.End()

	slot = strings.TrimSpace(slot)
	if slot == "" {
		return nil, fmt.Errorf("%w: slot is required", ErrInvalidRequest)
	}
	req, ok := s.matcher.Tables().FindSlot(matcher.NormalizeRoomType(roomType), slot)
	if !ok {
		return nil, fmt.Errorf("%w: unknown slot %q", ErrInvalidRequest, slot)
	}

	products, err := s.catalog.SearchProducts(ctx, models.ProductQuery{
		Categories:         req.Categories,
		RequireUsableImage: true,
		Limit:              clampLimit(limit, DefaultAlternativesLimit, MaxAlternativesLimit),
	})
	if err != nil {
		util.RecordError(span, err)
		return nil, &matcher.CatalogError{Slot: slot, Err: err}
	}

	out := make([]Alternative, 0, len(products))
	for i := range products {
		p := &products[i]
		alt := Alternative{
			ID:         p.ID,
			Name:       p.Name,
			Price:      p.Price,
			Currency:   p.Currency,
			ProductURL: p.ProductURL,
			Source:     p.SourceDomain,
			WidthCM:    p.WidthCM,
			Rating:     p.Rating,
		}
		if p.HasImage() {
			alt.ImageURL = s.settings.ImageURL(*p.ImageKey)
		}
		out = append(out, alt)
	}
	return out, nil
}

func clampLimit(limit, def, ceiling int) int {
	if limit <= 0 {
		return def
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}
