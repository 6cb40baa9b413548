package shop

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/elostora/shop/internal/db"
	"github.com/elostora/shop/internal/models"
	"github.com/elostora/shop/internal/pricing"
	"gorm.io/gorm"
)

const suggestionLimit = 5

// ProductView is a product with its current discount quote.
type ProductView struct {
	models.Product
	Pricing pricing.Quote `json:"pricing"`
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	CategoryID    *uint64
	SubcategoryID *uint64
	Query         string
	Limit         int
	Offset        int
}

// ListProducts returns products matching filter, each with its quote.
// Query matches name and description case-insensitively.
func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) ([]ProductView, error) {
	conn := s.db.WithContext(ctx)
	query := conn.Model(&models.Product{}).Preload("Sizes")
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.SubcategoryID != nil {
		query = query.Where("subcategory_id = ?", *filter.SubcategoryID)
	}
	if term := strings.TrimSpace(filter.Query); term != "" {
		pattern := db.ContainsPattern(conn, term)
		query = query.Where(
			conn.Where(db.CaseInsensitiveLikeExpr(conn, "name"), pattern).
				Or(db.CaseInsensitiveLikeExpr(conn, "description"), pattern),
		)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	var products []models.Product
	if errFind := query.Order("id DESC").Find(&products).Error; errFind != nil {
		return nil, fmt.Errorf("shop: list products: %w", errFind)
	}
	return s.quoteAll(ctx, products)
}

// Search is ListProducts by free-text query.
func (s *Service) Search(ctx context.Context, term string, limit int) ([]ProductView, error) {
	if strings.TrimSpace(term) == "" {
		return []ProductView{}, nil
	}
	return s.ListProducts(ctx, ProductFilter{Query: term, Limit: limit})
}

// Suggestions returns up to five product names starting with prefix.
func (s *Service) Suggestions(ctx context.Context, prefix string) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []string{}, nil
	}
	conn := s.db.WithContext(ctx)
	var names []string
	if errFind := conn.Model(&models.Product{}).
		Where(db.CaseInsensitiveLikeExpr(conn, "name"), db.PrefixPattern(conn, prefix)).
		Order("name ASC").Limit(suggestionLimit).
		Pluck("name", &names).Error; errFind != nil {
		return nil, fmt.Errorf("shop: product suggestions: %w", errFind)
	}
	return names, nil
}

// GetProduct loads one product with sizes, category and quote.
func (s *Service) GetProduct(ctx context.Context, productID uint64) (ProductView, error) {
	var product models.Product
	if errFind := s.db.WithContext(ctx).Preload("Sizes").Preload("Category").Preload("Subcategory").
		First(&product, productID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return ProductView{}, ErrProductNotFound
		}
		return ProductView{}, fmt.Errorf("shop: load product: %w", errFind)
	}
	views, errQuote := s.quoteAll(ctx, []models.Product{product})
	if errQuote != nil {
		return ProductView{}, errQuote
	}
	return views[0], nil
}

func (s *Service) quoteAll(ctx context.Context, products []models.Product) ([]ProductView, error) {
	now := s.Now()
	views := make([]ProductView, 0, len(products))
	for _, product := range products {
		quote, errQuote := s.pricing.Quote(ctx, product, now)
		if errQuote != nil {
			return nil, errQuote
		}
		views = append(views, ProductView{Product: product, Pricing: quote})
	}
	return views, nil
}
