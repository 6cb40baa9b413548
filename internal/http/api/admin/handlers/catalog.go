package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/elostora/shop/internal/blog"
	"github.com/elostora/shop/internal/http/api"
	"github.com/elostora/shop/internal/models"
	"github.com/elostora/shop/internal/shop"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CatalogHandler manages categories, subcategories, products and sizes.
type CatalogHandler struct {
	svc *api.Services
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(svc *api.Services) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateCategory stores a category with a unique slug.
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var body categoryRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name"})
		return
	}
	ctx := c.Request.Context()
	if h.nameTaken(c, name, 0) {
		c.JSON(http.StatusConflict, gin.H{"error": "category already exists"})
		return
	}
	slug, errSlug := blog.UniqueSlug(ctx, h.svc.DB, &models.Category{}, name, 0)
	if errSlug != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate slug failed"})
		return
	}
	category := models.Category{Name: name, Slug: slug, Description: strings.TrimSpace(body.Description)}
	if errCreate := h.svc.DB.WithContext(ctx).Create(&category).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create category failed"})
		return
	}
	c.JSON(http.StatusCreated, api.FormatCategory(category))
}

// ListCategories returns categories with their subcategories.
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	var categories []models.Category
	if errFind := h.svc.DB.WithContext(c.Request.Context()).
		Preload("Subcategories").Order("name ASC").Find(&categories).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list categories failed"})
		return
	}
	out := make([]gin.H, 0, len(categories))
	for _, category := range categories {
		out = append(out, api.FormatCategory(category))
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}

// UpdateCategory renames a category and regenerates its slug.
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var body categoryRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	ctx := c.Request.Context()
	var category models.Category
	if errFind := h.svc.DB.WithContext(ctx).First(&category, id).Error; errFind != nil {
		respondFind(c, errFind, "category")
		return
	}
	updates := map[string]any{"description": strings.TrimSpace(body.Description)}
	if name := strings.TrimSpace(body.Name); name != "" && name != category.Name {
		if h.nameTaken(c, name, id) {
			c.JSON(http.StatusConflict, gin.H{"error": "category already exists"})
			return
		}
		slug, errSlug := blog.UniqueSlug(ctx, h.svc.DB, &models.Category{}, name, id)
		if errSlug != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "generate slug failed"})
			return
		}
		updates["name"] = name
		updates["slug"] = slug
	}
	if errUpdate := h.svc.DB.WithContext(ctx).Model(&category).Updates(updates).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update category failed"})
		return
	}
	c.JSON(http.StatusOK, api.FormatCategory(category))
}

// DeleteCategory removes a category. Products keep existing without a category.
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	errTx := h.svc.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errDetach := tx.Model(&models.Product{}).Where("category_id = ?", id).
			Updates(map[string]any{"category_id": nil, "subcategory_id": nil}).Error; errDetach != nil {
			return errDetach
		}
		if errLinks := tx.Exec("DELETE FROM event_categories WHERE category_id = ?", id).Error; errLinks != nil {
			return errLinks
		}
		if errSubs := tx.Where("category_id = ?", id).Delete(&models.Subcategory{}).Error; errSubs != nil {
			return errSubs
		}
		res := tx.Delete(&models.Category{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errTx != nil {
		respondFind(c, errTx, "category")
		return
	}
	h.svc.Pricing.Invalidate(ctx)
	c.Status(http.StatusNoContent)
}

// CreateSubcategory adds a subcategory under a category.
func (h *CatalogHandler) CreateSubcategory(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var body categoryRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name"})
		return
	}
	ctx := c.Request.Context()
	var category models.Category
	if errFind := h.svc.DB.WithContext(ctx).First(&category, id).Error; errFind != nil {
		respondFind(c, errFind, "category")
		return
	}
	sub := models.Subcategory{CategoryID: category.ID, Name: name, Slug: blog.Slugify(name)}
	if errCreate := h.svc.DB.WithContext(ctx).Create(&sub).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create subcategory failed"})
		return
	}
	c.JSON(http.StatusCreated, api.FormatSubcategory(sub))
}

// DeleteSubcategory removes a subcategory and detaches its products.
func (h *CatalogHandler) DeleteSubcategory(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	errTx := h.svc.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if errDetach := tx.Model(&models.Product{}).Where("subcategory_id = ?", id).
			Update("subcategory_id", nil).Error; errDetach != nil {
			return errDetach
		}
		res := tx.Delete(&models.Subcategory{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errTx != nil {
		respondFind(c, errTx, "subcategory")
		return
	}
	c.Status(http.StatusNoContent)
}

// productRequest is the writable part of a product.
type productRequest struct {
	Name             string          `json:"name"`
	ShortDescription string          `json:"short_description"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price"`
	Stock            int             `json:"stock"`
	ImageURL         string          `json:"image_url"`
	CategoryID       *uint64         `json:"category_id"`
	SubcategoryID    *uint64         `json:"subcategory_id"`
}

func (h *CatalogHandler) validateProduct(c *gin.Context, body *productRequest) bool {
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name"})
		return false
	}
	if body.Price.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must not be negative"})
		return false
	}
	if body.Stock < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stock must not be negative"})
		return false
	}
	conn := h.svc.DB.WithContext(c.Request.Context())
	if body.CategoryID != nil {
		var count int64
		if errCount := conn.Model(&models.Category{}).Where("id = ?", *body.CategoryID).Count(&count).Error; errCount != nil || count == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category"})
			return false
		}
	}
	if body.SubcategoryID != nil {
		var sub models.Subcategory
		if errFind := conn.First(&sub, *body.SubcategoryID).Error; errFind != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown subcategory"})
			return false
		}
		if body.CategoryID == nil || sub.CategoryID != *body.CategoryID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "subcategory does not belong to category"})
			return false
		}
	}
	return true
}

// CreateProduct stores a product.
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var body productRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !h.validateProduct(c, &body) {
		return
	}
	product := models.Product{
		Name:             body.Name,
		ShortDescription: strings.TrimSpace(body.ShortDescription),
		Description:      strings.TrimSpace(body.Description),
		Price:            body.Price.Round(2),
		Stock:            body.Stock,
		ImageURL:         strings.TrimSpace(body.ImageURL),
		CategoryID:       body.CategoryID,
		SubcategoryID:    body.SubcategoryID,
	}
	if errCreate := h.svc.DB.WithContext(c.Request.Context()).Create(&product).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create product failed"})
		return
	}
	h.respondProduct(c, http.StatusCreated, product.ID)
}

// ListProducts returns products with their current quotes.
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	products, errList := h.svc.Shop.ListProducts(c.Request.Context(), shop.ProductFilter{
		CategoryID:    api.QueryID(c, "category_id"),
		SubcategoryID: api.QueryID(c, "subcategory_id"),
		Query:         c.Query("q"),
		Limit:         api.QueryInt(c, "limit", 0),
		Offset:        api.QueryInt(c, "offset", 0),
	})
	if errList != nil {
		api.RespondError(c, errList, "list products failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": api.FormatProducts(products)})
}

// GetProduct returns one product.
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	h.respondProduct(c, http.StatusOK, id)
}

// UpdateProduct replaces the writable fields of a product.
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var body productRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !h.validateProduct(c, &body) {
		return
	}
	res := h.svc.DB.WithContext(c.Request.Context()).Model(&models.Product{}).Where("id = ?", id).
		Updates(map[string]any{
			"name":              body.Name,
			"short_description": strings.TrimSpace(body.ShortDescription),
			"description":       strings.TrimSpace(body.Description),
			"price":             body.Price.Round(2),
			"stock":             body.Stock,
			"image_url":         strings.TrimSpace(body.ImageURL),
			"category_id":       body.CategoryID,
			"subcategory_id":    body.SubcategoryID,
		})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update product failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	h.respondProduct(c, http.StatusOK, id)
}

// DeleteProduct removes a product, its sizes and any cart lines holding it.
// Order items keep their snapshot and lose the product reference.
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	errTx := h.svc.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if errItems := tx.Where("product_id = ?", id).Delete(&models.CartItem{}).Error; errItems != nil {
			return errItems
		}
		if errOrders := tx.Model(&models.OrderItem{}).Where("product_id = ?", id).
			Update("product_id", nil).Error; errOrders != nil {
			return errOrders
		}
		if errSizes := tx.Where("product_id = ?", id).Delete(&models.ProductSize{}).Error; errSizes != nil {
			return errSizes
		}
		res := tx.Delete(&models.Product{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errTx != nil {
		respondFind(c, errTx, "product")
		return
	}
	c.Status(http.StatusNoContent)
}

type sizeEntry struct {
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

type setSizesRequest struct {
	Sizes []sizeEntry `json:"sizes"`
}

// SetSizes replaces the size rows of a product.
func (h *CatalogHandler) SetSizes(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var body setSizesRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	rows := make([]models.ProductSize, 0, len(body.Sizes))
	seen := make(map[string]struct{}, len(body.Sizes))
	for _, entry := range body.Sizes {
		size := strings.ToUpper(strings.TrimSpace(entry.Size))
		if !models.IsValidSize(size) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid size: " + entry.Size})
			return
		}
		if entry.Quantity < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must not be negative"})
			return
		}
		if _, dup := seen[size]; dup {
			c.JSON(http.StatusBadRequest, gin.H{"error": "duplicate size: " + size})
			return
		}
		seen[size] = struct{}{}
		rows = append(rows, models.ProductSize{ProductID: id, Size: size, Quantity: entry.Quantity})
	}
	errTx := h.svc.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if errFind := tx.First(&product, id).Error; errFind != nil {
			return errFind
		}
		if errDelete := tx.Where("product_id = ?", id).Delete(&models.ProductSize{}).Error; errDelete != nil {
			return errDelete
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if errTx != nil {
		respondFind(c, errTx, "product")
		return
	}
	h.respondProduct(c, http.StatusOK, id)
}

func (h *CatalogHandler) respondProduct(c *gin.Context, status int, id uint64) {
	view, errGet := h.svc.Shop.GetProduct(c.Request.Context(), id)
	if errGet != nil {
		api.RespondError(c, errGet, "load product failed")
		return
	}
	c.JSON(status, api.FormatProduct(view))
}

func (h *CatalogHandler) nameTaken(c *gin.Context, name string, excludeID uint64) bool {
	query := h.svc.DB.WithContext(c.Request.Context()).Model(&models.Category{}).Where("LOWER(name) = ?", strings.ToLower(name))
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if errCount := query.Count(&count).Error; errCount != nil {
		return false
	}
	return count > 0
}

// respondFind maps a lookup error to 404 or 500.
func respondFind(c *gin.Context, err error, entity string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": entity + " not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": entity + " query failed"})
}
