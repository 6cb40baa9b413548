package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/elostora/shop/internal/http/api"
	"github.com/elostora/shop/internal/models"
	"github.com/elostora/shop/internal/shop"
	"github.com/gin-gonic/gin"
)

// CatalogFrontHandler serves the public catalog and events.
type CatalogFrontHandler struct {
	svc *api.Services
	now func() time.Time
}

// NewCatalogFrontHandler constructs a CatalogFrontHandler.
func NewCatalogFrontHandler(svc *api.Services) *CatalogFrontHandler {
	return &CatalogFrontHandler{svc: svc, now: time.Now}
}

// Categories returns categories with their subcategories.
func (h *CatalogFrontHandler) Categories(c *gin.Context) {
	var categories []models.Category
	if errFind := h.svc.DB.WithContext(c.Request.Context()).
		Preload("Subcategories").
		Order("name ASC").
		Find(&categories).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list categories failed"})
		return
	}
	out := make([]gin.H, 0, len(categories))
	for _, category := range categories {
		out = append(out, api.FormatCategory(category))
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}

// Products lists products with their current discount.
func (h *CatalogFrontHandler) Products(c *gin.Context) {
	views, errList := h.svc.Shop.ListProducts(c.Request.Context(), shop.ProductFilter{
		CategoryID:    api.QueryID(c, "category_id"),
		SubcategoryID: api.QueryID(c, "subcategory_id"),
		Query:         strings.TrimSpace(c.Query("q")),
		Limit:         api.QueryInt(c, "limit", 24),
		Offset:        api.QueryInt(c, "offset", 0),
	})
	if errList != nil {
		api.RespondError(c, errList, "list products failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": api.FormatProducts(views)})
}

// Product returns one product.
func (h *CatalogFrontHandler) Product(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	view, errGet := h.svc.Shop.GetProduct(c.Request.Context(), id)
	if errGet != nil {
		api.RespondError(c, errGet, "load product failed")
		return
	}
	c.JSON(http.StatusOK, api.FormatProduct(view))
}

// Search matches products by name or description.
func (h *CatalogFrontHandler) Search(c *gin.Context) {
	term := strings.TrimSpace(c.Query("q"))
	if term == "" {
		c.JSON(http.StatusOK, gin.H{"query": term, "products": []gin.H{}})
		return
	}
	views, errSearch := h.svc.Shop.Search(c.Request.Context(), term, api.QueryInt(c, "limit", 24))
	if errSearch != nil {
		api.RespondError(c, errSearch, "search failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": term, "products": api.FormatProducts(views)})
}

// Suggestions returns product names starting with q.
func (h *CatalogFrontHandler) Suggestions(c *gin.Context) {
	names, errSuggest := h.svc.Shop.Suggestions(c.Request.Context(), c.Query("q"))
	if errSuggest != nil {
		api.RespondError(c, errSuggest, "suggestions failed")
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": names})
}

// Events lists active events with their schedule state.
func (h *CatalogFrontHandler) Events(c *gin.Context) {
	list, errList := h.svc.Events.List(c.Request.Context(), true)
	if errList != nil {
		api.RespondError(c, errList, "list events failed")
		return
	}
	now := h.now().UTC()
	out := make([]gin.H, 0, len(list))
	for _, event := range list {
		out = append(out, api.FormatEvent(event, now))
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}

// Event returns an active event by id or uid.
func (h *CatalogFrontHandler) Event(c *gin.Context) {
	event, errGet := h.svc.Events.Get(c.Request.Context(), c.Param("id"))
	if errGet != nil {
		api.RespondError(c, errGet, "load event failed")
		return
	}
	if !event.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	c.JSON(http.StatusOK, api.FormatEvent(event, h.now().UTC()))
}
