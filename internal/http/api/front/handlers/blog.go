package handlers

import (
	"net/http"

	"github.com/elostora/shop/internal/http/api"
	"github.com/gin-gonic/gin"
)

// BlogFrontHandler serves published posts.
type BlogFrontHandler struct {
	svc *api.Services
}

// NewBlogFrontHandler constructs a BlogFrontHandler.
func NewBlogFrontHandler(svc *api.Services) *BlogFrontHandler {
	return &BlogFrontHandler{svc: svc}
}

// List returns published posts, optionally for one category.
func (h *BlogFrontHandler) List(c *gin.Context) {
	posts, errList := h.svc.Blog.ListPosts(c.Request.Context(), true, api.QueryID(c, "category_id"))
	if errList != nil {
		api.RespondError(c, errList, "list posts failed")
		return
	}
	out := make([]gin.H, 0, len(posts))
	for _, post := range posts {
		out = append(out, api.FormatPost(post))
	}
	c.JSON(http.StatusOK, gin.H{"posts": out})
}

// Get returns a published post by slug.
func (h *BlogFrontHandler) Get(c *gin.Context) {
	view, errGet := h.svc.Blog.GetBySlug(c.Request.Context(), c.Param("slug"), true)
	if errGet != nil {
		api.RespondError(c, errGet, "load post failed")
		return
	}
	c.JSON(http.StatusOK, api.FormatPost(view))
}
