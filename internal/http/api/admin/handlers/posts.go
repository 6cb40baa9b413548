package handlers

import (
	"net/http"

	"github.com/elostora/shop/internal/blog"
	"github.com/elostora/shop/internal/http/api"
	"github.com/gin-gonic/gin"
)

// PostHandler manages blog posts and their categories.
type PostHandler struct {
	svc *api.Services
}

// NewPostHandler constructs a PostHandler.
func NewPostHandler(svc *api.Services) *PostHandler {
	return &PostHandler{svc: svc}
}

// List returns every post, drafts included.
func (h *PostHandler) List(c *gin.Context) {
	posts, errList := h.svc.Blog.ListPosts(c.Request.Context(), false, api.QueryID(c, "category_id"))
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

// Create stores a post authored by the caller.
func (h *PostHandler) Create(c *gin.Context) {
	var body blog.PostInput
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	ctx := c.Request.Context()
	post, errCreate := h.svc.Blog.CreatePost(ctx, api.AccountID(c), body)
	if errCreate != nil {
		api.RespondError(c, errCreate, "create post failed")
		return
	}
	view, errView := h.svc.Blog.GetBySlug(ctx, post.Slug, false)
	if errView != nil {
		api.RespondError(c, errView, "load post failed")
		return
	}
	c.JSON(http.StatusCreated, api.FormatPost(view))
}

// Update replaces the writable fields of a post.
func (h *PostHandler) Update(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var body blog.PostInput
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	ctx := c.Request.Context()
	post, errUpdate := h.svc.Blog.UpdatePost(ctx, id, body)
	if errUpdate != nil {
		api.RespondError(c, errUpdate, "update post failed")
		return
	}
	view, errView := h.svc.Blog.GetBySlug(ctx, post.Slug, false)
	if errView != nil {
		api.RespondError(c, errView, "load post failed")
		return
	}
	c.JSON(http.StatusOK, api.FormatPost(view))
}

// Delete removes a post.
func (h *PostHandler) Delete(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	if errDelete := h.svc.Blog.DeletePost(c.Request.Context(), id); errDelete != nil {
		api.RespondError(c, errDelete, "delete post failed")
		return
	}
	c.Status(http.StatusNoContent)
}

// ListCategories returns the blog categories.
func (h *PostHandler) ListCategories(c *gin.Context) {
	categories, errList := h.svc.Blog.Categories(c.Request.Context())
	if errList != nil {
		api.RespondError(c, errList, "list categories failed")
		return
	}
	out := make([]gin.H, 0, len(categories))
	for _, category := range categories {
		out = append(out, gin.H{"id": category.ID, "name": category.Name, "description": category.Description})
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}

type blogCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateCategory stores a blog category.
func (h *PostHandler) CreateCategory(c *gin.Context) {
	var body blogCategoryRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	category, errCreate := h.svc.Blog.CreateCategory(c.Request.Context(), body.Name, body.Description)
	if errCreate != nil {
		api.RespondError(c, errCreate, "create category failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": category.ID, "name": category.Name, "description": category.Description})
}
