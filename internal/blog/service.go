// Package blog stores markdown posts and renders them for the front site.
package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/elostora/shop/internal/models"
	"gorm.io/gorm"
)

var (
	ErrPostNotFound     = errors.New("blog: post not found")
	ErrTitleRequired    = errors.New("blog: title is required")
	ErrContentRequired  = errors.New("blog: content is required")
	ErrCategoryNotFound = errors.New("blog: category not found")
)

// PostInput is the writable part of a post.
type PostInput struct {
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	ImageURL    string  `json:"image_url"`
	CategoryID  *uint64 `json:"category_id"`
	IsPublished bool    `json:"is_published"`
}

// PostView is a post with its rendered body and preview.
type PostView struct {
	models.Post
	HTML    string `json:"html"`
	Preview string `json:"preview"`
}

// Service stores blog posts and categories.
type Service struct {
	db *gorm.DB
}

// NewService builds a Service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ListPosts returns posts newest first. publishedOnly hides drafts.
func (s *Service) ListPosts(ctx context.Context, publishedOnly bool, categoryID *uint64) ([]PostView, error) {
	query := s.db.WithContext(ctx).Preload("Category")
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if categoryID != nil {
		query = query.Where("category_id = ?", *categoryID)
	}
	var posts []models.Post
	if errFind := query.Order("created_at DESC").Order("id DESC").Find(&posts).Error; errFind != nil {
		return nil, fmt.Errorf("blog: list posts: %w", errFind)
	}
	views := make([]PostView, 0, len(posts))
	for _, post := range posts {
		views = append(views, PostView{Post: post, Preview: ShortDescription(post.Content)})
	}
	return views, nil
}

// GetBySlug loads one post and renders it. publishedOnly hides drafts.
func (s *Service) GetBySlug(ctx context.Context, slug string, publishedOnly bool) (PostView, error) {
	query := s.db.WithContext(ctx).Preload("Category").Where("slug = ?", strings.TrimSpace(slug))
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}
	var post models.Post
	if errFind := query.First(&post).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return PostView{}, ErrPostNotFound
		}
		return PostView{}, fmt.Errorf("blog: load post: %w", errFind)
	}
	html, errRender := RenderHTML(post.Content)
	if errRender != nil {
		return PostView{}, errRender
	}
	return PostView{Post: post, HTML: html, Preview: ShortDescription(post.Content)}, nil
}

func (in *PostInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(in.Content) == "" {
		return ErrContentRequired
	}
	return nil
}

func (s *Service) checkCategory(tx *gorm.DB, categoryID *uint64) error {
	if categoryID == nil {
		return nil
	}
	var count int64
	if errCount := tx.Model(&models.BlogCategory{}).Where("id = ?", *categoryID).Count(&count).Error; errCount != nil {
		return fmt.Errorf("blog: check category: %w", errCount)
	}
	if count == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// CreatePost stores a post with a unique slug derived from its title.
func (s *Service) CreatePost(ctx context.Context, authorID uint64, in PostInput) (models.Post, error) {
	if errValidate := in.validate(); errValidate != nil {
		return models.Post{}, errValidate
	}
	var post models.Post
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errCategory := s.checkCategory(tx, in.CategoryID); errCategory != nil {
			return errCategory
		}
		slug, errSlug := UniqueSlug(ctx, tx, &models.Post{}, in.Title, 0)
		if errSlug != nil {
			return errSlug
		}
		post = models.Post{
			Title:       in.Title,
			Content:     in.Content,
			ImageURL:    strings.TrimSpace(in.ImageURL),
			Slug:        slug,
			CategoryID:  in.CategoryID,
			IsPublished: in.IsPublished,
		}
		if authorID != 0 {
			post.AuthorID = &authorID
		}
		if errCreate := tx.Create(&post).Error; errCreate != nil {
			return fmt.Errorf("blog: create post: %w", errCreate)
		}
		return nil
	})
	if errTx != nil {
		return models.Post{}, errTx
	}
	return post, nil
}

// UpdatePost replaces the writable fields of a post. The slug is kept.
func (s *Service) UpdatePost(ctx context.Context, id uint64, in PostInput) (models.Post, error) {
	if errValidate := in.validate(); errValidate != nil {
		return models.Post{}, errValidate
	}
	var post models.Post
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := tx.First(&post, id).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return fmt.Errorf("blog: load post: %w", errFind)
		}
		if errCategory := s.checkCategory(tx, in.CategoryID); errCategory != nil {
			return errCategory
		}
		updates := map[string]any{
			"title":        in.Title,
			"content":      in.Content,
			"image_url":    strings.TrimSpace(in.ImageURL),
			"category_id":  in.CategoryID,
			"is_published": in.IsPublished,
		}
		if errUpdate := tx.Model(&post).Updates(updates).Error; errUpdate != nil {
			return fmt.Errorf("blog: update post: %w", errUpdate)
		}
		return tx.First(&post, id).Error
	})
	if errTx != nil {
		return models.Post{}, errTx
	}
	return post, nil
}

// DeletePost removes a post.
func (s *Service) DeletePost(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return fmt.Errorf("blog: delete post: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}

// Categories lists blog categories by name.
func (s *Service) Categories(ctx context.Context) ([]models.BlogCategory, error) {
	var categories []models.BlogCategory
	if errFind := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; errFind != nil {
		return nil, fmt.Errorf("blog: list categories: %w", errFind)
	}
	return categories, nil
}

// CreateCategory stores a blog category.
func (s *Service) CreateCategory(ctx context.Context, name, description string) (models.BlogCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.BlogCategory{}, ErrTitleRequired
	}
	category := models.BlogCategory{Name: name, Description: strings.TrimSpace(description)}
	if errCreate := s.db.WithContext(ctx).Create(&category).Error; errCreate != nil {
		return models.BlogCategory{}, fmt.Errorf("blog: create category: %w", errCreate)
	}
	return category, nil
}
