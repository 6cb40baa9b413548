package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elostora/shop/internal/models"
	"github.com/elostora/shop/internal/pricing"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrEventNotFound     = errors.New("events: event not found")
	ErrNameRequired      = errors.New("events: name is required")
	ErrInvalidPercentage = errors.New("events: discount percentage must be between 0 and 100")
	ErrInvalidType       = errors.New("events: invalid event type")
	ErrInvalidStatus     = errors.New("events: invalid event status")
	ErrInvalidWindow     = errors.New("events: end date must follow the start date")
)

// Input is the writable part of an event.
type Input struct {
	Name               string             `json:"name"`
	Description        string             `json:"description"`
	Type               models.EventType   `json:"event_type"`
	EventDate          time.Time          `json:"event_date"`
	EndDate            *time.Time         `json:"end_date"`
	DiscountPercentage int                `json:"discount_percentage"`
	CategoryIDs        []uint64           `json:"category_ids"`
	BannerURL          string             `json:"banner_url"`
	IsActive           bool               `json:"is_active"`
	Status             models.EventStatus `json:"status"`
}

// Validate normalises and checks in.
func (in *Input) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ErrNameRequired
	}
	if in.DiscountPercentage < 0 || in.DiscountPercentage > 100 {
		return ErrInvalidPercentage
	}
	if in.Type == "" {
		in.Type = models.EventTypeSale
	}
	if !models.IsValidEventType(in.Type) {
		return ErrInvalidType
	}
	if in.Status == "" {
		in.Status = models.EventStatusPending
	}
	if !models.IsValidEventStatus(in.Status) {
		return ErrInvalidStatus
	}
	if in.EventDate.IsZero() {
		in.EventDate = time.Now().UTC()
	}
	if in.EndDate != nil && in.EndDate.Before(in.EventDate) {
		return ErrInvalidWindow
	}
	return nil
}

// Service stores events and drops cached discounts after every change.
type Service struct {
	db      *gorm.DB
	pricing *pricing.Resolver
}

// NewService builds a Service. resolver may be nil.
func NewService(db *gorm.DB, resolver *pricing.Resolver) *Service {
	return &Service{db: db, pricing: resolver}
}

// List returns events ordered by start date, optionally only active ones.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]models.Event, error) {
	query := s.db.WithContext(ctx).Preload("Categories")
	if activeOnly {
		query = query.Where("is_active = ? AND status <> ?", true, models.EventStatusCancelled)
	}
	var list []models.Event
	if errFind := query.Order("event_date ASC").Order("id ASC").Find(&list).Error; errFind != nil {
		return nil, fmt.Errorf("events: list events: %w", errFind)
	}
	return list, nil
}

// Get loads an event by numeric id or uid.
func (s *Service) Get(ctx context.Context, key string) (models.Event, error) {
	query := s.db.WithContext(ctx).Preload("Categories")
	if _, errParse := uuid.Parse(key); errParse == nil {
		query = query.Where("uid = ?", key)
	} else {
		query = query.Where("id = ?", key)
	}
	var event models.Event
	if errFind := query.First(&event).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.Event{}, ErrEventNotFound
		}
		return models.Event{}, fmt.Errorf("events: load event: %w", errFind)
	}
	return event, nil
}

// Create stores a new event.
func (s *Service) Create(ctx context.Context, in Input) (models.Event, error) {
	if errValidate := in.Validate(); errValidate != nil {
		return models.Event{}, errValidate
	}
	event := models.Event{UID: uuid.NewString()}
	applyInput(&event, in)
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		categories, errCategories := loadCategories(tx, in.CategoryIDs)
		if errCategories != nil {
			return errCategories
		}
		event.Categories = categories
		if errCreate := tx.Create(&event).Error; errCreate != nil {
			return fmt.Errorf("events: create event: %w", errCreate)
		}
		return nil
	})
	if errTx != nil {
		return models.Event{}, errTx
	}
	s.invalidate(ctx)
	return event, nil
}

// Update replaces the writable fields of an event.
func (s *Service) Update(ctx context.Context, id uint64, in Input) (models.Event, error) {
	if errValidate := in.Validate(); errValidate != nil {
		return models.Event{}, errValidate
	}
	var event models.Event
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := tx.First(&event, id).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return fmt.Errorf("events: load event: %w", errFind)
		}
		applyInput(&event, in)
		if errSave := tx.Select("*").Omit("Categories", "CreatedAt").Save(&event).Error; errSave != nil {
			return fmt.Errorf("events: update event: %w", errSave)
		}
		categories, errCategories := loadCategories(tx, in.CategoryIDs)
		if errCategories != nil {
			return errCategories
		}
		association := tx.Model(&event).Association("Categories")
		var errAssoc error
		if len(categories) == 0 {
			errAssoc = association.Clear()
		} else {
			errAssoc = association.Replace(categories)
		}
		if errAssoc != nil {
			return fmt.Errorf("events: replace categories: %w", errAssoc)
		}
		event.Categories = categories
		return nil
	})
	if errTx != nil {
		return models.Event{}, errTx
	}
	s.invalidate(ctx)
	return event, nil
}

// Delete removes an event and its category links.
func (s *Service) Delete(ctx context.Context, id uint64) error {
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event := models.Event{ID: id}
		if errAssoc := tx.Model(&event).Association("Categories").Clear(); errAssoc != nil {
			return fmt.Errorf("events: clear categories: %w", errAssoc)
		}
		res := tx.Delete(&models.Event{}, id)
		if res.Error != nil {
			return fmt.Errorf("events: delete event: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrEventNotFound
		}
		return nil
	})
	if errTx != nil {
		return errTx
	}
	s.invalidate(ctx)
	return nil
}

// Sweep runs SweepStatuses and drops cached discounts when anything moved.
func (s *Service) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	result, errSweep := SweepStatuses(ctx, s.db, now)
	if errSweep != nil {
		return SweepResult{}, errSweep
	}
	if result.Started > 0 || result.Ended > 0 {
		s.invalidate(ctx)
	}
	return result, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.pricing != nil {
		s.pricing.Invalidate(ctx)
	}
}

func applyInput(event *models.Event, in Input) {
	event.Name = in.Name
	event.Description = in.Description
	event.Type = in.Type
	event.EventDate = in.EventDate.UTC()
	event.EndDate = nil
	if in.EndDate != nil {
		end := in.EndDate.UTC()
		event.EndDate = &end
	}
	event.DiscountPercentage = in.DiscountPercentage
	event.BannerURL = strings.TrimSpace(in.BannerURL)
	event.IsActive = in.IsActive
	event.Status = in.Status
}

func loadCategories(tx *gorm.DB, ids []uint64) ([]models.Category, error) {
	if len(ids) == 0 {
		return []models.Category{}, nil
	}
	var categories []models.Category
	if errFind := tx.Where("id IN ?", ids).Find(&categories).Error; errFind != nil {
		return nil, fmt.Errorf("events: load categories: %w", errFind)
	}
	return categories, nil
}
