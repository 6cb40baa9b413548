package api

import (
	"time"

	"github.com/elostora/shop/internal/blog"
	"github.com/elostora/shop/internal/events"
	"github.com/elostora/shop/internal/models"
	"github.com/elostora/shop/internal/shop"
	"github.com/gin-gonic/gin"
)

// FormatCategory formats a category row into response JSON.
func FormatCategory(category models.Category) gin.H {
	subs := make([]gin.H, 0, len(category.Subcategories))
	for _, sub := range category.Subcategories {
		subs = append(subs, FormatSubcategory(sub))
	}
	return gin.H{
		"id":            category.ID,
		"name":          category.Name,
		"slug":          category.Slug,
		"description":   category.Description,
		"subcategories": subs,
	}
}

// FormatSubcategory formats a subcategory row into response JSON.
func FormatSubcategory(sub models.Subcategory) gin.H {
	return gin.H{
		"id":          sub.ID,
		"category_id": sub.CategoryID,
		"name":        sub.Name,
		"slug":        sub.Slug,
	}
}

// FormatProduct formats a quoted product into response JSON.
func FormatProduct(view shop.ProductView) gin.H {
	sizes := make([]gin.H, 0, len(view.Sizes))
	for _, size := range view.Sizes {
		sizes = append(sizes, gin.H{"size": size.Size, "quantity": size.Quantity})
	}
	out := gin.H{
		"id":                view.ID,
		"name":              view.Name,
		"short_description": view.ShortDescription,
		"description":       view.Description,
		"price":             view.Price,
		"stock":             view.Stock,
		"image_url":         view.ImageURL,
		"category_id":       view.CategoryID,
		"subcategory_id":    view.SubcategoryID,
		"sizes":             sizes,
		"pricing":           view.Pricing,
		"created_at":        view.CreatedAt,
	}
	if view.Category != nil {
		out["category"] = gin.H{"id": view.Category.ID, "name": view.Category.Name, "slug": view.Category.Slug}
	}
	return out
}

// FormatProducts formats a product listing.
func FormatProducts(views []shop.ProductView) []gin.H {
	out := make([]gin.H, 0, len(views))
	for _, view := range views {
		out = append(out, FormatProduct(view))
	}
	return out
}

// FormatOrder formats an order with its lines and payment.
func FormatOrder(order models.Order) gin.H {
	items := make([]gin.H, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, gin.H{
			"id":         item.ID,
			"product_id": item.ProductID,
			"name":       item.Name,
			"size":       item.Size,
			"quantity":   item.Quantity,
			"price":      item.Price,
			"subtotal":   item.Subtotal(),
		})
	}
	out := gin.H{
		"id":               order.ID,
		"reference":        order.Reference,
		"account_id":       order.AccountID,
		"delivery_address": order.DeliveryAddress,
		"total_amount":     order.TotalAmount,
		"discount_amount":  order.DiscountAmount,
		"delivery_fee":     order.DeliveryFee,
		"final_total":      order.FinalTotal,
		"paid_amount":      order.PaidAmount,
		"payment_method":   order.PaymentMethod,
		"coupon_code":      order.CouponCode,
		"status":           order.Status,
		"items":            items,
		"created_at":       order.CreatedAt,
		"updated_at":       order.UpdatedAt,
	}
	if order.Payment != nil {
		out["payment"] = gin.H{
			"method":       order.Payment.Method,
			"is_paid":      order.Payment.IsPaid,
			"from_balance": order.Payment.FromBalance,
			"paid_at":      order.Payment.PaidAt,
		}
	}
	return out
}

// FormatOrders formats an order listing.
func FormatOrders(orders []models.Order) []gin.H {
	out := make([]gin.H, 0, len(orders))
	for _, order := range orders {
		out = append(out, FormatOrder(order))
	}
	return out
}

// FormatEvent formats an event with its schedule state at now.
func FormatEvent(event models.Event, now time.Time) gin.H {
	categoryIDs := make([]uint64, 0, len(event.Categories))
	for _, category := range event.Categories {
		categoryIDs = append(categoryIDs, category.ID)
	}
	return gin.H{
		"id":                  event.ID,
		"uid":                 event.UID,
		"name":                event.Name,
		"description":         event.Description,
		"event_type":          event.Type,
		"event_date":          event.EventDate,
		"end_date":            event.EndDate,
		"discount_percentage": event.DiscountPercentage,
		"category_ids":        categoryIDs,
		"banner_url":          event.BannerURL,
		"is_active":           event.IsActive,
		"status":              event.Status,
		"is_ongoing":          events.IsOngoing(event, now),
		"is_upcoming":         events.IsUpcoming(event, now),
		"is_ended":            events.IsEnded(event, now),
		"countdown_seconds":   int64(events.Countdown(event, now).Seconds()),
	}
}

// FormatGift formats a gift row into response JSON.
func FormatGift(gift models.Gift) gin.H {
	return gin.H{
		"id":             gift.ID,
		"uid":            gift.UID,
		"name":           gift.Name,
		"description":    gift.Description,
		"points_cost":    gift.PointsCost,
		"image_url":      gift.ImageURL,
		"stock_quantity": gift.StockQuantity,
		"is_active":      gift.IsActive,
	}
}

// FormatRedemption formats a gift redemption into response JSON.
func FormatRedemption(redemption models.GiftRedemption) gin.H {
	out := gin.H{
		"id":              redemption.ID,
		"uid":             redemption.UID,
		"account_id":      redemption.AccountID,
		"gift_id":         redemption.GiftID,
		"points_spent":    redemption.PointsSpent,
		"status":          redemption.Status,
		"tracking_number": redemption.TrackingNumber,
		"notes":           redemption.Notes,
		"redeemed_at":     redemption.RedeemedAt,
	}
	if redemption.Gift != nil {
		out["gift"] = FormatGift(*redemption.Gift)
	}
	return out
}

// FormatPost formats a rendered post into response JSON.
func FormatPost(view blog.PostView) gin.H {
	out := gin.H{
		"id":           view.ID,
		"title":        view.Title,
		"slug":         view.Slug,
		"content":      view.Content,
		"html":         view.HTML,
		"preview":      view.Preview,
		"image_url":    view.ImageURL,
		"category_id":  view.CategoryID,
		"author_id":    view.AuthorID,
		"is_published": view.IsPublished,
		"created_at":   view.CreatedAt,
		"updated_at":   view.UpdatedAt,
	}
	if view.Category != nil {
		out["category"] = gin.H{"id": view.Category.ID, "name": view.Category.Name}
	}
	return out
}

// FormatTransaction formats a wallet movement into response JSON.
func FormatTransaction(tx models.BalanceTransaction) gin.H {
	return gin.H{
		"id":         tx.ID,
		"amount":     tx.Amount,
		"type":       tx.Type,
		"reference":  tx.Reference,
		"created_at": tx.CreatedAt,
	}
}
