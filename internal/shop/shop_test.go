package shop

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/elostora/shop/internal/coupons"
	"github.com/elostora/shop/internal/db"
	"github.com/elostora/shop/internal/models"
	"github.com/elostora/shop/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	svc     *Service
	conn    *gorm.DB
	clock   time.Time
	account models.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, errOpen := db.Open("file:" + filepath.Join(t.TempDir(), "shop.db"))
	require.NoError(t, errOpen)
	require.NoError(t, db.Migrate(conn))

	f := &fixture{conn: conn, clock: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	f.svc = NewService(conn, pricing.NewResolver(conn, nil), DefaultConfig())
	f.svc.now = func() time.Time { return f.clock }

	f.account = models.Account{Username: "nour", Password: "x", IsActive: true}
	require.NoError(t, conn.Create(&f.account).Error)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "expected %s, got %s", want, got.String())
}

func (f *fixture) category(t *testing.T, name string) models.Category {
	t.Helper()
	category := models.Category{Name: name, Slug: name}
	require.NoError(t, f.conn.Create(&category).Error)
	return category
}

func (f *fixture) product(t *testing.T, name, price string, stock int, category *models.Category) models.Product {
	t.Helper()
	product := models.Product{Name: name, Description: name + " description", Price: dec(price), Stock: stock}
	if category != nil {
		product.CategoryID = &category.ID
	}
	require.NoError(t, f.conn.Create(&product).Error)
	return product
}

func (f *fixture) liveEvent(t *testing.T, category models.Category, pct int) {
	t.Helper()
	event := models.Event{
		UID:                uuid.NewString(),
		Name:               "spring sale",
		Type:               models.EventTypeSale,
		EventDate:          f.clock.Add(-time.Hour),
		DiscountPercentage: pct,
		IsActive:           true,
		Status:             models.EventStatusLive,
		Categories:         []models.Category{category},
	}
	require.NoError(t, f.conn.Create(&event).Error)
}

func (f *fixture) stockOf(t *testing.T, productID uint64) int {
	t.Helper()
	var product models.Product
	require.NoError(t, f.conn.First(&product, productID).Error)
	return product.Stock
}

func (f *fixture) profile(t *testing.T) models.Profile {
	t.Helper()
	var profile models.Profile
	require.NoError(t, f.conn.Where("account_id = ?", f.account.ID).First(&profile).Error)
	return profile
}

func TestAddToCartClampsToStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.product(t, "mug", "12.50", 3, nil)

	res, err := f.svc.AddToCart(ctx, f.account.ID, product.ID, "", 5)
	require.NoError(t, err)
	require.True(t, res.Clamped)
	require.Equal(t, 3, res.Item.Quantity)

	res, err = f.svc.AddToCart(ctx, f.account.ID, product.ID, "", 1)
	require.NoError(t, err)
	require.True(t, res.Clamped)
	require.Equal(t, 3, res.Item.Quantity)

	var lines int64
	require.NoError(t, f.conn.Model(&models.CartItem{}).Count(&lines).Error)
	require.EqualValues(t, 1, lines)

	_, err = f.svc.AddToCart(ctx, f.account.ID, product.ID, "", 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestAddToCartDropsLineWhenStockRunsOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.product(t, "scarf", "20", 5, nil)

	_, err := f.svc.AddToCart(ctx, f.account.ID, product.ID, "", 2)
	require.NoError(t, err)
	require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", product.ID).Update("stock", 0).Error)

	_, err = f.svc.AddToCart(ctx, f.account.ID, product.ID, "", 1)
	require.ErrorIs(t, err, ErrOutOfStock)

	var lines int64
	require.NoError(t, f.conn.Model(&models.CartItem{}).Count(&lines).Error)
	require.EqualValues(t, 0, lines)
}

func TestAddToCartSizedProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.product(t, "hoodie", "40", 0, nil)
	require.NoError(t, f.conn.Create(&models.ProductSize{ProductID: product.ID, Size: "M", Quantity: 2}).Error)

	_, err := f.svc.AddToCart(ctx, f.account.ID, product.ID, "", 1)
	require.ErrorIs(t, err, ErrSizeRequired)

	_, err = f.svc.AddToCart(ctx, f.account.ID, product.ID, "xl", 1)
	require.ErrorIs(t, err, ErrSizeUnavailable)

	res, err := f.svc.AddToCart(ctx, f.account.ID, product.ID, " m ", 1)
	require.NoError(t, err)
	require.False(t, res.Clamped)
	require.Equal(t, "M", res.Item.Size)

	unsized := f.product(t, "cap", "5", 4, nil)
	_, err = f.svc.AddToCart(ctx, f.account.ID, unsized.ID, "S", 1)
	require.ErrorIs(t, err, ErrSizeUnavailable)

	_, err = f.svc.AddToCart(ctx, f.account.ID, 9999, "", 1)
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestUpdateAndRemoveCartItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.product(t, "mug", "10", 4, nil)

	added, err := f.svc.AddToCart(ctx, f.account.ID, product.ID, "", 1)
	require.NoError(t, err)

	updated, err := f.svc.UpdateCartItem(ctx, f.account.ID, added.Item.ID, 9)
	require.NoError(t, err)
	require.True(t, updated.Clamped)
	require.NotNil(t, updated.Item)
	require.Equal(t, 4, updated.Item.Quantity)

	other := models.Account{Username: "intruder", Password: "x", IsActive: true}
	require.NoError(t, f.conn.Create(&other).Error)
	_, err = f.svc.UpdateCartItem(ctx, other.ID, added.Item.ID, 1)
	require.ErrorIs(t, err, ErrCartItemNotFound)

	removed, err := f.svc.UpdateCartItem(ctx, f.account.ID, added.Item.ID, 0)
	require.NoError(t, err)
	require.True(t, removed.Removed)

	again, err := f.svc.AddToCart(ctx, f.account.ID, product.ID, "", 1)
	require.NoError(t, err)
	require.NoError(t, f.svc.RemoveCartItem(ctx, f.account.ID, again.Item.ID))
	require.ErrorIs(t, f.svc.RemoveCartItem(ctx, f.account.ID, again.Item.ID), ErrCartItemNotFound)
}

func TestCartSummaryAppliesDiscountAndFee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shirts := f.category(t, "shirts")
	f.liveEvent(t, shirts, 20)
	shirt := f.product(t, "shirt", "100", 5, &shirts)
	sock := f.product(t, "sock", "50", 5, nil)

	_, err := f.svc.AddToCart(ctx, f.account.ID, shirt.ID, "", 2)
	require.NoError(t, err)
	_, err = f.svc.AddToCart(ctx, f.account.ID, sock.ID, "", 1)
	require.NoError(t, err)

	summary, err := f.svc.CartSummary(ctx, f.account.ID)
	require.NoError(t, err)
	require.Len(t, summary.Lines, 2)
	require.Equal(t, 3, summary.ItemCount)
	requireDecimal(t, "80", summary.Lines[0].DiscountedPrice)
	require.Equal(t, 20, summary.Lines[0].Percentage)
	requireDecimal(t, "210", summary.Subtotal)
	requireDecimal(t, "10.50", summary.DeliveryFee)
	requireDecimal(t, "220.50", summary.FinalTotal)
}

func TestCheckoutCreatesOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shirts := f.category(t, "shirts")
	f.liveEvent(t, shirts, 20)
	shirt := f.product(t, "shirt", "100", 5, &shirts)
	require.NoError(t, f.conn.Create(&models.Coupon{
		Code: "SAVE10", DiscountType: models.CouponTypeFixed, Value: dec("10"),
		MinOrderTotal: dec("0"), MaxUses: 5, IsActive: true, ExpiresAt: f.clock.Add(24 * time.Hour),
	}).Error)

	_, err := f.svc.AddToCart(ctx, f.account.ID, shirt.ID, "", 2)
	require.NoError(t, err)

	order, err := f.svc.Checkout(ctx, f.account.ID, CheckoutInput{Address: "12 Nile St", Method: models.PaymentMethodVisa, CouponCode: "save10"})
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPending, order.Status)
	require.NotEmpty(t, order.Reference)
	require.Len(t, order.Items, 1)
	requireDecimal(t, "80", order.Items[0].Price)
	requireDecimal(t, "160", order.TotalAmount)
	requireDecimal(t, "10", order.DiscountAmount)
	requireDecimal(t, "8", order.DeliveryFee)
	requireDecimal(t, "158", order.FinalTotal)
	require.Equal(t, "SAVE10", order.CouponCode)
	require.NotNil(t, order.Payment)
	require.False(t, order.Payment.IsPaid)

	require.Equal(t, 3, f.stockOf(t, shirt.ID))

	coupon, err := coupons.Lookup(ctx, f.conn, "SAVE10")
	require.NoError(t, err)
	require.Equal(t, 1, coupon.UsedCount)

	summary, err := f.svc.CartSummary(ctx, f.account.ID)
	require.NoError(t, err)
	require.Empty(t, summary.Lines)
}

func TestCheckoutValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Checkout(ctx, f.account.ID, CheckoutInput{Address: "  "})
	require.ErrorIs(t, err, ErrAddressRequired)

	_, err = f.svc.Checkout(ctx, f.account.ID, CheckoutInput{Address: "x", Method: "bitcoin"})
	require.ErrorIs(t, err, ErrInvalidPaymentMethod)

	_, err = f.svc.Checkout(ctx, f.account.ID, CheckoutInput{Address: "x"})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutBadCouponRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.product(t, "mug", "10", 2, nil)
	_, err := f.svc.AddToCart(ctx, f.account.ID, product.ID, "", 2)
	require.NoError(t, err)

	_, err = f.svc.Checkout(ctx, f.account.ID, CheckoutInput{Address: "x", CouponCode: "NOPE"})
	require.ErrorIs(t, err, coupons.ErrCouponNotFound)
	require.Equal(t, 2, f.stockOf(t, product.ID))

	summary, err := f.svc.CartSummary(ctx, f.account.ID)
	require.NoError(t, err)
	require.Len(t, summary.Lines, 1)
}

func TestCheckoutPendingGracePeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.product(t, "mug", "10", 10, nil)

	_, err := f.svc.AddToCart(ctx, f.account.ID, product.ID, "", 2)
	require.NoError(t, err)
	first, err := f.svc.Checkout(ctx, f.account.ID, CheckoutInput{Address: "x"})
	require.NoError(t, err)
	require.Equal(t, 8, f.stockOf(t, product.ID))

	_, err = f.svc.AddToCart(ctx, f.account.ID, product.ID, "", 1)
	require.NoError(t, err)
	f.advance(10 * time.Second)
	_, err = f.svc.Checkout(ctx, f.account.ID, CheckoutInput{Address: "x"})
	require.ErrorIs(t, err, ErrPendingOrder)

	f.advance(25 * time.Second)
	second, err := f.svc.Checkout(ctx, f.account.ID, CheckoutInput{Address: "x"})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	stale, err := f.svc.GetOrder(ctx, first.ID, nil)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusCancelled, stale.Status)
	require.Equal(t, 9, f.stockOf(t, product.ID))
}

func (f *fixture) placeOrder(t *testing.T, price string, qty int) models.Order {
	t.Helper()
	ctx := context.Background()
	product := f.product(t, "item-"+uuid.NewString()[:8], price, qty+5, nil)
	_, err := f.svc.AddToCart(ctx, f.account.ID, product.ID, "", qty)
	require.NoError(t, err)
	order, err := f.svc.Checkout(ctx, f.account.ID, CheckoutInput{Address: "x"})
	require.NoError(t, err)
	return order
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, "100", 1)
	requireDecimal(t, "105", order.FinalTotal)

	paid, err := f.svc.ConfirmPayment(ctx, f.account.ID, order.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPaid, paid.Status)
	require.True(t, paid.Payment.IsPaid)
	requireDecimal(t, "105", paid.PaidAmount)

	_, err = f.svc.ConfirmPayment(ctx, f.account.ID, order.ID)
	require.NoError(t, err)

	profile := f.profile(t)
	require.EqualValues(t, 10, profile.Points)
	requireDecimal(t, "105", profile.TotalSpent)
	require.NotNil(t, profile.LastPurchaseAt)

	other := models.Account{Username: "stranger", Password: "x", IsActive: true}
	require.NoError(t, f.conn.Create(&other).Error)
	_, err = f.svc.ConfirmPayment(ctx, other.ID, order.ID)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPayWithBalanceAndRefundOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Deposit(ctx, f.account.ID, dec("0"))
	require.ErrorIs(t, err, ErrInvalidAmount)

	profile, err := f.svc.Deposit(ctx, f.account.ID, dec("50"))
	require.NoError(t, err)
	requireDecimal(t, "50", profile.Balance)

	order := f.placeOrder(t, "100", 1)
	_, err = f.svc.PayWithBalance(ctx, f.account.ID, order.ID)
	require.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = f.svc.Deposit(ctx, f.account.ID, dec("100"))
	require.NoError(t, err)
	paid, err := f.svc.PayWithBalance(ctx, f.account.ID, order.ID)
	require.NoError(t, err)
	require.True(t, paid.Payment.FromBalance)
	requireDecimal(t, "45", f.profile(t).Balance)

	_, err = f.svc.PayWithBalance(ctx, f.account.ID, order.ID)
	require.ErrorIs(t, err, ErrOrderNotPayable)

	cancelled, err := f.svc.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	requireDecimal(t, "150", f.profile(t).Balance)

	history, err := f.svc.History(ctx, f.account.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 4)
	kinds := map[models.BalanceTransactionType]int{}
	for _, entry := range history {
		kinds[entry.Type]++
	}
	require.Equal(t, 2, kinds[models.BalanceTransactionDeposit])
	require.Equal(t, 1, kinds[models.BalanceTransactionPayment])
	require.Equal(t, 1, kinds[models.BalanceTransactionRefund])

	_, err = f.svc.CancelOrder(ctx, order.ID)
	require.ErrorIs(t, err, ErrOrderNotCancellable)
}

func TestTransitionStatusFollowsFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, "20", 1)

	_, err := f.svc.TransitionStatus(ctx, order.ID, models.OrderStatusShipped)
	require.ErrorIs(t, err, ErrInvalidStatusTransition)

	paid, err := f.svc.TransitionStatus(ctx, order.ID, models.OrderStatusPaid)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPaid, paid.Status)
	require.True(t, paid.Payment.IsPaid)

	for _, next := range []models.OrderStatus{models.OrderStatusProcessing, models.OrderStatusShipped, models.OrderStatusDelivered} {
		moved, errMove := f.svc.TransitionStatus(ctx, order.ID, next)
		require.NoError(t, errMove)
		require.Equal(t, next, moved.Status)
	}

	_, err = f.svc.TransitionStatus(ctx, order.ID, models.OrderStatusCancelled)
	require.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestCancelOwnOrderOnlyWhilePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, "20", 2)
	productID := *order.Items[0].ProductID
	before := f.stockOf(t, productID)

	_, err := f.svc.ConfirmPayment(ctx, f.account.ID, order.ID)
	require.NoError(t, err)
	_, err = f.svc.CancelOwnOrder(ctx, f.account.ID, order.ID)
	require.ErrorIs(t, err, ErrOrderNotCancellable)

	f.advance(time.Minute)
	second := f.placeOrder(t, "20", 1)
	secondProduct := *second.Items[0].ProductID
	stock := f.stockOf(t, secondProduct)
	cancelled, err := f.svc.CancelOwnOrder(ctx, f.account.ID, second.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	require.Equal(t, stock+1, f.stockOf(t, secondProduct))
	require.Equal(t, before, f.stockOf(t, productID))
}

func TestCancelStalePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, "20", 1)

	count, err := f.svc.CancelStalePending(ctx, 0)
	require.NoError(t, err)
	require.Zero(t, count)

	f.advance(11 * time.Minute)
	count, err = f.svc.CancelStalePending(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	stale, err := f.svc.GetOrder(ctx, order.ID, &f.account.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusCancelled, stale.Status)

	orders, err := f.svc.ListOrders(ctx, OrderFilter{AccountID: &f.account.ID, Status: models.OrderStatusCancelled})
	require.NoError(t, err)
	require.Len(t, orders, 1)
}

func TestSearchAndSuggestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shirts := f.category(t, "shirts")
	f.liveEvent(t, shirts, 30)
	f.product(t, "Linen Shirt", "50", 3, &shirts)
	f.product(t, "Linen Trousers", "70", 3, nil)
	f.product(t, "Wool Scarf", "20", 3, nil)

	found, err := f.svc.Search(ctx, "LINEN", 10)
	require.NoError(t, err)
	require.Len(t, found, 2)

	shirt, err := f.svc.Search(ctx, "shirt", 10)
	require.NoError(t, err)
	require.Len(t, shirt, 1)
	requireDecimal(t, "35", shirt[0].Pricing.Discounted)
	require.Equal(t, 30, shirt[0].Pricing.Percentage)

	names, err := f.svc.Suggestions(ctx, "lin")
	require.NoError(t, err)
	require.Equal(t, []string{"Linen Shirt", "Linen Trousers"}, names)

	empty, err := f.svc.Suggestions(ctx, " ")
	require.NoError(t, err)
	require.Empty(t, empty)
}
