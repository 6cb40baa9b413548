package front_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/elostora/shop/internal/app"
	"github.com/elostora/shop/internal/config"
	"github.com/elostora/shop/internal/db"
	"github.com/elostora/shop/internal/http/api"
	"github.com/elostora/shop/internal/http/api/front"
	"github.com/elostora/shop/internal/models"
	"github.com/elostora/shop/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func newFrontServer(t *testing.T) (*gin.Engine, *api.Services) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	conn, errOpen := db.Open("file:" + filepath.Join(dir, "front.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	conf, errLoad := config.Load(filepath.Join(dir, "missing.yaml"))
	if errLoad != nil {
		t.Fatalf("load config: %v", errLoad)
	}
	conf.JWT.Secret = "front-test-secret"

	svc, errBuild := app.BuildServices(context.Background(), conn, conf)
	if errBuild != nil {
		t.Fatalf("build services: %v", errBuild)
	}
	r := gin.New()
	front.RegisterFrontRoutes(r, svc)
	return r, svc
}

func doJSON(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw := []byte{}
	if body != nil {
		var errMarshal error
		raw, errMarshal = json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal body: %v", errMarshal)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if errDecode := json.Unmarshal(w.Body.Bytes(), &out); errDecode != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), errDecode)
	}
	return out
}

func decimalField(t *testing.T, body map[string]any, key string) decimal.Decimal {
	t.Helper()
	raw, ok := body[key].(string)
	if !ok {
		t.Fatalf("expected %s to be a decimal string, got %v", key, body[key])
	}
	value, errParse := decimal.NewFromString(raw)
	if errParse != nil {
		t.Fatalf("parse %s: %v", key, errParse)
	}
	return value
}

func register(t *testing.T, r http.Handler, username string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/v0/register", "", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret1",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected register 201, got %d: %s", w.Code, w.Body.String())
	}
	token, _ := decode(t, w)["token"].(string)
	if token == "" {
		t.Fatalf("expected token in register response")
	}
	return token
}

func seedProduct(t *testing.T, svc *api.Services, name string, price int64, stock int) models.Product {
	t.Helper()
	product := models.Product{Name: name, Price: decimal.NewFromInt(price), Stock: stock}
	if errCreate := svc.DB.Create(&product).Error; errCreate != nil {
		t.Fatalf("create product: %v", errCreate)
	}
	return product
}

func TestRegisterLoginAndMe(t *testing.T) {
	r, _ := newFrontServer(t)
	register(t, r, "nour")

	w := doJSON(t, r, http.MethodPost, "/v0/register", "", gin.H{"username": "nour", "password": "secret1"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for taken username, got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodPost, "/v0/register", "", gin.H{"username": "admin", "password": "secret1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for reserved username, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/v0/login", "", gin.H{"username": "nour", "password": "secret1"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected login 200, got %d: %s", w.Code, w.Body.String())
	}
	token, _ := decode(t, w)["token"].(string)

	w = doJSON(t, r, http.MethodGet, "/v0/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected me 200, got %d", w.Code)
	}
	me := decode(t, w)
	if me["username"] != "nour" || me["tier"] != "USER" {
		t.Fatalf("unexpected me payload: %v", me)
	}
	if _, ok := me["profile"].(map[string]any); !ok {
		t.Fatalf("expected profile in me payload, got %v", me["profile"])
	}
}

func TestFrontRejectsAdminAudience(t *testing.T) {
	r, svc := newFrontServer(t)
	register(t, r, "omar")
	account, errGet := svc.Accounts.Authenticate(context.Background(), "omar", "secret1")
	if errGet != nil {
		t.Fatalf("authenticate: %v", errGet)
	}
	token, _, errToken := security.IssueToken(svc.JWT.Secret, account.ID, account.Username,
		security.AudienceAdmin, time.Hour, time.Now().UTC())
	if errToken != nil {
		t.Fatalf("issue token: %v", errToken)
	}
	if w := doJSON(t, r, http.MethodGet, "/v0/me", token, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for admin audience, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/v0/cart", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}

func TestBlockedAccountIsForbidden(t *testing.T) {
	r, svc := newFrontServer(t)
	token := register(t, r, "rana")
	if errUpdate := svc.DB.Model(&models.Profile{}).Where("1 = 1").Update("blocked", true).Error; errUpdate != nil {
		t.Fatalf("block profile: %v", errUpdate)
	}
	if w := doJSON(t, r, http.MethodGet, "/v0/me", token, nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for blocked account, got %d", w.Code)
	}
}

func TestCartCheckoutAndCancel(t *testing.T) {
	r, svc := newFrontServer(t)
	token := register(t, r, "salma")
	product := seedProduct(t, svc, "Linen Shirt", 100, 3)

	if w := doJSON(t, r, http.MethodPost, "/v0/checkout", token, gin.H{"address": "Cairo"}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty cart, got %d", w.Code)
	}

	w := doJSON(t, r, http.MethodPost, "/v0/cart/items", token, gin.H{"product_id": product.ID, "quantity": 5})
	if w.Code != http.StatusOK {
		t.Fatalf("expected add 200, got %d: %s", w.Code, w.Body.String())
	}
	added := decode(t, w)
	if added["clamped"] != true {
		t.Fatalf("expected quantity above stock to be clamped, got %v", added)
	}

	w = doJSON(t, r, http.MethodGet, "/v0/cart", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected cart 200, got %d", w.Code)
	}
	cart := decode(t, w)
	if subtotal := decimalField(t, cart, "subtotal"); !subtotal.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected subtotal 300, got %s", subtotal)
	}

	w = doJSON(t, r, http.MethodPost, "/v0/checkout", token, gin.H{"address": "12 Nile Street", "payment_method": "cash"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected checkout 201, got %d: %s", w.Code, w.Body.String())
	}
	order := decode(t, w)
	if order["status"] != "pending" {
		t.Fatalf("expected pending order, got %v", order["status"])
	}
	if final := decimalField(t, order, "final_total"); !final.Equal(decimal.NewFromInt(315)) {
		t.Fatalf("expected final total 315, got %s", final)
	}

	var stocked models.Product
	if errFind := svc.DB.First(&stocked, product.ID).Error; errFind != nil {
		t.Fatalf("reload product: %v", errFind)
	}
	if stocked.Stock != 0 {
		t.Fatalf("expected stock 0 after checkout, got %d", stocked.Stock)
	}

	w = doJSON(t, r, http.MethodGet, "/v0/orders", token, nil)
	if orders, _ := decode(t, w)["orders"].([]any); len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}

	orderID := uint64(order["id"].(float64))
	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/v0/orders/%d/cancel", orderID), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected cancel 200, got %d: %s", w.Code, w.Body.String())
	}
	if status := decode(t, w)["status"]; status != "cancelled" {
		t.Fatalf("expected cancelled, got %v", status)
	}
	if errFind := svc.DB.First(&stocked, product.ID).Error; errFind != nil {
		t.Fatalf("reload product: %v", errFind)
	}
	if stocked.Stock != 3 {
		t.Fatalf("expected stock restored to 3, got %d", stocked.Stock)
	}
}

func TestOtherAccountsOrdersAreHidden(t *testing.T) {
	r, svc := newFrontServer(t)
	owner := register(t, r, "yara")
	stranger := register(t, r, "ziad")
	product := seedProduct(t, svc, "Cap", 40, 2)

	doJSON(t, r, http.MethodPost, "/v0/cart/items", owner, gin.H{"product_id": product.ID})
	w := doJSON(t, r, http.MethodPost, "/v0/checkout", owner, gin.H{"address": "Giza"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected checkout 201, got %d: %s", w.Code, w.Body.String())
	}
	orderID := uint64(decode(t, w)["id"].(float64))

	if w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/v0/orders/%d", orderID), stranger, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another account's order, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/v0/orders/%d/cancel", orderID), stranger, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when cancelling another account's order, got %d", w.Code)
	}
}

func TestWalletPaysOrder(t *testing.T) {
	r, svc := newFrontServer(t)
	token := register(t, r, "hana")
	product := seedProduct(t, svc, "Belt", 200, 1)

	doJSON(t, r, http.MethodPost, "/v0/cart/items", token, gin.H{"product_id": product.ID, "quantity": 1})
	w := doJSON(t, r, http.MethodPost, "/v0/checkout", token, gin.H{"address": "Alexandria"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected checkout 201, got %d: %s", w.Code, w.Body.String())
	}
	orderID := uint64(decode(t, w)["id"].(float64))
	payPath := fmt.Sprintf("/v0/orders/%d/pay-with-balance", orderID)

	if w := doJSON(t, r, http.MethodPost, payPath, token, nil); w.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 with empty wallet, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, "/v0/wallet/deposit", token, gin.H{"amount": "-5"}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative deposit, got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodPost, "/v0/wallet/deposit", token, gin.H{"amount": "500"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected deposit 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, payPath, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected pay 200, got %d: %s", w.Code, w.Body.String())
	}
	if status := decode(t, w)["status"]; status != "paid" {
		t.Fatalf("expected paid, got %v", status)
	}

	w = doJSON(t, r, http.MethodGet, "/v0/wallet/history", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected history 200, got %d", w.Code)
	}
	if rows, _ := decode(t, w)["transactions"].([]any); len(rows) != 2 {
		t.Fatalf("expected deposit and payment rows, got %d", len(rows))
	}
}

func TestPasswordResetDoesNotRevealAccounts(t *testing.T) {
	r, svc := newFrontServer(t)
	register(t, r, "lina")

	for _, email := range []string{"lina@example.com", "nobody@example.com"} {
		w := doJSON(t, r, http.MethodPost, "/v0/password-reset", "", gin.H{"email": email})
		if w.Code != http.StatusAccepted {
			t.Fatalf("expected 202 for %s, got %d", email, w.Code)
		}
		if _, leaked := decode(t, w)["code"]; leaked {
			t.Fatalf("reset code must not be returned for %s", email)
		}
	}

	var count int64
	if errCount := svc.DB.Model(&models.PasswordReset{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count resets: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected one reset code issued, got %d", count)
	}

	if w := doJSON(t, r, http.MethodPost, "/v0/password-reset/verify", "", gin.H{"code": "000000"}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown code, got %d", w.Code)
	}
}

func TestPublicCatalog(t *testing.T) {
	r, svc := newFrontServer(t)
	product := seedProduct(t, svc, "Wool Coat", 900, 4)

	w := doJSON(t, r, http.MethodGet, "/v0/products", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected products 200, got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/v0/products/%d", product.ID), "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected product 200, got %d", w.Code)
	}
	if name := decode(t, w)["name"]; name != "Wool Coat" {
		t.Fatalf("expected Wool Coat, got %v", name)
	}
	if w := doJSON(t, r, http.MethodGet, "/v0/products/9999", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing product, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/v0/products/abc", "", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", w.Code)
	}
}
