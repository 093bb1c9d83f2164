package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"cart-service/internal/discount"
	"cart-service/internal/models"
	"cart-service/internal/persistence"
	"cart-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const session = "6a1d2f3e-4b5c-4d7e-8f90-a1b2c3d4e5f6"

type stubValidator struct {
	codes map[string]*models.DiscountCode
	hook  func()
}

func (s *stubValidator) Validate(_ context.Context, code string, basis decimal.Decimal) (*models.DiscountCode, error) {
	if s.hook != nil {
		s.hook()
	}
	dc, ok := s.codes[code]
	if !ok {
		return nil, &discount.ValidationError{Kind: discount.KindNotFound, Reason: "Invalid discount code"}
	}
	if basis.LessThan(dc.MinOrderAmount) {
		return nil, &discount.ValidationError{Kind: discount.KindBelowMinimum, Reason: "Minimum order amount of 20.00 required"}
	}
	return dc, nil
}

type testServer struct {
	router    *gin.Engine
	cart      *service.CartService
	validator *stubValidator
}

func newTestServer(readiness map[string]ReadinessCheck) *testServer {
	gin.SetMode(gin.TestMode)

	v := &stubValidator{codes: map[string]*models.DiscountCode{
		"WELCOME10": {
			Code:           "WELCOME10",
			DiscountType:   models.DiscountTypePercentage,
			DiscountValue:  decimal.NewFromInt(10),
			MinOrderAmount: decimal.NewFromInt(20),
			IsActive:       true,
		},
	}}
	adapter := persistence.NewAdapter(persistence.NewMemoryKV())
	cartService := service.NewCartService(adapter, v, nil, nil, service.Config{})

	router := gin.New()
	NewHandler(cartService, readiness).SetupRoutes(router)
	return &testServer{router: router, cart: cartService, validator: v}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func cartPath(suffix string) string {
	return "/api/v1/carts/" + session + suffix
}

func (s *testServer) seed(t *testing.T) {
	w, _ := s.do(t, http.MethodPost, cartPath("/items"), gin.H{
		"productSlug": "a", "quantity": 2, "originalPrice": "10",
	})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodPost, cartPath("/items"), gin.H{
		"productSlug": "b", "quantity": 1, "originalPrice": "15",
	})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_Health(t *testing.T) {
	s := newTestServer(nil)

	w, body := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestHandler_Readiness(t *testing.T) {
	ok := newTestServer(map[string]ReadinessCheck{
		"redis": func(context.Context) error { return nil },
	})
	w, _ := ok.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	down := newTestServer(map[string]ReadinessCheck{
		"postgres": func(context.Context) error { return errors.New("connection refused") },
	})
	w, body := down.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unavailable", body["status"])
}

func TestHandler_CreateCart(t *testing.T) {
	s := newTestServer(nil)

	w, body := s.do(t, http.MethodPost, "/api/v1/carts", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, body["sessionId"])
	assert.Equal(t, "0.00", body["total"])
}

func TestHandler_UnknownSessionFormat(t *testing.T) {
	s := newTestServer(nil)

	w, _ := s.do(t, http.MethodGet, "/api/v1/carts/not-a-session", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_AddItem(t *testing.T) {
	s := newTestServer(nil)

	w, body := s.do(t, http.MethodPost, cartPath("/items"), gin.H{
		"productSlug":      "tea",
		"productTitle":     "Green Tea",
		"quantity":         2,
		"originalPrice":    "12.00",
		"salePrice":        "9.99",
		"selectedVariants": gin.H{"size": "50g"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "24.00", body["subtotal"])
	assert.Equal(t, "19.98", body["total"])
	assert.Equal(t, true, body["isOpen"])

	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "tea-size:50g", first["id"])
	assert.Equal(t, "9.99", first["price"])
}

func TestHandler_AddItemNonInteractive(t *testing.T) {
	s := newTestServer(nil)

	w, body := s.do(t, http.MethodPost, cartPath("/items"), gin.H{
		"productSlug": "tea", "quantity": 1, "originalPrice": "4", "interactive": false,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["isOpen"])
}

func TestHandler_AddItemBadBody(t *testing.T) {
	s := newTestServer(nil)

	w, _ := s.do(t, http.MethodPost, cartPath("/items"), gin.H{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPost, cartPath("/items"), gin.H{"productSlug": "a", "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_UpdateAndRemoveItem(t *testing.T) {
	s := newTestServer(nil)
	s.seed(t)

	w, body := s.do(t, http.MethodPatch, cartPath("/items/a"), gin.H{"quantity": 4})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(5), body["totalItems"])

	w, body = s.do(t, http.MethodPatch, cartPath("/items/a"), gin.H{"quantity": 0})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["totalItems"])

	w, _ = s.do(t, http.MethodPatch, cartPath("/items/b"), gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = s.do(t, http.MethodDelete, cartPath("/items/b"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["items"])
}

func TestHandler_ReplaceItem(t *testing.T) {
	s := newTestServer(nil)
	s.seed(t)

	w, body := s.do(t, http.MethodPut, cartPath("/items/a"), gin.H{
		"productSlug": "a-gift", "quantity": 1, "originalPrice": "30", "isUpgrade": true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	items := body["items"].([]interface{})
	first := items[0].(map[string]interface{})
	assert.Equal(t, "a-gift", first["id"])
	assert.Equal(t, true, first["isUpgrade"])
	assert.Equal(t, "45.00", body["total"])
}

func TestHandler_ApplyDiscount(t *testing.T) {
	s := newTestServer(nil)
	s.seed(t)

	w, body := s.do(t, http.MethodPost, cartPath("/discount"), gin.H{"code": "WELCOME10"})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "31.50", body["total"])
	assert.Equal(t, "3.50", body["discountAmount"])
	assert.Equal(t, "WELCOME10", body["discountCode"])
	discountView := body["discount"].(map[string]interface{})
	assert.Equal(t, "percentage", discountView["discountType"])
}

func TestHandler_ApplyDiscountRejected(t *testing.T) {
	s := newTestServer(nil)
	s.seed(t)

	w, body := s.do(t, http.MethodPost, cartPath("/discount"), gin.H{"code": "NOPE"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "Invalid discount code", body["error"])
	assert.Equal(t, discount.KindNotFound, body["reason"])

	w, _ = s.do(t, http.MethodPost, cartPath("/discount"), gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ApplyDiscountStale(t *testing.T) {
	s := newTestServer(nil)
	s.seed(t)

	s.validator.hook = func() {
		_, _ = s.cart.RemoveItem(context.Background(), session, "b")
	}

	w, _ := s.do(t, http.MethodPost, cartPath("/discount"), gin.H{"code": "WELCOME10"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandler_RemoveAndRecalculateDiscount(t *testing.T) {
	s := newTestServer(nil)
	s.seed(t)

	w, _ := s.do(t, http.MethodPost, cartPath("/discount"), gin.H{"code": "WELCOME10"})
	require.Equal(t, http.StatusOK, w.Code)

	w, body := s.do(t, http.MethodPost, cartPath("/discount/recalculate"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "31.50", body["total"])

	w, body = s.do(t, http.MethodDelete, cartPath("/discount"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "35.00", body["total"])
	assert.Nil(t, body["discount"])
}

func TestHandler_OpenCloseAndClear(t *testing.T) {
	s := newTestServer(nil)
	s.seed(t)

	w, body := s.do(t, http.MethodPost, cartPath("/close"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["isOpen"])

	w, body = s.do(t, http.MethodPost, cartPath("/open"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["isOpen"])

	w, body = s.do(t, http.MethodDelete, cartPath(""), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["items"])
	assert.Equal(t, true, body["isOpen"])

	w, body = s.do(t, http.MethodGet, cartPath(""), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0.00", body["total"])
}
