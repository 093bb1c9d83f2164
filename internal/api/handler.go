package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"cart-service/internal/discount"
	"cart-service/internal/models"
	"cart-service/internal/service"
	"cart-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ReadinessCheck reports whether a dependency is reachable
type ReadinessCheck func(ctx context.Context) error

// Handler contains HTTP handlers
type Handler struct {
	cartService *service.CartService
	readiness   map[string]ReadinessCheck
	logger      *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(cartService *service.CartService, readiness map[string]ReadinessCheck) *Handler {
	return &Handler{
		cartService: cartService,
		readiness:   readiness,
		logger:      util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/carts", h.createCart)
		v1.GET("/carts/:session", h.getCart)
		v1.DELETE("/carts/:session", h.clearCart)
		v1.POST("/carts/:session/open", h.openCart)
		v1.POST("/carts/:session/close", h.closeCart)

		v1.POST("/carts/:session/items", h.addItem)
		v1.PATCH("/carts/:session/items/:itemId", h.updateQuantity)
		v1.PUT("/carts/:session/items/:itemId", h.replaceItem)
		v1.DELETE("/carts/:session/items/:itemId", h.removeItem)

		v1.POST("/carts/:session/discount", h.applyDiscount)
		v1.DELETE("/carts/:session/discount", h.removeDiscount)
		v1.POST("/carts/:session/discount/recalculate", h.recalculateDiscount)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every registered dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.readiness {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unavailable",
			"details": failed,
			"time":    time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) createCart(c *gin.Context) {
	sessionID := service.NewSessionID()
	state, err := h.cartService.GetCart(c.Request.Context(), sessionID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCartView(sessionID, state))
}

func (h *Handler) getCart(c *gin.Context) {
	sessionID := c.Param("session")
	state, err := h.cartService.GetCart(c.Request.Context(), sessionID)
	h.respond(c, sessionID, state, err)
}

func (h *Handler) clearCart(c *gin.Context) {
	sessionID := c.Param("session")
	state, err := h.cartService.ClearCart(c.Request.Context(), sessionID)
	h.respond(c, sessionID, state, err)
}

func (h *Handler) openCart(c *gin.Context) {
	sessionID := c.Param("session")
	state, err := h.cartService.OpenCart(c.Request.Context(), sessionID)
	h.respond(c, sessionID, state, err)
}

func (h *Handler) closeCart(c *gin.Context) {
	sessionID := c.Param("session")
	state, err := h.cartService.CloseCart(c.Request.Context(), sessionID)
	h.respond(c, sessionID, state, err)
}

// addItem adds an item. Items are interactive unless the body says otherwise.
func (h *Handler) addItem(c *gin.Context) {
	sessionID := c.Param("session")

	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	interactive := true
	if req.Interactive != nil {
		interactive = *req.Interactive
	}

	state, err := h.cartService.AddItem(c.Request.Context(), sessionID, req.toItem(), interactive, c.GetHeader("Idempotency-Key"))
	h.respond(c, sessionID, state, err)
}

func (h *Handler) updateQuantity(c *gin.Context) {
	sessionID := c.Param("session")

	var req UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	state, err := h.cartService.UpdateQuantity(c.Request.Context(), sessionID, c.Param("itemId"), *req.Quantity)
	h.respond(c, sessionID, state, err)
}

func (h *Handler) replaceItem(c *gin.Context) {
	sessionID := c.Param("session")

	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	state, err := h.cartService.ReplaceItem(c.Request.Context(), sessionID, c.Param("itemId"), req.toItem())
	h.respond(c, sessionID, state, err)
}

func (h *Handler) removeItem(c *gin.Context) {
	sessionID := c.Param("session")
	state, err := h.cartService.RemoveItem(c.Request.Context(), sessionID, c.Param("itemId"))
	h.respond(c, sessionID, state, err)
}

func (h *Handler) applyDiscount(c *gin.Context) {
	sessionID := c.Param("session")

	var req ApplyDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	state, err := h.cartService.ApplyDiscount(c.Request.Context(), sessionID, req.Code)
	h.respond(c, sessionID, state, err)
}

func (h *Handler) removeDiscount(c *gin.Context) {
	sessionID := c.Param("session")
	state, err := h.cartService.RemoveDiscount(c.Request.Context(), sessionID)
	h.respond(c, sessionID, state, err)
}

func (h *Handler) recalculateDiscount(c *gin.Context) {
	sessionID := c.Param("session")
	state, err := h.cartService.RecalculateDiscount(c.Request.Context(), sessionID)
	h.respond(c, sessionID, state, err)
}

func (h *Handler) respond(c *gin.Context, sessionID string, state models.CartState, err error) {
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartView(sessionID, state))
}

// respondError maps service errors onto HTTP statuses
func (h *Handler) respondError(c *gin.Context, err error) {
	var ve *discount.ValidationError

	switch {
	case errors.Is(err, service.ErrInvalidSession):
		c.JSON(http.StatusNotFound, gin.H{"error": "Cart not found"})
	case errors.Is(err, service.ErrInvalidItem):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cart item"})
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  ve.Reason,
			"reason": ve.Kind,
		})
	case errors.Is(err, service.ErrStaleValidation):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Cart changed while the discount code was being checked, please try again",
		})
	default:
		h.logger.Error("Cart request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal error",
			"details": err.Error(),
		})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
