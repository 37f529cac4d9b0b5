package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/service"
	"checkout-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	cartService  *service.CartService
	addressGate  *service.AddressGate
	orchestrator *service.Orchestrator
	orderService *service.OrderService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	cartService *service.CartService,
	addressGate *service.AddressGate,
	orchestrator *service.Orchestrator,
	orderService *service.OrderService,
) *Handler {
	return &Handler{
		cartService:  cartService,
		addressGate:  addressGate,
		orchestrator: orchestrator,
		orderService: orderService,
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
	v1.Use(requireSession())
	{
		v1.GET("/cart", h.getCart)
		v1.POST("/cart/items", h.addItem)
		v1.PUT("/cart/items", h.updateQuantity)
		v1.DELETE("/cart/items/:type/:id", h.removeItem)
		v1.DELETE("/cart", h.clearCart)
		v1.POST("/cart/vendor-switch/confirm", h.confirmVendorSwitch)
		v1.POST("/cart/vendor-switch/cancel", h.cancelVendorSwitch)

		v1.PUT("/address", h.setAddress)
		v1.GET("/address", h.getAddress)

		v1.POST("/checkout", h.submitCheckout)
		v1.GET("/checkout", h.checkoutState)
		v1.POST("/checkout/abandon", h.abandonCheckout)
		v1.POST("/checkout/dismiss", h.dismissCheckout)

		v1.GET("/orders/:id", h.getOrder)
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func sessionID(c *gin.Context) string {
	return c.GetString("session_id")
}

func (h *Handler) cartResponse(c *gin.Context, status int, cart *models.Cart) {
	totals := h.cartService.Totals(cart)
	c.JSON(status, gin.H{
		"cart":   cart,
		"totals": totals,
	})
}

func (h *Handler) getCart(c *gin.Context) {
	cart, err := h.cartService.Get(c.Request.Context(), sessionID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart"})
		return
	}
	h.cartResponse(c, http.StatusOK, cart)
}

type addItemRequest struct {
	Item   models.CartItem   `json:"item" binding:"required"`
	Vendor models.VendorInfo `json:"vendor"`
}

func (h *Handler) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	cart, err := h.cartService.AddItem(c.Request.Context(), sessionID(c), req.Item, req.Vendor)
	switch {
	case errors.Is(err, models.ErrVendorConflict):
		// 409 carries the pending switch; the client must confirm or cancel
		totals := h.cartService.Totals(cart)
		c.JSON(http.StatusConflict, gin.H{
			"error":       "Cart belongs to a different vendor",
			"pending_add": cart.PendingAdd,
			"cart":        cart,
			"totals":      totals,
		})
	case errors.Is(err, models.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must be at least 1", "field": "quantity"})
	case errors.Is(err, models.ErrMissingVendor):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Item is missing a vendor", "field": "item.vendor_id"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add item"})
	default:
		h.cartResponse(c, http.StatusOK, cart)
	}
}

type updateQuantityRequest struct {
	ItemID   string          `json:"item_id" binding:"required"`
	ItemType models.ItemType `json:"item_type" binding:"required"`
	Quantity int             `json:"quantity"`
}

func (h *Handler) updateQuantity(c *gin.Context) {
	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	cart, err := h.cartService.UpdateQuantity(c.Request.Context(), sessionID(c), req.ItemID, req.ItemType, req.Quantity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update quantity"})
		return
	}
	h.cartResponse(c, http.StatusOK, cart)
}

func (h *Handler) removeItem(c *gin.Context) {
	itemType := models.ItemType(c.Param("type"))
	if itemType != models.ItemTypeProduct && itemType != models.ItemTypePack {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item type"})
		return
	}

	cart, err := h.cartService.RemoveItem(c.Request.Context(), sessionID(c), c.Param("id"), itemType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove item"})
		return
	}
	h.cartResponse(c, http.StatusOK, cart)
}

func (h *Handler) clearCart(c *gin.Context) {
	if err := h.cartService.Clear(c.Request.Context(), sessionID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) confirmVendorSwitch(c *gin.Context) {
	cart, err := h.cartService.ConfirmVendorSwitch(c.Request.Context(), sessionID(c))
	switch {
	case errors.Is(err, models.ErrNoPendingSwitch):
		c.JSON(http.StatusConflict, gin.H{"error": "No vendor switch is pending"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to switch vendor"})
	default:
		h.cartResponse(c, http.StatusOK, cart)
	}
}

func (h *Handler) cancelVendorSwitch(c *gin.Context) {
	cart, err := h.cartService.CancelVendorSwitch(c.Request.Context(), sessionID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel vendor switch"})
		return
	}
	h.cartResponse(c, http.StatusOK, cart)
}

func (h *Handler) setAddress(c *gin.Context) {
	var candidate models.DeliveryAddress
	if err := c.ShouldBindJSON(&candidate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	addr, err := h.addressGate.SetAddress(c.Request.Context(), sessionID(c), candidate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set address"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr})
}

func (h *Handler) getAddress(c *gin.Context) {
	addr, err := h.addressGate.GetAddress(c.Request.Context(), sessionID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load address"})
		return
	}
	if addr == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No address set"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr})
}

func (h *Handler) submitCheckout(c *gin.Context) {
	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	state, err := h.orchestrator.Submit(c.Request.Context(), sessionID(c), req)

	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": vErr.Message,
			"field": vErr.Field,
			"state": state,
		})
	case errors.Is(err, service.ErrCheckoutInFlight):
		c.JSON(http.StatusConflict, gin.H{
			"error": "A checkout is already in progress",
			"state": state,
		})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Checkout failed", "state": state})
	default:
		c.JSON(http.StatusOK, gin.H{"state": state})
	}
}

func (h *Handler) checkoutState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": h.orchestrator.State(sessionID(c))})
}

func (h *Handler) abandonCheckout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": h.orchestrator.Abandon(sessionID(c))})
}

func (h *Handler) dismissCheckout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": h.orchestrator.Dismiss(sessionID(c))})
}

func (h *Handler) getOrder(c *gin.Context) {
	idStr := c.Param("id")
	orderID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	order, items, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order, "items": items})
}

// requireSession resolves the caller's session from the X-Session-ID header
func requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := c.GetHeader("X-Session-ID")
		if sid == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing X-Session-ID header"})
			return
		}
		c.Set("session_id", sid)
		c.Next()
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
