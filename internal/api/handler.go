package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/redisclient"
	"checkout-service/internal/service"
	"checkout-service/internal/store"
	"checkout-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

const idempotencyTTL = 24 * time.Hour

// Handler contains HTTP handlers
type Handler struct {
	checkout *service.Orchestrator
	registry *service.Registry
	redis    *redisclient.Client
	ledger   *store.Store
}

// NewHandler creates a new HTTP handler. redis and ledger may be nil; the
// idempotency and history endpoints degrade accordingly.
func NewHandler(checkout *service.Orchestrator, registry *service.Registry, redis *redisclient.Client, ledger *store.Store) *Handler {
	return &Handler{
		checkout: checkout,
		registry: registry,
		redis:    redis,
		ledger:   ledger,
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
		v1.POST("/checkout", h.startCheckout)
		v1.GET("/checkout/:id", h.getCheckout)
		v1.POST("/checkout/:id/payment-method", h.provisionAndPay)
		v1.POST("/checkout/:id/items/:itemID/retry-booking", h.retryBooking)
		v1.POST("/checkout/:id/items/:itemID/retry-payment", h.retryPayment)
		v1.DELETE("/checkout/:id", h.abandonCheckout)
		v1.GET("/checkout/:id/history", h.getHistory)
		v1.GET("/renters/:renterID/checkouts", h.getRenterHistory)
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

// CartItemRequest is one cart item in a checkout request
type CartItemRequest struct {
	ID                  string          `json:"id" binding:"required"`
	OwnerID             string          `json:"owner_id" binding:"required"`
	ProductID           string          `json:"product_id" binding:"required"`
	StartDate           string          `json:"start_date" binding:"required"`
	EndDate             string          `json:"end_date" binding:"required"`
	PickupMethod        string          `json:"pickup_method"`
	PickupTime          string          `json:"pickup_time"`
	ReturnTime          string          `json:"return_time"`
	DeliveryAddress     string          `json:"delivery_address"`
	SpecialInstructions string          `json:"special_instructions"`
	TotalAmount         decimal.Decimal `json:"total_amount" binding:"required"`
	Currency            string          `json:"currency" binding:"required"`
}

// StartCheckoutRequest starts a checkout batch
type StartCheckoutRequest struct {
	RenterID string            `json:"renter_id" binding:"required"`
	Items    []CartItemRequest `json:"items" binding:"required,min=1"`
}

// startCheckout admits the cart and kicks off the booking phase in the
// background; the caller polls the snapshot endpoint for progress.
func (h *Handler) startCheckout(c *gin.Context) {
	var req StartCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	idempotencyKey := c.GetHeader("Idempotency-Key")
	if idempotencyKey != "" && h.redis != nil {
		if batchID, ok, err := h.redis.GetIdempotencyKey(c.Request.Context(), idempotencyKey); err == nil && ok {
			if batch, live := h.registry.Get(batchID); live {
				c.JSON(http.StatusOK, batch.Snapshot())
				return
			}
		}
	}

	items := make([]models.CartItem, 0, len(req.Items))
	for _, it := range req.Items {
		start, err := time.Parse(dateLayout, it.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start_date for item " + it.ID})
			return
		}
		end, err := time.Parse(dateLayout, it.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end_date for item " + it.ID})
			return
		}
		pickup := it.PickupMethod
		if pickup == "" {
			pickup = models.PickupMethodSelf
		}
		items = append(items, models.CartItem{
			ID:                  it.ID,
			OwnerID:             it.OwnerID,
			ProductID:           it.ProductID,
			StartDate:           start,
			EndDate:             end,
			PickupMethod:        pickup,
			PickupTime:          it.PickupTime,
			ReturnTime:          it.ReturnTime,
			DeliveryAddress:     it.DeliveryAddress,
			SpecialInstructions: it.SpecialInstructions,
			TotalAmount:         it.TotalAmount,
			Currency:            strings.ToUpper(it.Currency),
		})
	}

	batch, err := h.checkout.Start(c.Request.Context(), req.RenterID, credentialsFrom(c), items)
	if err != nil {
		var multi *models.MultiOwnerError
		if errors.As(err, &multi) {
			c.JSON(http.StatusConflict, gin.H{
				"error":  err.Error(),
				"owners": multi.Groups,
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runCtx, cancel := context.WithCancel(context.Background())
	h.registry.Add(batch, runCtx, cancel)

	if idempotencyKey != "" && h.redis != nil {
		_, _ = h.redis.SetIdempotencyKey(c.Request.Context(), idempotencyKey, batch.ID(), idempotencyTTL)
	}

	go func() {
		_ = h.checkout.RunBookingPhase(runCtx, batch)
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"batch_id": batch.ID(),
		"status":   batch.Status(),
	})
}

// getCheckout returns a read-only snapshot of the batch ledger.
func (h *Handler) getCheckout(c *gin.Context) {
	batch, ok := h.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
		return
	}
	c.JSON(http.StatusOK, batch.Snapshot())
}

// provisionAndPay registers the batch payment method (once) and drives the
// payment phase over every booked, still-pending item. Re-invoking it after a
// provisioning or charge failure is the caller's retry path.
func (h *Handler) provisionAndPay(c *gin.Context) {
	batch, ok := h.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
		return
	}

	var spec models.PaymentMethodSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if batch.Summary().Booked == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "No booked items to pay for"})
		return
	}

	method, err := h.checkout.ProvisionMethod(c.Request.Context(), batch, spec)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, models.ErrInvalidProvider) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	runCtx, ok := h.registry.RunContext(batch.ID())
	if !ok {
		runCtx = context.Background()
	}
	go func() {
		_ = h.checkout.RunPaymentPhase(runCtx, batch)
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"batch_id":       batch.ID(),
		"payment_method": method,
		"status":         batch.Status(),
	})
}

// retryBooking re-drives the booking step for one failed item.
func (h *Handler) retryBooking(c *gin.Context) {
	batch, ok := h.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
		return
	}

	if err := h.checkout.RetryBooking(c.Request.Context(), batch, c.Param("itemID")); err != nil {
		c.JSON(retryStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, batch.Snapshot())
}

// retryPayment re-drives the charge step for one failed item.
func (h *Handler) retryPayment(c *gin.Context) {
	batch, ok := h.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
		return
	}

	if err := h.checkout.RetryPayment(c.Request.Context(), batch, c.Param("itemID")); err != nil {
		c.JSON(retryStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, batch.Snapshot())
}

// abandonCheckout cancels the batch run between steps and forgets the batch.
func (h *Handler) abandonCheckout(c *gin.Context) {
	if !h.registry.Abandon(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// getHistory reads the batch from the audit ledger.
func (h *Handler) getHistory(c *gin.Context) {
	if h.ledger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Ledger not available"})
		return
	}

	batch, items, err := h.ledger.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Batch not found",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"batch": batch,
		"items": items,
	})
}

// getRenterHistory lists a renter's past batches from the audit ledger.
func (h *Handler) getRenterHistory(c *gin.Context) {
	if h.ledger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Ledger not available"})
		return
	}

	batches, err := h.ledger.GetBatchesByRenterID(c.Request.Context(), c.Param("renterID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load checkout history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"renter_id": c.Param("renterID"),
		"batches":   batches,
	})
}

func retryStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrUnknownItem):
		return http.StatusNotFound
	case errors.Is(err, models.ErrIllegalTransition), errors.Is(err, models.ErrMethodRequired):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// credentialsFrom lifts the caller's bearer token into explicit credentials;
// collaborator calls never read auth from ambient state.
func credentialsFrom(c *gin.Context) models.Credentials {
	token := c.GetHeader("Authorization")
	token = strings.TrimPrefix(token, "Bearer ")
	return models.Credentials{Token: token}
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
