package billing

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripebridge/server/internal/shared/response"
)

// Handler exposes the outbound gateway operations over HTTP.
type Handler struct {
	gateway *Gateway
}

// NewHandler creates a new billing handler.
func NewHandler(gateway *Gateway) *Handler {
	return &Handler{gateway: gateway}
}

// RegisterRoutes registers the billing routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	customers := r.Group("/customers")
	{
		customers.POST("", h.CreateCustomer)
		customers.GET("/:id", h.GetCustomer)
		customers.DELETE("/:id", h.DeleteCustomer)
	}

	r.POST("/payment-intents", h.CreatePaymentIntent)

	subscriptions := r.Group("/subscriptions")
	{
		subscriptions.POST("", h.CreateSubscription)
		subscriptions.GET("/:id", h.GetSubscription)
		subscriptions.DELETE("/:id", h.CancelSubscription)
	}

	invoices := r.Group("/invoices")
	{
		invoices.POST("", h.CreateInvoice)
		invoices.GET("/:id", h.GetInvoice)
	}
}

// CreateCustomer creates a Stripe customer.
func (h *Handler) CreateCustomer(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	cust, err := h.gateway.CreateCustomer(c.Request.Context(), req.Email, req.Name, req.Description)
	if err != nil {
		handleGatewayError(c, err)
		return
	}

	c.JSON(http.StatusCreated, cust)
}

// GetCustomer retrieves a Stripe customer.
func (h *Handler) GetCustomer(c *gin.Context) {
	cust, err := h.gateway.RetrieveCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleGatewayError(c, err)
		return
	}

	c.JSON(http.StatusOK, cust)
}

// DeleteCustomer deletes a Stripe customer.
func (h *Handler) DeleteCustomer(c *gin.Context) {
	cust, err := h.gateway.DeleteCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleGatewayError(c, err)
		return
	}

	c.JSON(http.StatusOK, cust)
}

// CreatePaymentIntent creates a Stripe payment intent.
func (h *Handler) CreatePaymentIntent(c *gin.Context) {
	var req CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	pi, err := h.gateway.CreatePaymentIntent(c.Request.Context(), req.Amount, req.Currency, req.CustomerID, req.Description)
	if err != nil {
		handleGatewayError(c, err)
		return
	}

	c.JSON(http.StatusCreated, pi)
}

// CreateSubscription subscribes a customer to a price.
func (h *Handler) CreateSubscription(c *gin.Context) {
	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	sub, err := h.gateway.CreateSubscription(c.Request.Context(), req.CustomerID, req.PriceID, req.TrialDays)
	if err != nil {
		handleGatewayError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sub)
}

// GetSubscription retrieves a Stripe subscription.
func (h *Handler) GetSubscription(c *gin.Context) {
	sub, err := h.gateway.RetrieveSubscription(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleGatewayError(c, err)
		return
	}

	c.JSON(http.StatusOK, sub)
}

// CancelSubscription cancels a Stripe subscription immediately.
func (h *Handler) CancelSubscription(c *gin.Context) {
	sub, err := h.gateway.CancelSubscription(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleGatewayError(c, err)
		return
	}

	c.JSON(http.StatusOK, sub)
}

// CreateInvoice creates an auto-finalizing Stripe invoice.
func (h *Handler) CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	inv, err := h.gateway.CreateInvoice(c.Request.Context(), req.CustomerID, req.Description)
	if err != nil {
		handleGatewayError(c, err)
		return
	}

	c.JSON(http.StatusCreated, inv)
}

// GetInvoice retrieves a Stripe invoice.
func (h *Handler) GetInvoice(c *gin.Context) {
	inv, err := h.gateway.RetrieveInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleGatewayError(c, err)
		return
	}

	c.JSON(http.StatusOK, inv)
}

// handleGatewayError maps a classified gateway error to an HTTP status.
func handleGatewayError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "resource not found")
	case errors.Is(err, ErrGatewayUnavailable):
		response.BadGateway(c, "payment gateway unavailable")
	default:
		response.ErrorWithCode(c, http.StatusUnprocessableEntity, "STRIPE_ERROR", err.Error())
	}
}
