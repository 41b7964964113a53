package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/papeleria-1x1/checkout-api/models"
	"github.com/papeleria-1x1/checkout-api/payments"
	"github.com/papeleria-1x1/checkout-api/services"
)

// Errors the storefront can fix by changing the request.
var badRequestErrors = []error{
	services.ErrMissingOrderID,
	services.ErrNoItems,
	services.ErrInvalidItemPrice,
	services.ErrInvalidPaymentMethod,
	services.ErrInvalidDeliveryMethod,
	services.ErrMissingShippingAddress,
}

func (c *Controller) CreateCheckoutSession(ctx *gin.Context) {
	var req models.CheckoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondWithError(ctx, http.StatusBadRequest, msgInvalidRequestBody, err)
		return
	}

	res, err := c.sc.Orders.CreateCheckoutSession(ctx.Request.Context(), req)
	if err != nil {
		c.checkoutError(ctx, req.OrderID, err)
		return
	}

	if res.Cash {
		sendJSONResponse(ctx, http.StatusOK, gin.H{
			"success": true,
			"message": res.Message,
		})
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{
		"id":  res.SessionID,
		"url": res.URL,
	})
}

func (c *Controller) checkoutError(ctx *gin.Context, orderID string, err error) {
	if errors.Is(err, services.ErrCardPaymentsUnavailable) {
		sendJSONResponse(ctx, http.StatusBadRequest, gin.H{
			"message":  err.Error(),
			"error":    err.Error(),
			"cashOnly": true,
		})
		return
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			respondWithError(ctx, http.StatusBadRequest, err.Error(), err)
			return
		}
	}

	c.sc.Log.Error("checkout session failed", zap.String("orderId", orderID), zap.Error(err))
	respondWithError(ctx, http.StatusInternalServerError, msgCheckoutFailed, err)
}

// StripeWebhook must see the body exactly as sent; the signature covers
// the raw bytes.
func (c *Controller) StripeWebhook(ctx *gin.Context) {
	payload, err := ctx.GetRawData()
	if err != nil {
		respondWithError(ctx, http.StatusBadRequest, msgWebhookError, err)
		return
	}

	err = c.sc.Orders.ConfirmPayment(ctx.Request.Context(), payload, ctx.GetHeader("Stripe-Signature"))
	switch {
	case errors.Is(err, payments.ErrDisabled):
		sendErrorResponse(ctx, http.StatusServiceUnavailable, msgWebhookDisabled)
		return
	case err != nil:
		c.sc.Log.Warn("webhook rejected", zap.Error(err))
		respondWithError(ctx, http.StatusBadRequest, msgWebhookError, err)
		return
	}

	sendJSONResponse(ctx, http.StatusOK, gin.H{"received": true})
}

func (c *Controller) GetOrdersByUserID(ctx *gin.Context) {
	userID := strings.TrimSpace(ctx.Param("userId"))
	if userID == "" {
		sendErrorResponse(ctx, http.StatusBadRequest, "userId is required")
		return
	}

	orders, err := c.sc.Orders.ListUserOrders(ctx.Request.Context(), userID)
	if err != nil {
		c.sc.Log.Error("list user orders", zap.String("userId", userID), zap.Error(err))
		sendErrorResponse(ctx, http.StatusInternalServerError, msgFailedToFetch)
		return
	}

	records := make([]map[string]any, 0, len(orders))
	for _, o := range orders {
		records = append(records, o.Record())
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{
		"orders": records,
	})
}
