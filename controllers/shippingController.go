package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/papeleria-1x1/checkout-api/models"
)

// CalculateShipping always answers 200; no options means the storefront
// should offer store pickup only.
func (c *Controller) CalculateShipping(ctx *gin.Context) {
	var req models.ShippingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.sc.Log.Debug("unreadable shipping request", zap.Error(err))
		sendJSONResponse(ctx, http.StatusOK, gin.H{"options": []models.ShippingOption{}})
		return
	}

	options := c.sc.Shipping.Quote(ctx.Request.Context(), req.Total.Float(), strings.TrimSpace(req.ZipCode))
	sendJSONResponse(ctx, http.StatusOK, gin.H{"options": options})
}
