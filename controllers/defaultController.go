package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (c *Controller) GetHome(ctx *gin.Context) {
	cardPayments := c.sc.Payments.Enabled()
	sendJSONResponse(ctx, http.StatusOK, gin.H{
		"message":       msgServerActive,
		"stripeEnabled": cardPayments,
		"capabilities": gin.H{
			"cardPayments":   cardPayments,
			"cashPayments":   true,
			"shippingQuotes": c.sc.Shipping.Enabled(),
		},
	})
}
