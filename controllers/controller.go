package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/papeleria-1x1/checkout-api/initializers"
)

const (
	msgServerActive       = "Servidor 1x1 y más - Activo"
	msgInvalidRequestBody = "Invalid request body"
	msgCheckoutFailed     = "Error creando sesión de pago"
	msgWebhookError       = "Webhook Error"
	msgWebhookDisabled    = "Webhooks are not configured"
	msgFailedToFetch      = "Failed to fetch orders."
)

// Controller serves the HTTP endpoints from a shared ServiceContext.
type Controller struct {
	sc *initializers.ServiceContext
}

func New(sc *initializers.ServiceContext) *Controller {
	return &Controller{sc: sc}
}

func sendJSONResponse(ctx *gin.Context, status int, data gin.H) {
	ctx.JSON(status, data)
}

func sendErrorResponse(ctx *gin.Context, status int, message string) {
	sendJSONResponse(ctx, status, gin.H{"message": message})
}

func respondWithError(ctx *gin.Context, statusCode int, message string, err error) {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
		_ = ctx.Error(err)
	}
	sendJSONResponse(ctx, statusCode, gin.H{
		"message": message,
		"error":   errMsg,
	})
}
