package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/papeleria-1x1/checkout-api/controllers"
)

func OrderRoutes(server *gin.Engine, c *controllers.Controller) {
	server.POST("/create-checkout-session", c.CreateCheckoutSession)
	server.POST("/stripe/webhook", c.StripeWebhook)
	server.GET("/orders/user/:userId", c.GetOrdersByUserID)
}
