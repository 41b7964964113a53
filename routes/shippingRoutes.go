package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/papeleria-1x1/checkout-api/controllers"
)

func ShippingRoutes(server *gin.Engine, c *controllers.Controller) {
	server.POST("/calculate-shipping", c.CalculateShipping)
}
