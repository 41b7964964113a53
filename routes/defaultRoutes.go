package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/papeleria-1x1/checkout-api/controllers"
)

func DefaultRoutes(server *gin.Engine, c *controllers.Controller) {
	server.GET("/", c.GetHome)
}
