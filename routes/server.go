package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/papeleria-1x1/checkout-api/controllers"
	"github.com/papeleria-1x1/checkout-api/initializers"
	"github.com/papeleria-1x1/checkout-api/middlewares"
)

// NewServer builds the engine with middleware and every route group.
func NewServer(sc *initializers.ServiceContext) *gin.Engine {
	server := gin.New()
	server.Use(gin.Recovery())
	server.Use(middlewares.RequestLogger(sc.Log.Named("http")))
	server.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature", middlewares.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middlewares.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	c := controllers.New(sc)
	DefaultRoutes(server, c)
	OrderRoutes(server, c)
	ShippingRoutes(server, c)
	return server
}
