package routes

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/synard1/ximopet-sub010/internal/core/container"
	"github.com/synard1/ximopet-sub010/internal/middleware"
	"github.com/synard1/ximopet-sub010/pkg/security"
)

// RegisterProtectedRoutes mounts every ledger operation behind the JWT
// middleware. The actor claim from the token becomes created_by on each
// written record.
func RegisterProtectedRoutes(router *gin.Engine, container *container.Container) {
	protectedRoutes := router.Group("")
	protectedRoutes.Use(security.JWTMiddleware())

	container.CommodityHandler.RegisterRoutes(protectedRoutes)
	container.UnitHandler.RegisterRoutes(protectedRoutes)
	container.PurchaseHandler.RegisterRoutes(protectedRoutes)
	container.UsageHandler.RegisterRoutes(protectedRoutes)
	container.MutationHandler.RegisterRoutes(protectedRoutes)
	container.LotHandler.RegisterRoutes(protectedRoutes)
	container.LedgerHandler.RegisterRoutes(protectedRoutes)
}

func RegisterUtilityRoutes(router *gin.Engine) {
	router.GET("/health", middleware.HealthCheckMiddleware())

	openapiFilePath := "./docs/index.html"
	if _, err := os.Stat(openapiFilePath); err == nil {
		router.GET("/openapi.html", func(c *gin.Context) {
			c.File(openapiFilePath)
		})
		log.Println("Route docs/index.html registered successfully.")
	} else {
		log.Printf("Warning: %s not found. Route /openapi.html will not be registered.\n", openapiFilePath)
	}
}
