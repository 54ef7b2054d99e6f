// internal/app/router.go
package app

import (
	authHandler "shopfloor-service/internal/handlers/auth"
	eventsHandler "shopfloor-service/internal/handlers/events"
	factoryHandler "shopfloor-service/internal/handlers/factory"
	productionHandler "shopfloor-service/internal/handlers/production"
	scanHandler "shopfloor-service/internal/handlers/scan"
	"shopfloor-service/internal/middleware"
	"shopfloor-service/internal/obs"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	AuthHandler       *authHandler.AuthHandler
	ScanHandler       *scanHandler.ScanHandler
	FactoryHandler    *factoryHandler.FactoryHandler
	ProductionHandler *productionHandler.ProductionHandler
	EventsHandler     *eventsHandler.EventsHandler
	SessionMiddleware *middleware.SessionMiddleware
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health & Metrics ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})
	r.GET("/metrics", obs.Handler())

	// ==================== Live Streams ====================
	r.GET("/ws", h.SessionMiddleware.RequireAuth(), h.EventsHandler.StreamWS)
	api.GET("/events", h.SessionMiddleware.RequireAuth(), h.EventsHandler.StreamSSE)

	// ==================== Public Auth Routes ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/login", h.AuthHandler.Login)
	}

	// ==================== Authenticated Auth Routes ====================
	authProtected := api.Group("/auth")
	authProtected.Use(h.SessionMiddleware.RequireAuth())
	{
		authProtected.POST("/logout", h.AuthHandler.Logout)
		authProtected.POST("/logout-all", h.AuthHandler.LogoutAll)
		authProtected.GET("/me", h.AuthHandler.Me)
	}

	// ==================== Scan-to-Assign ====================
	scan := api.Group("/scan")
	scan.Use(h.SessionMiddleware.RequireAuth())
	{
		scan.POST("", h.ScanHandler.Resolve)
	}

	// ==================== Employees ====================
	employees := api.Group("/employees")
	employees.Use(h.SessionMiddleware.RequireAuth())
	{
		employees.GET("", h.FactoryHandler.ListEmployees)
		employees.GET("/:id/qr", h.FactoryHandler.EmployeeQR)
		employees.POST("", h.SessionMiddleware.RequireRole("admin", "engineer"), h.FactoryHandler.CreateEmployee)
	}

	// ==================== Lines ====================
	lines := api.Group("/lines")
	lines.Use(h.SessionMiddleware.RequireAuth())
	{
		lines.GET("", h.FactoryHandler.ListLines)
		lines.GET("/:line_id/processes", h.FactoryHandler.ListProcessesByLine)
		lines.GET("/:line_id/assignments", h.ScanHandler.ListByLine)
		lines.POST("", h.SessionMiddleware.RequireRole("admin", "engineer"), h.FactoryHandler.CreateLine)
	}

	// ==================== Processes ====================
	processes := api.Group("/processes")
	processes.Use(h.SessionMiddleware.RequireAuth())
	{
		processes.GET("/:id/qr", h.FactoryHandler.ProcessQR)
		processes.POST("", h.SessionMiddleware.RequireRole("admin", "engineer"), h.FactoryHandler.CreateProcess)
	}

	// ==================== Operations ====================
	operations := api.Group("/operations")
	operations.Use(h.SessionMiddleware.RequireAuth())
	{
		operations.GET("", h.FactoryHandler.ListOperations)
		operations.POST("", h.SessionMiddleware.RequireRole("admin", "engineer"), h.FactoryHandler.CreateOperation)
	}

	// ==================== Production ====================
	production := api.Group("/production")
	production.Use(h.SessionMiddleware.RequireAuth())
	{
		production.GET("/summary", h.ProductionHandler.DailySummary)
		production.POST("/output", h.SessionMiddleware.RequireRole("admin", "engineer", "supervisor"), h.ProductionHandler.RecordOutput)
		production.POST("/attendance", h.SessionMiddleware.RequireRole("admin", "engineer", "supervisor"), h.ProductionHandler.RecordAttendance)
	}
}
