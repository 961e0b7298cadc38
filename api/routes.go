package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"devicebridge/engine"
	"devicebridge/models"
	"devicebridge/requirements"
)

// SetupRoutes mounts every HTTP/WebSocket route the engine exposes,
// kept in the teacher's Gin route shape and extended with the
// streaming/action/requirements routes a complete engine needs that the
// teacher's distilled api/routes.go dropped.
func SetupRoutes(router *gin.Engine, eng *engine.Engine, checker *requirements.Checker, wsHub *WebSocketHub) {
	router.Use(CORSMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"status": "ok"}))
	})

	apiGroup := router.Group("/api")
	{
		devices := apiGroup.Group("/devices")
		{
			devices.GET("", func(c *gin.Context) { GetDevices(c, eng) })
			devices.POST("/scan", func(c *gin.Context) { ScanDevices(c, eng) })
			devices.GET("/:id/requirements", func(c *gin.Context) { GetDeviceRequirements(c, checker) })
		}

		actions := apiGroup.Group("/actions")
		{
			actions.POST("", func(c *gin.Context) { DispatchAction(c, eng) })
			actions.POST("/batch", func(c *gin.Context) { DispatchBatch(c, eng) })
		}

		streaming := apiGroup.Group("/streaming")
		{
			streaming.POST("/:id/start", func(c *gin.Context) { StartStreaming(c, eng) })
			streaming.POST("/:id/stop", func(c *gin.Context) { StopStreaming(c, eng) })
		}

		logcat := apiGroup.Group("/logcat")
		{
			logcat.POST("/:id/start", func(c *gin.Context) { StartLogcat(c, eng) })
			logcat.POST("/:id/stop", func(c *gin.Context) { StopLogcat(c, eng) })
		}
	}

	router.GET("/ws", func(c *gin.Context) {
		HandleWebSocket(wsHub, eng, c)
	})
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
