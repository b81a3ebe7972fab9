package api

import (
	"net/http"

	"androidagent/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, s Session, history ResultHistory, hub *StatusHub) {
	router.Use(CORSMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{
			"status":  "ok",
			"message": "Android agent is running",
		}))
	})

	api := router.Group("/api")
	{
		api.GET("/status", func(c *gin.Context) {
			GetStatus(c, s)
		})
		api.POST("/register", func(c *gin.Context) {
			RegisterDevice(c, s)
		})
		api.POST("/connect", func(c *gin.Context) {
			ConnectDevice(c, s)
		})
		api.POST("/disconnect", func(c *gin.Context) {
			DisconnectDevice(c, s)
		})
		api.POST("/commands", func(c *gin.Context) {
			ExecuteCommand(c, s)
		})
		api.GET("/results", func(c *gin.Context) {
			GetResults(c, history)
		})
	}

	router.GET("/ws", func(c *gin.Context) {
		HandleWebSocket(hub, s, c)
	})
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
