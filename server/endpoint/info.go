package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// InfoData holds the service identity reported at /info.
type InfoData struct {
	Service     string `json:"service"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

// Info returns a handler that reports service identity.
func Info(data InfoData) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, data)
	}
}

// RegisterOperational registers the standard /healthz and /info endpoints.
func RegisterOperational(engine *gin.Engine, info InfoData, checker HealthChecker) {
	engine.GET("/healthz", Health(info.Service, checker))
	engine.GET("/info", Info(info))
}
