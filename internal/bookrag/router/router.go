// Package router registers the bookrag routes.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/bookrag/internal/bookrag/handler"
)

// Register registers the bookrag routes on engine. metrics may be nil.
func Register(engine *gin.Engine, h *handler.Handler, metrics http.Handler) {
	engine.GET("/", h.Health)
	engine.HEAD("/", h.Status)

	engine.POST("/chat", h.Chat)
	engine.POST("/translate", h.Translate)
	engine.POST("/personalize", h.Personalize)

	if metrics != nil {
		engine.GET("/metrics", gin.WrapH(metrics))
	}

	logger.Info("HTTP routes registered")
}
