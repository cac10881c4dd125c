package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger 就绪检查依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	pingers []Pinger
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(pingers ...Pinger) *HealthHandler {
	return &HealthHandler{pingers: pingers}
}

// Health 健康检查
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready 就绪检查：依赖的存储全部可达才算就绪
func (h *HealthHandler) Ready(c *gin.Context) {
	for _, p := range h.pingers {
		if err := p.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}
