package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kiwi/internal/config"
	httputil "kiwi/internal/pkg/http"
	"kiwi/internal/pkg/jwt"
	"kiwi/internal/pkg/password"
)

// Handler 认证处理器
// 没有用户体系：调用方拿预共享的 API Key 换短期 JWT，后续请求带 Bearer token
type Handler struct {
	cfg     *config.AuthConfig
	jwtUtil *jwt.JWT
}

// NewHandler 创建认证处理器
func NewHandler(cfg *config.AuthConfig, jwtUtil *jwt.JWT) *Handler {
	return &Handler{
		cfg:     cfg,
		jwtUtil: jwtUtil,
	}
}

// TokenRequest 换取访问令牌请求
type TokenRequest struct {
	APIKey   string `json:"api_key" binding:"required"` // 预共享的 API Key（必填）
	ClientID string `json:"client_id"`                  // 调用方标识（可选，默认 default）
}

// TokenResponseData 令牌响应数据
type TokenResponseData struct {
	AccessToken string `json:"access_token"` // Access Token
	ExpiresIn   int    `json:"expires_in"`   // 过期时间（秒）
	TokenType   string `json:"token_type"`   // Token类型：Bearer
}

// ErrorResponse 错误响应类型别名（使用共用的 http.ErrorResponse）
type ErrorResponse = httputil.ErrorResponse

// Token 用 API Key 换取访问令牌
// @Summary      获取访问令牌
// @Description  校验 API Key，签发用于任务 API 的 Bearer token。
// @Tags         认证
// @Accept       json
// @Produce      json
// @Param        request  body      TokenRequest  true  "令牌请求"
// @Success      200      {object}  map[string]interface{}  "成功响应"
// @Failure      401      {object}  ErrorResponse  "API Key 无效"
// @Router       /api/v1/auth/token [post]
func (h *Handler) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	if !password.Verify(req.APIKey, h.cfg.APIKeyHash) {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Code:    40101,
			Message: "invalid API key",
		})
		return
	}

	clientID := req.ClientID
	if clientID == "" {
		clientID = "default"
	}

	token, err := h.jwtUtil.GenerateToken(clientID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: "generate token failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "ok",
		"data": TokenResponseData{
			AccessToken: token,
			ExpiresIn:   int(h.jwtUtil.GetExpiration().Seconds()),
			TokenType:   "Bearer",
		},
	})
}
