package task

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetTask 查询任务状态与结果
// @Summary      查询任务
// @Description  按任务ID查询状态、进度和已产出的工件（脚本、音频、字幕、素材、成片）。
// @Tags         任务管理
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "任务ID"
// @Success      200  {object}  map[string]interface{}  "成功响应"
// @Failure      404  {object}  ErrorResponse  "任务不存在"
// @Router       /api/v1/tasks/{id} [get]
func (h *Handler) GetTask(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "task id is required",
		})
		return
	}

	ctx := c.Request.Context()

	t, err := h.taskService.GetTask(ctx, id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    40401,
			Message: "task not found",
			Detail:  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "ok",
		"data":    t,
	})
}
