package task

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kiwi/internal/model/task"
)

// CreateTaskRequest 创建视频任务请求
type CreateTaskRequest struct {
	Subject    string `json:"subject"`     // 视频主题（AI 生成脚本时必填）
	Script     string `json:"script"`      // 手工旁白文本（非空时跳过 AI 生成）
	Language   string `json:"language"`    // 旁白语言（默认 en）
	SceneCount int    `json:"scene_count"` // 场景数（默认 5）

	VoiceName   string  `json:"voice_name"`   // 语音类型
	VoiceRate   float64 `json:"voice_rate"`   // 语速
	VoiceVolume float64 `json:"voice_volume"` // 音量

	SubtitleEnabled *bool `json:"subtitle_enabled"` // 是否生成字幕（默认 true）

	VideoSource         string   `json:"video_source"`          // pexels / pixabay / local
	VideoMaterials      []string `json:"video_materials"`       // 本地素材路径
	VideoAspect         string   `json:"video_aspect"`          // 9:16 / 16:9 / 1:1
	VideoConcatMode     string   `json:"video_concat_mode"`     // random / sequential
	VideoTransitionMode string   `json:"video_transition_mode"` // none / fade_in / fade_out
	VideoClipDuration   int      `json:"video_clip_duration"`   // 单片段最大时长（秒）
	VideoCount          int      `json:"video_count"`           // 输出视频个数

	StopAt string `json:"stop_at"` // 提前停止检查点（script/audio/subtitle/materials/video）
}

// CreateTaskResponseData 创建任务响应数据
type CreateTaskResponseData struct {
	TaskID string `json:"task_id"` // 任务ID
	State  string `json:"state"`   // 任务状态
}

// CreateTask 创建视频生产任务
// @Summary      创建视频任务
// @Description  提交主题或手工脚本，异步执行脚本生成、语音合成、字幕、素材下载与视频渲染，返回任务ID用于轮询进度。
// @Tags         任务管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      CreateTaskRequest  true  "创建任务请求"
// @Success      201      {object}  map[string]interface{}  "成功响应"
// @Failure      400      {object}  ErrorResponse  "请求参数错误"
// @Failure      500      {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/tasks [post]
func (h *Handler) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	subtitleEnabled := true
	if req.SubtitleEnabled != nil {
		subtitleEnabled = *req.SubtitleEnabled
	}

	params := task.VideoParams{
		Subject:           req.Subject,
		Script:            req.Script,
		Language:          req.Language,
		SceneCount:        req.SceneCount,
		VoiceName:         req.VoiceName,
		VoiceRate:         req.VoiceRate,
		VoiceVolume:       req.VoiceVolume,
		SubtitleEnabled:   subtitleEnabled,
		VideoSource:       task.VideoSource(req.VideoSource),
		VideoMaterials:    req.VideoMaterials,
		VideoAspect:       task.VideoAspect(req.VideoAspect),
		VideoConcatMode:   task.ConcatMode(req.VideoConcatMode),
		VideoTransition:   task.TransitionMode(req.VideoTransitionMode),
		VideoClipDuration: req.VideoClipDuration,
		VideoCount:        req.VideoCount,
	}

	ctx := c.Request.Context()

	created, err := h.taskService.CreateTask(ctx, params, task.StopAt(req.StopAt))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40002,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":    0,
		"message": "任务创建成功",
		"data": CreateTaskResponseData{
			TaskID: created.ID,
			State:  string(created.State),
		},
	})
}
