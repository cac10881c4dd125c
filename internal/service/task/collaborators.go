package task

import (
	"context"
	"time"

	"kiwi/internal/pkg/asr"
	"kiwi/internal/pkg/scripttools"
	"kiwi/internal/pkg/subtitle"
	"kiwi/internal/pkg/tts"
)

// 管线的协作方接口
// 编排器只依赖接口，便于单独替换实现和注入测试桩

// ScriptGenerator 脚本生成
type ScriptGenerator interface {
	Generate(ctx context.Context, topic, language string, sceneCount int) (*scripttools.StructuredScript, error)
}

// SpeechSynthesizer 旁白语音合成
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice string, rate, volume float64) (*tts.SpeechResult, error)
}

// Transcriber 语音识别（字幕兜底）
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]asr.Segment, error)
}

// SubtitleEngine 字幕生成与校正
type SubtitleEngine interface {
	GenerateFromTimestamps(text string, timestamps []tts.CharTimestamp, outPath string) error
	GenerateFromSegments(segments []asr.Segment, outPath string) error
	Correct(path string, script string) error
	Parse(path string) ([]subtitle.Line, error)
}

// MaterialService 视频素材获取
type MaterialService interface {
	Download(ctx context.Context, taskDir string, terms []string, source string,
		width, height int, totalDuration, maxClipDuration float64) ([]string, error)
	PreprocessLocal(ctx context.Context, taskDir string, paths []string,
		clipDuration float64, width, height, fps int) ([]string, error)
}

// CombineRequest 合成请求：把素材片段拼成一条带旁白的视频
type CombineRequest struct {
	TaskDir         string   // 任务工作目录
	Index           int      // 输出序号（1 起）
	Clips           []string // 素材片段路径
	AudioFile       string   // 旁白音频路径
	AudioDuration   float64  // 旁白时长（秒）
	Width           int      // 输出宽度
	Height          int      // 输出高度
	ConcatMode      string   // random / sequential
	TransitionMode  string   // none / fade_in / fade_out
	MaxClipDuration float64  // 单片段最大时长（秒）
}

// RenderRequest 渲染请求：合成视频 + 字幕 → 最终成片
type RenderRequest struct {
	TaskDir      string // 任务工作目录
	Index        int    // 输出序号（1 起）
	CombinedPath string // 合成视频路径
	AudioFile    string // 旁白音频路径
	SubtitlePath string // 字幕文件路径（可为空）
}

// VideoRenderer 视频合成与渲染
type VideoRenderer interface {
	Combine(ctx context.Context, req *CombineRequest) (string, error)
	Render(ctx context.Context, req *RenderRequest) (string, error)
}

// ArtifactPublisher 成片发布：上传到产物存储并返回访问URL
type ArtifactPublisher interface {
	Publish(ctx context.Context, taskID string, paths []string) ([]string, error)
}

// TaskCache 任务状态热镜像
type TaskCache interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Get(ctx context.Context, key string, dest any) error
}
