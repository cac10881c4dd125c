package task

import "errors"

// StopAt 提前停止的检查点
// 在某个阶段结束后不再执行后续阶段，任务以 COMPLETE 结束，只返回已产出的工件
type StopAt string

const (
	StopAtScript    StopAt = "script"
	StopAtAudio     StopAt = "audio"
	StopAtSubtitle  StopAt = "subtitle"
	StopAtMaterials StopAt = "materials"
	StopAtVideo     StopAt = "video" // 默认：跑完整条管线
)

// Valid 是否为合法的检查点
func (s StopAt) Valid() bool {
	switch s {
	case StopAtScript, StopAtAudio, StopAtSubtitle, StopAtMaterials, StopAtVideo:
		return true
	}
	return false
}

// VideoSource 素材来源
type VideoSource string

const (
	SourcePexels  VideoSource = "pexels"
	SourcePixabay VideoSource = "pixabay"
	SourceLocal   VideoSource = "local" // 用户提供的本地素材
)

// VideoAspect 画幅
type VideoAspect string

const (
	AspectPortrait  VideoAspect = "9:16"
	AspectLandscape VideoAspect = "16:9"
	AspectSquare    VideoAspect = "1:1"
)

// Size 返回画幅对应的输出分辨率
func (a VideoAspect) Size() (width, height int) {
	switch a {
	case AspectLandscape:
		return 1920, 1080
	case AspectSquare:
		return 1080, 1080
	default:
		return 1080, 1920
	}
}

// ConcatMode 片段拼接模式
type ConcatMode string

const (
	ConcatRandom     ConcatMode = "random"     // 随机顺序
	ConcatSequential ConcatMode = "sequential" // 按下载顺序
)

// TransitionMode 转场模式
type TransitionMode string

const (
	TransitionNone    TransitionMode = "none"
	TransitionFadeIn  TransitionMode = "fade_in"
	TransitionFadeOut TransitionMode = "fade_out"
)

// VideoParams 一次任务的输入配置
// 提交时传入一次，管线只读不改
type VideoParams struct {
	Subject    string `bson:"subject" json:"subject"`                   // 视频主题（AI 生成脚本时必填）
	Script     string `bson:"script,omitempty" json:"script,omitempty"` // 用户提供的旁白原文（非空时跳过 AI 生成）
	Language   string `bson:"language" json:"language"`                 // 旁白语言
	SceneCount int    `bson:"scene_count" json:"scene_count"`           // 场景数（AI 生成时生效）

	VoiceName   string  `bson:"voice_name" json:"voice_name"`     // 语音类型
	VoiceRate   float64 `bson:"voice_rate" json:"voice_rate"`     // 语速（1.0 为原速）
	VoiceVolume float64 `bson:"voice_volume" json:"voice_volume"` // 音量（1.0 为原量）

	SubtitleEnabled bool `bson:"subtitle_enabled" json:"subtitle_enabled"` // 是否生成字幕

	VideoSource       VideoSource    `bson:"video_source" json:"video_source"`                           // 素材来源
	VideoMaterials    []string       `bson:"video_materials,omitempty" json:"video_materials,omitempty"` // 本地素材路径（source=local 时）
	VideoAspect       VideoAspect    `bson:"video_aspect" json:"video_aspect"`                           // 画幅
	VideoConcatMode   ConcatMode     `bson:"video_concat_mode" json:"video_concat_mode"`                 // 拼接模式
	VideoTransition   TransitionMode `bson:"video_transition_mode" json:"video_transition_mode"`         // 转场模式
	VideoClipDuration int            `bson:"video_clip_duration" json:"video_clip_duration"`             // 单个片段最大时长（秒）
	VideoCount        int            `bson:"video_count" json:"video_count"`                             // 输出视频个数
}

// Normalize 填充默认值
func (p *VideoParams) Normalize() {
	if p.Language == "" {
		p.Language = "en"
	}
	if p.SceneCount <= 0 {
		p.SceneCount = 5
	}
	if p.VoiceRate <= 0 {
		p.VoiceRate = 1.0
	}
	if p.VoiceVolume <= 0 {
		p.VoiceVolume = 1.0
	}
	if p.VideoSource == "" {
		p.VideoSource = SourcePexels
	}
	if p.VideoAspect == "" {
		p.VideoAspect = AspectPortrait
	}
	if p.VideoConcatMode == "" {
		p.VideoConcatMode = ConcatRandom
	}
	if p.VideoTransition == "" {
		p.VideoTransition = TransitionNone
	}
	if p.VideoClipDuration <= 0 {
		p.VideoClipDuration = 5
	}
	if p.VideoCount <= 0 {
		p.VideoCount = 1
	}
}

// Validate 校验参数
func (p *VideoParams) Validate() error {
	if p.Subject == "" && p.Script == "" {
		return errors.New("either subject or script is required")
	}
	if p.VideoSource == SourceLocal && len(p.VideoMaterials) == 0 {
		return errors.New("video_materials is required when video_source is local")
	}
	return nil
}
