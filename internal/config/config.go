package config

import (
	"errors"
	"time"
)

// Config 应用配置根结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Log      LogConfig      `mapstructure:"log"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Storage  StorageConfig  `mapstructure:"storage"`
	TTS      TTSConfig      `mapstructure:"tts"`
	ASR      ASRConfig      `mapstructure:"asr"`
	Material MaterialConfig `mapstructure:"material"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LLMConfig 大模型配置（脚本生成）
type LLMConfig struct {
	Provider   string           `mapstructure:"provider"` // openai, azure, ark, ark-sdk
	APIKey     string           `mapstructure:"api_key"`
	Model      string           `mapstructure:"model"`
	BaseURL    string           `mapstructure:"base_url"`
	MaxRetries int              `mapstructure:"max_retries"` // 脚本生成重试次数（默认 5）
	Options    LLMOptionsConfig `mapstructure:"options"`
}

// LLMOptionsConfig 大模型参数
type LLMOptionsConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// MongoConfig MongoDB 配置
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 认证配置
// APIKeyHash 为空时关闭认证（本地开发模式）
type AuthConfig struct {
	JWTSecret   string        `mapstructure:"jwt_secret"`   // JWT密钥
	APIKeyHash  string        `mapstructure:"api_key_hash"` // API Key 的 bcrypt 哈希
	TokenExpiry time.Duration `mapstructure:"token_expiry"` // Token过期时间
}

// StorageConfig 存储配置
type StorageConfig struct {
	Type  string       `mapstructure:"type"` // local, oss
	Local *LocalConfig `mapstructure:"local,omitempty"`
	OSS   *OSSConfig   `mapstructure:"oss,omitempty"`
}

// LocalConfig 本地文件系统配置
type LocalConfig struct {
	BasePath      string `mapstructure:"base_path"`      // 基础路径
	BaseURL       string `mapstructure:"base_url"`       // 基础URL（用于生成访问URL）
	PresignExpiry int    `mapstructure:"presign_expiry"` // 预签名URL过期时间（秒）
}

// OSSConfig 阿里云OSS配置
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`          // OSS端点
	Bucket          string `mapstructure:"bucket"`            // Bucket名称
	AccessKeyID     string `mapstructure:"access_key_id"`     // AccessKey ID
	AccessKeySecret string `mapstructure:"access_key_secret"` // AccessKey Secret
	PresignExpiry   int    `mapstructure:"presign_expiry"`    // 预签名URL过期时间（秒）
}

// TTSConfig 语音合成配置（火山引擎 TTS）
type TTSConfig struct {
	APIURL      string `mapstructure:"api_url"`      // API 地址
	AccessToken string `mapstructure:"access_token"` // 访问令牌（必需）
	AppID       string `mapstructure:"app_id"`       // 应用ID（可选）
	Cluster     string `mapstructure:"cluster"`      // 集群名称
	VoiceType   string `mapstructure:"voice_type"`   // 默认语音类型
	SampleRate  int    `mapstructure:"sample_rate"`  // 采样率
}

// ASRConfig 语音识别配置（字幕兜底方案，whisper server）
type ASRConfig struct {
	BaseURL string        `mapstructure:"base_url"` // whisper server 地址
	Model   string        `mapstructure:"model"`    // 模型名称（可选）
	Timeout time.Duration `mapstructure:"timeout"`  // 请求超时
}

// MaterialConfig 素材下载配置
type MaterialConfig struct {
	PexelsAPIKeys  []string `mapstructure:"pexels_api_keys"`  // Pexels API Key（轮换使用）
	PixabayAPIKeys []string `mapstructure:"pixabay_api_keys"` // Pixabay API Key（轮换使用）
}

// PipelineConfig 视频生产管线配置
type PipelineConfig struct {
	TaskDir       string `mapstructure:"task_dir"`       // 任务工作目录（每个任务一个子目录）
	KeywordLimit  int    `mapstructure:"keyword_limit"`  // 聚合关键词上限（默认 10）
	FFmpegPath    string `mapstructure:"ffmpeg_path"`    // ffmpeg 可执行文件路径（默认 ffmpeg）
	FFprobePath   string `mapstructure:"ffprobe_path"`   // ffprobe 可执行文件路径（默认 ffprobe）
	FFmpegThreads int    `mapstructure:"ffmpeg_threads"` // 渲染线程数
}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	if c.LLM.MaxRetries < 0 {
		return errors.New("llm.max_retries must be >= 0")
	}

	if c.Pipeline.TaskDir == "" {
		return errors.New("pipeline.task_dir is required")
	}

	if c.Auth.APIKeyHash != "" && c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required when auth.api_key_hash is set")
	}

	return nil
}
