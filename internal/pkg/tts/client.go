package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"kiwi/internal/config"
	"kiwi/internal/pkg/id"
)

const (
	defaultAPIURL     = "https://openspeech.bytedance.com/api/v1/tts"
	defaultCluster    = "volcano_tts"
	defaultVoiceType  = "BV115_streaming"
	defaultSampleRate = 44100

	// 火山 TTS 成功响应码
	codeSuccess = 3000
)

// Client TTS 客户端封装
// 用于调用火山引擎的 TTS API（文本转语音）
// 参考: https://openspeech.bytedance.com/api/v1/tts
type Client struct {
	apiURL      string
	accessToken string
	appID       string
	cluster     string
	voiceType   string
	sampleRate  int
	httpClient  *http.Client
}

// NewClient 创建 TTS 客户端
// 配置由上层显式传入，不读环境变量
func NewClient(cfg *config.TTSConfig) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("TTS access token is required")
	}

	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	cluster := cfg.Cluster
	if cluster == "" {
		cluster = defaultCluster
	}
	voiceType := cfg.VoiceType
	if voiceType == "" {
		voiceType = defaultVoiceType
	}
	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = defaultSampleRate
	}

	return &Client{
		apiURL:      apiURL,
		accessToken: cfg.AccessToken,
		appID:       cfg.AppID,
		cluster:     cluster,
		voiceType:   voiceType,
		sampleRate:  sampleRate,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// SpeechResult 语音合成结果
type SpeechResult struct {
	AudioData      []byte          `json:"-"`               // 音频数据（mp3）
	Duration       float64         `json:"duration"`        // 音频时长（秒）
	CharTimestamps []CharTimestamp `json:"char_timestamps"` // 字符级时间戳（字幕生成用）
}

// CharTimestamp 字符时间戳
type CharTimestamp struct {
	Character string  `json:"character"`  // 字符
	StartTime float64 `json:"start_time"` // 开始时间（秒）
	EndTime   float64 `json:"end_time"`   // 结束时间（秒）
}

// ttsRequest 请求体（对应官方 API 的四段式结构）
type ttsRequest struct {
	App     appConfig     `json:"app"`
	User    userConfig    `json:"user"`
	Audio   audioConfig   `json:"audio"`
	Request requestConfig `json:"request"`
}

type appConfig struct {
	Token   string `json:"token"`
	Cluster string `json:"cluster"`
	AppID   string `json:"appid,omitempty"`
}

type userConfig struct {
	UID string `json:"uid"`
}

type audioConfig struct {
	VoiceType       string  `json:"voice_type"`
	Encoding        string  `json:"encoding"`
	CompressionRate int     `json:"compression_rate"`
	Rate            int     `json:"rate"`
	SpeedRatio      float64 `json:"speed_ratio"`
	VolumeRatio     float64 `json:"volume_ratio"`
	PitchRatio      float64 `json:"pitch_ratio"`
}

type requestConfig struct {
	ReqID           string `json:"reqid"`
	Text            string `json:"text"`
	TextType        string `json:"text_type"`
	Operation       string `json:"operation"`
	SilenceDuration string `json:"silence_duration"`
	WithFrontend    string `json:"with_frontend"`
	FrontendType    string `json:"frontend_type"`
}

// Synthesize 合成旁白语音
//
// Args:
//   - text: 旁白文本
//   - voice: 语音类型（空时使用配置默认值）
//   - rate: 语速比例（1.0 为原速）
//   - volume: 音量比例（1.0 为原量）
//
// Returns:
//   - result: 音频数据、时长和字符级时间戳
func (c *Client) Synthesize(ctx context.Context, text, voice string, rate, volume float64) (*SpeechResult, error) {
	if voice == "" {
		voice = c.voiceType
	}
	if rate <= 0 {
		rate = 1.0
	}
	if volume <= 0 {
		volume = 1.0
	}

	requestID := id.New()
	reqBody, err := json.Marshal(&ttsRequest{
		App: appConfig{
			Token:   c.accessToken,
			Cluster: c.cluster,
			AppID:   c.appID,
		},
		User: userConfig{UID: requestID},
		Audio: audioConfig{
			VoiceType:       voice,
			Encoding:        "mp3",
			CompressionRate: 1,
			Rate:            c.sampleRate,
			SpeedRatio:      rate,
			VolumeRatio:     volume,
			PitchRatio:      1.0,
		},
		Request: requestConfig{
			ReqID:           requestID,
			Text:            text,
			TextType:        "plain",
			Operation:       "query",
			SilenceDuration: "125",
			WithFrontend:    "1",
			FrontendType:    "unitTson",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer; %s", c.accessToken))
	req.Header.Set("Content-Type", "application/json")

	log.Debug().
		Str("request_id", requestID).
		Str("voice", voice).
		Int("text_len", len(text)).
		Msg("sending TTS request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TTS API status %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp map[string]interface{}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	code, _ := apiResp["code"].(float64)
	if int(code) != codeSuccess {
		message, _ := apiResp["message"].(string)
		if message == "" {
			message = "unknown error"
		}
		return nil, fmt.Errorf("TTS API error: %s (code: %.0f)", message, code)
	}

	audioBase64, ok := apiResp["data"].(string)
	if !ok {
		return nil, fmt.Errorf("audio data not found in response")
	}
	audioData, err := base64.StdEncoding.DecodeString(audioBase64)
	if err != nil {
		return nil, fmt.Errorf("decode audio data: %w", err)
	}

	result := &SpeechResult{AudioData: audioData}
	c.parseTimestamps(apiResp, result)

	return result, nil
}

// parseTimestamps 从 addition 字段解析时长和字符级时间戳
// 时间戳缺失不是错误：字幕阶段会退回 ASR 方案
func (c *Client) parseTimestamps(apiResp map[string]interface{}, result *SpeechResult) {
	addition, ok := apiResp["addition"].(map[string]interface{})
	if !ok {
		return
	}

	// duration 单位毫秒，可能是字符串或数字
	switch v := addition["duration"].(type) {
	case string:
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			result.Duration = parsed / 1000.0
		}
	case float64:
		result.Duration = v / 1000.0
	}

	// frontend 字段包含词级时间戳（JSON 字符串）
	var frontend map[string]interface{}
	switch v := addition["frontend"].(type) {
	case string:
		if err := json.Unmarshal([]byte(v), &frontend); err != nil {
			log.Warn().Err(err).Msg("failed to parse TTS frontend data")
			return
		}
	case map[string]interface{}:
		frontend = v
	default:
		return
	}

	words, ok := frontend["words"].([]interface{})
	if !ok {
		return
	}

	for _, item := range words {
		wordInfo, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		word, _ := wordInfo["word"].(string)
		startTime, _ := wordInfo["start_time"].(float64)
		endTime, _ := wordInfo["end_time"].(float64)
		if word == "" {
			continue
		}

		// 词级时间戳均匀摊到字符级，字幕对齐按字符做
		runes := []rune(word)
		charDuration := (endTime - startTime) / float64(len(runes))
		for i, char := range runes {
			result.CharTimestamps = append(result.CharTimestamps, CharTimestamp{
				Character: string(char),
				StartTime: startTime + float64(i)*charDuration,
				EndTime:   startTime + float64(i+1)*charDuration,
			})
		}
	}
}
