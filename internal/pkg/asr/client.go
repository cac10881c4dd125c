package asr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"kiwi/internal/config"
)

// Client 语音识别客户端
// 对接 whisper server（whisper.cpp / faster-whisper 的 HTTP 封装），
// 作为字幕生成的兜底方案：TTS 时间戳缺失时从音频反推字幕
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// Segment 识别出的一段文本及其时间区间
type Segment struct {
	Text      string  `json:"text"`  // 文本内容
	StartTime float64 `json:"start"` // 开始时间（秒）
	EndTime   float64 `json:"end"`   // 结束时间（秒）
}

// NewClient 创建 ASR 客户端
func NewClient(cfg *config.ASRConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("ASR base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute // 转写长音频较慢
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// transcribeResponse whisper server 的响应结构
type transcribeResponse struct {
	Segments []Segment `json:"segments"`
	Text     string    `json:"text"`
	Error    string    `json:"error,omitempty"`
}

// Transcribe 转写音频文件，返回带时间戳的分段文本
func (c *Client) Transcribe(ctx context.Context, audioPath string) ([]Segment, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	// multipart 上传音频
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		defer pw.Close()
		defer writer.Close()

		part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		_ = writer.WriteField("response_format", "verbose_json")
		if c.model != "" {
			_ = writer.WriteField("model", c.model)
		}
	}()

	endpoint := c.baseURL + "/inference"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	log.Debug().Str("audio", audioPath).Str("endpoint", endpoint).Msg("sending ASR request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ASR API status %d: %s", resp.StatusCode, string(body))
	}

	var result transcribeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("ASR error: %s", result.Error)
	}
	if len(result.Segments) == 0 {
		return nil, fmt.Errorf("no segments in transcription")
	}

	return result.Segments, nil
}
