package material

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"kiwi/internal/config"
	"kiwi/internal/pkg/ffmpeg"
)

// 素材来源
const (
	SourcePexels  = "pexels"
	SourcePixabay = "pixabay"
)

// clipCandidate 待下载的素材候选
type clipCandidate struct {
	URL      string  // 下载地址
	Duration float64 // 原始时长（秒）
}

// Client 视频素材客户端
// 按搜索词从 Pexels / Pixabay 拉取竖屏或横屏素材，
// 多个 API Key 轮换使用以规避单 Key 限流
type Client struct {
	pexelsKeys  []string
	pixabayKeys []string

	pexelsBaseURL  string
	pixabayBaseURL string

	httpClient *http.Client
	ffmpeg     *ffmpeg.Client

	pexelsKeyIdx  atomic.Uint32
	pixabayKeyIdx atomic.Uint32
}

// NewClient 创建素材客户端
func NewClient(cfg *config.MaterialConfig, ffmpegClient *ffmpeg.Client) *Client {
	return &Client{
		pexelsKeys:     cfg.PexelsAPIKeys,
		pixabayKeys:    cfg.PixabayAPIKeys,
		pexelsBaseURL:  "https://api.pexels.com",
		pixabayBaseURL: "https://pixabay.com",
		httpClient: &http.Client{
			Timeout: 3 * time.Minute,
		},
		ffmpeg: ffmpegClient,
	}
}

// Download 按搜索词下载素材，直到累计时长满足 totalDuration
// 每条素材计入的时长不超过 maxClipDuration，重复 URL 只下载一次；
// 一条都没下到时返回错误
func (c *Client) Download(
	ctx context.Context,
	taskDir string,
	terms []string,
	source string,
	width, height int,
	totalDuration, maxClipDuration float64,
) ([]string, error) {
	if len(terms) == 0 {
		return nil, fmt.Errorf("no search terms")
	}
	if maxClipDuration <= 0 {
		maxClipDuration = 5
	}

	candidates := c.collectCandidates(ctx, terms, source, width, height)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no material found for terms %v", terms)
	}

	var paths []string
	accumulated := 0.0

	for i, cand := range candidates {
		if accumulated >= totalDuration {
			break
		}

		outPath := filepath.Join(taskDir, fmt.Sprintf("material-%02d.mp4", i+1))
		if err := c.downloadFile(ctx, cand.URL, outPath); err != nil {
			log.Warn().Err(err).Str("url", cand.URL).Msg("material download failed, skipping")
			continue
		}

		paths = append(paths, outPath)
		clipDuration := cand.Duration
		if clipDuration > maxClipDuration {
			clipDuration = maxClipDuration
		}
		accumulated += clipDuration
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("all material downloads failed")
	}

	log.Info().
		Int("clips", len(paths)).
		Float64("accumulated", accumulated).
		Float64("required", totalDuration).
		Msg("materials downloaded")
	return paths, nil
}

// collectCandidates 逐个搜索词收集候选素材，跨搜索词按 URL 去重
func (c *Client) collectCandidates(ctx context.Context, terms []string, source string, width, height int) []clipCandidate {
	seen := make(map[string]struct{})
	var candidates []clipCandidate

	for _, term := range terms {
		var found []clipCandidate
		var err error

		switch source {
		case SourcePixabay:
			found, err = c.searchPixabay(ctx, term, width, height)
		default:
			found, err = c.searchPexels(ctx, term, width, height)
		}
		if err != nil {
			log.Warn().Err(err).Str("term", term).Str("source", source).Msg("material search failed")
			continue
		}

		for _, cand := range found {
			if _, ok := seen[cand.URL]; ok {
				continue
			}
			seen[cand.URL] = struct{}{}
			candidates = append(candidates, cand)
		}
	}

	return candidates
}

// downloadFile 下载单个素材文件
func (c *Client) downloadFile(ctx context.Context, url, outPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download status %d", resp.StatusCode)
	}

	file, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		os.Remove(outPath)
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}

// nextPexelsKey 轮换取下一个 Pexels API Key
func (c *Client) nextPexelsKey() (string, error) {
	if len(c.pexelsKeys) == 0 {
		return "", fmt.Errorf("no pexels API key configured")
	}
	idx := c.pexelsKeyIdx.Add(1)
	return c.pexelsKeys[int(idx)%len(c.pexelsKeys)], nil
}

// nextPixabayKey 轮换取下一个 Pixabay API Key
func (c *Client) nextPixabayKey() (string, error) {
	if len(c.pixabayKeys) == 0 {
		return "", fmt.Errorf("no pixabay API key configured")
	}
	idx := c.pixabayKeyIdx.Add(1)
	return c.pixabayKeys[int(idx)%len(c.pixabayKeys)], nil
}

// matchesOrientation 素材宽高方向是否与目标画幅一致
func matchesOrientation(w, h, targetW, targetH int) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	switch {
	case targetW > targetH:
		return w > h
	case targetW < targetH:
		return w < h
	default:
		return w == h
	}
}
