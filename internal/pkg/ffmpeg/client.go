package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"kiwi/internal/config"
)

// Client FFmpeg 客户端
// 封装视频生产管线用到的 ffmpeg/ffprobe 命令
type Client struct {
	ffmpegPath  string
	ffprobePath string
	threads     int
}

// NewClient 创建 FFmpeg 客户端
func NewClient(cfg *config.PipelineConfig) *Client {
	ffmpegPath := cfg.FFmpegPath
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}

	ffprobePath := cfg.FFprobePath
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}

	threads := cfg.FFmpegThreads
	if threads <= 0 {
		threads = 2
	}

	return &Client{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		threads:     threads,
	}
}

// VideoInfo 视频信息
type VideoInfo struct {
	Width    int     // 宽度
	Height   int     // 高度
	FPS      float64 // 帧率
	Duration float64 // 时长（秒）
}

// AudioInfo 音频信息
type AudioInfo struct {
	Duration float64 // 时长（秒）
}

// probeOutput ffprobe -of json 的输出结构
type probeOutput struct {
	Streams []struct {
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// GetVideoInfo 获取视频信息
func (c *Client) GetVideoInfo(ctx context.Context, videoPath string) (*VideoInfo, error) {
	cmd := exec.CommandContext(ctx, c.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate",
		"-show_entries", "format=duration",
		"-of", "json",
		videoPath,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe probeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no video stream in %s", videoPath)
	}

	info := VideoInfo{
		Width:  probe.Streams[0].Width,
		Height: probe.Streams[0].Height,
	}
	if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = d
	}
	// r_frame_rate 形如 "30000/1001"
	if num, den, ok := strings.Cut(probe.Streams[0].RFrameRate, "/"); ok {
		n, errN := strconv.ParseFloat(num, 64)
		d, errD := strconv.ParseFloat(den, 64)
		if errN == nil && errD == nil && d > 0 {
			info.FPS = n / d
		}
	}

	return &info, nil
}

// GetAudioInfo 获取音频信息
func (c *Client) GetAudioInfo(ctx context.Context, audioPath string) (*AudioInfo, error) {
	cmd := exec.CommandContext(ctx, c.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		audioPath,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe probeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var info AudioInfo
	if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = d
	}

	return &info, nil
}

// CreateImageVideo 从图片创建视频片段（带缓慢缩放效果）
func (c *Client) CreateImageVideo(ctx context.Context, imagePath, outputPath string, duration float64, width, height, fps int) error {
	totalFrames := int(duration * float64(fps))
	zoomEffect := fmt.Sprintf("zoompan=z='min(1.0+on*0.0008,1.3)':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=%d:s=%dx%d:fps=%d",
		totalFrames, width, height, fps)

	args := []string{
		"-y",
		"-loop", "1",
		"-i", imagePath,
		"-t", fmt.Sprintf("%.2f", duration),
		"-vf", fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,%s",
			width, height, width, height, zoomEffect),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-threads", strconv.Itoa(c.threads),
		"-r", strconv.Itoa(fps),
		outputPath,
	}

	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("create image video: %w", err)
	}

	log.Info().
		Str("image", imagePath).
		Str("output", outputPath).
		Float64("duration", duration).
		Msg("image video created")
	return nil
}

// StandardizeVideo 标准化视频片段的分辨率和帧率
// 先等比放大铺满画幅再居中裁剪，保证不同来源的素材可以无缝拼接
func (c *Client) StandardizeVideo(ctx context.Context, inputPath, outputPath string, width, height, fps int) error {
	vf := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d:(in_w-%d)/2:(in_h-%d)/2,setsar=1",
		width, height, width, height, width, height)

	args := []string{
		"-y",
		"-i", inputPath,
		"-map", "0:v:0",
		"-an", // 素材自带的音轨一律丢弃，旁白稍后统一混入
		"-vf", vf,
		"-r", strconv.Itoa(fps),
		"-c:v", "libx264",
		"-crf", "20",
		"-preset", "medium",
		"-pix_fmt", "yuv420p",
		"-threads", strconv.Itoa(c.threads),
		"-movflags", "+faststart",
		outputPath,
	}

	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("standardize video: %w", err)
	}
	return nil
}

// TrimVideo 截取视频的前 duration 秒
func (c *Client) TrimVideo(ctx context.Context, inputPath, outputPath string, duration float64) error {
	args := []string{
		"-y",
		"-i", inputPath,
		"-t", fmt.Sprintf("%.2f", duration),
		"-c", "copy",
		outputPath,
	}

	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("trim video: %w", err)
	}
	return nil
}

// ConcatVideos 用 concat demuxer 按顺序拼接视频片段
// 各片段必须已经过标准化（相同分辨率、帧率、编码参数）
func (c *Client) ConcatVideos(ctx context.Context, videoPaths []string, outputPath string) error {
	if len(videoPaths) == 0 {
		return fmt.Errorf("no videos to concat")
	}

	listPath := filepath.Join(filepath.Dir(outputPath), fmt.Sprintf("concat_%d.txt", time.Now().UnixNano()))
	var sb strings.Builder
	for _, videoPath := range videoPaths {
		absPath, err := filepath.Abs(videoPath)
		if err != nil {
			return fmt.Errorf("resolve clip path: %w", err)
		}
		fmt.Fprintf(&sb, "file '%s'\n", absPath)
	}
	if err := os.WriteFile(listPath, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	defer os.Remove(listPath)

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outputPath,
	}

	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("concat videos: %w", err)
	}

	log.Info().Int("clips", len(videoPaths)).Str("output", outputPath).Msg("videos concatenated")
	return nil
}

// AddAudio 给无声视频替换上旁白音轨，输出时长取两者较短的一方
func (c *Client) AddAudio(ctx context.Context, videoPath, audioPath, outputPath string) error {
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "160k",
		"-shortest",
		outputPath,
	}

	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("add audio: %w", err)
	}
	return nil
}

// BurnSubtitles 把 SRT 字幕烧录进视频画面
func (c *Client) BurnSubtitles(ctx context.Context, videoPath, srtPath, outputPath string, fontSize int) error {
	if fontSize <= 0 {
		fontSize = 24
	}

	// subtitles 滤镜里路径的特殊字符需要转义
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`).Replace(srtPath)
	vf := fmt.Sprintf("subtitles='%s':force_style='Fontsize=%d,Alignment=2,MarginV=50'", escaped, fontSize)

	args := []string{
		"-y",
		"-i", videoPath,
		"-vf", vf,
		"-c:v", "libx264",
		"-threads", strconv.Itoa(c.threads),
		"-c:a", "copy",
		outputPath,
	}

	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("burn subtitles: %w", err)
	}

	log.Info().
		Str("video", videoPath).
		Str("subtitle", srtPath).
		Str("output", outputPath).
		Msg("subtitles burned in")
	return nil
}

// ApplyTransition 给视频片段加淡入或淡出效果
func (c *Client) ApplyTransition(ctx context.Context, inputPath, outputPath, mode string, clipDuration float64) error {
	var vf string
	switch mode {
	case "fade_in":
		vf = "fade=t=in:st=0:d=0.5"
	case "fade_out":
		vf = fmt.Sprintf("fade=t=out:st=%.2f:d=0.5", clipDuration-0.5)
	default:
		return fmt.Errorf("unknown transition mode: %s", mode)
	}

	args := []string{
		"-y",
		"-i", inputPath,
		"-vf", vf,
		"-c:v", "libx264",
		"-threads", strconv.Itoa(c.threads),
		"-an",
		outputPath,
	}

	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("apply transition: %w", err)
	}
	return nil
}

// run 执行 ffmpeg 命令，失败时把 stderr 末尾带进错误信息
func (c *Client) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := stderr.String()
		if len(msg) > 512 {
			msg = msg[len(msg)-512:]
		}
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(msg))
	}
	return nil
}
