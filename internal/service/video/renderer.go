package video

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"kiwi/internal/pkg/ffmpeg"
	tasksvc "kiwi/internal/service/task"
)

const outputFPS = 30

// Renderer 视频合成与渲染服务
// Combine 把素材片段标准化、截断、排序后拼成一条带旁白的视频，
// Render 再把字幕烧录进去产出最终成片
type Renderer struct {
	ffmpeg *ffmpeg.Client
}

// NewRenderer 创建渲染服务
func NewRenderer(ffmpegClient *ffmpeg.Client) *Renderer {
	return &Renderer{ffmpeg: ffmpegClient}
}

// Combine 合成第 index 条视频：素材片段 + 旁白音轨 → combined-{index}.mp4
func (r *Renderer) Combine(ctx context.Context, req *tasksvc.CombineRequest) (string, error) {
	if len(req.Clips) == 0 {
		return "", fmt.Errorf("no clips to combine")
	}

	workDir := filepath.Join(req.TaskDir, fmt.Sprintf("combine-%d", req.Index))
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}

	prepared, durations, err := r.prepareClips(ctx, req, workDir)
	if err != nil {
		return "", err
	}

	sequence := buildSequence(prepared, durations, req.AudioDuration, req.ConcatMode)

	silentPath := filepath.Join(workDir, "silent.mp4")
	if err := r.ffmpeg.ConcatVideos(ctx, sequence, silentPath); err != nil {
		return "", err
	}

	combinedPath := filepath.Join(req.TaskDir, fmt.Sprintf("combined-%d.mp4", req.Index))
	if err := r.ffmpeg.AddAudio(ctx, silentPath, req.AudioFile, combinedPath); err != nil {
		return "", err
	}

	log.Info().
		Int("index", req.Index).
		Int("clips", len(sequence)).
		Str("output", combinedPath).
		Msg("video combined")
	return combinedPath, nil
}

// prepareClips 标准化所有素材片段：统一分辨率帧率、截断到最大时长、按需加转场
// 返回处理后的片段路径及各自时长
func (r *Renderer) prepareClips(ctx context.Context, req *tasksvc.CombineRequest, workDir string) ([]string, []float64, error) {
	var prepared []string
	var durations []float64

	for i, clip := range req.Clips {
		stdPath := filepath.Join(workDir, fmt.Sprintf("std-%02d.mp4", i+1))
		if err := r.ffmpeg.StandardizeVideo(ctx, clip, stdPath, req.Width, req.Height, outputFPS); err != nil {
			log.Warn().Err(err).Str("clip", clip).Msg("clip standardization failed, skipping")
			continue
		}

		info, err := r.ffmpeg.GetVideoInfo(ctx, stdPath)
		if err != nil {
			log.Warn().Err(err).Str("clip", stdPath).Msg("clip probe failed, skipping")
			continue
		}

		duration := info.Duration
		if req.MaxClipDuration > 0 && duration > req.MaxClipDuration {
			trimPath := filepath.Join(workDir, fmt.Sprintf("trim-%02d.mp4", i+1))
			if err := r.ffmpeg.TrimVideo(ctx, stdPath, trimPath, req.MaxClipDuration); err != nil {
				return nil, nil, fmt.Errorf("trim clip %d: %w", i+1, err)
			}
			stdPath = trimPath
			duration = req.MaxClipDuration
		}

		if req.TransitionMode != "" && req.TransitionMode != "none" {
			fadePath := filepath.Join(workDir, fmt.Sprintf("fade-%02d.mp4", i+1))
			if err := r.ffmpeg.ApplyTransition(ctx, stdPath, fadePath, req.TransitionMode, duration); err != nil {
				return nil, nil, fmt.Errorf("apply transition to clip %d: %w", i+1, err)
			}
			stdPath = fadePath
		}

		prepared = append(prepared, stdPath)
		durations = append(durations, duration)
	}

	if len(prepared) == 0 {
		return nil, nil, fmt.Errorf("all clips failed preparation")
	}
	return prepared, durations, nil
}

// buildSequence 按拼接模式排序片段，循环复用直到铺满旁白时长
func buildSequence(clips []string, durations []float64, audioDuration float64, concatMode string) []string {
	order := make([]int, len(clips))
	for i := range order {
		order[i] = i
	}
	if concatMode == "random" {
		rand.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}

	// 时长全部未知时无法铺满旁白，退化为每个片段用一次
	total := 0.0
	for _, d := range durations {
		total += d
	}
	if total <= 0 {
		sequence := make([]string, 0, len(order))
		for _, idx := range order {
			sequence = append(sequence, clips[idx])
		}
		return sequence
	}

	var sequence []string
	accumulated := 0.0
	for i := 0; accumulated < audioDuration; i++ {
		idx := order[i%len(order)]
		sequence = append(sequence, clips[idx])
		accumulated += durations[idx]
	}
	if len(sequence) == 0 {
		sequence = clips
	}
	return sequence
}

// Render 渲染第 index 条成片：烧录字幕 → final-{index}.mp4
func (r *Renderer) Render(ctx context.Context, req *tasksvc.RenderRequest) (string, error) {
	finalPath := filepath.Join(req.TaskDir, fmt.Sprintf("final-%d.mp4", req.Index))

	if req.SubtitlePath == "" {
		if err := copyFile(req.CombinedPath, finalPath); err != nil {
			return "", fmt.Errorf("copy combined video: %w", err)
		}
		return finalPath, nil
	}

	if err := r.ffmpeg.BurnSubtitles(ctx, req.CombinedPath, req.SubtitlePath, finalPath, 0); err != nil {
		return "", err
	}

	log.Info().Int("index", req.Index).Str("output", finalPath).Msg("video rendered")
	return finalPath, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}
