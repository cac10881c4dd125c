package material

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

// PreprocessLocal 把用户提供的本地媒体整理成可用的视频片段
// 图片会转成带缩放效果的视频片段，视频先探测可用性，
// 坏文件跳过不中断；一个可用片段都没有时返回错误
func (c *Client) PreprocessLocal(
	ctx context.Context,
	taskDir string,
	paths []string,
	clipDuration float64,
	width, height, fps int,
) ([]string, error) {
	if clipDuration <= 0 {
		clipDuration = 5
	}

	var clips []string
	for i, path := range paths {
		ext := strings.ToLower(filepath.Ext(path))

		if imageExtensions[ext] {
			outPath := filepath.Join(taskDir, fmt.Sprintf("local-%02d.mp4", i+1))
			if err := c.ffmpeg.CreateImageVideo(ctx, path, outPath, clipDuration, width, height, fps); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("image conversion failed, skipping")
				continue
			}
			clips = append(clips, outPath)
			continue
		}

		info, err := c.ffmpeg.GetVideoInfo(ctx, path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("video probe failed, skipping")
			continue
		}
		if info.Duration <= 0 {
			log.Warn().Str("path", path).Msg("video has no duration, skipping")
			continue
		}
		clips = append(clips, path)
	}

	if len(clips) == 0 {
		return nil, fmt.Errorf("no usable local materials in %d files", len(paths))
	}

	log.Info().Int("clips", len(clips)).Int("input", len(paths)).Msg("local materials preprocessed")
	return clips, nil
}
