package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"kiwi/internal/pkg/storage"
)

// Publisher 成片发布服务
// 管线渲染完成后把最终视频上传到产物存储，返回对外可访问的URL
type Publisher struct {
	store storage.Storage
}

// NewPublisher 创建发布服务
func NewPublisher(store storage.Storage) *Publisher {
	return &Publisher{store: store}
}

// Publish 上传任务的成片文件，按输入顺序返回URL
func (p *Publisher) Publish(ctx context.Context, taskID string, paths []string) ([]string, error) {
	var urls []string
	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open artifact %s: %w", path, err)
		}

		key := fmt.Sprintf("tasks/%s/%s", taskID, filepath.Base(path))
		url, err := p.store.Upload(ctx, key, file, contentType(path))
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("upload artifact %s: %w", path, err)
		}
		urls = append(urls, url)
	}

	log.Info().Str("task_id", taskID).Int("artifacts", len(urls)).Msg("artifacts published")
	return urls, nil
}

func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".srt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
