package task

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"kiwi/internal/model/task"
	"kiwi/internal/pkg/cache"
	taskrepo "kiwi/internal/repository/task"
)

// TaskService 任务服务
type TaskService interface {
	// CreateTask 创建任务并异步执行管线
	CreateTask(ctx context.Context, params task.VideoParams, stopAt task.StopAt) (*task.Task, error)

	// GetTask 查询任务状态，优先读热镜像
	GetTask(ctx context.Context, id string) (*task.Task, error)
}

// Service 任务服务实现
type Service struct {
	repo     taskrepo.TaskRepository
	cache    TaskCache
	pipeline *Pipeline
}

// NewService 创建任务服务
func NewService(repo taskrepo.TaskRepository, taskCache TaskCache, pipeline *Pipeline) *Service {
	return &Service{
		repo:     repo,
		cache:    taskCache,
		pipeline: pipeline,
	}
}

// CreateTask 创建任务记录并启动管线
// 管线在独立 goroutine 里执行，调用方通过轮询 GetTask 跟踪进度
func (s *Service) CreateTask(ctx context.Context, params task.VideoParams, stopAt task.StopAt) (*task.Task, error) {
	params.Normalize()
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if stopAt == "" {
		stopAt = task.StopAtVideo
	}
	if !stopAt.Valid() {
		return nil, fmt.Errorf("invalid stop_at: %s", stopAt)
	}

	t := &task.Task{
		ID:     uuid.NewString(),
		State:  task.StatePending,
		Params: params,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	log.Info().
		Str("task_id", t.ID).
		Str("subject", params.Subject).
		Str("stop_at", string(stopAt)).
		Msg("task created")

	// 管线生命周期独立于请求
	go s.pipeline.Run(context.Background(), t, stopAt)

	return t, nil
}

// GetTask 查询任务状态
func (s *Service) GetTask(ctx context.Context, id string) (*task.Task, error) {
	if s.cache != nil {
		var cached task.Task
		if err := s.cache.Get(ctx, cache.TaskCacheKey(id), &cached); err == nil && cached.ID == id {
			return &cached, nil
		}
	}

	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find task %s: %w", id, err)
	}
	return t, nil
}
