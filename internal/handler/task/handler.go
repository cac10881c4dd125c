package task

import (
	tasksvc "kiwi/internal/service/task"
)

// Handler 任务处理器
// 所有任务相关的Handler方法都通过这个结构体访问Service
type Handler struct {
	taskService tasksvc.TaskService
}

// NewHandler 创建任务处理器
func NewHandler(taskService tasksvc.TaskService) *Handler {
	return &Handler{
		taskService: taskService,
	}
}
