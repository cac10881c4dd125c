package task

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"kiwi/internal/model/task"
)

// TaskRepository 任务状态存储接口
// 按 task_id 做键控更新：不同任务互不干扰，同一任务字段级 last-writer-wins
type TaskRepository interface {
	Create(ctx context.Context, t *task.Task) error
	FindByID(ctx context.Context, id string) (*task.Task, error)

	// Update 对单个任务做字段级更新
	// progress 字段走 $max 语义：写入方永远无法让进度回退
	Update(ctx context.Context, id string, fields map[string]any) error
}

// TaskRepo 任务仓库实现
type TaskRepo struct {
	coll *mongo.Collection
}

// NewTaskRepo 创建任务仓库
func NewTaskRepo(db *mongo.Database) *TaskRepo {
	var t task.Task
	return &TaskRepo{coll: db.Collection(t.Collection())}
}

// Create 创建任务记录
func (r *TaskRepo) Create(ctx context.Context, t *task.Task) error {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.State == "" {
		t.State = task.StatePending
	}
	_, err := r.coll.InsertOne(ctx, t)
	return err
}

// FindByID 根据ID查询任务
func (r *TaskRepo) FindByID(ctx context.Context, id string) (*task.Task, error) {
	var t task.Task
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Update 字段级更新
func (r *TaskRepo) Update(ctx context.Context, id string, fields map[string]any) error {
	set := bson.M{"updated_at": time.Now()}
	update := bson.M{"$set": set}

	for k, v := range fields {
		if k == "progress" {
			// 进度单调不减
			update["$max"] = bson.M{"progress": v}
			continue
		}
		set[k] = v
	}

	_, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	return err
}
