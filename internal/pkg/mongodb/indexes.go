package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"kiwi/internal/model/task"
)

// EnsureIndexes 创建所有模型的索引
// 统一入口，在应用启动时调用
func EnsureIndexes(db *mongo.Database) error {
	ctx := context.Background()

	models := []Model{
		&task.Task{},
	}

	return EnsureAllIndexes(ctx, db, models...)
}
