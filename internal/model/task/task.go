package task

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"kiwi/internal/pkg/scripttools"
)

// State 任务状态
type State string

const (
	StatePending    State = "pending"    // 已创建，等待执行
	StateProcessing State = "processing" // 管线执行中
	StateComplete   State = "complete"   // 成功（含提前停止）
	StateFailed     State = "failed"     // 不可恢复的阶段失败
)

// Task 视频生产任务实体
// 由编排器独占写入；progress 单调不减，result 字段随阶段完成逐步累积
type Task struct {
	ID       string      `bson:"id" json:"id"`             // 任务ID（UUID）
	State    State       `bson:"state" json:"state"`       // 状态
	Progress int         `bson:"progress" json:"progress"` // 进度（0-100）
	Params   VideoParams `bson:"params" json:"params"`     // 任务参数（创建后只读）

	// 结果字段（随阶段完成逐步写入）
	Script         *scripttools.StructuredScript `bson:"script,omitempty" json:"script,omitempty"`                   // 结构化脚本
	Terms          []string                      `bson:"terms,omitempty" json:"terms,omitempty"`                     // 聚合后的搜索关键词
	AudioFile      string                        `bson:"audio_file,omitempty" json:"audio_file,omitempty"`           // 旁白音频路径
	AudioDuration  float64                       `bson:"audio_duration,omitempty" json:"audio_duration,omitempty"`   // 音频时长（秒）
	SubtitlePath   string                        `bson:"subtitle_path,omitempty" json:"subtitle_path,omitempty"`     // 字幕文件路径（可能为空）
	Materials      []string                      `bson:"materials,omitempty" json:"materials,omitempty"`             // 素材片段路径
	CombinedVideos []string                      `bson:"combined_videos,omitempty" json:"combined_videos,omitempty"` // 合成的中间视频
	Videos         []string                      `bson:"videos,omitempty" json:"videos,omitempty"`                   // 最终视频
	VideoURLs      []string                      `bson:"video_urls,omitempty" json:"video_urls,omitempty"`           // 发布后的访问URL
	ErrorMessage   string                        `bson:"error_message,omitempty" json:"error_message,omitempty"`     // 失败原因

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Collection 返回集合名称
func (t *Task) Collection() string {
	return "tasks"
}

// EnsureIndexes 创建和维护索引
func (t *Task) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(t.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetName("idx_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "state", Value: 1}},
			Options: options.Index().SetName("idx_state"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_created"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
