package scripttools

import (
	"errors"
	"fmt"
	"strings"
)

// ErrGenerationFailed 表示脚本生成彻底失败（重试耗尽或输入无法产出任何场景）
// 调用方必须把它当作终态失败处理，不允许把空脚本当作"零场景视频"继续往下走
var ErrGenerationFailed = errors.New("script generation failed")

// Scene 单个分镜场景
// VoiceoverText 使用目标语言；VisualDescription 和 Keywords 固定为英文，
// 保证下游素材搜索和图像生成的兼容性
type Scene struct {
	SceneNumber       int      `json:"scene_number" bson:"scene_number"`             // 场景编号（从 1 开始，连续）
	VoiceoverText     string   `json:"voiceover_text" bson:"voiceover_text"`         // 旁白文本
	VisualDescription string   `json:"visual_description" bson:"visual_description"` // 画面描述（英文）
	Keywords          []string `json:"keywords" bson:"keywords"`                     // 搜索关键词（英文，0-4 个）
}

// StructuredScript 结构化脚本
// 由生成器返回后视为不可变值对象，管线整体序列化保存
type StructuredScript struct {
	Scenes []Scene `json:"scenes" bson:"scenes"`
}

// Valid 脚本是否有效（至少一个场景）
func (s *StructuredScript) Valid() bool {
	return s != nil && len(s.Scenes) > 0
}

// NarrationText 按场景顺序拼接所有旁白，单个空格分隔
// 作为 TTS 的输入文本
func (s *StructuredScript) NarrationText() string {
	if s == nil {
		return ""
	}
	parts := make([]string, 0, len(s.Scenes))
	for _, scene := range s.Scenes {
		parts = append(parts, scene.VoiceoverText)
	}
	return strings.Join(parts, " ")
}

// maxKeywordsPerScene 每个场景保留的关键词上限
const maxKeywordsPerScene = 4

// validateScript 结构校验：场景非空、字段齐全、编号从 1 开始连续
// 超出上限的关键词会被截断而不是判为无效
func validateScript(s *StructuredScript) error {
	if s == nil || len(s.Scenes) == 0 {
		return errors.New("scenes is empty")
	}
	for i := range s.Scenes {
		scene := &s.Scenes[i]
		if scene.SceneNumber != i+1 {
			return fmt.Errorf("scene %d: scene_number is %d, expected %d", i, scene.SceneNumber, i+1)
		}
		if strings.TrimSpace(scene.VoiceoverText) == "" {
			return fmt.Errorf("scene %d: voiceover_text is empty", scene.SceneNumber)
		}
		if strings.TrimSpace(scene.VisualDescription) == "" {
			return fmt.Errorf("scene %d: visual_description is empty", scene.SceneNumber)
		}
		if len(scene.Keywords) > maxKeywordsPerScene {
			scene.Keywords = scene.Keywords[:maxKeywordsPerScene]
		}
	}
	return nil
}
