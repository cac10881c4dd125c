package scripttools

import (
	"fmt"
	"strings"
)

// sentenceEnders 句子结束标点（兼容中英文）
var sentenceEnders = map[rune]struct{}{
	'.': {}, '!': {}, '?': {}, ';': {},
	'。': {}, '！': {}, '？': {}, '；': {}, '…': {},
}

// ScriptFromRawText 把用户提供的整段旁白文本转换为结构化脚本
// 按句子结束标点切分，每个非空句子生成一个场景：
//   - scene_number 为 1 开始的位置序号
//   - voiceover_text 为句子原文（去除首尾空白）
//   - visual_description 为内嵌句子文本的固定模板（没有 AI 参与，只能给出占位描述）
//   - keywords 为去重后的 fallbackKeywords，所有场景相同
//
// 切不出任何句子时返回 ErrGenerationFailed
func ScriptFromRawText(raw string, fallbackKeywords []string) (*StructuredScript, error) {
	sentences := SplitSentences(raw)
	if len(sentences) == 0 {
		return nil, fmt.Errorf("%w: no sentences in manual script", ErrGenerationFailed)
	}

	keywords := dedupKeywords(fallbackKeywords)

	scenes := make([]Scene, 0, len(sentences))
	for i, sentence := range sentences {
		scenes = append(scenes, Scene{
			SceneNumber:       i + 1,
			VoiceoverText:     sentence,
			VisualDescription: fmt.Sprintf("A visual representation of: '%s'", sentence),
			Keywords:          keywords,
		})
	}

	return &StructuredScript{Scenes: scenes}, nil
}

// SplitSentences 按句子结束标点切分文本，丢弃空白片段
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for _, r := range text {
		if _, ok := sentenceEnders[r]; ok {
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()

	return sentences
}

// dedupKeywords 保序去重，丢弃空白关键词
func dedupKeywords(keywords []string) []string {
	result := make([]string, 0, len(keywords))
	seen := make(map[string]struct{})
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		result = append(result, kw)
	}
	return result
}
