package scripttools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultMaxRetries 默认的生成重试次数
const DefaultMaxRetries = 5

// ScriptGenerator 结构化脚本生成器
//
// 设计原则：
//   - 不负责落库 / 不依赖 HTTP / 不操作资源，只负责组装 prompt 并调用上层注入的 LLM 客户端
//   - 每次尝试相互独立，对调用方而言是幂等的
type ScriptGenerator struct {
	llmProvider LLMProvider // 调用大模型的提供者（由上层注入，便于在不同环境下切换实现）
	maxRetries  int         // 重试次数上限
}

// NewScriptGenerator 创建脚本生成器实例
//
// Args:
//   - llmProvider: 调用大模型的提供者
//   - maxRetries: 重试次数上限（<= 0 时使用默认值 5）
func NewScriptGenerator(llmProvider LLMProvider, maxRetries int) *ScriptGenerator {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &ScriptGenerator{
		llmProvider: llmProvider,
		maxRetries:  maxRetries,
	}
}

// Generate 根据主题生成结构化脚本
//
// 逻辑：
//  1. 组装 prompt，要求模型只输出一个符合 schema 的 JSON 对象
//  2. 在响应里截取第一个花括号配平的 JSON 子串（模型可能在前后附加说明文字）
//  3. 解析、检查 error 标记、做结构校验；任一步失败只判本次尝试失败并重试
//  4. 第一个通过校验的结果立即返回；重试耗尽返回 ErrGenerationFailed
func (sg *ScriptGenerator) Generate(ctx context.Context, topic, language string, sceneCount int) (*StructuredScript, error) {
	prompt := buildScriptPrompt(topic, language, sceneCount)

	for attempt := 1; attempt <= sg.maxRetries; attempt++ {
		script, err := sg.tryGenerate(ctx, prompt)
		if err != nil {
			log.Warn().
				Err(err).
				Int("attempt", attempt).
				Str("topic", topic).
				Msg("script generation attempt failed")
			continue
		}
		log.Info().
			Int("attempt", attempt).
			Int("scenes", len(script.Scenes)).
			Msg("structured script generated")
		return script, nil
	}

	return nil, fmt.Errorf("%w: exhausted %d attempts", ErrGenerationFailed, sg.maxRetries)
}

// tryGenerate 执行单次生成尝试
func (sg *ScriptGenerator) tryGenerate(ctx context.Context, prompt string) (*StructuredScript, error) {
	response, err := sg.llmProvider.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("llm call: %w", err)
	}

	jsonStr, ok := extractJSONObject(response)
	if !ok {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	// 先探测顶层的 error 标记（模型侧失败会以 {"error": "..."} 返回）
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &probe); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	if raw, exists := probe["error"]; exists {
		return nil, fmt.Errorf("llm reported error: %s", string(raw))
	}

	var script StructuredScript
	if err := json.Unmarshal([]byte(jsonStr), &script); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}

	if err := validateScript(&script); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}

	return &script, nil
}

// buildScriptPrompt 组装脚本生成提示词
// 画面描述和关键词固定要求英文，保证下游素材搜索的兼容性
func buildScriptPrompt(topic, language string, sceneCount int) string {
	return strings.TrimSpace(fmt.Sprintf(`
# ROLE: Short Video Scriptwriter and Art Director

## OBJECTIVE:
Create a detailed, structured script for a short video about the given topic. The script must be divided into %d distinct scenes. For each scene, provide the voiceover text and a rich, detailed visual description that will be used as a prompt for stock footage search and AI image generation.

## CONSTRAINTS:
1. **MANDATORY output format:** Your response must be a single valid JSON object matching this schema: { "scenes": [ { "scene_number": int, "voiceover_text": str, "visual_description": str, "keywords": [str] } ] }
2. **Do NOT include any text or explanation outside the JSON object.** Your response must start with { and end with }.
3. **Structure of each scene:** Every scene object in the array must contain EXACTLY the following keys:
   - scene_number: (Integer) The scene number, starting at 1.
   - voiceover_text: (String) The narration text for this scene. Keep it concise and impactful.
   - visual_description: (String) A vivid, detailed description of the footage to show. Think about lighting, composition, colors and emotion. Be specific.
   - keywords: (Array of Strings) 3 to 4 keywords in ENGLISH summarizing the scene, used to search stock videos.
4. **Language:** The voiceover_text must be written in: %s. The visual_description and the keywords must be in ENGLISH for compatibility with image generators and search APIs.

## TASK:
Now create the structured script for the following topic.

- **Video Topic:** %s
- **Narration Language:** %s
- **Number of Scenes:** %d
`, sceneCount, language, topic, language, sceneCount))
}

// markdownFencePattern 匹配整段被 markdown 代码块包裹的响应
var markdownFencePattern = regexp.MustCompile("(?s)^\\s*```(?:json)?\\s*\\n(.*?)\\n\\s*```\\s*$")

// extractJSONObject 从自由文本中截取第一个花括号配平的 JSON 子串
// 模型经常在 JSON 前后附加说明文字或 markdown 代码块标记，这里做尽力而为的截取；
// 找不到配平的对象时返回 false，由调用方决定重试
func extractJSONObject(text string) (string, bool) {
	// 先剥掉 markdown 代码块
	if matches := markdownFencePattern.FindStringSubmatch(text); len(matches) > 1 {
		text = matches[1]
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}
