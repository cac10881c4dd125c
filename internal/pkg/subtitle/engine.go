package subtitle

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"kiwi/internal/pkg/asr"
	"kiwi/internal/pkg/tts"
)

// Engine 字幕生成引擎
// 首选方案用语音合成返回的逐字时间戳生成字幕，
// 兜底方案用语音识别结果生成，最后都可以用旁白原文校正错别字
type Engine struct {
	splitter *Splitter
}

// NewEngine 创建字幕生成引擎，maxLineLength 为单行最大字符数
func NewEngine(maxLineLength int) *Engine {
	return &Engine{
		splitter: NewSplitter(maxLineLength),
	}
}

// GenerateFromTimestamps 基于逐字时间戳生成 SRT 字幕文件
func (e *Engine) GenerateFromTimestamps(text string, timestamps []tts.CharTimestamp, outPath string) error {
	if len(timestamps) == 0 {
		return fmt.Errorf("no character timestamps")
	}

	lines := e.splitter.Split(text)
	if len(lines) == 0 {
		return fmt.Errorf("no subtitle lines after splitting")
	}

	aligned := alignLines(lines, timestamps)
	if err := WriteFile(outPath, aligned); err != nil {
		return err
	}

	log.Info().Int("lines", len(aligned)).Str("path", outPath).Msg("subtitle generated from timestamps")
	return nil
}

// GenerateFromSegments 基于语音识别分段生成 SRT 字幕文件
func (e *Engine) GenerateFromSegments(segments []asr.Segment, outPath string) error {
	if len(segments) == 0 {
		return fmt.Errorf("no transcription segments")
	}

	var lines []Line
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		lines = append(lines, Line{
			Index:     len(lines) + 1,
			StartTime: seg.StartTime,
			EndTime:   seg.EndTime,
			Text:      text,
		})
	}
	if len(lines) == 0 {
		return fmt.Errorf("all transcription segments are empty")
	}

	if err := WriteFile(outPath, fixOverlaps(lines)); err != nil {
		return err
	}

	log.Info().Int("lines", len(lines)).Str("path", outPath).Msg("subtitle generated from transcription")
	return nil
}

// Parse 解析字幕文件，返回字幕行序列
func (e *Engine) Parse(path string) ([]Line, error) {
	return ParseFile(path)
}

// Correct 用旁白原文校正字幕文件
// 语音识别可能出现错别字或漏字，把识别出的时间轴套回原文，
// 字幕文本与原文逐行对不上时按原文重写
func (e *Engine) Correct(path string, script string) error {
	lines, err := ParseFile(path)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return fmt.Errorf("subtitle file %s is empty", path)
	}

	// 字幕拼起来与原文一致则无需校正
	if joinedClean(lines) == cleanText(script) {
		return nil
	}

	expected := e.splitter.Split(script)
	if len(expected) == 0 {
		return fmt.Errorf("script text is empty")
	}

	corrected := realign(lines, expected)
	if err := WriteFile(path, corrected); err != nil {
		return err
	}

	log.Info().
		Int("before", len(lines)).
		Int("after", len(corrected)).
		Str("path", path).
		Msg("subtitle corrected against script")
	return nil
}

// realign 把已有字幕的时间轴重新分配给原文的每一行
// 按字符数贪心消费：每行原文吃掉若干条旧字幕，取首条开始、末条结束时间
func realign(old []Line, expected []string) []Line {
	var result []Line
	cursor := 0

	for _, text := range expected {
		if cursor >= len(old) {
			// 旧字幕耗尽，剩余行按估算时长顺延
			start := estimateStart(result)
			result = append(result, Line{
				Index:     len(result) + 1,
				StartTime: start,
				EndTime:   start + float64(runeLen(cleanText(text)))*fallbackSecondsPerChar,
				Text:      text,
			})
			continue
		}

		want := runeLen(cleanText(text))
		start := old[cursor].StartTime
		end := old[cursor].EndTime
		consumed := runeLen(cleanText(old[cursor].Text))
		cursor++

		for consumed < want && cursor < len(old) {
			end = old[cursor].EndTime
			consumed += runeLen(cleanText(old[cursor].Text))
			cursor++
		}

		result = append(result, Line{
			Index:     len(result) + 1,
			StartTime: start,
			EndTime:   end,
			Text:      text,
		})
	}

	return fixOverlaps(result)
}

func joinedClean(lines []Line) string {
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(cleanText(line.Text))
	}
	return sb.String()
}
