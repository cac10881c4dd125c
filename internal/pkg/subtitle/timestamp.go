package subtitle

import (
	"kiwi/internal/pkg/tts"
)

// 估算字幕时长时每个字符占用的秒数
const fallbackSecondsPerChar = 0.3

// alignLines 把断句后的字幕行对齐到逐字时间戳上
// 逐字时间戳里的标点不参与对齐，找不到对应位置时按字符数估算时长，
// 最后统一修正重叠，保证时间轴严格递增
func alignLines(lines []string, timestamps []tts.CharTimestamp) []Line {
	cleanChars, mapping := buildCleanIndex(timestamps)
	cleanFull := string(cleanChars)

	var result []Line
	cursor := 0

	for _, text := range lines {
		cleanLine := cleanText(text)
		start, end, next := locateLine(cleanLine, cleanFull, mapping, timestamps, cursor, result)
		cursor = next

		start, end = clampToPrevious(start, end, cleanLine, result)

		result = append(result, Line{
			Index:     len(result) + 1,
			StartTime: start,
			EndTime:   end,
			Text:      text,
		})
	}

	return fixOverlaps(result)
}

// buildCleanIndex 过滤标点，返回干净字符序列及其到原始时间戳的索引映射
func buildCleanIndex(timestamps []tts.CharTimestamp) ([]rune, []int) {
	var chars []rune
	var mapping []int
	for i, ts := range timestamps {
		r := []rune(ts.Character)
		if len(r) != 1 || cleanText(ts.Character) == "" {
			continue
		}
		chars = append(chars, r[0])
		mapping = append(mapping, i)
	}
	return chars, mapping
}

// locateLine 从游标位置起在干净文本中查找该行，返回起止时间和新游标
func locateLine(
	cleanLine, cleanFull string,
	mapping []int,
	timestamps []tts.CharTimestamp,
	cursor int,
	done []Line,
) (float64, float64, int) {
	lineRunes := []rune(cleanLine)
	fullRunes := []rune(cleanFull)

	if len(lineRunes) == 0 {
		start := estimateStart(done)
		return start, start + 0.5, cursor
	}

	pos := indexRunesFrom(fullRunes, lineRunes, cursor)
	if pos < 0 {
		start := estimateStart(done)
		return start, start + float64(len(lineRunes))*fallbackSecondsPerChar, cursor
	}

	endPos := pos + len(lineRunes) - 1
	if endPos >= len(mapping) {
		start := estimateStart(done)
		return start, start + float64(len(lineRunes))*fallbackSecondsPerChar, cursor
	}

	startIdx := mapping[pos]
	endIdx := mapping[endPos]
	return timestamps[startIdx].StartTime, timestamps[endIdx].EndTime, endPos + 1
}

// indexRunesFrom 从 start 位置起查找子串，返回 rune 下标
func indexRunesFrom(haystack, needle []rune, start int) int {
	if start < 0 {
		start = 0
	}
	for pos := start; pos+len(needle) <= len(haystack); pos++ {
		match := true
		for j, r := range needle {
			if haystack[pos+j] != r {
				match = false
				break
			}
		}
		if match {
			return pos
		}
	}
	return -1
}

func estimateStart(done []Line) float64 {
	if len(done) > 0 {
		return done[len(done)-1].EndTime + 0.1
	}
	return 0
}

// clampToPrevious 保证当前行不早于前一行结束
func clampToPrevious(start, end float64, cleanLine string, done []Line) (float64, float64) {
	if len(done) == 0 {
		return start, end
	}
	prevEnd := done[len(done)-1].EndTime
	if start < prevEnd {
		start = prevEnd + 0.1
	}
	if end <= start {
		end = start + float64(runeLen(cleanLine))*fallbackSecondsPerChar
	}
	return start, end
}

// fixOverlaps 最终一次全量修正，消除任何残留的时间轴重叠
func fixOverlaps(lines []Line) []Line {
	for i := 1; i < len(lines); i++ {
		prev := lines[i-1]
		if lines[i].StartTime < prev.EndTime {
			duration := lines[i].EndTime - lines[i].StartTime
			if duration < 0.5 {
				duration = 0.5
			}
			lines[i].StartTime = prev.EndTime + 0.1
			lines[i].EndTime = lines[i].StartTime + duration
		}
		if lines[i].StartTime >= lines[i].EndTime {
			lines[i].EndTime = lines[i].StartTime + 1.0
		}
	}
	return lines
}
