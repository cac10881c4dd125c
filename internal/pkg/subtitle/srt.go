package subtitle

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Line 一条字幕
type Line struct {
	Index     int     // 序号，从 1 开始
	StartTime float64 // 开始时间（秒）
	EndTime   float64 // 结束时间（秒）
	Text      string  // 文本内容
}

// FormatSRT 把字幕行序列化为 SRT 文本
func FormatSRT(lines []Line) string {
	var sb strings.Builder
	for i, line := range lines {
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString("\n")
		sb.WriteString(formatTimestamp(line.StartTime))
		sb.WriteString(" --> ")
		sb.WriteString(formatTimestamp(line.EndTime))
		sb.WriteString("\n")
		sb.WriteString(line.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// WriteFile 把字幕行写入 SRT 文件
func WriteFile(path string, lines []Line) error {
	if err := os.WriteFile(path, []byte(FormatSRT(lines)), 0644); err != nil {
		return fmt.Errorf("write subtitle file: %w", err)
	}
	return nil
}

// ParseFile 解析 SRT 文件
func ParseFile(path string) ([]Line, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open subtitle file: %w", err)
	}
	defer file.Close()

	var lines []Line
	scanner := bufio.NewScanner(file)

	var block []string
	flush := func() error {
		if len(block) == 0 {
			return nil
		}
		line, err := parseBlock(block)
		if err != nil {
			return err
		}
		lines = append(lines, line)
		block = nil
		return nil
	}

	for scanner.Scan() {
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		block = append(block, text)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read subtitle file: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return lines, nil
}

// parseBlock 解析一个 SRT 块：序号行、时间行、若干文本行
func parseBlock(block []string) (Line, error) {
	if len(block) < 2 {
		return Line{}, fmt.Errorf("malformed subtitle block: %q", strings.Join(block, " "))
	}

	index, err := strconv.Atoi(strings.TrimSpace(block[0]))
	if err != nil {
		return Line{}, fmt.Errorf("invalid subtitle index %q: %w", block[0], err)
	}

	parts := strings.Split(block[1], "-->")
	if len(parts) != 2 {
		return Line{}, fmt.Errorf("invalid subtitle time line %q", block[1])
	}
	start, err := parseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return Line{}, err
	}
	end, err := parseTimestamp(strings.TrimSpace(parts[1]))
	if err != nil {
		return Line{}, err
	}

	return Line{
		Index:     index,
		StartTime: start,
		EndTime:   end,
		Text:      strings.Join(block[2:], "\n"),
	}, nil
}

// formatTimestamp 秒 -> HH:MM:SS,mmm
func formatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMillis := int64(seconds*1000 + 0.5)
	h := totalMillis / 3600000
	m := totalMillis % 3600000 / 60000
	s := totalMillis % 60000 / 1000
	ms := totalMillis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// parseTimestamp HH:MM:SS,mmm -> 秒
func parseTimestamp(ts string) (float64, error) {
	ts = strings.ReplaceAll(ts, ",", ".")
	parts := strings.Split(ts, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	s, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	return float64(h)*3600 + float64(m)*60 + s, nil
}
