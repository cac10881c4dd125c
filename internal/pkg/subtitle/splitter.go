package subtitle

import (
	"regexp"
	"strings"

	"github.com/go-ego/gse"
)

// DefaultMaxLineLength 单行字幕最大字符数
const DefaultMaxLineLength = 30

var (
	sentenceEnders  = []rune{'。', '！', '？', '；', '…', '：', '.', '!', '?', ';'}
	secondaryEnders = []rune{'，', '、', ','}

	spacePattern = regexp.MustCompile(`\s+`)
	punctPattern = regexp.MustCompile(`[，。；：、！？""''（）【】《》「」『』～·…—–,.;:!?"'()\[\]{}|~` + "`" + `@#$%^&*+=<>/\\-]`)
)

// Splitter 字幕断句器
// 先按句末标点分句，过长的句子再用 gse 分词在词边界处折行，
// 避免词组被裁断导致字幕阅读困难
type Splitter struct {
	maxLength int
	segmenter *gse.Segmenter
}

// NewSplitter 创建字幕断句器，maxLength 为单行最大字符数
func NewSplitter(maxLength int) *Splitter {
	if maxLength <= 0 {
		maxLength = DefaultMaxLineLength
	}

	s := &Splitter{maxLength: maxLength}

	// 分词器加载失败时 segmenter 保持 nil，降级为逐字切分
	if seg, err := gse.New(); err == nil {
		s.segmenter = &seg
	}

	return s
}

// Split 把旁白文本切成适合做字幕的短行
func (s *Splitter) Split(text string) []string {
	sentences := splitByEnders(text, sentenceEnders)

	// 整段没有句末标点且明显过长时，退而按逗号类标点分句
	if len(sentences) == 1 && runeLen(cleanText(sentences[0])) > s.maxLength*2 {
		sentences = splitByEnders(sentences[0], secondaryEnders)
	}

	var lines []string
	for _, sentence := range sentences {
		if runeLen(cleanText(sentence)) <= s.maxLength {
			lines = append(lines, sentence)
			continue
		}
		lines = append(lines, s.wrapLongSentence(sentence)...)
	}

	return mergeTinyLines(lines)
}

// wrapLongSentence 在词边界处折行过长的句子
func (s *Splitter) wrapLongSentence(sentence string) []string {
	var words []string
	if s.segmenter != nil {
		words = s.segmenter.Cut(sentence, false)
	} else {
		for _, r := range sentence {
			words = append(words, string(r))
		}
	}

	var lines []string
	current := ""
	for _, word := range words {
		if cleanText(word) == "" {
			// 纯标点直接挂在当前行尾
			current += word
			continue
		}

		if runeLen(cleanText(current+word)) <= s.maxLength {
			current += word
			continue
		}

		if current != "" {
			lines = append(lines, strings.TrimSpace(current))
		}
		current = word

		// 单个词仍超长时强制按字符截断
		if runeLen(cleanText(current)) > s.maxLength {
			chunks := chunkRunes(current, s.maxLength)
			lines = append(lines, chunks[:len(chunks)-1]...)
			current = chunks[len(chunks)-1]
		}
	}
	if strings.TrimSpace(current) != "" {
		lines = append(lines, strings.TrimSpace(current))
	}

	return lines
}

// splitByEnders 按给定的结束符分句
func splitByEnders(text string, enders []rune) []string {
	var sentences []string
	current := strings.Builder{}

	for _, r := range text {
		current.WriteRune(r)
		if containsRune(enders, r) {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

// mergeTinyLines 把空行丢弃、单字符行并入相邻行
func mergeTinyLines(lines []string) []string {
	var merged []string
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if runeLen(cleanText(line)) == 1 {
			if len(merged) > 0 {
				merged[len(merged)-1] += line
				continue
			}
			if i+1 < len(lines) {
				lines[i+1] = line + lines[i+1]
				continue
			}
		}
		merged = append(merged, line)
	}
	return merged
}

func containsRune(slice []rune, r rune) bool {
	for _, v := range slice {
		if v == r {
			return true
		}
	}
	return false
}

func chunkRunes(text string, size int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}
	var chunks []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

func runeLen(s string) int {
	return len([]rune(s))
}

// cleanText 去掉空白和标点，用于长度计算和文本比对
func cleanText(text string) string {
	text = spacePattern.ReplaceAllString(text, "")
	return punctPattern.ReplaceAllString(text, "")
}
