package subtitle

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"kiwi/internal/pkg/asr"
	"kiwi/internal/pkg/tts"
)

func TestSplitter(t *testing.T) {
	Convey("字幕断句", t, func() {
		s := NewSplitter(10)

		Convey("按句末标点分句", func() {
			lines := s.Split("第一句话。第二句话！第三句话？")
			So(lines, ShouldResemble, []string{"第一句话。", "第二句话！", "第三句话？"})
		})

		Convey("英文句子同样可以分句", func() {
			lines := s.Split("Hello world. How are you?")
			So(len(lines), ShouldEqual, 2)
			So(lines[0], ShouldEqual, "Hello world.")
		})

		Convey("过长的句子在词边界处折行", func() {
			lines := s.Split("这是一个非常非常非常非常非常非常长的句子需要折行处理。")
			So(len(lines), ShouldBeGreaterThan, 1)
			for _, line := range lines {
				So(runeLen(cleanText(line)), ShouldBeLessThanOrEqualTo, 10)
			}
		})

		Convey("空文本返回空结果", func() {
			So(s.Split(""), ShouldBeEmpty)
		})
	})

	Convey("分词器缺席时降级为逐字切分", t, func() {
		s := &Splitter{maxLength: 10}

		lines := s.Split("这是一个非常非常非常非常非常非常长的句子需要折行处理。")
		So(len(lines), ShouldBeGreaterThan, 1)
		for _, line := range lines {
			So(runeLen(cleanText(line)), ShouldBeLessThanOrEqualTo, 10)
		}
	})
}

func TestSRTCodec(t *testing.T) {
	Convey("SRT 编解码", t, func() {
		lines := []Line{
			{Index: 1, StartTime: 0, EndTime: 2.5, Text: "第一行"},
			{Index: 2, StartTime: 2.6, EndTime: 65.123, Text: "第二行"},
		}

		Convey("时间戳格式为 HH:MM:SS,mmm", func() {
			text := FormatSRT(lines)
			So(text, ShouldContainSubstring, "00:00:00,000 --> 00:00:02,500")
			So(text, ShouldContainSubstring, "00:01:05,123")
		})

		Convey("写入文件后可以解析回来", func() {
			path := filepath.Join(t.TempDir(), "test.srt")
			So(WriteFile(path, lines), ShouldBeNil)

			parsed, err := ParseFile(path)
			So(err, ShouldBeNil)
			So(len(parsed), ShouldEqual, 2)
			So(parsed[0].Text, ShouldEqual, "第一行")
			So(parsed[1].StartTime, ShouldAlmostEqual, 2.6, 0.001)
			So(parsed[1].EndTime, ShouldAlmostEqual, 65.123, 0.001)
		})

		Convey("解析损坏的文件返回错误", func() {
			path := filepath.Join(t.TempDir(), "bad.srt")
			So(os.WriteFile(path, []byte("not a subtitle"), 0644), ShouldBeNil)

			_, err := ParseFile(path)
			So(err, ShouldNotBeNil)
		})
	})
}

// makeTimestamps 为文本构造均匀的逐字时间戳，每字 0.5 秒
func makeTimestamps(text string) []tts.CharTimestamp {
	var result []tts.CharTimestamp
	offset := 0.0
	for _, r := range text {
		result = append(result, tts.CharTimestamp{
			Character: string(r),
			StartTime: offset,
			EndTime:   offset + 0.5,
		})
		offset += 0.5
	}
	return result
}

func TestGenerateFromTimestamps(t *testing.T) {
	Convey("基于逐字时间戳生成字幕", t, func() {
		e := NewEngine(10)
		text := "今天天气很好。我们一起出去玩！"

		Convey("生成的字幕时间轴与逐字时间戳吻合", func() {
			path := filepath.Join(t.TempDir(), "out.srt")
			err := e.GenerateFromTimestamps(text, makeTimestamps(text), path)
			So(err, ShouldBeNil)

			lines, err := ParseFile(path)
			So(err, ShouldBeNil)
			So(len(lines), ShouldEqual, 2)
			So(lines[0].StartTime, ShouldAlmostEqual, 0, 0.001)
			// 第二句从第 8 个字开始（含句号）
			So(lines[1].StartTime, ShouldAlmostEqual, 3.5, 0.001)
			// 时间轴严格递增
			So(lines[1].StartTime, ShouldBeGreaterThanOrEqualTo, lines[0].EndTime)
		})

		Convey("没有时间戳时返回错误", func() {
			path := filepath.Join(t.TempDir(), "out.srt")
			err := e.GenerateFromTimestamps(text, nil, path)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestGenerateFromSegments(t *testing.T) {
	Convey("基于语音识别分段生成字幕", t, func() {
		e := NewEngine(10)

		Convey("每个分段对应一条字幕", func() {
			path := filepath.Join(t.TempDir(), "out.srt")
			segments := []asr.Segment{
				{Text: "hello there", StartTime: 0, EndTime: 1.2},
				{Text: "  ", StartTime: 1.2, EndTime: 1.5},
				{Text: "general kenobi", StartTime: 1.5, EndTime: 3},
			}
			So(e.GenerateFromSegments(segments, path), ShouldBeNil)

			lines, err := ParseFile(path)
			So(err, ShouldBeNil)
			So(len(lines), ShouldEqual, 2)
			So(lines[1].Text, ShouldEqual, "general kenobi")
		})

		Convey("分段全部为空时返回错误", func() {
			path := filepath.Join(t.TempDir(), "out.srt")
			err := e.GenerateFromSegments([]asr.Segment{{Text: " "}}, path)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestCorrect(t *testing.T) {
	Convey("用旁白原文校正字幕", t, func() {
		e := NewEngine(20)

		Convey("字幕与原文一致时不做改动", func() {
			path := filepath.Join(t.TempDir(), "sub.srt")
			So(WriteFile(path, []Line{
				{Index: 1, StartTime: 0, EndTime: 2, Text: "今天天气很好。"},
			}), ShouldBeNil)
			before, _ := os.ReadFile(path)

			So(e.Correct(path, "今天天气很好。"), ShouldBeNil)

			after, _ := os.ReadFile(path)
			So(string(after), ShouldEqual, string(before))
		})

		Convey("识别出错别字时按原文重写并保留时间轴", func() {
			path := filepath.Join(t.TempDir(), "sub.srt")
			So(WriteFile(path, []Line{
				{Index: 1, StartTime: 0, EndTime: 2, Text: "今天天汽很好。"},
				{Index: 2, StartTime: 2.1, EndTime: 4, Text: "我们出去玩。"},
			}), ShouldBeNil)

			So(e.Correct(path, "今天天气很好。我们出去玩。"), ShouldBeNil)

			lines, err := ParseFile(path)
			So(err, ShouldBeNil)
			So(len(lines), ShouldEqual, 2)
			So(lines[0].Text, ShouldEqual, "今天天气很好。")
			So(lines[0].StartTime, ShouldAlmostEqual, 0, 0.001)
			So(lines[1].EndTime, ShouldAlmostEqual, 4, 0.001)
		})
	})
}
