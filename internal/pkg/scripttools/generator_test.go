package scripttools

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// fakeLLMProvider 按顺序返回预设响应的假 LLM 提供者
type fakeLLMProvider struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeLLMProvider) Generate(ctx context.Context, prompt string) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("no more responses")
}

const validScriptJSON = `{
  "scenes": [
    {"scene_number": 1, "voiceover_text": "黎明前的沙漠一片寂静。", "visual_description": "Wide shot of a dark desert before dawn, stars fading", "keywords": ["desert", "night sky", "dunes"]},
    {"scene_number": 2, "voiceover_text": "第一缕阳光染红了沙丘。", "visual_description": "Golden sunlight hitting sand dune ridges, warm tones", "keywords": ["sunrise", "golden light", "sand"]},
    {"scene_number": 3, "voiceover_text": "新的一天开始了。", "visual_description": "Time-lapse of sun rising over the horizon", "keywords": ["sun", "horizon", "timelapse"]}
  ]
}`

func TestScriptGenerator_Generate(t *testing.T) {
	ctx := context.Background()

	Convey("ScriptGenerator.Generate 能正确处理各种模型响应", t, func() {
		Convey("第一次尝试就返回合法 JSON 时立即成功", func() {
			provider := &fakeLLMProvider{responses: []string{validScriptJSON}}
			gen := NewScriptGenerator(provider, 5)

			script, err := gen.Generate(ctx, "desert sunrise", "zh", 3)
			So(err, ShouldBeNil)
			So(script.Valid(), ShouldBeTrue)
			So(len(script.Scenes), ShouldEqual, 3)
			So(script.Scenes[0].SceneNumber, ShouldEqual, 1)
			So(script.Scenes[2].SceneNumber, ShouldEqual, 3)
			So(provider.calls, ShouldEqual, 1)
		})

		Convey("JSON 前后有额外说明文字时能截取出对象", func() {
			provider := &fakeLLMProvider{responses: []string{
				"Sure! Here is your script:\n" + validScriptJSON + "\nLet me know if you need changes.",
			}}
			gen := NewScriptGenerator(provider, 5)

			script, err := gen.Generate(ctx, "desert sunrise", "zh", 3)
			So(err, ShouldBeNil)
			So(len(script.Scenes), ShouldEqual, 3)
		})

		Convey("markdown 代码块包裹的响应能正常解析", func() {
			provider := &fakeLLMProvider{responses: []string{
				"```json\n" + validScriptJSON + "\n```",
			}}
			gen := NewScriptGenerator(provider, 5)

			script, err := gen.Generate(ctx, "desert sunrise", "zh", 3)
			So(err, ShouldBeNil)
			So(len(script.Scenes), ShouldEqual, 3)
		})

		Convey("空场景列表触发重试，第二次成功时恰好尝试两次", func() {
			provider := &fakeLLMProvider{responses: []string{
				`{"scenes":[]}`,
				validScriptJSON,
			}}
			gen := NewScriptGenerator(provider, 5)

			script, err := gen.Generate(ctx, "desert sunrise", "zh", 3)
			So(err, ShouldBeNil)
			So(len(script.Scenes), ShouldEqual, 3)
			So(provider.calls, ShouldEqual, 2)
		})

		Convey("响应不含 JSON 对象时重试", func() {
			provider := &fakeLLMProvider{responses: []string{
				"I cannot produce JSON right now.",
				validScriptJSON,
			}}
			gen := NewScriptGenerator(provider, 5)

			script, err := gen.Generate(ctx, "desert sunrise", "zh", 3)
			So(err, ShouldBeNil)
			So(len(script.Scenes), ShouldEqual, 3)
			So(provider.calls, ShouldEqual, 2)
		})

		Convey("带 error 标记的响应视为失败", func() {
			provider := &fakeLLMProvider{responses: []string{
				`{"error": "rate limited"}`,
				validScriptJSON,
			}}
			gen := NewScriptGenerator(provider, 5)

			script, err := gen.Generate(ctx, "desert sunrise", "zh", 3)
			So(err, ShouldBeNil)
			So(len(script.Scenes), ShouldEqual, 3)
			So(provider.calls, ShouldEqual, 2)
		})

		Convey("场景编号不连续时判本次尝试失败", func() {
			provider := &fakeLLMProvider{responses: []string{
				`{"scenes":[{"scene_number":2,"voiceover_text":"a","visual_description":"b","keywords":[]}]}`,
				validScriptJSON,
			}}
			gen := NewScriptGenerator(provider, 5)

			script, err := gen.Generate(ctx, "desert sunrise", "zh", 3)
			So(err, ShouldBeNil)
			So(len(script.Scenes), ShouldEqual, 3)
			So(provider.calls, ShouldEqual, 2)
		})

		Convey("重试耗尽返回 ErrGenerationFailed", func() {
			provider := &fakeLLMProvider{responses: []string{
				"nope", "nope", "nope", "nope", "nope",
			}}
			gen := NewScriptGenerator(provider, 5)

			script, err := gen.Generate(ctx, "desert sunrise", "zh", 3)
			So(script, ShouldBeNil)
			So(errors.Is(err, ErrGenerationFailed), ShouldBeTrue)
			So(provider.calls, ShouldEqual, 5)
		})

		Convey("LLM 调用报错同样触发重试", func() {
			provider := &fakeLLMProvider{
				errs:      []error{errors.New("connection reset")},
				responses: []string{"", validScriptJSON},
			}
			gen := NewScriptGenerator(provider, 5)

			script, err := gen.Generate(ctx, "desert sunrise", "zh", 3)
			So(err, ShouldBeNil)
			So(len(script.Scenes), ShouldEqual, 3)
			So(provider.calls, ShouldEqual, 2)
		})

		Convey("每个场景最多保留 4 个关键词", func() {
			provider := &fakeLLMProvider{responses: []string{
				`{"scenes":[{"scene_number":1,"voiceover_text":"a","visual_description":"b","keywords":["k1","k2","k3","k4","k5","k6"]}]}`,
			}}
			gen := NewScriptGenerator(provider, 5)

			script, err := gen.Generate(ctx, "topic", "en", 1)
			So(err, ShouldBeNil)
			So(len(script.Scenes[0].Keywords), ShouldEqual, 4)
		})
	})
}

func TestExtractJSONObject(t *testing.T) {
	Convey("extractJSONObject 能从自由文本中截取配平的 JSON 对象", t, func() {
		Convey("纯 JSON 原样返回", func() {
			got, ok := extractJSONObject(`{"a":1}`)
			So(ok, ShouldBeTrue)
			So(got, ShouldEqual, `{"a":1}`)
		})

		Convey("嵌套对象按括号配平截取", func() {
			got, ok := extractJSONObject(`prefix {"a":{"b":[1,2]}} suffix {"c":3}`)
			So(ok, ShouldBeTrue)
			So(got, ShouldEqual, `{"a":{"b":[1,2]}}`)
		})

		Convey("字符串值里的花括号不影响配平", func() {
			got, ok := extractJSONObject(`{"text":"braces } inside {"}`)
			So(ok, ShouldBeTrue)
			So(got, ShouldEqual, `{"text":"braces } inside {"}`)
		})

		Convey("转义引号不会提前结束字符串", func() {
			got, ok := extractJSONObject(`{"text":"quote \" and }"}`)
			So(ok, ShouldBeTrue)
			So(got, ShouldEqual, `{"text":"quote \" and }"}`)
		})

		Convey("没有左花括号返回 false", func() {
			_, ok := extractJSONObject("no json at all")
			So(ok, ShouldBeFalse)
		})

		Convey("花括号不配平返回 false", func() {
			_, ok := extractJSONObject(`{"a": [1, 2`)
			So(ok, ShouldBeFalse)
		})
	})
}
