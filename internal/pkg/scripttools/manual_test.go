package scripttools

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestScriptFromRawText(t *testing.T) {
	Convey("ScriptFromRawText 把整段旁白转换为逐句场景", t, func() {
		Convey("按句号切分，每句一个场景", func() {
			script, err := ScriptFromRawText("A. B. C.", nil)
			So(err, ShouldBeNil)
			So(len(script.Scenes), ShouldEqual, 3)
			So(script.Scenes[0].SceneNumber, ShouldEqual, 1)
			So(script.Scenes[1].SceneNumber, ShouldEqual, 2)
			So(script.Scenes[2].SceneNumber, ShouldEqual, 3)
			So(script.Scenes[0].VoiceoverText, ShouldEqual, "A")
			So(script.Scenes[1].VoiceoverText, ShouldEqual, "B")
			So(script.Scenes[2].VoiceoverText, ShouldEqual, "C")
		})

		Convey("画面描述内嵌句子原文", func() {
			script, err := ScriptFromRawText("The sun rises.", nil)
			So(err, ShouldBeNil)
			So(script.Scenes[0].VisualDescription, ShouldEqual, "A visual representation of: 'The sun rises'")
		})

		Convey("中文标点同样可以切分", func() {
			script, err := ScriptFromRawText("第一句。第二句！第三句？", nil)
			So(err, ShouldBeNil)
			So(len(script.Scenes), ShouldEqual, 3)
			So(script.Scenes[2].VoiceoverText, ShouldEqual, "第三句")
		})

		Convey("空白片段被丢弃", func() {
			script, err := ScriptFromRawText("A.  . !B.", nil)
			So(err, ShouldBeNil)
			So(len(script.Scenes), ShouldEqual, 2)
		})

		Convey("fallback 关键词去重后应用到每个场景", func() {
			script, err := ScriptFromRawText("A. B.", []string{"ocean", "wave", "ocean", " "})
			So(err, ShouldBeNil)
			So(script.Scenes[0].Keywords, ShouldResemble, []string{"ocean", "wave"})
			So(script.Scenes[1].Keywords, ShouldResemble, []string{"ocean", "wave"})
		})

		Convey("空文本返回 ErrGenerationFailed", func() {
			script, err := ScriptFromRawText("", nil)
			So(script, ShouldBeNil)
			So(errors.Is(err, ErrGenerationFailed), ShouldBeTrue)
		})

		Convey("只有标点和空白同样失败", func() {
			script, err := ScriptFromRawText(" . ! ? ", nil)
			So(script, ShouldBeNil)
			So(errors.Is(err, ErrGenerationFailed), ShouldBeTrue)
		})
	})
}
