package scripttools

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAggregateKeywords(t *testing.T) {
	Convey("AggregateKeywords 按场景顺序聚合并保序去重", t, func() {
		script := &StructuredScript{Scenes: []Scene{
			{SceneNumber: 1, Keywords: []string{"desert", "sunrise", "sand"}},
			{SceneNumber: 2, Keywords: []string{"sunrise", "golden light"}},
			{SceneNumber: 3, Keywords: []string{"sand", "horizon"}},
		}}

		Convey("重复关键词只保留首次出现", func() {
			got := AggregateKeywords(script, 10)
			So(got, ShouldResemble, []string{"desert", "sunrise", "sand", "golden light", "horizon"})
		})

		Convey("超出上限时截断", func() {
			got := AggregateKeywords(script, 3)
			So(got, ShouldResemble, []string{"desert", "sunrise", "sand"})
		})

		Convey("limit 非法时使用默认值", func() {
			got := AggregateKeywords(script, 0)
			So(len(got), ShouldEqual, 5)
		})

		Convey("nil 脚本返回空列表而不是错误", func() {
			got := AggregateKeywords(nil, 10)
			So(got, ShouldNotBeNil)
			So(len(got), ShouldEqual, 0)
		})

		Convey("空场景脚本返回空列表", func() {
			got := AggregateKeywords(&StructuredScript{}, 10)
			So(len(got), ShouldEqual, 0)
		})

		Convey("聚合结果再次聚合保持稳定（幂等）", func() {
			first := AggregateKeywords(script, 10)
			rescr := &StructuredScript{Scenes: []Scene{{SceneNumber: 1, Keywords: first}}}
			second := AggregateKeywords(rescr, 10)
			So(second, ShouldResemble, first)
		})
	})
}
