package task

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"kiwi/internal/model/task"
	"kiwi/internal/pkg/cache"
)

func TestCreateTask(t *testing.T) {
	Convey("创建任务", t, func() {
		h := newHarness(t)
		svc := NewService(h.repo, h.cache, h.pipeline)

		Convey("缺少主题和脚本时拒绝创建", func() {
			_, err := svc.CreateTask(context.Background(), task.VideoParams{}, task.StopAtVideo)
			So(err, ShouldNotBeNil)
		})

		Convey("非法 stop_at 拒绝创建", func() {
			_, err := svc.CreateTask(context.Background(), defaultParams(), task.StopAt("nonsense"))
			So(err, ShouldNotBeNil)
		})

		Convey("创建成功后管线异步推进到 COMPLETE", func() {
			created, err := svc.CreateTask(context.Background(), defaultParams(), task.StopAtVideo)
			So(err, ShouldBeNil)
			So(created.ID, ShouldNotBeEmpty)
			So(created.State, ShouldEqual, task.StatePending)

			// 等待异步管线结束
			deadline := time.Now().Add(3 * time.Second)
			var final *task.Task
			for time.Now().Before(deadline) {
				stored, err := h.repo.FindByID(context.Background(), created.ID)
				if err == nil && (stored.State == task.StateComplete || stored.State == task.StateFailed) {
					final = stored
					break
				}
				time.Sleep(10 * time.Millisecond)
			}
			So(final, ShouldNotBeNil)
			So(final.State, ShouldEqual, task.StateComplete)
		})
	})
}

func TestGetTask(t *testing.T) {
	Convey("查询任务", t, func() {
		h := newHarness(t)
		svc := NewService(h.repo, h.cache, h.pipeline)

		tk := h.newTask(defaultParams())

		Convey("缓存未命中时回源仓库", func() {
			got, err := svc.GetTask(context.Background(), tk.ID)
			So(err, ShouldBeNil)
			So(got.ID, ShouldEqual, tk.ID)
		})

		Convey("缓存命中时直接返回热镜像", func() {
			mirror := *tk
			mirror.Progress = 42
			So(h.cache.Set(context.Background(), cache.TaskCacheKey(tk.ID), &mirror, time.Minute), ShouldBeNil)

			got, err := svc.GetTask(context.Background(), tk.ID)
			So(err, ShouldBeNil)
			So(got.Progress, ShouldEqual, 42)
		})

		Convey("不存在的任务返回错误", func() {
			_, err := svc.GetTask(context.Background(), "missing")
			So(err, ShouldNotBeNil)
		})
	})
}
