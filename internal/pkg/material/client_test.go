package material

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"kiwi/internal/config"
)

// newPexelsStub 返回一个假的 Pexels 服务：搜索接口返回 count 条竖屏素材，
// 下载地址指向自身的 /file/ 路径
func newPexelsStub(count int) *httptest.Server {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/file/") {
			w.Write([]byte("fake video bytes"))
			return
		}

		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		type videoFile struct {
			Width  int    `json:"width"`
			Height int    `json:"height"`
			Link   string `json:"link"`
		}
		type video struct {
			ID         int         `json:"id"`
			Duration   float64     `json:"duration"`
			VideoFiles []videoFile `json:"video_files"`
		}

		var videos []video
		for i := 0; i < count; i++ {
			videos = append(videos, video{
				ID:       i + 1,
				Duration: 10,
				VideoFiles: []videoFile{
					// 横屏档位应被过滤掉
					{Width: 1920, Height: 1080, Link: server.URL + fmt.Sprintf("/file/landscape-%d.mp4", i)},
					{Width: 720, Height: 1280, Link: server.URL + fmt.Sprintf("/file/portrait-%d.mp4", i)},
					{Width: 1080, Height: 1920, Link: server.URL + fmt.Sprintf("/file/portrait-hd-%d.mp4", i)},
				},
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"videos": videos})
	}))
	return server
}

func newTestClient(baseURL string) *Client {
	c := NewClient(&config.MaterialConfig{
		PexelsAPIKeys: []string{"key-a", "key-b"},
	}, nil)
	c.pexelsBaseURL = baseURL
	c.pixabayBaseURL = baseURL
	return c
}

func TestDownload(t *testing.T) {
	Convey("下载素材", t, func() {
		server := newPexelsStub(4)
		defer server.Close()

		c := newTestClient(server.URL)
		taskDir := t.TempDir()

		Convey("满足目标时长后停止下载", func() {
			// 每条素材 10 秒但单条最多计 5 秒，12 秒目标需要 3 条
			paths, err := c.Download(context.Background(), taskDir,
				[]string{"sunrise"}, SourcePexels, 1080, 1920, 12, 5)
			So(err, ShouldBeNil)
			So(len(paths), ShouldEqual, 3)
			for _, p := range paths {
				data, err := os.ReadFile(p)
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "fake video bytes")
			}
		})

		Convey("同一档位选择分辨率最高的下载地址", func() {
			candidates := c.collectCandidates(context.Background(),
				[]string{"sunrise"}, SourcePexels, 1080, 1920)
			So(len(candidates), ShouldEqual, 4)
			So(candidates[0].URL, ShouldContainSubstring, "portrait-hd")
		})

		Convey("多个搜索词的重复结果只保留一次", func() {
			candidates := c.collectCandidates(context.Background(),
				[]string{"sunrise", "sunrise again"}, SourcePexels, 1080, 1920)
			So(len(candidates), ShouldEqual, 4)
		})

		Convey("没有搜索词时返回错误", func() {
			_, err := c.Download(context.Background(), taskDir,
				nil, SourcePexels, 1080, 1920, 12, 5)
			So(err, ShouldNotBeNil)
		})

		Convey("未配置 API Key 时搜索不到任何素材", func() {
			empty := NewClient(&config.MaterialConfig{}, nil)
			empty.pexelsBaseURL = server.URL
			_, err := empty.Download(context.Background(), taskDir,
				[]string{"sunrise"}, SourcePexels, 1080, 1920, 12, 5)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "no material found")
		})
	})
}

func TestMatchesOrientation(t *testing.T) {
	Convey("画幅方向匹配", t, func() {
		Convey("竖屏目标只接受竖屏素材", func() {
			So(matchesOrientation(720, 1280, 1080, 1920), ShouldBeTrue)
			So(matchesOrientation(1920, 1080, 1080, 1920), ShouldBeFalse)
		})

		Convey("方形目标要求严格等宽高", func() {
			So(matchesOrientation(720, 720, 1080, 1080), ShouldBeTrue)
			So(matchesOrientation(720, 719, 1080, 1080), ShouldBeFalse)
		})

		Convey("非法尺寸一律不匹配", func() {
			So(matchesOrientation(0, 0, 1080, 1920), ShouldBeFalse)
		})
	})
}
