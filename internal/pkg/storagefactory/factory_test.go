package storagefactory

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"kiwi/internal/config"
)

func TestNewStorage(t *testing.T) {
	Convey("按配置创建存储实例", t, func() {
		Convey("本地存储", func() {
			s, err := NewStorage(&config.StorageConfig{
				Type: "local",
				Local: &config.LocalConfig{
					BasePath: t.TempDir(),
					BaseURL:  "http://localhost:8080/storage",
				},
			})
			So(err, ShouldBeNil)
			So(s.GetStorageType(), ShouldEqual, "local")
		})

		Convey("缺少本地存储配置时返回错误", func() {
			_, err := NewStorage(&config.StorageConfig{Type: "local"})
			So(err, ShouldNotBeNil)
		})

		Convey("未知存储类型返回错误", func() {
			_, err := NewStorage(&config.StorageConfig{Type: "s3"})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestLocalStorageRoundTrip(t *testing.T) {
	Convey("本地存储读写", t, func() {
		baseURL := "http://localhost:8080/storage"
		s, err := NewStorage(&config.StorageConfig{
			Type: "local",
			Local: &config.LocalConfig{
				BasePath: t.TempDir(),
				BaseURL:  baseURL,
			},
		})
		So(err, ShouldBeNil)

		ctx := context.Background()
		key := "tasks/demo/final-1.mp4"
		content := "fake video bytes"

		Convey("上传后返回可访问URL并能读回内容", func() {
			url, err := s.Upload(ctx, key, strings.NewReader(content), "video/mp4")
			So(err, ShouldBeNil)
			So(url, ShouldEqual, baseURL+"/"+key)

			reader, err := s.Download(ctx, key)
			So(err, ShouldBeNil)
			defer reader.Close()

			data, err := io.ReadAll(reader)
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, content)

			presigned, err := s.GetPresignedDownloadURL(ctx, key, time.Hour)
			So(err, ShouldBeNil)
			So(presigned, ShouldEqual, url)
		})

		Convey("删除不存在的文件不报错", func() {
			So(s.Delete(ctx, "nonexistent/file.mp4"), ShouldBeNil)
		})

		Convey("下载不存在的文件返回错误", func() {
			_, err := s.Download(ctx, "nonexistent/file.mp4")
			So(err, ShouldNotBeNil)
		})
	})
}
