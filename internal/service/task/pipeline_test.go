package task

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"kiwi/internal/model/task"
	"kiwi/internal/pkg/asr"
	"kiwi/internal/pkg/scripttools"
	"kiwi/internal/pkg/subtitle"
	"kiwi/internal/pkg/tts"
)

// fakeRepo 内存版任务仓库，progress 更新保持单调不减
type fakeRepo struct {
	mu              sync.Mutex
	tasks           map[string]*task.Task
	progressHistory []int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{tasks: make(map[string]*task.Task)}
}

func (r *fakeRepo) Create(ctx context.Context, t *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.tasks[t.ID] = &cp
	return nil
}

func (r *fakeRepo) FindByID(ctx context.Context, id string) (*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s not found", id)
	}
	cp := *t
	return &cp, nil
}

func (r *fakeRepo) Update(ctx context.Context, id string, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("task %s not found", id)
	}
	for k, v := range fields {
		switch k {
		case "state":
			t.State = v.(task.State)
		case "progress":
			p := v.(int)
			if p > t.Progress {
				t.Progress = p
			}
			r.progressHistory = append(r.progressHistory, t.Progress)
		case "script":
			t.Script = v.(*scripttools.StructuredScript)
		case "terms":
			t.Terms = v.([]string)
		case "audio_file":
			t.AudioFile = v.(string)
		case "audio_duration":
			t.AudioDuration = v.(float64)
		case "subtitle_path":
			t.SubtitlePath = v.(string)
		case "materials":
			t.Materials = v.([]string)
		case "combined_videos":
			t.CombinedVideos = v.([]string)
		case "videos":
			t.Videos = v.([]string)
		case "video_urls":
			t.VideoURLs = v.([]string)
		case "error_message":
			t.ErrorMessage = v.(string)
		}
	}
	return nil
}

// fakeCache 内存版热镜像
type fakeCache struct {
	mu   sync.Mutex
	data map[string]any
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]any)}
}

func (c *fakeCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := value.(*task.Task); ok {
		cp := *t
		c.data[key] = &cp
		return nil
	}
	c.data[key] = value
	return nil
}

func (c *fakeCache) Get(ctx context.Context, key string, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return fmt.Errorf("cache miss")
	}
	if t, ok := v.(*task.Task); ok {
		if out, ok := dest.(*task.Task); ok {
			*out = *t
			return nil
		}
	}
	return fmt.Errorf("unexpected cache value type")
}

func testScript(scenes int) *scripttools.StructuredScript {
	s := &scripttools.StructuredScript{}
	for i := 1; i <= scenes; i++ {
		s.Scenes = append(s.Scenes, scripttools.Scene{
			SceneNumber:       i,
			VoiceoverText:     fmt.Sprintf("Sentence %d.", i),
			VisualDescription: fmt.Sprintf("Visual %d", i),
			Keywords:          []string{fmt.Sprintf("keyword-%d", i), "shared"},
		})
	}
	return s
}

type stubScriptGen struct {
	calls  int
	script *scripttools.StructuredScript
	err    error
}

func (s *stubScriptGen) Generate(ctx context.Context, topic, language string, sceneCount int) (*scripttools.StructuredScript, error) {
	s.calls++
	return s.script, s.err
}

type stubSpeech struct {
	calls  int
	result *tts.SpeechResult
	err    error
}

func (s *stubSpeech) Synthesize(ctx context.Context, text, voice string, rate, volume float64) (*tts.SpeechResult, error) {
	s.calls++
	return s.result, s.err
}

type stubTranscriber struct {
	calls    int
	segments []asr.Segment
	err      error
}

func (s *stubTranscriber) Transcribe(ctx context.Context, audioPath string) ([]asr.Segment, error) {
	s.calls++
	return s.segments, s.err
}

type stubSubtitles struct {
	fromTimestamps int
	fromSegments   int
	corrections    int
	failPrimary    bool
	failFallback   bool
	writeGarbage   bool
}

func (s *stubSubtitles) writeDummy(outPath string) error {
	if s.writeGarbage {
		return os.WriteFile(outPath, []byte("this is not an srt file at all"), 0644)
	}
	return os.WriteFile(outPath, []byte("1\n00:00:00,000 --> 00:00:01,000\nhi\n\n"), 0644)
}

func (s *stubSubtitles) GenerateFromTimestamps(text string, timestamps []tts.CharTimestamp, outPath string) error {
	s.fromTimestamps++
	if s.failPrimary {
		return fmt.Errorf("primary generation failed")
	}
	return s.writeDummy(outPath)
}

func (s *stubSubtitles) GenerateFromSegments(segments []asr.Segment, outPath string) error {
	s.fromSegments++
	if s.failFallback {
		return fmt.Errorf("fallback generation failed")
	}
	return s.writeDummy(outPath)
}

func (s *stubSubtitles) Correct(path string, script string) error {
	s.corrections++
	return nil
}

func (s *stubSubtitles) Parse(path string) ([]subtitle.Line, error) {
	return subtitle.ParseFile(path)
}

type stubMaterials struct {
	downloads   int
	preprocesss int
	clips       []string
	err         error
}

func (s *stubMaterials) Download(ctx context.Context, taskDir string, terms []string, source string, width, height int, totalDuration, maxClipDuration float64) ([]string, error) {
	s.downloads++
	return s.clips, s.err
}

func (s *stubMaterials) PreprocessLocal(ctx context.Context, taskDir string, paths []string, clipDuration float64, width, height, fps int) ([]string, error) {
	s.preprocesss++
	return s.clips, s.err
}

type stubRenderer struct {
	combines   int
	renders    int
	combineErr error
	renderErr  error
}

func (s *stubRenderer) Combine(ctx context.Context, req *CombineRequest) (string, error) {
	s.combines++
	if s.combineErr != nil {
		return "", s.combineErr
	}
	path := filepath.Join(req.TaskDir, fmt.Sprintf("combined-%d.mp4", req.Index))
	if err := os.WriteFile(path, []byte("combined"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func (s *stubRenderer) Render(ctx context.Context, req *RenderRequest) (string, error) {
	s.renders++
	if s.renderErr != nil {
		return "", s.renderErr
	}
	path := filepath.Join(req.TaskDir, fmt.Sprintf("final-%d.mp4", req.Index))
	if err := os.WriteFile(path, []byte("final"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

type stubPublisher struct {
	calls int
	err   error
}

func (s *stubPublisher) Publish(ctx context.Context, taskID string, paths []string) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	urls := make([]string, 0, len(paths))
	for _, p := range paths {
		urls = append(urls, "http://cdn.example.com/"+taskID+"/"+filepath.Base(p))
	}
	return urls, nil
}

// testHarness 一套完整的管线测试环境
type testHarness struct {
	repo        *fakeRepo
	cache       *fakeCache
	script      *stubScriptGen
	speech      *stubSpeech
	transcriber *stubTranscriber
	subtitles   *stubSubtitles
	materials   *stubMaterials
	renderer    *stubRenderer
	publisher   *stubPublisher
	pipeline    *Pipeline
}

func newHarness(t *testing.T) *testHarness {
	h := &testHarness{
		repo:        newFakeRepo(),
		cache:       newFakeCache(),
		script:      &stubScriptGen{script: testScript(3)},
		speech:      &stubSpeech{result: &tts.SpeechResult{AudioData: []byte("audio"), Duration: 9.4}},
		transcriber: &stubTranscriber{segments: []asr.Segment{{Text: "hi", StartTime: 0, EndTime: 1}}},
		subtitles:   &stubSubtitles{},
		materials:   &stubMaterials{clips: []string{"/clips/a.mp4", "/clips/b.mp4"}},
		renderer:    &stubRenderer{},
		publisher:   &stubPublisher{},
	}
	h.pipeline = NewPipeline(h.repo, h.cache, h.script, h.speech, h.transcriber,
		h.subtitles, h.materials, h.renderer, h.publisher, t.TempDir(), 10)
	return h
}

func (h *testHarness) newTask(params task.VideoParams) *task.Task {
	params.Normalize()
	t := &task.Task{ID: "test-task", State: task.StatePending, Params: params}
	h.repo.Create(context.Background(), t)
	return t
}

func defaultParams() task.VideoParams {
	return task.VideoParams{
		Subject:         "desert sunrise",
		Language:        "en",
		SceneCount:      3,
		SubtitleEnabled: true,
		VideoCount:      1,
	}
}

func TestPipelineStopAtScript(t *testing.T) {
	Convey("stop_at=script 提前停止", t, func() {
		h := newHarness(t)
		tk := h.newTask(defaultParams())

		h.pipeline.Run(context.Background(), tk, task.StopAtScript)

		stored, err := h.repo.FindByID(context.Background(), tk.ID)
		So(err, ShouldBeNil)

		Convey("任务 COMPLETE 且进度 100", func() {
			So(stored.State, ShouldEqual, task.StateComplete)
			So(stored.Progress, ShouldEqual, 100)
		})

		Convey("脚本与关键词已持久化", func() {
			So(stored.Script, ShouldNotBeNil)
			So(len(stored.Script.Scenes), ShouldEqual, 3)
			So(len(stored.Terms), ShouldBeGreaterThan, 0)
		})

		Convey("后续阶段的协作方一个都没被调用", func() {
			So(h.speech.calls, ShouldEqual, 0)
			So(h.subtitles.fromTimestamps, ShouldEqual, 0)
			So(h.materials.downloads, ShouldEqual, 0)
			So(h.renderer.combines, ShouldEqual, 0)
		})
	})
}

func TestPipelineEndToEnd(t *testing.T) {
	Convey("完整管线", t, func() {
		h := newHarness(t)
		h.speech.result.CharTimestamps = []tts.CharTimestamp{
			{Character: "h", StartTime: 0, EndTime: 0.5},
			{Character: "i", StartTime: 0.5, EndTime: 1},
		}
		tk := h.newTask(defaultParams())

		h.pipeline.Run(context.Background(), tk, task.StopAtVideo)

		stored, err := h.repo.FindByID(context.Background(), tk.ID)
		So(err, ShouldBeNil)

		Convey("任务 COMPLETE，产出 1 条成片", func() {
			So(stored.State, ShouldEqual, task.StateComplete)
			So(stored.Progress, ShouldEqual, 100)
			So(len(stored.Videos), ShouldEqual, 1)
			So(len(stored.CombinedVideos), ShouldEqual, 1)
		})

		Convey("结果捆绑完整", func() {
			So(len(stored.Script.Scenes), ShouldEqual, 3)
			So(len(stored.Terms), ShouldBeLessThanOrEqualTo, 10)
			So(stored.AudioFile, ShouldNotBeEmpty)
			// 音频时长向上取整
			So(stored.AudioDuration, ShouldAlmostEqual, 10.0, 0.001)
			So(stored.SubtitlePath, ShouldNotBeEmpty)
			So(len(stored.Materials), ShouldEqual, 2)
		})

		Convey("进度单调不减", func() {
			history := h.repo.progressHistory
			So(len(history), ShouldBeGreaterThan, 0)
			for i := 1; i < len(history); i++ {
				So(history[i], ShouldBeGreaterThanOrEqualTo, history[i-1])
			}
			So(history[len(history)-1], ShouldEqual, 100)
		})

		Convey("素材时长要求为音频时长乘以成片数", func() {
			So(h.materials.downloads, ShouldEqual, 1)
		})

		Convey("脚本文件落在任务目录", func() {
			data, err := os.ReadFile(filepath.Join(h.pipeline.taskDir, tk.ID, "script.json"))
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, "desert sunrise")
		})

		Convey("成片已发布并记录访问地址", func() {
			So(h.publisher.calls, ShouldEqual, 1)
			So(len(stored.VideoURLs), ShouldEqual, 1)
			So(stored.VideoURLs[0], ShouldContainSubstring, tk.ID)
		})

		Convey("热镜像同步更新", func() {
			var cached task.Task
			So(h.cache.Get(context.Background(), "task:"+tk.ID, &cached), ShouldBeNil)
			So(cached.State, ShouldEqual, task.StateComplete)
		})
	})
}

func TestPipelineManualScript(t *testing.T) {
	Convey("手工脚本跳过 AI 生成", t, func() {
		h := newHarness(t)
		params := defaultParams()
		params.Script = "First sentence. Second sentence. Third sentence."
		tk := h.newTask(params)

		h.pipeline.Run(context.Background(), tk, task.StopAtScript)

		stored, _ := h.repo.FindByID(context.Background(), tk.ID)
		So(stored.State, ShouldEqual, task.StateComplete)
		So(h.script.calls, ShouldEqual, 0)
		So(len(stored.Script.Scenes), ShouldEqual, 3)
		So(stored.Script.Scenes[0].VoiceoverText, ShouldEqual, "First sentence")

		Convey("主题按逗号拆成兜底关键词", func() {
			params := defaultParams()
			params.Subject = "desert, sunrise , camel"
			params.Script = "One sentence."
			tk := h.newTask(params)

			h.pipeline.Run(context.Background(), tk, task.StopAtScript)

			stored, _ := h.repo.FindByID(context.Background(), tk.ID)
			So(stored.Terms, ShouldResemble, []string{"desert", "sunrise", "camel"})
		})
	})
}

func TestPipelineLocalSourceNoClips(t *testing.T) {
	Convey("本地素材全部不可用", t, func() {
		h := newHarness(t)
		h.materials.clips = nil
		h.materials.err = fmt.Errorf("no usable local materials")

		params := defaultParams()
		params.VideoSource = task.SourceLocal
		params.VideoMaterials = []string{"/broken/file.mp4"}
		tk := h.newTask(params)

		h.pipeline.Run(context.Background(), tk, task.StopAtVideo)

		stored, _ := h.repo.FindByID(context.Background(), tk.ID)

		Convey("任务在素材阶段 FAILED，不会进入渲染", func() {
			So(stored.State, ShouldEqual, task.StateFailed)
			So(stored.ErrorMessage, ShouldContainSubstring, "materials")
			So(h.materials.preprocesss, ShouldEqual, 1)
			So(h.materials.downloads, ShouldEqual, 0)
			So(h.renderer.combines, ShouldEqual, 0)
		})

		Convey("进度停在最后记录的值且不等于 100", func() {
			So(stored.Progress, ShouldEqual, 40)
		})
	})
}

func TestPipelineSpeechFailure(t *testing.T) {
	Convey("语音合成失败", t, func() {
		h := newHarness(t)
		h.speech.result = nil
		h.speech.err = fmt.Errorf("synthesis unavailable")
		tk := h.newTask(defaultParams())

		h.pipeline.Run(context.Background(), tk, task.StopAtVideo)

		stored, _ := h.repo.FindByID(context.Background(), tk.ID)
		So(stored.State, ShouldEqual, task.StateFailed)
		So(stored.ErrorMessage, ShouldContainSubstring, "audio")
		So(stored.Progress, ShouldEqual, 15)
		So(h.subtitles.fromTimestamps, ShouldEqual, 0)
	})
}

func TestPipelineSubtitleFallback(t *testing.T) {
	Convey("字幕首选方案失败", t, func() {
		h := newHarness(t)
		h.speech.result.CharTimestamps = []tts.CharTimestamp{
			{Character: "h", StartTime: 0, EndTime: 0.5},
		}
		h.subtitles.failPrimary = true

		Convey("回退到语音识别并做原文校正", func() {
			tk := h.newTask(defaultParams())
			h.pipeline.Run(context.Background(), tk, task.StopAtVideo)

			stored, _ := h.repo.FindByID(context.Background(), tk.ID)
			So(stored.State, ShouldEqual, task.StateComplete)
			So(stored.SubtitlePath, ShouldNotBeEmpty)
			So(h.transcriber.calls, ShouldEqual, 1)
			So(h.subtitles.fromSegments, ShouldEqual, 1)
			So(h.subtitles.corrections, ShouldEqual, 1)
		})

		Convey("兜底也失败时任务继续，只是没有字幕", func() {
			h.subtitles.failFallback = true
			tk := h.newTask(defaultParams())
			h.pipeline.Run(context.Background(), tk, task.StopAtVideo)

			stored, _ := h.repo.FindByID(context.Background(), tk.ID)
			So(stored.State, ShouldEqual, task.StateComplete)
			So(stored.SubtitlePath, ShouldBeEmpty)
			So(len(stored.Videos), ShouldEqual, 1)
		})
	})
}

func TestPipelineSubtitleUnparseable(t *testing.T) {
	Convey("生成的字幕文件解析不出字幕行时任务继续，只是没有字幕", t, func() {
		h := newHarness(t)
		h.subtitles.writeGarbage = true
		tk := h.newTask(defaultParams())

		h.pipeline.Run(context.Background(), tk, task.StopAtVideo)

		stored, _ := h.repo.FindByID(context.Background(), tk.ID)
		So(stored.State, ShouldEqual, task.StateComplete)
		So(stored.SubtitlePath, ShouldBeEmpty)
		So(len(stored.Videos), ShouldEqual, 1)
	})
}

func TestPipelineSubtitleDisabled(t *testing.T) {
	Convey("关闭字幕时直接跳过字幕阶段", t, func() {
		h := newHarness(t)
		params := defaultParams()
		params.SubtitleEnabled = false
		tk := h.newTask(params)

		h.pipeline.Run(context.Background(), tk, task.StopAtVideo)

		stored, _ := h.repo.FindByID(context.Background(), tk.ID)
		So(stored.State, ShouldEqual, task.StateComplete)
		So(stored.SubtitlePath, ShouldBeEmpty)
		So(h.subtitles.fromTimestamps, ShouldEqual, 0)
		So(h.transcriber.calls, ShouldEqual, 0)
	})
}

func TestPipelineRenderFailure(t *testing.T) {
	Convey("渲染失败", t, func() {
		h := newHarness(t)
		h.renderer.combineErr = fmt.Errorf("ffmpeg exploded")
		tk := h.newTask(defaultParams())

		h.pipeline.Run(context.Background(), tk, task.StopAtVideo)

		stored, _ := h.repo.FindByID(context.Background(), tk.ID)
		So(stored.State, ShouldEqual, task.StateFailed)
		So(stored.ErrorMessage, ShouldContainSubstring, "render")
		So(stored.Progress, ShouldEqual, 50)
	})
}

func TestPipelinePublishFailure(t *testing.T) {
	Convey("成片发布失败不影响任务完成", t, func() {
		h := newHarness(t)
		h.publisher.err = fmt.Errorf("oss unreachable")
		tk := h.newTask(defaultParams())

		h.pipeline.Run(context.Background(), tk, task.StopAtVideo)

		stored, _ := h.repo.FindByID(context.Background(), tk.ID)
		So(stored.State, ShouldEqual, task.StateComplete)
		So(stored.Progress, ShouldEqual, 100)
		So(stored.VideoURLs, ShouldBeEmpty)
	})
}

func TestPipelineMultipleVideos(t *testing.T) {
	Convey("video_count 大于 1 时逐条合成渲染", t, func() {
		h := newHarness(t)
		params := defaultParams()
		params.VideoCount = 2
		tk := h.newTask(params)

		h.pipeline.Run(context.Background(), tk, task.StopAtVideo)

		stored, _ := h.repo.FindByID(context.Background(), tk.ID)
		So(stored.State, ShouldEqual, task.StateComplete)
		So(len(stored.Videos), ShouldEqual, 2)
		So(len(stored.CombinedVideos), ShouldEqual, 2)
		So(h.renderer.combines, ShouldEqual, 2)
		So(h.renderer.renders, ShouldEqual, 2)
	})
}
