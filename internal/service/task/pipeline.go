package task

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"kiwi/internal/model/task"
	"kiwi/internal/pkg/cache"
	"kiwi/internal/pkg/scripttools"
	"kiwi/internal/pkg/tts"
	taskrepo "kiwi/internal/repository/task"
)

// Stage 管线阶段
type Stage string

const (
	StageScript    Stage = "script"
	StageAudio     Stage = "audio"
	StageSubtitle  Stage = "subtitle"
	StageMaterials Stage = "materials"
	StageRender    Stage = "render"
	StageDone      Stage = "done"
	StageFailed    Stage = "failed"
)

// 各阶段完成后的进度里程碑
const (
	progressStarted   = 5
	progressScript    = 15
	progressAudio     = 30
	progressSubtitle  = 40
	progressMaterials = 50
	progressComplete  = 100
)

// Pipeline 视频生产管线编排器
// 按 SCRIPT → AUDIO → SUBTITLE → MATERIALS → RENDER → DONE 的顺序串行推进，
// 任一阶段失败进入终态 FAILED；stop_at 指定的检查点之后不再执行，
// 任务以 COMPLETE 结束并只保留已产出的工件
type Pipeline struct {
	repo        taskrepo.TaskRepository
	cache       TaskCache
	script      ScriptGenerator
	speech      SpeechSynthesizer
	transcriber Transcriber
	subtitles   SubtitleEngine
	materials   MaterialService
	renderer    VideoRenderer
	publisher   ArtifactPublisher

	taskDir      string
	keywordLimit int
}

// NewPipeline 创建管线编排器
func NewPipeline(
	repo taskrepo.TaskRepository,
	taskCache TaskCache,
	script ScriptGenerator,
	speech SpeechSynthesizer,
	transcriber Transcriber,
	subtitles SubtitleEngine,
	materials MaterialService,
	renderer VideoRenderer,
	publisher ArtifactPublisher,
	taskDir string,
	keywordLimit int,
) *Pipeline {
	if keywordLimit <= 0 {
		keywordLimit = scripttools.DefaultKeywordLimit
	}
	return &Pipeline{
		repo:         repo,
		cache:        taskCache,
		script:       script,
		speech:       speech,
		transcriber:  transcriber,
		subtitles:    subtitles,
		materials:    materials,
		renderer:     renderer,
		publisher:    publisher,
		taskDir:      taskDir,
		keywordLimit: keywordLimit,
	}
}

// runState 单次运行期间各阶段间传递的中间产物
// 只在内存里流转，不落库
type runState struct {
	taskDir        string
	narration      string
	charTimestamps []tts.CharTimestamp
	clips          []string
}

// Run 执行一个任务的完整管线
// stopAt 指定提前停止的检查点；阶段失败时任务进入 FAILED 并携带失败原因
func (p *Pipeline) Run(ctx context.Context, t *task.Task, stopAt task.StopAt) {
	if !stopAt.Valid() {
		stopAt = task.StopAtVideo
	}

	rs := &runState{taskDir: filepath.Join(p.taskDir, t.ID)}
	if err := os.MkdirAll(rs.taskDir, 0755); err != nil {
		p.fail(ctx, t, StageScript, fmt.Errorf("create task dir: %w", err))
		return
	}

	p.persist(ctx, t, map[string]any{
		"state":    task.StateProcessing,
		"progress": progressStarted,
	})

	stage := StageScript
	for stage != StageDone && stage != StageFailed {
		log.Info().Str("task_id", t.ID).Str("stage", string(stage)).Msg("pipeline stage starting")

		var next Stage
		var stopped bool
		var err error

		switch stage {
		case StageScript:
			next, stopped, err = p.runScript(ctx, t, rs, stopAt)
		case StageAudio:
			next, stopped, err = p.runAudio(ctx, t, rs, stopAt)
		case StageSubtitle:
			next, stopped, err = p.runSubtitle(ctx, t, rs, stopAt)
		case StageMaterials:
			next, stopped, err = p.runMaterials(ctx, t, rs, stopAt)
		case StageRender:
			next, err = p.runRender(ctx, t, rs)
		default:
			err = fmt.Errorf("unknown stage %s", stage)
		}

		if err != nil {
			p.fail(ctx, t, stage, err)
			return
		}
		if stopped {
			p.complete(ctx, t)
			return
		}
		stage = next
	}

	p.complete(ctx, t)
}

// runScript 脚本阶段：AI 生成或手工脚本适配，并聚合搜索关键词
func (p *Pipeline) runScript(ctx context.Context, t *task.Task, rs *runState, stopAt task.StopAt) (Stage, bool, error) {
	var script *scripttools.StructuredScript
	var err error

	if t.Params.Script != "" {
		// 主题按逗号拆成兜底关键词
		var fallback []string
		for _, kw := range strings.Split(t.Params.Subject, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				fallback = append(fallback, kw)
			}
		}
		script, err = scripttools.ScriptFromRawText(t.Params.Script, fallback)
	} else {
		script, err = p.script.Generate(ctx, t.Params.Subject, t.Params.Language, t.Params.SceneCount)
	}
	if err != nil {
		return StageFailed, false, fmt.Errorf("script generation: %w", err)
	}

	terms := scripttools.AggregateKeywords(script, p.keywordLimit)
	if len(terms) == 0 && t.Params.Subject != "" {
		terms = []string{t.Params.Subject}
	}

	if err := p.saveScriptFile(t, script, rs.taskDir); err != nil {
		return StageFailed, false, err
	}

	rs.narration = script.NarrationText()
	t.Script = script
	t.Terms = terms
	p.persist(ctx, t, map[string]any{
		"script":   script,
		"terms":    terms,
		"progress": progressScript,
	})

	return StageAudio, stopAt == task.StopAtScript, nil
}

// runAudio 音频阶段：合成旁白并记录逐字时间戳
func (p *Pipeline) runAudio(ctx context.Context, t *task.Task, rs *runState, stopAt task.StopAt) (Stage, bool, error) {
	result, err := p.speech.Synthesize(ctx, rs.narration, t.Params.VoiceName, t.Params.VoiceRate, t.Params.VoiceVolume)
	if err != nil {
		return StageFailed, false, fmt.Errorf("speech synthesis: %w", err)
	}
	if result == nil || len(result.AudioData) == 0 {
		return StageFailed, false, fmt.Errorf("speech synthesis returned no audio")
	}

	audioPath := filepath.Join(rs.taskDir, "audio.mp3")
	if err := os.WriteFile(audioPath, result.AudioData, 0644); err != nil {
		return StageFailed, false, fmt.Errorf("write audio file: %w", err)
	}

	rs.charTimestamps = result.CharTimestamps
	t.AudioFile = audioPath
	t.AudioDuration = math.Ceil(result.Duration)
	p.persist(ctx, t, map[string]any{
		"audio_file":     t.AudioFile,
		"audio_duration": t.AudioDuration,
		"progress":       progressAudio,
	})

	return StageSubtitle, stopAt == task.StopAtAudio, nil
}

// runSubtitle 字幕阶段：首选逐字时间戳，失败回退到语音识别 + 原文校正
// 字幕不可用不中断任务，只留空 subtitle_path
func (p *Pipeline) runSubtitle(ctx context.Context, t *task.Task, rs *runState, stopAt task.StopAt) (Stage, bool, error) {
	if !t.Params.SubtitleEnabled {
		p.persist(ctx, t, map[string]any{"progress": progressSubtitle})
		return StageMaterials, stopAt == task.StopAtSubtitle, nil
	}

	subtitlePath := filepath.Join(rs.taskDir, "subtitle.srt")
	if err := p.generateSubtitle(ctx, t, rs, subtitlePath); err != nil {
		log.Warn().Err(err).Str("task_id", t.ID).Msg("subtitle generation failed, continuing without subtitles")
		subtitlePath = ""
	}

	t.SubtitlePath = subtitlePath
	p.persist(ctx, t, map[string]any{
		"subtitle_path": subtitlePath,
		"progress":      progressSubtitle,
	})

	return StageMaterials, stopAt == task.StopAtSubtitle, nil
}

// generateSubtitle 生成并验证字幕文件
func (p *Pipeline) generateSubtitle(ctx context.Context, t *task.Task, rs *runState, outPath string) error {
	var genErr error
	if len(rs.charTimestamps) > 0 {
		genErr = p.subtitles.GenerateFromTimestamps(rs.narration, rs.charTimestamps, outPath)
	} else {
		genErr = fmt.Errorf("no character timestamps from synthesis")
	}

	if genErr != nil {
		log.Warn().Err(genErr).Str("task_id", t.ID).Msg("primary subtitle generation failed, falling back to transcription")

		if p.transcriber == nil {
			return fmt.Errorf("no transcriber configured: %w", genErr)
		}
		segments, err := p.transcriber.Transcribe(ctx, t.AudioFile)
		if err != nil {
			return fmt.Errorf("transcription fallback: %w", err)
		}
		if err := p.subtitles.GenerateFromSegments(segments, outPath); err != nil {
			return fmt.Errorf("subtitle from transcription: %w", err)
		}
		if err := p.subtitles.Correct(outPath, rs.narration); err != nil {
			return fmt.Errorf("subtitle correction: %w", err)
		}
	}

	// 验证产出的字幕能解析出非空的行序列
	lines, err := p.subtitles.Parse(outPath)
	if err != nil {
		return fmt.Errorf("parse generated subtitle: %w", err)
	}
	if len(lines) == 0 {
		return fmt.Errorf("generated subtitle has no lines")
	}
	return nil
}

// runMaterials 素材阶段：本地素材预处理或按关键词下载
func (p *Pipeline) runMaterials(ctx context.Context, t *task.Task, rs *runState, stopAt task.StopAt) (Stage, bool, error) {
	width, height := t.Params.VideoAspect.Size()

	var clips []string
	var err error

	if t.Params.VideoSource == task.SourceLocal {
		clips, err = p.materials.PreprocessLocal(ctx, rs.taskDir, t.Params.VideoMaterials,
			float64(t.Params.VideoClipDuration), width, height, 30)
	} else {
		totalDuration := t.AudioDuration * float64(t.Params.VideoCount)
		clips, err = p.materials.Download(ctx, rs.taskDir, t.Terms, string(t.Params.VideoSource),
			width, height, totalDuration, float64(t.Params.VideoClipDuration))
	}
	if err != nil {
		return StageFailed, false, fmt.Errorf("material acquisition: %w", err)
	}
	if len(clips) == 0 {
		return StageFailed, false, fmt.Errorf("no usable material clips")
	}

	rs.clips = clips
	t.Materials = clips
	p.persist(ctx, t, map[string]any{
		"materials": clips,
		"progress":  progressMaterials,
	})

	return StageRender, stopAt == task.StopAtMaterials, nil
}

// runRender 渲染阶段：video_count 个成片，每个先合成再渲染
// 剩余进度在 video_count × 2 个子步骤间均分
func (p *Pipeline) runRender(ctx context.Context, t *task.Task, rs *runState) (Stage, error) {
	width, height := t.Params.VideoAspect.Size()
	count := t.Params.VideoCount
	delta := float64(progressComplete-progressMaterials) / float64(count*2)

	var combined []string
	var finals []string
	progress := float64(progressMaterials)

	for i := 1; i <= count; i++ {
		combinedPath, err := p.renderer.Combine(ctx, &CombineRequest{
			TaskDir:         rs.taskDir,
			Index:           i,
			Clips:           rs.clips,
			AudioFile:       t.AudioFile,
			AudioDuration:   t.AudioDuration,
			Width:           width,
			Height:          height,
			ConcatMode:      string(t.Params.VideoConcatMode),
			TransitionMode:  string(t.Params.VideoTransition),
			MaxClipDuration: float64(t.Params.VideoClipDuration),
		})
		if err != nil {
			return StageFailed, fmt.Errorf("combine video %d: %w", i, err)
		}
		combined = append(combined, combinedPath)
		progress += delta
		p.persist(ctx, t, map[string]any{
			"combined_videos": combined,
			"progress":        int(progress),
		})

		finalPath, err := p.renderer.Render(ctx, &RenderRequest{
			TaskDir:      rs.taskDir,
			Index:        i,
			CombinedPath: combinedPath,
			AudioFile:    t.AudioFile,
			SubtitlePath: t.SubtitlePath,
		})
		if err != nil {
			return StageFailed, fmt.Errorf("render video %d: %w", i, err)
		}
		finals = append(finals, finalPath)
		progress += delta
		p.persist(ctx, t, map[string]any{
			"videos":   finals,
			"progress": int(progress),
		})
	}

	if len(finals) == 0 {
		return StageFailed, fmt.Errorf("render produced no videos")
	}

	t.CombinedVideos = combined
	t.Videos = finals

	// 发布是分发动作，失败不影响任务结果
	if p.publisher != nil {
		urls, err := p.publisher.Publish(ctx, t.ID, finals)
		if err != nil {
			log.Warn().Err(err).Str("task_id", t.ID).Msg("artifact publish failed")
		} else {
			t.VideoURLs = urls
			p.persist(ctx, t, map[string]any{"video_urls": urls})
		}
	}

	return StageDone, nil
}

// saveScriptFile 把脚本和任务参数一起落到任务目录
func (p *Pipeline) saveScriptFile(t *task.Task, script *scripttools.StructuredScript, taskDir string) error {
	payload := map[string]any{
		"script": script,
		"params": t.Params,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal script: %w", err)
	}
	if err := os.WriteFile(filepath.Join(taskDir, "script.json"), data, 0644); err != nil {
		return fmt.Errorf("write script file: %w", err)
	}
	return nil
}

// complete 任务成功结束
func (p *Pipeline) complete(ctx context.Context, t *task.Task) {
	t.State = task.StateComplete
	t.Progress = progressComplete
	p.persist(ctx, t, map[string]any{
		"state":    task.StateComplete,
		"progress": progressComplete,
	})
	log.Info().Str("task_id", t.ID).Int("videos", len(t.Videos)).Msg("task completed")
}

// fail 任务失败，记录失败阶段和原因，进度保持最后的值
func (p *Pipeline) fail(ctx context.Context, t *task.Task, stage Stage, err error) {
	t.State = task.StateFailed
	t.ErrorMessage = fmt.Sprintf("%s stage: %v", stage, err)
	p.persist(ctx, t, map[string]any{
		"state":         task.StateFailed,
		"error_message": t.ErrorMessage,
	})
	log.Error().Err(err).Str("task_id", t.ID).Str("stage", string(stage)).Msg("task failed")
}

// persist 更新任务记录并刷新热镜像
func (p *Pipeline) persist(ctx context.Context, t *task.Task, fields map[string]any) {
	if progress, ok := fields["progress"]; ok {
		if v, ok := progress.(int); ok && v > t.Progress {
			t.Progress = v
		}
	}
	if state, ok := fields["state"]; ok {
		if v, ok := state.(task.State); ok {
			t.State = v
		}
	}

	if err := p.repo.Update(ctx, t.ID, fields); err != nil {
		log.Error().Err(err).Str("task_id", t.ID).Msg("persist task state failed")
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, cache.TaskCacheKey(t.ID), t, cache.TaskCacheTTL); err != nil {
			log.Warn().Err(err).Str("task_id", t.ID).Msg("refresh task cache failed")
		}
	}
}
