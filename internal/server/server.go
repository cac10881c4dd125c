package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "kiwi/docs"
	"kiwi/internal/ai/component"
	"kiwi/internal/config"
	"kiwi/internal/handler"
	authHandler "kiwi/internal/handler/auth"
	taskHandler "kiwi/internal/handler/task"
	"kiwi/internal/pkg/ark"
	"kiwi/internal/pkg/asr"
	"kiwi/internal/pkg/cache"
	"kiwi/internal/pkg/ffmpeg"
	"kiwi/internal/pkg/jwt"
	"kiwi/internal/pkg/material"
	"kiwi/internal/pkg/mongodb"
	"kiwi/internal/pkg/scripttools"
	"kiwi/internal/pkg/scripttools/providers"
	"kiwi/internal/pkg/storagefactory"
	"kiwi/internal/pkg/subtitle"
	"kiwi/internal/pkg/tts"
	taskrepo "kiwi/internal/repository/task"
	"kiwi/internal/server/middleware"
	"kiwi/internal/service/publish"
	tasksvc "kiwi/internal/service/task"
	"kiwi/internal/service/video"
)

// Server HTTP 服务器
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	mongo  *mongodb.Client
	redis  *cache.RedisCache
}

// New 创建服务器实例并装配整条视频生产管线
func New(cfg *config.Config) (*Server, error) {
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// MongoDB 是任务状态的事实来源，必须可用
	mongoClient, err := mongodb.New(&cfg.Mongo)
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

	if err := mongodb.EnsureIndexes(mongoClient.Database()); err != nil {
		log.Warn().Err(err).Msg("failed to ensure indexes")
	}

	// Redis 热镜像可选，缺席时轮询直接打到 MongoDB
	var redisCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without it")
		} else {
			redisCache = rc
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		}
	}

	// 产物存储
	store, err := storagefactory.NewStorage(&cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	srv := &Server{
		cfg:    cfg,
		engine: engine,
		mongo:  mongoClient,
		redis:  redisCache,
	}

	pipeline, err := buildPipeline(cfg, mongoClient, redisCache, publish.NewPublisher(store))
	if err != nil {
		return nil, err
	}

	srv.setupRoutes(pipeline)
	return srv, nil
}

// buildPipeline 装配管线编排器及其全部协作方
func buildPipeline(cfg *config.Config, mongoClient *mongodb.Client, redisCache *cache.RedisCache, publisher tasksvc.ArtifactPublisher) (*tasksvc.Pipeline, error) {
	llmProvider, err := buildLLMProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("init LLM provider: %w", err)
	}
	scriptGen := scripttools.NewScriptGenerator(llmProvider, cfg.LLM.MaxRetries)

	ttsClient, err := tts.NewClient(&cfg.TTS)
	if err != nil {
		return nil, fmt.Errorf("init TTS client: %w", err)
	}

	// ASR 是字幕兜底，未配置时只依赖合成时间戳
	var transcriber tasksvc.Transcriber
	if cfg.ASR.BaseURL != "" {
		asrClient, err := asr.NewClient(&cfg.ASR)
		if err != nil {
			return nil, fmt.Errorf("init ASR client: %w", err)
		}
		transcriber = asrClient
	} else {
		log.Warn().Msg("ASR not configured, subtitle fallback disabled")
	}

	ffmpegClient := ffmpeg.NewClient(&cfg.Pipeline)
	subtitleEngine := subtitle.NewEngine(0)
	materialClient := material.NewClient(&cfg.Material, ffmpegClient)
	renderer := video.NewRenderer(ffmpegClient)

	repo := taskrepo.NewTaskRepo(mongoClient.Database())

	var taskCache tasksvc.TaskCache
	if redisCache != nil {
		taskCache = redisCache
	}

	return tasksvc.NewPipeline(
		repo,
		taskCache,
		scriptGen,
		ttsClient,
		transcriber,
		subtitleEngine,
		materialClient,
		renderer,
		publisher,
		cfg.Pipeline.TaskDir,
		cfg.Pipeline.KeywordLimit,
	), nil
}

// buildLLMProvider 按配置选择脚本生成所用的大模型接入方式
func buildLLMProvider(cfg *config.Config) (scripttools.LLMProvider, error) {
	switch cfg.LLM.Provider {
	case "ark-sdk":
		client, err := ark.NewLLMClient(&cfg.LLM)
		if err != nil {
			return nil, err
		}
		return providers.NewArkProvider(client), nil
	default:
		chatModel, err := component.NewChatModel(context.Background(), &cfg.LLM)
		if err != nil {
			return nil, err
		}
		return providers.NewEinoProvider(chatModel), nil
	}
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(pipeline *tasksvc.Pipeline) {
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	// 健康检查
	pingers := []handler.Pinger{s.mongo}
	if s.redis != nil {
		pingers = append(pingers, s.redis)
	}
	healthHandler := handler.NewHealthHandler(pingers...)
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	// Swagger 文档
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 本地存储时由服务自身托管产物文件
	if s.cfg.Storage.Type == "local" && s.cfg.Storage.Local != nil {
		s.engine.Static("/files", s.cfg.Storage.Local.BasePath)
	}

	jwtUtil := jwt.NewJWT(s.cfg.Auth.JWTSecret, s.cfg.Auth.TokenExpiry)

	repo := taskrepo.NewTaskRepo(s.mongo.Database())
	var taskCache tasksvc.TaskCache
	if s.redis != nil {
		taskCache = s.redis
	}
	taskService := tasksvc.NewService(repo, taskCache, pipeline)

	// API v1
	v1 := s.engine.Group("/api/v1")
	{
		// 认证接口（公开）：API Key 换 token
		authHdl := authHandler.NewHandler(&s.cfg.Auth, jwtUtil)
		v1.POST("/auth/token", authHdl.Token)

		// 任务接口（需要认证）
		taskHdl := taskHandler.NewHandler(taskService)
		tasks := v1.Group("/tasks")
		if s.cfg.Auth.APIKeyHash != "" {
			tasks.Use(middleware.Auth(jwtUtil))
		} else {
			log.Warn().Msg("API key not configured, task endpoints are unauthenticated")
		}
		{
			tasks.POST("", taskHdl.CreateTask)
			tasks.GET("/:id", taskHdl.GetTask)
		}
	}
}

// Run 启动服务器
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		if err := s.mongo.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to close MongoDB connection")
		}
		if s.redis != nil {
			if err := s.redis.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close Redis connection")
			}
		}

		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// Engine 获取 Gin 引擎 (用于测试)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
