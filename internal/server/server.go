package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"creditlens/internal/ai"
	"creditlens/internal/config"
	"creditlens/internal/event"
	"creditlens/internal/handler"
	companyHandler "creditlens/internal/handler/company"
	creditHandler "creditlens/internal/handler/credit"
	sessionHandler "creditlens/internal/handler/session"
	"creditlens/internal/pkg/cache"
	"creditlens/internal/pkg/mongodb"
	"creditlens/internal/repository"
	"creditlens/internal/server/middleware"
	"creditlens/internal/service"
)

// Server HTTP 服务器
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	mongo  *mongodb.Client
	redis  *redis.Client
	bus    event.Bus

	sessions  *service.SessionService
	companies *service.CompanyService
}

// New 创建服务器实例
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &Server{
		cfg:    cfg,
		engine: gin.New(),
	}

	// 初始化 MongoDB (可选)
	if cfg.Mongo.URI != "" {
		client, err := mongodb.New(&cfg.Mongo)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to MongoDB, continuing without it")
		} else {
			srv.mongo = client
			log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

			if err := mongodb.EnsureIndexes(client.Database()); err != nil {
				log.Warn().Err(err).Msg("failed to ensure indexes")
			}
		}
	}

	// 初始化 Redis (事件通道为 redis 时必需)
	if cfg.Redis.Addr != "" {
		client, err := cache.NewClient(&cfg.Redis)
		switch {
		case err != nil && cfg.Event.Driver == "redis":
			return nil, err
		case err != nil:
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without it")
		default:
			srv.redis = client
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		}
	}

	srv.bus = NewEventBus(cfg.Event, srv.redis)

	bridge, err := ai.NewBridge(ctx, &cfg.AI, srv.bus)
	if err != nil {
		return nil, err
	}

	var (
		store        service.CompanyStore
		transcripts  service.TranscriptStore
		companyCache service.Cache
	)
	if srv.mongo != nil {
		store = repository.NewCompanyRepo(srv.mongo.Database())
		transcripts = repository.NewTranscriptRepo(srv.mongo.Database())
	}
	if srv.redis != nil {
		companyCache = cache.NewRedisCache(srv.redis)
	}

	srv.companies = service.NewCompanyService(store, companyCache)
	srv.sessions = service.NewSessionService(bridge, srv.bus, srv.companies, transcripts, cfg.Chat)

	srv.setupRoutes()
	return srv, nil
}

// NewEventBus 按配置选择事件通道
func NewEventBus(cfg config.EventConfig, client *redis.Client) event.Bus {
	if cfg.Driver == "redis" && client != nil {
		log.Info().Str("channel", cfg.Channel).Msg("using redis event bus")
		return event.NewRedisBus(client, cfg.Channel)
	}
	return event.NewMemoryBus()
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	checks := map[string]handler.Check{}
	if s.mongo != nil {
		checks["mongo"] = func(ctx context.Context) error {
			return s.mongo.Database().Client().Ping(ctx, nil)
		}
	}
	if s.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return s.redis.Ping(ctx).Err()
		}
	}
	healthHandler := handler.NewHealthHandler(checks)
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := s.engine.Group("/api/v1")
	{
		sessionHdl := sessionHandler.NewHandler(s.sessions)
		v1.GET("/shortcuts", sessionHdl.ListShortcuts)
		v1.POST("/sessions", sessionHdl.CreateSession)
		v1.GET("/sessions", sessionHdl.ListSessions)
		v1.GET("/sessions/:session_id", sessionHdl.GetSession)
		v1.DELETE("/sessions/:session_id", sessionHdl.CloseSession)
		v1.POST("/sessions/:session_id/messages", sessionHdl.SendMessage)
		v1.PUT("/sessions/:session_id/subject", sessionHdl.ResetSubject)
		v1.GET("/sessions/:session_id/events", sessionHdl.StreamEvents)

		creditHdl := creditHandler.NewHandler(s.companies)
		v1.POST("/credit/classify", creditHdl.Classify)
		v1.POST("/credit/score", creditHdl.Score)

		// 企业目录依赖 MongoDB，未配置时返回 503
		if !s.companies.HasCatalog() {
			log.Warn().Msg("MongoDB not configured, company catalog endpoints return 503")
		}
		companyHdl := companyHandler.NewHandler(s.companies)
		v1.POST("/companies", companyHdl.ImportCompanies)
		v1.GET("/companies", companyHdl.ListCompanies)
		v1.GET("/companies/stats", companyHdl.Stats)
		v1.GET("/companies/:company_id", companyHdl.GetCompany)
		v1.PUT("/companies/:company_id", companyHdl.UpdateCompany)
		v1.DELETE("/companies/:company_id", companyHdl.DeleteCompany)
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

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.sessions.Run(sweepCtx)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		s.sessions.Shutdown()
		s.close()
		return err
	case err := <-errCh:
		s.close()
		return err
	}
}

func (s *Server) close() {
	if err := s.bus.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close event bus")
	}
	if s.mongo != nil {
		if err := s.mongo.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to close MongoDB connection")
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close Redis connection")
		}
	}
}

// Engine 获取 Gin 引擎 (用于测试)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
