package app

import (
	"context"
	"coursegen_backend/internal/config"
	"coursegen_backend/internal/controller"
	"coursegen_backend/internal/service"
	"coursegen_backend/pkg/database"
	"coursegen_backend/pkg/logger"
	"coursegen_backend/pkg/monitoring"
	"coursegen_backend/pkg/security"
	"coursegen_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	Redis           *redis.Client
	configCallbacks []func(*config.Config)
}

type services struct {
	ai        *service.AIService
	content   *service.ContentService
	structure *service.StructureService
	quiz      *service.QuizService
	videos    *service.VideoResolver
	cache     service.CourseCache
	course    *service.CourseService
}

type controllers struct {
	course *controller.CourseController
	health *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig 配置热更新入口，由 configwatcher 回调
func (a *App) ApplyConfig(cfg *config.Config) {
	a.Config = cfg
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
	logger.Log.Info("Configuration reloaded")
}

func (a *App) initServices(cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	cacheTTL := time.Duration(cfg.Generator.CacheTTLHours) * time.Hour

	s.ai = service.NewAIService(cfg.AI)
	s.content = service.NewContentService(s.ai)
	s.structure = service.NewStructureService()
	s.quiz = service.NewQuizService(s.ai)

	// Redis 不可用时降级为进程内缓存，生成流程照常工作
	if rdb != nil {
		s.cache = service.NewRedisCourseCache(rdb)
	} else {
		s.cache = service.NewMemoryCourseCache()
	}

	if cfg.YouTube.APIKey != "" {
		yt, err := service.NewYouTubeService(context.Background(), cfg.YouTube)
		if err != nil {
			logger.Log.Error("Failed to initialize YouTube client, videos will be unavailable", zap.Error(err))
		} else {
			s.videos = service.NewVideoResolver(yt, rdb, cfg.YouTube, cacheTTL)
		}
	} else {
		logger.Log.Warn("YouTube API key not configured, videos will be unavailable")
	}

	s.course = service.NewCourseService(
		s.content,
		s.structure,
		s.quiz,
		s.videos,
		s.cache,
		cfg.Generator.Concurrency,
		cacheTTL,
	)

	return s
}

func (a *App) initControllers(s *services, rdb *redis.Client) *controllers {
	return &controllers{
		course: controller.NewCourseController(s.course),
		health: controller.NewHealthController(rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 600
	}
	router.Use(security.RateLimiter(maxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// 缓存不可用不阻止服务启动，降级为未命中行为
		logger.Log.Warn("Failed to initialize redis, falling back to in-memory cache", zap.Error(err))
		rdb = nil
	}

	app := &App{
		Config: cfg,
		Redis:  rdb,
	}

	services := app.initServices(cfg, rdb)
	controllers := app.initControllers(services, rdb)

	// 监控初始化
	monitoring.Init()

	gin.SetMode(ginMode(cfg.Server.Mode))
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("course-generator", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	return app
}

func ginMode(mode string) string {
	switch mode {
	case "release":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	}
	return gin.DebugMode
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
