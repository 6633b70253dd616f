package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	httpHandler "github.com/abdulaziz-backend/pixelpainter/internal/handler/http"
	wsHandler "github.com/abdulaziz-backend/pixelpainter/internal/handler/websocket"
	"github.com/abdulaziz-backend/pixelpainter/internal/hub"
	"github.com/abdulaziz-backend/pixelpainter/internal/infra/setup"
	redisstate "github.com/abdulaziz-backend/pixelpainter/internal/infra/state/redis"
	"github.com/abdulaziz-backend/pixelpainter/internal/middleware"
	"github.com/abdulaziz-backend/pixelpainter/internal/render"
	"github.com/abdulaziz-backend/pixelpainter/internal/repository"
	"github.com/abdulaziz-backend/pixelpainter/internal/service"
	"github.com/abdulaziz-backend/pixelpainter/internal/web"
)

// App 结构体包含应用的所有组件和配置
type App struct {
	Config      *Config
	Log         *logrus.Logger
	RedisClient *redis.Client // 未配置 REDIS_ADDR 时为 nil
	Sessions    *service.SessionService
	Hub         *hub.Hub
	HttpServer  *http.Server

	stopJanitor context.CancelFunc
}

// NewApp 创建并初始化应用的所有组件
func NewApp() (*App, error) {
	// 1. 加载配置
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	// 2. 初始化 Logger
	log := NewLogger(cfg)
	log.Info("Configuration loaded successfully")

	// 3. 初始化基础设施
	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	var rateLimitRepo repository.RateLimitRepository
	if redisClient != nil {
		rateLimitRepo = redisstate.NewRedisRateLimitRepository(redisClient, cfg.KeyPrefix)
		log.Info("Redis rate limiting enabled")
	}

	// 4. 初始化 Services
	tokens, err := service.NewTokenService(cfg.JWTSecret, cfg.JWTExpiryHours)
	if err != nil {
		return nil, fmt.Errorf("failed to create TokenService: %w", err)
	}
	sampler, err := render.ParseSampler(cfg.ImportSampler)
	if err != nil {
		return nil, err
	}
	sessions := service.NewSessionService(tokens, service.SessionConfig{
		MaxDimension:     cfg.MaxGridDimension,
		MaxUploadBytes:   cfg.MaxUploadBytes,
		MaxImagePixels:   cfg.MaxImagePixels,
		MaxSurfacePixels: cfg.MaxSurfacePixels,
		Sampler:          sampler,
		IdleTimeout:      cfg.SessionIdleTimeout,
	})
	log.Info("Services initialized")

	// 5. 初始化 Hub 和路由
	hubInstance := hub.NewHub()
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := NewRouter(cfg, log, tokens, sessions, hubInstance, rateLimitRepo)
	log.Info("Router setup complete")

	httpServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &App{
		Config:      cfg,
		Log:         log,
		RedisClient: redisClient,
		Sessions:    sessions,
		Hub:         hubInstance,
		HttpServer:  httpServer,
	}, nil
}

// NewLogger 按配置创建 logrus Logger，并同步设置全局 logger
func NewLogger(cfg *Config) *logrus.Logger {
	log := logrus.StandardLogger()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)
	log.Infof("Logger initialized (Level: %s, Format: %T)", level.String(), log.Formatter)
	return log
}

// NewRouter 组装中间件和所有路由。rateLimitRepo 为 nil 时不限流。
func NewRouter(
	cfg *Config,
	log *logrus.Logger,
	tokens *service.TokenService,
	sessions *service.SessionService,
	hubInstance *hub.Hub,
	rateLimitRepo repository.RateLimitRepository,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(middleware.CORS(cfg.CORSAllowedOrigin))
	if rateLimitRepo != nil {
		router.Use(middleware.RateLimit(rateLimitRepo, cfg.RateLimitMax, cfg.RateLimitWindow))
	}
	// 导入的图像大小由会话限制，这里只控制 multipart 在内存中的部分
	router.MaxMultipartMemory = cfg.MaxUploadBytes

	auth := middleware.Auth(tokens)

	api := router.Group("/api")
	httpHandler.NewSessionHandler(sessions).Register(api, api.Group("", auth))

	wsRoutes := router.Group("/ws").Use(auth)
	{
		wsRoutes.GET("/session", wsHandler.NewWebSocketHandler(hubInstance, sessions, cfg.CORSAllowedOrigin).HandleConnection)
	}

	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	web.Register(router)
	return router
}

// Start 启动应用的所有后台 Goroutine 和 HTTP 服务器
func (a *App) Start() {
	a.Log.Info("Starting application background routines...")
	go a.Hub.Run()
	a.Log.Info("Hub routine started")

	ctx, cancel := context.WithCancel(context.Background())
	a.stopJanitor = cancel
	go a.Sessions.RunJanitor(ctx, time.Minute)
	a.Log.WithField("idle_timeout", a.Config.SessionIdleTimeout).Info("Session janitor started")

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

// Shutdown 优雅地关闭应用
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	// 1. 停止接收新请求
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	} else {
		a.Log.Info("HTTP server shut down gracefully.")
	}

	// 2. 停止空闲回收并关闭所有会话，Hub 会断开对应的 WebSocket 客户端
	if a.stopJanitor != nil {
		a.stopJanitor()
	}
	a.Sessions.CloseAll()

	// 3. 停止 Hub
	if a.Hub != nil {
		a.Hub.Stop()
	}

	// 4. 关闭 Redis 连接
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		} else {
			a.Log.Info("Redis connection closed.")
		}
	}

	a.Log.Info("Application shutdown complete.")
}

// LoggerMiddleware 创建一个 Gin 中间件用于记录请求日志
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        redactedPath(c.Request.URL),
		})
		if sessionID := c.GetString(middleware.SessionIDKey); sessionID != "" {
			entry = entry.WithField("session_id", sessionID)
		}

		if errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String(); errorMessage != "" {
			entry.Error(errorMessage)
		} else if statusCode >= 500 {
			entry.Error("Server error")
		} else if statusCode >= 400 {
			entry.Warn("Client error")
		} else {
			entry.Info("Request handled")
		}
	}
}

// redactedPath 返回带查询串的路径，token 参数被隐去
func redactedPath(u *url.URL) string {
	if u.RawQuery == "" {
		return u.Path
	}
	q := u.Query()
	if q.Has("token") {
		q.Set("token", "REDACTED")
	}
	return u.Path + "?" + q.Encode()
}
