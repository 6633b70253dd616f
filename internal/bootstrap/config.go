package bootstrap

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/abdulaziz-backend/pixelpainter/internal/domain"
	"github.com/abdulaziz-backend/pixelpainter/internal/render"
)

// Config 结构体用于存储从环境变量或文件加载的配置
type Config struct {
	ServerPort string
	LogLevel   string
	AppEnv     string // development / production

	JWTSecret      string
	JWTExpiryHours int

	RedisAddr     string // 为空时不启用限流
	RedisPassword string
	RedisDB       int
	KeyPrefix     string // Redis Key 前缀

	RateLimitMax    int
	RateLimitWindow time.Duration

	SessionIdleTimeout time.Duration
	MaxUploadBytes     int64
	MaxGridDimension   int
	MaxImagePixels     int64 // 导入图像解码前按文件头检查的像素上限
	MaxSurfacePixels   int64 // 渲染面像素上限
	ImportSampler      string

	CORSAllowedOrigin string
}

// LoadConfig 从环境变量加载配置
func LoadConfig() (*Config, error) {
	// 优先加载 .env 文件 (如果存在)
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		AppEnv:            getEnv("APP_ENV", "development"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		KeyPrefix:         getEnv("REDIS_KEY_PREFIX", "pp:"),
		ImportSampler:     getEnv("IMPORT_SAMPLER", render.DefaultSampler),
		CORSAllowedOrigin: os.Getenv("CORS_ALLOWED_ORIGIN"),
	}

	var err error
	if cfg.JWTExpiryHours, err = getEnvInt("JWT_EXPIRY_HOURS", 24); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RateLimitMax, err = getEnvInt("RATE_LIMIT_MAX", 100); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = getEnvDuration("RATE_LIMIT_WINDOW", time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTimeout, err = getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.MaxGridDimension, err = getEnvInt("MAX_GRID_DIMENSION", domain.DefaultMaxDimension); err != nil {
		return nil, err
	}
	if cfg.MaxUploadBytes, err = getEnvInt64("MAX_UPLOAD_BYTES", 10<<20); err != nil {
		return nil, err
	}
	if cfg.MaxImagePixels, err = getEnvInt64("MAX_IMAGE_PIXELS", render.DefaultMaxImagePixels); err != nil {
		return nil, err
	}
	if cfg.MaxSurfacePixels, err = getEnvInt64("MAX_SURFACE_PIXELS", domain.DefaultMaxSurfacePixels); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		if cfg.AppEnv == "production" {
			return nil, fmt.Errorf("environment variable JWT_SECRET must be set")
		}
		// 开发环境下每次启动生成随机密钥，重启后旧 token 全部失效
		cfg.JWTSecret, err = randomSecret()
		if err != nil {
			return nil, err
		}
		logrus.Warn("JWT_SECRET not set, using a random secret for this process")
	}
	if cfg.RateLimitMax <= 0 || cfg.RateLimitWindow <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_MAX and RATE_LIMIT_WINDOW must be positive")
	}
	if cfg.MaxGridDimension <= 0 || cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_GRID_DIMENSION and MAX_UPLOAD_BYTES must be positive")
	}
	if cfg.MaxImagePixels <= 0 || cfg.MaxSurfacePixels <= 0 {
		return nil, fmt.Errorf("MAX_IMAGE_PIXELS and MAX_SURFACE_PIXELS must be positive")
	}
	if _, err := render.ParseSampler(cfg.ImportSampler); err != nil {
		return nil, fmt.Errorf("IMPORT_SAMPLER: %w", err)
	}

	// 验证日志级别
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvInt64(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be a duration: %w", key, err)
	}
	return d, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate jwt secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
