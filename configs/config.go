package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PresignTTL time.Duration
}

type Facebook struct {
	GraphURL string
}

type Instagram struct {
	GraphURL      string
	PollAttempts  int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

type Tiktok struct {
	APIURL          string
	DownloadTimeout time.Duration
}

type X struct {
	APIURL          string
	UploadURL       string
	ConsumerKey     string
	ConsumerSecret  string
	StatusAttempts  int
	DownloadTimeout time.Duration
}

type Config struct {
	Port              string
	PostgresURI       string
	RedisURI          string
	FrontendURL       string
	SecretKey         string
	LogLevel          slog.Level
	PublishMarkPolicy string
	DuePostsSchedule  string
	DuePostsBatchSize int
	Facebook          Facebook
	Instagram         Instagram
	Tiktok            Tiktok
	X                 X
	R2                R2
}

func LoadConfig() *Config {
	return &Config{
		Port:              getEnv("PORT", "3000"),
		PostgresURI:       getEnv("POSTGRES_URI", ""),
		RedisURI:          getEnv("REDIS_URI", "127.0.0.1:6379"),
		FrontendURL:       getEnv("FRONTEND_URL", "http://localhost:5173"),
		SecretKey:         getEnv("SECRET_KEY", ""),
		LogLevel:          getLogLevel("LOG_LEVEL", slog.LevelInfo),
		PublishMarkPolicy: getEnv("PUBLISH_MARK_POLICY", "always"),
		DuePostsSchedule:  getEnv("DUE_POSTS_SCHEDULE", "@every 1m"),
		DuePostsBatchSize: getEnvInt("DUE_POSTS_BATCH_SIZE", 50),
		Facebook: Facebook{
			GraphURL: getEnv("FACEBOOK_GRAPH_URL", "https://graph.facebook.com/v21.0"),
		},
		Instagram: Instagram{
			GraphURL:      getEnv("INSTAGRAM_GRAPH_URL", "https://graph.instagram.com/v21.0"),
			PollAttempts:  getEnvInt("INSTAGRAM_POLL_ATTEMPTS", 30),
			PollInterval:  getEnvDuration("INSTAGRAM_POLL_INTERVAL", 3*time.Second),
			RetryAttempts: getEnvInt("INSTAGRAM_RETRY_ATTEMPTS", 3),
			RetryDelay:    getEnvDuration("INSTAGRAM_RETRY_DELAY", 2*time.Second),
		},
		Tiktok: Tiktok{
			APIURL:          getEnv("TIKTOK_API_URL", "https://open.tiktokapis.com/v2"),
			DownloadTimeout: getEnvDuration("TIKTOK_DOWNLOAD_TIMEOUT", 30*time.Second),
		},
		X: X{
			APIURL:          getEnv("X_API_URL", "https://api.twitter.com"),
			UploadURL:       getEnv("X_UPLOAD_URL", "https://upload.twitter.com/1.1/media/upload.json"),
			ConsumerKey:     getEnv("X_CONSUMER_KEY", ""),
			ConsumerSecret:  getEnv("X_CONSUMER_SECRET", ""),
			StatusAttempts:  getEnvInt("X_STATUS_ATTEMPTS", 15),
			DownloadTimeout: getEnvDuration("X_DOWNLOAD_TIMEOUT", 30*time.Second),
		},
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PresignTTL: getEnvDuration("R2_PRESIGN_TTL", time.Hour),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		slog.Warn("ignoring invalid integer setting", "key", key, "value", v)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		slog.Warn("ignoring invalid duration setting", "key", key, "value", v)
	}
	return defaultValue
}

func getLogLevel(key string, defaultValue slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return defaultValue
	}
	return level
}
