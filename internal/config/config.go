package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config 应用配置
type Config struct {
	Env string `validate:"oneof=development production test"`

	// 数据库
	DatabaseDriver string `validate:"oneof=sqlite postgres"`
	DatabasePath   string `validate:"required_if=DatabaseDriver sqlite"`
	DatabaseURL    string `validate:"required_if=DatabaseDriver postgres"`

	// TMDB
	TMDBToken        string
	TMDBAPIKey       string
	TMDBBaseURL      string `validate:"required,url"`
	TMDBImageBaseURL string `validate:"required,url"`
	TMDBRanker       string `validate:"oneof=first year"`
	TMDBTimeout      time.Duration

	// Letterboxd 导出文件
	RatingsPath string
	DiaryPath   string

	// 统计 / 服务
	TopK     int    `validate:"min=1,max=100"`
	Port     string `validate:"required,numeric"`
	CacheTTL time.Duration

	// 日志
	LogLevel  string `validate:"oneof=trace debug info warn error"`
	LogFormat string `validate:"oneof=json console"`
}

// LoadEnvFiles 加载 .env 与 TMDB 凭证文件，文件不存在时忽略
func LoadEnvFiles() []string {
	var loaded []string
	files := []string{".env", getEnv("TMDB_CREDENTIALS_FILE", "Credentials/TMDB_key_credentials.env")}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err == nil {
			loaded = append(loaded, f)
		}
	}
	return loaded
}

// Load 加载配置
func Load() *Config {
	topK, _ := strconv.Atoi(getEnv("TOP_K", "5"))
	timeoutSec, _ := strconv.Atoi(getEnv("TMDB_TIMEOUT_SECONDS", "0"))
	cacheSec, _ := strconv.Atoi(getEnv("CACHE_TTL_SECONDS", "60"))

	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "movies")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := getEnv("DATABASE_URL", fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL))

	return &Config{
		Env:              getEnv("APP_ENV", "development"),
		DatabaseDriver:   strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DatabasePath:     getEnv("DB_PATH", "data/movies.db"),
		DatabaseURL:      dbURL,
		TMDBToken:        getEnv("TMDB_ACCESS_TOKEN", ""),
		TMDBAPIKey:       getEnv("TMDB_API_KEY", ""),
		TMDBBaseURL:      getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBImageBaseURL: getEnv("TMDB_IMAGE_BASE_URL", "https://image.tmdb.org/t/p"),
		TMDBRanker:       strings.ToLower(getEnv("TMDB_RANKER", "first")),
		TMDBTimeout:      time.Duration(timeoutSec) * time.Second,
		RatingsPath:      getEnv("RATINGS_CSV", "data/letterboxd/ratings.csv"),
		DiaryPath:        getEnv("DIARY_CSV", "data/letterboxd/diary.csv"),
		TopK:             topK,
		Port:             getEnv("PORT", "5005"),
		CacheTTL:         time.Duration(cacheSec) * time.Second,
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:        strings.ToLower(getEnv("LOG_FORMAT", "console")),
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("配置无效: %w", err)
	}
	return nil
}

// DSN 当前驱动对应的数据源：sqlite 为文件路径，postgres 为连接串
func (c *Config) DSN() string {
	if c.DatabaseDriver == "postgres" {
		return c.DatabaseURL
	}
	return c.DatabasePath
}

// HasTMDBCredentials 是否配置了 TMDB 凭证
func (c *Config) HasTMDBCredentials() bool {
	return c.TMDBToken != "" || c.TMDBAPIKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
