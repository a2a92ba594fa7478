package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/user/moovie-wrapped/internal/config"
	"github.com/user/moovie-wrapped/internal/handler"
	"github.com/user/moovie-wrapped/internal/logging"
	"github.com/user/moovie-wrapped/internal/repository"
	"github.com/user/moovie-wrapped/internal/server"
	"github.com/user/moovie-wrapped/internal/service"
)

func main() {
	// 加载环境变量
	if loaded := config.LoadEnvFiles(); len(loaded) == 0 {
		logging.Info().Msg("未找到 .env 文件，使用系统环境变量")
	}

	// 加载配置
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logging.Error().Err(err).Msg("配置错误")
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// 初始化数据库
	db, err := repository.InitDB(cfg.DatabaseDriver, cfg.DSN())
	if err != nil {
		logging.Error().Err(err).Msg("数据库连接失败")
		os.Exit(1)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	var images handler.ImageSource
	if cfg.HasTMDBCredentials() {
		tmdb, err := service.NewTMDBServiceFromConfig(cfg)
		if err != nil {
			logging.Error().Err(err).Msg("TMDB 配置错误")
			os.Exit(1)
		}
		images = tmdb
	}

	// 等待中断信号以优雅地关闭服务器
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg, db, images); err != nil {
		logging.Error().Err(err).Msg("服务器启动失败")
		stop()
		sqlDB.Close()
		os.Exit(1)
	}
}
