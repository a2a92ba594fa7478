// Package cli wrapped 命令行：build / diary-merge / stats / serve
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/moovie-wrapped/internal/config"
	"github.com/user/moovie-wrapped/internal/logging"
	"github.com/user/moovie-wrapped/internal/repository"
	"gorm.io/gorm"
)

// app 命令共享的运行时状态
type app struct {
	cfg *config.Config

	dbDriver  string
	dbPath    string
	logLevel  string
	logFormat string
}

// NewRootCommand 每次调用都返回一棵新的命令树，便于测试
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "wrapped",
		Short: "Letterboxd 观影记录导入与年度总结",
		Long: `wrapped 读取 Letterboxd 导出的 ratings.csv / diary.csv，
通过 TMDB 补全导演、演员与片长，写入本地数据库并生成统计报告。`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.dbDriver, "db-driver", "", "database driver (sqlite, postgres)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "sqlite file path or postgres connection string")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format (console, json)")

	root.AddCommand(
		newBuildCommand(a),
		newDiaryCommand(a),
		newStatsCommand(a),
		newServeCommand(a),
	)
	return root
}

// Execute 入口，ctx 取消时（Ctrl+C）build 回滚、serve 优雅退出
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (a *app) init(cmd *cobra.Command) error {
	loaded := config.LoadEnvFiles()
	cfg := config.Load()

	if a.dbDriver != "" {
		cfg.DatabaseDriver = strings.ToLower(a.dbDriver)
	}
	if a.dbPath != "" {
		if cfg.DatabaseDriver == "postgres" {
			cfg.DatabaseURL = a.dbPath
		} else {
			cfg.DatabasePath = a.dbPath
		}
	}
	if a.logLevel != "" {
		cfg.LogLevel = strings.ToLower(a.logLevel)
	}
	if a.logFormat != "" {
		cfg.LogFormat = strings.ToLower(a.logFormat)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cmd.ErrOrStderr(),
	})
	if len(loaded) > 0 {
		logging.Debug().Strs("files", loaded).Msg("[Config] 已加载环境文件")
	}

	a.cfg = cfg
	return nil
}

func (a *app) openDB() (*gorm.DB, error) {
	db, err := repository.InitDB(a.cfg.DatabaseDriver, a.cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
