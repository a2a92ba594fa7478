package repository

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/user/moovie-wrapped/internal/logging"
	"github.com/user/moovie-wrapped/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNoDatabase 尚未执行 build，数据库中没有电影表
var ErrNoDatabase = errors.New("database not built yet: run build first")

// InitDB 初始化数据库连接
// driver 为 sqlite 时 dsn 是文件路径（或 :memory:），为 postgres 时是连接串
func InitDB(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		if dsn != ":memory:" {
			if dir := filepath.Dir(dsn); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("创建数据库目录失败: %w", err)
				}
			}
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		// 使用 lib/pq 作为底层驱动
		dialector = postgres.New(postgres.Config{DriverName: "postgres", DSN: dsn})
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger()})
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层连接失败: %w", err)
	}

	// 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	if driver == "sqlite" {
		// SQLite 单写者；单连接也保证 :memory: 数据库在整个进程内可见
		sqlDB.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL"} {
			if err := db.Exec(pragma).Error; err != nil {
				logging.Warn().Err(err).Str("pragma", pragma).Msg("[DB] 设置 PRAGMA 失败")
			}
		}
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return db, nil
}

func newGormLogger() logger.Interface {
	level := logger.Warn
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		level = logger.Info
	}
	return logger.New(logging.Logger(), logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// ResetSchema 删除全部表后重建（build 前清空旧数据）
func ResetSchema(db *gorm.DB) error {
	m := db.Migrator()
	// 依赖方先删
	if err := m.DropTable(&model.WatchEvent{}, &model.MovieCast{}, &model.Person{}, &model.Movie{}); err != nil {
		return fmt.Errorf("删除旧表失败: %w", err)
	}
	return Migrate(db)
}

// Migrate 自动建表
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("AutoMigrate 失败: %w", err)
	}
	return nil
}

// CheckBuilt 只读检查：电影表与日记表都存在
func CheckBuilt(db *gorm.DB) error {
	m := db.Migrator()
	if !m.HasTable(&model.Movie{}) || !m.HasTable(&model.WatchEvent{}) {
		return ErrNoDatabase
	}
	return nil
}

// EnsureBuilt 检查 build 是否已执行过，并补齐日记表
func EnsureBuilt(db *gorm.DB) error {
	if !db.Migrator().HasTable(&model.Movie{}) {
		return ErrNoDatabase
	}
	if err := db.AutoMigrate(&model.WatchEvent{}); err != nil {
		return fmt.Errorf("创建日记表失败: %w", err)
	}
	return nil
}

// Repositories 仓库集合
type Repositories struct {
	DB         *gorm.DB
	Movie      *MovieRepository
	Person     *PersonRepository
	Cast       *CastRepository
	WatchEvent *WatchEventRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:         db,
		Movie:      NewMovieRepository(db),
		Person:     NewPersonRepository(db),
		Cast:       NewCastRepository(db),
		WatchEvent: NewWatchEventRepository(db),
	}
}

// Transaction 在单个事务中执行 fn，fn 返回错误时整体回滚
func (r *Repositories) Transaction(fn func(tx *Repositories) error) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
