// Package server 只读统计 API 的 HTTP 服务
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/user/moovie-wrapped/internal/config"
	"github.com/user/moovie-wrapped/internal/handler"
	"github.com/user/moovie-wrapped/internal/logging"
	"github.com/user/moovie-wrapped/internal/router"
	"gorm.io/gorm"
)

const shutdownTimeout = 5 * time.Second

// New 构建 http.Server
func New(cfg *config.Config, db *gorm.DB, images handler.ImageSource) *http.Server {
	h := handler.NewHandler(db, cfg, images)
	return &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router.New(h),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
}

// Run 启动服务，ctx 结束时优雅关闭
func Run(ctx context.Context, cfg *config.Config, db *gorm.DB, images handler.ImageSource) error {
	srv := New(cfg, db, images)

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msgf("[Server] 服务器启动于 http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("[Server] 正在关闭服务器...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logging.Info().Msg("[Server] 服务器已退出")
	return nil
}
