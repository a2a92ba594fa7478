package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/user/moovie-wrapped/internal/handler"
	"github.com/user/moovie-wrapped/internal/middleware"
)

// New 创建 gin 引擎并注册全部路由
func New(h *handler.Handler) *gin.Engine {
	if h.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	// 启用 gzip，默认压缩级别
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	RegisterRoutes(r, h)
	return r
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// 健康检查
	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	{
		stats := api.Group("/stats")
		stats.GET("", h.Report)
		stats.GET("/general", h.General)
		stats.GET("/monthly", h.Monthly)
		stats.GET("/ratings", h.Ratings)
		stats.GET("/top", h.Top)

		api.GET("/movies/:id/images", h.MovieImages)
		api.GET("/directors/:name/movies", h.DirectorMovies)
		api.GET("/actors/:name/movies", h.ActorMovies)
	}
}
