package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/user/moovie-wrapped/internal/analytics"
	"github.com/user/moovie-wrapped/internal/config"
	"github.com/user/moovie-wrapped/internal/logging"
	"github.com/user/moovie-wrapped/internal/model"
	"github.com/user/moovie-wrapped/internal/repository"
	"github.com/user/moovie-wrapped/internal/service"
	"github.com/user/moovie-wrapped/internal/utils"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const personListCacheSize = 256

// ImageSource 海报/剧照来源（TMDB）
type ImageSource interface {
	FetchImages(ctx context.Context, id int) (*service.MovieImages, error)
	ImageURL(size, path string) string
}

// Handler HTTP 处理器，只读
type Handler struct {
	Repos     *repository.Repositories
	Config    *config.Config
	Analytics *analytics.Aggregator
	Images    ImageSource // 未配置 TMDB 凭据时为 nil

	reports *utils.Store
	lists   *utils.TTLCache[[]model.MovieRef]
	sf      singleflight.Group
}

// NewHandler 创建处理器
func NewHandler(db *gorm.DB, cfg *config.Config, images ImageSource) *Handler {
	return &Handler{
		Repos:     repository.NewRepositories(db),
		Config:    cfg,
		Analytics: analytics.NewAggregator(db),
		Images:    images,
		reports:   utils.NewStore(cfg.CacheTTL),
		lists:     utils.NewTTLCache[[]model.MovieRef](personListCacheSize, cfg.CacheTTL),
	}
}

// cached 先查缓存；未命中时同一 key 的并发请求只计算一次
// 共享计算不随发起请求的客户端断开而取消
func (h *Handler) cached(c *gin.Context, key string, compute func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if v, ok := h.reports.Get(key); ok {
		return v, nil
	}
	ctx := context.WithoutCancel(c.Request.Context())
	v, err, _ := h.sf.Do(key, func() (interface{}, error) {
		if v, ok := h.reports.Get(key); ok {
			return v, nil
		}
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		h.reports.Set(key, v)
		return v, nil
	})
	return v, err
}

// topK 读取 ?k=，缺省为配置值
func (h *Handler) topK(c *gin.Context) (int, bool) {
	raw := c.Query("k")
	if raw == "" {
		return h.Config.TopK, true
	}
	k, err := strconv.Atoi(raw)
	if err != nil || k < 1 || k > 100 {
		utils.BadRequest(c, "k 必须是 1 到 100 之间的整数")
		return 0, false
	}
	return k, true
}

// fail 把存储层错误映射为响应
func (h *Handler) fail(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrNoDatabase) {
		utils.ServiceUnavailable(c, "数据库尚未构建，请先执行 build")
		return
	}
	logging.Error().Err(err).Str("path", c.Request.URL.Path).Msg("[API] 查询失败")
	utils.InternalServerError(c, "")
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	sqlDB, err := h.Repos.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	built := repository.CheckBuilt(h.Repos.DB) == nil
	c.JSON(http.StatusOK, gin.H{"status": "ok", "built": built})
}
