package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/user/moovie-wrapped/internal/logging"
	"github.com/user/moovie-wrapped/internal/model"
	"github.com/user/moovie-wrapped/internal/repository"
	"github.com/user/moovie-wrapped/internal/utils"
)

const (
	posterSize   = "w780"
	backdropSize = "w1280"
	maxImages    = 5
)

// Report 完整年度总结 GET /api/stats?k=5
func (h *Handler) Report(c *gin.Context) {
	k, ok := h.topK(c)
	if !ok {
		return
	}
	v, err := h.cached(c, fmt.Sprintf("report:%d", k), func(ctx context.Context) (interface{}, error) {
		return h.Analytics.Report(ctx, k)
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, v)
}

// General 总体统计
func (h *Handler) General(c *gin.Context) {
	v, err := h.cached(c, "general", func(ctx context.Context) (interface{}, error) {
		return h.Analytics.General(ctx)
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, v)
}

// Monthly 月度统计
func (h *Handler) Monthly(c *gin.Context) {
	v, err := h.cached(c, "general", func(ctx context.Context) (interface{}, error) {
		return h.Analytics.General(ctx)
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, v.(*model.GeneralStats).Monthly)
}

// Ratings 评分分布
func (h *Handler) Ratings(c *gin.Context) {
	v, err := h.cached(c, "general", func(ctx context.Context) (interface{}, error) {
		return h.Analytics.General(ctx)
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, v.(*model.GeneralStats).Ratings)
}

// Top 排行榜 GET /api/stats/top?k=5
func (h *Handler) Top(c *gin.Context) {
	k, ok := h.topK(c)
	if !ok {
		return
	}
	v, err := h.cached(c, fmt.Sprintf("rankings:%d", k), func(ctx context.Context) (interface{}, error) {
		return h.Analytics.Rankings(ctx, k)
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, v)
}

// MovieImagesResponse 电影图片地址
type MovieImagesResponse struct {
	MovieID   uint     `json:"movie_id"`
	TMDBID    int      `json:"tmdb_id"`
	Title     string   `json:"title"`
	Posters   []string `json:"posters"`
	Backdrops []string `json:"backdrops"`
}

// MovieImages 海报与剧照地址（各最多 5 张）GET /api/movies/:id/images
func (h *Handler) MovieImages(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequest(c, "无效的电影 ID")
		return
	}
	if h.Images == nil {
		utils.ServiceUnavailable(c, "未配置 TMDB 凭据")
		return
	}

	if err := repository.CheckBuilt(h.Repos.DB); err != nil {
		h.fail(c, err)
		return
	}
	movie, err := h.Repos.Movie.FindByID(uint(id))
	if err != nil {
		h.fail(c, err)
		return
	}
	if movie == nil || movie.TMDBID == nil {
		utils.NotFound(c, "电影不存在")
		return
	}

	images, err := h.Images.FetchImages(c.Request.Context(), *movie.TMDBID)
	if err != nil {
		logging.Warn().Err(err).Int("tmdb_id", *movie.TMDBID).Msg("[API] 获取图片失败")
		utils.BadGateway(c, "获取图片失败")
		return
	}

	utils.Success(c, MovieImagesResponse{
		MovieID:   movie.ID,
		TMDBID:    *movie.TMDBID,
		Title:     movie.Title,
		Posters:   h.imageURLs(images.Posters, posterSize),
		Backdrops: h.imageURLs(images.Backdrops, backdropSize),
	})
}

func (h *Handler) imageURLs(paths []string, size string) []string {
	if len(paths) > maxImages {
		paths = paths[:maxImages]
	}
	urls := make([]string, 0, len(paths))
	for _, p := range paths {
		urls = append(urls, h.Images.ImageURL(size, p))
	}
	return urls
}

// DirectorMovies 某导演的电影 GET /api/directors/:name/movies
func (h *Handler) DirectorMovies(c *gin.Context) {
	h.personMovies(c, "director", h.Analytics.MoviesByDirector)
}

// ActorMovies 某演员的电影 GET /api/actors/:name/movies
func (h *Handler) ActorMovies(c *gin.Context) {
	h.personMovies(c, "actor", h.Analytics.MoviesByActor)
}

func (h *Handler) personMovies(c *gin.Context, role string, query func(ctx context.Context, name string) ([]model.MovieRef, error)) {
	name := sanitizeName(c.Param("name"))
	if name == "" {
		utils.BadRequest(c, "名称不能为空")
		return
	}

	key := role + ":" + name
	if movies, ok := h.lists.Get(key); ok {
		utils.Success(c, movies)
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	v, err, _ := h.sf.Do("movies:"+key, func() (interface{}, error) {
		return query(ctx, name)
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	movies := v.([]model.MovieRef)
	h.lists.Set(key, movies)
	utils.Success(c, movies)
}

// sanitizeName 路径参数中的人名，只去掉首尾空白，大小写保持原样
func sanitizeName(name string) string {
	return strings.TrimSpace(name)
}
