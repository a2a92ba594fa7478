package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/user/moovie-wrapped/internal/config"
)

// Candidate TMDB 搜索结果中的一个候选
type Candidate struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
}

// CrewMember 幕后人员
type CrewMember struct {
	Job  string `json:"job"`
	Name string `json:"name"`
}

// CastMember 演员，顺序即 TMDB 返回的署名顺序
type CastMember struct {
	Name string `json:"name"`
}

// MovieDetails 详情 + 演职员（一次请求取回）
type MovieDetails struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	Runtime     *int   `json:"runtime"`
	Credits     struct {
		Crew []CrewMember `json:"crew"`
		Cast []CastMember `json:"cast"`
	} `json:"credits"`
}

// MovieImages 海报与剧照的相对路径
type MovieImages struct {
	Posters   []string
	Backdrops []string
}

// SearchHints 选取候选时可用的额外信息
type SearchHints struct {
	Year *int
}

// MetadataResolver 合并流程依赖的元数据接口
type MetadataResolver interface {
	Resolve(ctx context.Context, title string, hints SearchHints) (*Candidate, error)
	FetchDetails(ctx context.Context, id int) (*MovieDetails, error)
}

// TMDBOptions TMDB 客户端参数
type TMDBOptions struct {
	BaseURL      string
	ImageBaseURL string
	Token        string // v4 access token，走 Bearer
	APIKey       string // v3 api_key，走 query
	Timeout      time.Duration
	Ranker       Ranker
}

// TMDBService TMDB 查询服务，不做重试、缓存或限流
type TMDBService struct {
	client       *resty.Client
	ranker       Ranker
	imageBaseURL string
}

func NewTMDBService(opts TMDBOptions) *TMDBService {
	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetHeader("Accept", "application/json")
	if opts.Token != "" {
		client.SetAuthToken(opts.Token)
	}
	if opts.APIKey != "" {
		client.SetQueryParam("api_key", opts.APIKey)
	}
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	ranker := opts.Ranker
	if ranker == nil {
		ranker = FirstResult
	}

	return &TMDBService{
		client:       client,
		ranker:       ranker,
		imageBaseURL: strings.TrimRight(opts.ImageBaseURL, "/"),
	}
}

// NewTMDBServiceFromConfig 根据应用配置创建
func NewTMDBServiceFromConfig(cfg *config.Config) (*TMDBService, error) {
	ranker, err := RankerByName(cfg.TMDBRanker)
	if err != nil {
		return nil, err
	}
	return NewTMDBService(TMDBOptions{
		BaseURL:      cfg.TMDBBaseURL,
		ImageBaseURL: cfg.TMDBImageBaseURL,
		Token:        cfg.TMDBToken,
		APIKey:       cfg.TMDBAPIKey,
		Timeout:      cfg.TMDBTimeout,
		Ranker:       ranker,
	}), nil
}

type tmdbSearchResponse struct {
	Results []Candidate `json:"results"`
}

// request 新建请求；响应一律按 JSON 解析，不依赖 Content-Type
func (s *TMDBService) request(ctx context.Context) *resty.Request {
	return s.client.R().
		SetContext(ctx).
		ForceContentType("application/json")
}

// Search 按标题搜索电影，year 可选
func (s *TMDBService) Search(ctx context.Context, title string, year *int) ([]Candidate, error) {
	var result tmdbSearchResponse
	req := s.request(ctx).
		SetQueryParams(map[string]string{
			"query":         title,
			"include_adult": "false",
		}).
		SetResult(&result)
	if year != nil {
		req.SetQueryParam("year", strconv.Itoa(*year))
	}

	resp, err := req.Get("/search/movie")
	if err != nil {
		return nil, fmt.Errorf("TMDB 搜索请求失败: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("TMDB 搜索失败，状态码: %d", resp.StatusCode())
	}
	return result.Results, nil
}

// Resolve 搜索标题并由 Ranker 选出一个候选，无结果时返回 nil, nil
func (s *TMDBService) Resolve(ctx context.Context, title string, hints SearchHints) (*Candidate, error) {
	candidates, err := s.Search(ctx, title, nil)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return s.ranker.Rank(candidates, hints), nil
}

// FetchDetails 获取详情与演职员表
func (s *TMDBService) FetchDetails(ctx context.Context, id int) (*MovieDetails, error) {
	var result MovieDetails
	resp, err := s.request(ctx).
		SetPathParam("id", strconv.Itoa(id)).
		SetQueryParam("append_to_response", "credits").
		SetResult(&result).
		Get("/movie/{id}")
	if err != nil {
		return nil, fmt.Errorf("TMDB 详情请求失败: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("TMDB 详情获取失败 (ID: %d)，状态码: %d", id, resp.StatusCode())
	}
	return &result, nil
}

type tmdbImagesResponse struct {
	Backdrops []struct {
		FilePath string `json:"file_path"`
	} `json:"backdrops"`
	Posters []struct {
		FilePath string `json:"file_path"`
	} `json:"posters"`
}

// FetchImages 获取海报与剧照路径
func (s *TMDBService) FetchImages(ctx context.Context, id int) (*MovieImages, error) {
	var result tmdbImagesResponse
	resp, err := s.request(ctx).
		SetPathParam("id", strconv.Itoa(id)).
		SetResult(&result).
		Get("/movie/{id}/images")
	if err != nil {
		return nil, fmt.Errorf("TMDB 图片请求失败: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("TMDB 图片获取失败 (ID: %d)，状态码: %d", id, resp.StatusCode())
	}

	images := &MovieImages{}
	for _, p := range result.Posters {
		if p.FilePath != "" {
			images.Posters = append(images.Posters, p.FilePath)
		}
	}
	for _, b := range result.Backdrops {
		if b.FilePath != "" {
			images.Backdrops = append(images.Backdrops, b.FilePath)
		}
	}
	return images, nil
}

// ImageURL 拼接图片地址，如 https://image.tmdb.org/t/p + w780 + /abc.jpg
func (s *TMDBService) ImageURL(size, path string) string {
	return s.imageBaseURL + "/" + size + path
}
