package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/user/moovie-wrapped/internal/logging"
	"github.com/user/moovie-wrapped/internal/model"
	"github.com/user/moovie-wrapped/internal/repository"
	"github.com/user/moovie-wrapped/internal/source"
	"github.com/user/moovie-wrapped/internal/utils"
	"gorm.io/gorm"
)

const personCacheSize = 4096

// BuildStats 一次 build 的统计
type BuildStats struct {
	RunID            string        `json:"run_id"`
	Total            int           `json:"total"`
	Imported         int           `json:"imported"`
	SkippedMalformed int           `json:"skipped_malformed"`
	SkippedLookup    int           `json:"skipped_lookup"`
	Elapsed          time.Duration `json:"elapsed"`
}

// Skipped 跳过的总行数
func (s *BuildStats) Skipped() int {
	return s.SkippedMalformed + s.SkippedLookup
}

// Option 批处理选项
type Option func(*options)

type options struct {
	observer ProgressObserver
}

// WithObserver 设置进度回调
func WithObserver(o ProgressObserver) Option {
	return func(opts *options) {
		if o != nil {
			opts.observer = o
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{observer: NoOpObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// MergeEngine 把 ratings.csv 合并进数据库
type MergeEngine struct {
	db       *gorm.DB
	resolver MetadataResolver
	opts     options
}

func NewMergeEngine(db *gorm.DB, resolver MetadataResolver, opts ...Option) *MergeEngine {
	return &MergeEngine{
		db:       db,
		resolver: resolver,
		opts:     buildOptions(opts),
	}
}

// BuildFile 读取 ratings 文件并执行 Build
func (e *MergeEngine) BuildFile(ctx context.Context, path string) (*BuildStats, error) {
	table, err := source.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return e.Build(ctx, table)
}

// Build 清空数据库后重建：逐行查询 TMDB 并写入电影与演员
// 整个过程在一个事务内，存储错误会回滚全部写入；查询失败和畸形行只计数跳过
func (e *MergeEngine) Build(ctx context.Context, table *source.Table) (*BuildStats, error) {
	start := time.Now()
	stats := &BuildStats{
		RunID: uuid.NewString(),
		Total: len(table.Records),
	}
	log := logging.With().Str("run_id", stats.RunID).Str("op", "build").Logger()
	log.Info().Int("rows", stats.Total).Msg("[Build] 开始重建数据库")

	if err := repository.ResetSchema(e.db); err != nil {
		return nil, err
	}

	layout := source.ResolveLayout(table.Header, source.RatingsLayout)
	people, err := lru.New[string, uint](personCacheSize)
	if err != nil {
		return nil, fmt.Errorf("创建演员缓存失败: %w", err)
	}

	repos := repository.NewRepositories(e.db)
	err = repos.Transaction(func(tx *repository.Repositories) error {
		for i, rec := range table.Records {
			if err := ctx.Err(); err != nil {
				return err
			}

			p := Progress{RunID: stats.RunID, Index: i + 1, Total: stats.Total}
			row, ok := source.ParseRatingRow(rec, layout)
			if !ok {
				stats.SkippedMalformed++
				p.Outcome = OutcomeMalformed
				e.opts.observer.OnProgress(p)
				continue
			}
			p.Title = row.Title

			details, err := e.lookup(ctx, row, &log)
			if err != nil {
				return err
			}
			if details == nil {
				stats.SkippedLookup++
				p.Outcome = OutcomeLookup
				e.opts.observer.OnProgress(p)
				continue
			}

			if err := e.store(tx, people, row, details); err != nil {
				return err
			}
			stats.Imported++
			p.Outcome = OutcomeImported
			e.opts.observer.OnProgress(p)
		}
		return nil
	})
	stats.Elapsed = time.Since(start)
	if err != nil {
		log.Error().Err(err).Msg("[Build] 重建失败，已回滚")
		return stats, fmt.Errorf("build failed: %w", err)
	}

	log.Info().
		Int("imported", stats.Imported).
		Int("skipped_malformed", stats.SkippedMalformed).
		Int("skipped_lookup", stats.SkippedLookup).
		Dur("elapsed", stats.Elapsed).
		Msg("[Build] 完成")
	return stats, nil
}

// lookup 查询失败或无结果时返回 nil, nil；只有 ctx 取消才返回错误
func (e *MergeEngine) lookup(ctx context.Context, row source.RatingRow, log *zerolog.Logger) (*MovieDetails, error) {
	candidate, err := e.resolver.Resolve(ctx, row.Title, SearchHints{Year: row.Year})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		log.Warn().Err(err).Str("title", row.Title).Msg("[Build] 搜索失败，跳过")
		return nil, nil
	}
	if candidate == nil {
		log.Debug().Str("title", row.Title).Msg("[Build] 未找到匹配，跳过")
		return nil, nil
	}

	details, err := e.resolver.FetchDetails(ctx, candidate.ID)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		log.Warn().Err(err).Str("title", row.Title).Int("tmdb_id", candidate.ID).Msg("[Build] 获取详情失败，跳过")
		return nil, nil
	}
	if details.ID == 0 {
		details.ID = candidate.ID
	}
	return details, nil
}

func (e *MergeEngine) store(tx *repository.Repositories, people *lru.Cache[string, uint], row source.RatingRow, details *MovieDetails) error {
	tmdbID := details.ID
	rating := row.Rating
	movie := &model.Movie{
		TMDBID:         &tmdbID,
		Title:          row.Title,
		Director:       directorOf(details.Credits.Crew),
		Year:           utils.ParseYearPrefix(details.ReleaseDate),
		RuntimeMinutes: details.Runtime,
		Rating:         &rating,
	}
	movieID, err := tx.Movie.UpsertByTMDBID(movie)
	if err != nil {
		return err
	}

	names := castNames(details.Credits.Cast, repository.MaxCastPerMovie)
	personIDs := make([]uint, 0, len(names))
	for _, name := range names {
		if id, ok := people.Get(name); ok {
			personIDs = append(personIDs, id)
			continue
		}
		id, err := tx.Person.GetOrCreate(name)
		if err != nil {
			return err
		}
		people.Add(name, id)
		personIDs = append(personIDs, id)
	}

	return tx.Cast.Replace(movieID, personIDs)
}

// directorOf 第一个 job 为 Director 的成员
func directorOf(crew []CrewMember) *string {
	for _, c := range crew {
		if c.Job != "Director" {
			continue
		}
		if c.Name == "" {
			return nil
		}
		name := c.Name
		return &name
	}
	return nil
}

// castNames 按署名顺序取前 limit 个不重复的非空名字
// 同一演员可能在演员表中出现多次（一人分饰多角），关联表以 (movie_id, person_id) 为主键
func castNames(cast []CastMember, limit int) []string {
	seen := make(map[string]struct{}, limit)
	names := make([]string, 0, limit)
	for _, c := range cast {
		if len(names) == limit {
			break
		}
		if c.Name == "" {
			continue
		}
		if _, dup := seen[c.Name]; dup {
			continue
		}
		seen[c.Name] = struct{}{}
		names = append(names, c.Name)
	}
	return names
}
