package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/user/moovie-wrapped/internal/logging"
	"github.com/user/moovie-wrapped/internal/model"
	"github.com/user/moovie-wrapped/internal/repository"
	"github.com/user/moovie-wrapped/internal/source"
	"gorm.io/gorm"
)

// DiaryStats 一次日记合并的统计
type DiaryStats struct {
	RunID            string        `json:"run_id"`
	Total            int           `json:"total"`
	Inserted         int           `json:"inserted"`
	SkippedMalformed int           `json:"skipped_malformed"`
	Unmatched        []string      `json:"unmatched"` // 库中找不到的标题，按出现顺序
	Elapsed          time.Duration `json:"elapsed"`
}

// DiaryMerger 把 diary.csv 的观看记录挂到已有电影上
type DiaryMerger struct {
	db   *gorm.DB
	opts options
}

func NewDiaryMerger(db *gorm.DB, opts ...Option) *DiaryMerger {
	return &DiaryMerger{db: db, opts: buildOptions(opts)}
}

// MergeFile 读取 diary 文件并执行 Merge，未 build 时先于读文件返回 ErrNoDatabase
func (d *DiaryMerger) MergeFile(ctx context.Context, path string) (*DiaryStats, error) {
	if err := repository.EnsureBuilt(d.db); err != nil {
		return nil, err
	}
	table, err := source.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return d.merge(ctx, table)
}

// Merge 按标题精确匹配电影并追加观看记录
// 没有事务：每条记录独立写入，存储错误时停止，已写入的记录保留
func (d *DiaryMerger) Merge(ctx context.Context, table *source.Table) (*DiaryStats, error) {
	if err := repository.EnsureBuilt(d.db); err != nil {
		return nil, err
	}
	return d.merge(ctx, table)
}

func (d *DiaryMerger) merge(ctx context.Context, table *source.Table) (*DiaryStats, error) {
	start := time.Now()
	stats := &DiaryStats{
		RunID: uuid.NewString(),
		Total: len(table.Records),
	}
	log := logging.With().Str("run_id", stats.RunID).Str("op", "diary-merge").Logger()
	log.Info().Int("rows", stats.Total).Msg("[Diary] 开始合并观影日记")

	layout := source.ResolveLayout(table.Header, source.DiaryLayout)
	repos := repository.NewRepositories(d.db)
	// 同一标题在日记中常出现多次
	matched := make(map[string]uint)

	for i, rec := range table.Records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		p := Progress{RunID: stats.RunID, Index: i + 1, Total: stats.Total}
		row, ok := source.ParseDiaryRow(rec, layout)
		if !ok {
			stats.SkippedMalformed++
			p.Outcome = OutcomeMalformed
			d.opts.observer.OnProgress(p)
			continue
		}
		p.Title = row.Title

		movieID, ok := matched[row.Title]
		if !ok {
			movie, err := repos.Movie.FindByTitle(row.Title)
			if err != nil {
				return stats, fmt.Errorf("查找电影 %q 失败: %w", row.Title, err)
			}
			if movie == nil {
				stats.Unmatched = append(stats.Unmatched, row.Title)
				log.Debug().Str("title", row.Title).Msg("[Diary] 库中没有该电影，跳过")
				p.Outcome = OutcomeUnmatched
				d.opts.observer.OnProgress(p)
				continue
			}
			movieID = movie.ID
			matched[row.Title] = movieID
		}

		event := &model.WatchEvent{
			MovieID:     movieID,
			WatchedDate: row.WatchedDate,
			IsRewatch:   row.Rewatch,
		}
		if err := repos.WatchEvent.Create(event); err != nil {
			log.Error().Err(err).Int("inserted", stats.Inserted).Msg("[Diary] 写入失败，停止合并")
			return stats, err
		}
		stats.Inserted++
		p.Outcome = OutcomeImported
		d.opts.observer.OnProgress(p)
	}

	stats.Elapsed = time.Since(start)
	log.Info().
		Int("inserted", stats.Inserted).
		Int("skipped_malformed", stats.SkippedMalformed).
		Int("unmatched", len(stats.Unmatched)).
		Dur("elapsed", stats.Elapsed).
		Msg("[Diary] 完成")
	return stats, nil
}
