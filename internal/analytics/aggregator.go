// Package analytics 只读统计：总量、时长、评分分布、月度与排行榜
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/user/moovie-wrapped/internal/model"
	"github.com/user/moovie-wrapped/internal/repository"
	"gorm.io/gorm"
)

// DefaultTopK 排行榜默认条数
const DefaultTopK = 5

// Aggregator 统计查询，不做任何写入
type Aggregator struct {
	db *gorm.DB
}

func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db}
}

// MovieCount 电影总数
func (a *Aggregator) MovieCount(ctx context.Context) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).Model(&model.Movie{}).Count(&count).Error
	return count, err
}

// DirectorCount 不同导演数（忽略空值）
func (a *Aggregator) DirectorCount(ctx context.Context) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).Raw(`
		SELECT COUNT(DISTINCT director)
		FROM movies
		WHERE director IS NOT NULL
	`).Scan(&count).Error
	return count, err
}

// Durations 观看时长（按日记，重看累计）与片库时长（每部一次）
func (a *Aggregator) Durations(ctx context.Context) (model.Durations, error) {
	db := a.db.WithContext(ctx)

	var watched int64
	err := db.Raw(`
		SELECT COALESCE(SUM(m.runtime_minutes * w.watch_count), 0)
		FROM movies m
		JOIN (
			SELECT movie_id, COUNT(*) AS watch_count
			FROM watch_events
			GROUP BY movie_id
		) w ON w.movie_id = m.id
	`).Scan(&watched).Error
	if err != nil {
		return model.Durations{}, fmt.Errorf("统计观看时长失败: %w", err)
	}

	var library int64
	err = db.Raw(`SELECT COALESCE(SUM(runtime_minutes), 0) FROM movies`).Scan(&library).Error
	if err != nil {
		return model.Durations{}, fmt.Errorf("统计片库时长失败: %w", err)
	}

	return model.Durations{
		Watched: model.NewDuration(watched),
		Library: model.NewDuration(library),
	}, nil
}

// RatingDistribution 日记中每个评分出现的次数，按评分升序，未评分的电影不计
func (a *Aggregator) RatingDistribution(ctx context.Context) ([]model.RatingBucket, error) {
	buckets := []model.RatingBucket{}
	err := a.db.WithContext(ctx).Raw(`
		SELECT m.rating AS rating, COUNT(*) AS count
		FROM watch_events w
		JOIN movies m ON m.id = w.movie_id
		WHERE m.rating IS NOT NULL
		GROUP BY m.rating
		ORDER BY m.rating ASC
	`).Scan(&buckets).Error
	return buckets, err
}

type monthRow struct {
	Month     string
	Watches   int64
	Rewatches int64
	Minutes   int64
	AvgRating *float64
}

// MonthlyStats 按观看日期前 7 位（YYYY-MM）分组，只做字符串分组
func (a *Aggregator) MonthlyStats(ctx context.Context) ([]model.MonthlyStat, error) {
	var rows []monthRow
	err := a.db.WithContext(ctx).Raw(`
		SELECT
			SUBSTR(w.watched_date, 1, 7) AS month,
			COUNT(*) AS watches,
			COALESCE(SUM(CASE WHEN w.is_rewatch THEN 1 ELSE 0 END), 0) AS rewatches,
			COALESCE(SUM(m.runtime_minutes), 0) AS minutes,
			AVG(m.rating) AS avg_rating
		FROM watch_events w
		JOIN movies m ON m.id = w.movie_id
		GROUP BY SUBSTR(w.watched_date, 1, 7)
		ORDER BY month ASC
	`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := make([]model.MonthlyStat, 0, len(rows))
	for _, r := range rows {
		d := model.NewDuration(r.Minutes)
		stats = append(stats, model.MonthlyStat{
			Month:     r.Month,
			Label:     monthLabel(r.Month),
			Watches:   r.Watches,
			Rewatches: r.Rewatches,
			Minutes:   d.Minutes,
			Hours:     d.Hours,
			AvgRating: r.AvgRating,
		})
	}
	return stats, nil
}

// monthLabel "2024-03" -> "Mar"，无法解析时为空
func monthLabel(month string) string {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return ""
	}
	return t.Format("Jan")
}

// TopDirectorsMostWatched 按观看次数排序的导演
func (a *Aggregator) TopDirectorsMostWatched(ctx context.Context, k int) ([]model.RankedName, error) {
	out := []model.RankedName{}
	err := a.db.WithContext(ctx).Raw(`
		SELECT
			m.director AS name,
			COUNT(*) AS watch_count,
			COUNT(DISTINCT w.movie_id) AS movie_count,
			AVG(m.rating) AS avg_rating
		FROM watch_events w
		JOIN movies m ON m.id = w.movie_id
		WHERE m.director IS NOT NULL
		GROUP BY m.director
		ORDER BY watch_count DESC, name ASC
		LIMIT ?
	`, k).Scan(&out).Error
	return out, err
}

// TopDirectorsHighestRated 平均评分最高的导演，至少看过两部不同的（已评分）电影
func (a *Aggregator) TopDirectorsHighestRated(ctx context.Context, k int) ([]model.RankedName, error) {
	out := []model.RankedName{}
	err := a.db.WithContext(ctx).Raw(`
		SELECT
			m.director AS name,
			COUNT(*) AS watch_count,
			COUNT(DISTINCT w.movie_id) AS movie_count,
			AVG(m.rating) AS avg_rating
		FROM watch_events w
		JOIN movies m ON m.id = w.movie_id
		WHERE m.director IS NOT NULL
		  AND m.rating IS NOT NULL
		GROUP BY m.director
		HAVING COUNT(DISTINCT w.movie_id) > 1
		ORDER BY avg_rating DESC, name ASC
		LIMIT ?
	`, k).Scan(&out).Error
	return out, err
}

// TopActorsMostWatched 按所参演电影的观看次数排序的演员
func (a *Aggregator) TopActorsMostWatched(ctx context.Context, k int) ([]model.RankedName, error) {
	out := []model.RankedName{}
	err := a.db.WithContext(ctx).Raw(`
		SELECT
			p.name AS name,
			COUNT(*) AS watch_count,
			COUNT(DISTINCT w.movie_id) AS movie_count,
			AVG(m.rating) AS avg_rating
		FROM watch_events w
		JOIN movies m ON m.id = w.movie_id
		JOIN movie_casts mc ON mc.movie_id = m.id
		JOIN people p ON p.id = mc.person_id
		GROUP BY p.id, p.name
		ORDER BY watch_count DESC, name ASC
		LIMIT ?
	`, k).Scan(&out).Error
	return out, err
}

// TopActorsHighestRated 平均评分最高的演员，至少看过两部不同的（已评分）电影
func (a *Aggregator) TopActorsHighestRated(ctx context.Context, k int) ([]model.RankedName, error) {
	out := []model.RankedName{}
	err := a.db.WithContext(ctx).Raw(`
		SELECT
			p.name AS name,
			COUNT(*) AS watch_count,
			COUNT(DISTINCT w.movie_id) AS movie_count,
			AVG(m.rating) AS avg_rating
		FROM watch_events w
		JOIN movies m ON m.id = w.movie_id
		JOIN movie_casts mc ON mc.movie_id = m.id
		JOIN people p ON p.id = mc.person_id
		WHERE m.rating IS NOT NULL
		GROUP BY p.id, p.name
		HAVING COUNT(DISTINCT w.movie_id) > 1
		ORDER BY avg_rating DESC, name ASC
		LIMIT ?
	`, k).Scan(&out).Error
	return out, err
}

// TopMovies 至少有一次首看记录且已评分的电影，按观看次数、评分、标题排序
func (a *Aggregator) TopMovies(ctx context.Context, k int) ([]model.RankedMovie, error) {
	out := []model.RankedMovie{}
	err := a.db.WithContext(ctx).Raw(`
		SELECT
			m.id AS movie_id,
			m.title AS title,
			COUNT(*) AS watch_count,
			AVG(m.rating) AS avg_rating
		FROM watch_events w
		JOIN movies m ON m.id = w.movie_id
		WHERE m.rating IS NOT NULL
		  AND EXISTS (
			SELECT 1 FROM watch_events w2
			WHERE w2.movie_id = w.movie_id AND w2.is_rewatch = ?
		  )
		GROUP BY m.id, m.title
		ORDER BY watch_count DESC, avg_rating DESC, title ASC
		LIMIT ?
	`, false, k).Scan(&out).Error
	return out, err
}

// MoviesByDirector 某导演的全部电影，评分高的在前（未评分排最后），同分按年份倒序
func (a *Aggregator) MoviesByDirector(ctx context.Context, name string) ([]model.MovieRef, error) {
	if err := repository.CheckBuilt(a.db.WithContext(ctx)); err != nil {
		return nil, err
	}
	out := []model.MovieRef{}
	err := a.db.WithContext(ctx).Raw(`
		SELECT m.id, m.title, m.tmdb_id, m.year, m.rating
		FROM movies m
		WHERE m.director = ?
		ORDER BY m.rating DESC NULLS LAST, m.year DESC NULLS LAST, m.title ASC
	`, name).Scan(&out).Error
	return out, err
}

// MoviesByActor 某演员参演的全部电影，排序同 MoviesByDirector
func (a *Aggregator) MoviesByActor(ctx context.Context, name string) ([]model.MovieRef, error) {
	if err := repository.CheckBuilt(a.db.WithContext(ctx)); err != nil {
		return nil, err
	}
	out := []model.MovieRef{}
	err := a.db.WithContext(ctx).Raw(`
		SELECT m.id, m.title, m.tmdb_id, m.year, m.rating
		FROM movies m
		JOIN movie_casts mc ON mc.movie_id = m.id
		JOIN people p ON p.id = mc.person_id
		WHERE p.name = ?
		ORDER BY m.rating DESC NULLS LAST, m.year DESC NULLS LAST, m.title ASC
	`, name).Scan(&out).Error
	return out, err
}

// General 总体统计
func (a *Aggregator) General(ctx context.Context) (*model.GeneralStats, error) {
	if err := repository.CheckBuilt(a.db.WithContext(ctx)); err != nil {
		return nil, err
	}

	var (
		g   model.GeneralStats
		err error
	)
	if g.MovieCount, err = a.MovieCount(ctx); err != nil {
		return nil, fmt.Errorf("统计电影数失败: %w", err)
	}
	if g.DirectorCount, err = a.DirectorCount(ctx); err != nil {
		return nil, fmt.Errorf("统计导演数失败: %w", err)
	}
	if g.Durations, err = a.Durations(ctx); err != nil {
		return nil, err
	}
	if g.Ratings, err = a.RatingDistribution(ctx); err != nil {
		return nil, fmt.Errorf("统计评分分布失败: %w", err)
	}
	if g.Monthly, err = a.MonthlyStats(ctx); err != nil {
		return nil, fmt.Errorf("统计月度数据失败: %w", err)
	}
	return &g, nil
}

// Rankings 全部排行榜，k <= 0 时使用 DefaultTopK
func (a *Aggregator) Rankings(ctx context.Context, k int) (*model.Rankings, error) {
	if err := repository.CheckBuilt(a.db.WithContext(ctx)); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = DefaultTopK
	}

	var (
		r   model.Rankings
		err error
	)
	if r.Directors.MostWatched, err = a.TopDirectorsMostWatched(ctx, k); err != nil {
		return nil, fmt.Errorf("导演观看排行失败: %w", err)
	}
	if r.Directors.HighestRated, err = a.TopDirectorsHighestRated(ctx, k); err != nil {
		return nil, fmt.Errorf("导演评分排行失败: %w", err)
	}
	if r.Actors.MostWatched, err = a.TopActorsMostWatched(ctx, k); err != nil {
		return nil, fmt.Errorf("演员观看排行失败: %w", err)
	}
	if r.Actors.HighestRated, err = a.TopActorsHighestRated(ctx, k); err != nil {
		return nil, fmt.Errorf("演员评分排行失败: %w", err)
	}
	if r.Movies.TopWatched, err = a.TopMovies(ctx, k); err != nil {
		return nil, fmt.Errorf("电影排行失败: %w", err)
	}
	return &r, nil
}

// Report 年度总结：总体统计 + 排行榜
func (a *Aggregator) Report(ctx context.Context, k int) (*model.Report, error) {
	general, err := a.General(ctx)
	if err != nil {
		return nil, err
	}
	rankings, err := a.Rankings(ctx, k)
	if err != nil {
		return nil, err
	}
	return &model.Report{General: *general, Rankings: *rankings}, nil
}
