package model

// Duration 时长（分钟 + 小时）
type Duration struct {
	Minutes int64   `json:"minutes"`
	Hours   float64 `json:"hours"`
}

// NewDuration 根据分钟数构造时长
func NewDuration(minutes int64) Duration {
	return Duration{Minutes: minutes, Hours: float64(minutes) / 60.0}
}

// Durations 观看时长与片库时长
type Durations struct {
	Watched Duration `json:"watched"` // 按日记计，重看累计
	Library Duration `json:"library"` // 每部电影计一次
}

// RatingBucket 评分分布中的一档
type RatingBucket struct {
	Rating float64 `json:"rating"`
	Count  int64   `json:"count"`
}

// MonthlyStat 按月汇总
type MonthlyStat struct {
	Month     string   `json:"month"` // YYYY-MM
	Label     string   `json:"label"` // Jan, Feb ...
	Watches   int64    `json:"watches"`
	Rewatches int64    `json:"rewatches"`
	Minutes   int64    `json:"minutes"`
	Hours     float64  `json:"hours"`
	AvgRating *float64 `json:"avg_rating"`
}

// RankedName 导演/演员排行项
type RankedName struct {
	Name       string   `json:"name"`
	WatchCount int64    `json:"watch_count"`
	MovieCount int64    `json:"movie_count"`
	AvgRating  *float64 `json:"avg_rating"`
}

// RankedMovie 电影排行项
type RankedMovie struct {
	MovieID    uint     `json:"movie_id"`
	Title      string   `json:"title"`
	WatchCount int64    `json:"watch_count"`
	AvgRating  *float64 `json:"avg_rating"`
}

// MovieRef 导演/演员作品列表项
type MovieRef struct {
	ID     uint     `json:"id"`
	Title  string   `json:"title"`
	TMDBID *int     `json:"tmdb_id" gorm:"column:tmdb_id"`
	Year   *int     `json:"year"`
	Rating *float64 `json:"rating"`
}

// GeneralStats 总体统计
type GeneralStats struct {
	MovieCount    int64          `json:"movie_count"`
	DirectorCount int64          `json:"director_count"`
	Durations     Durations      `json:"durations"`
	Ratings       []RatingBucket `json:"ratings"`
	Monthly       []MonthlyStat  `json:"monthly"`
}

// Rankings 排行榜
type Rankings struct {
	Directors struct {
		MostWatched  []RankedName `json:"most_watched"`
		HighestRated []RankedName `json:"highest_rated"`
	} `json:"directors"`
	Actors struct {
		MostWatched  []RankedName `json:"most_watched"`
		HighestRated []RankedName `json:"highest_rated"`
	} `json:"actors"`
	Movies struct {
		TopWatched []RankedMovie `json:"top_watched"`
	} `json:"movies"`
}

// Report 年度总结所需的全部数据
type Report struct {
	General  GeneralStats `json:"general"`
	Rankings Rankings     `json:"rankings"`
}
