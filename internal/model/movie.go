package model

import (
	"time"
)

// Movie 电影（评分导出 + TMDB 补全）
type Movie struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	TMDBID         *int      `json:"tmdb_id" gorm:"column:tmdb_id;uniqueIndex"`
	Title          string    `json:"title" gorm:"not null;index"` // 保留导出文件中的标题
	Director       *string   `json:"director" gorm:"index"`
	Year           *int      `json:"year"`
	RuntimeMinutes *int      `json:"runtime_minutes" gorm:"column:runtime_minutes"`
	Rating         *float64  `json:"rating"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Movie) TableName() string { return "movies" }

// Person 演员，按名称唯一（区分大小写）
type Person struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"not null;uniqueIndex"`
}

func (Person) TableName() string { return "people" }

// MovieCast 电影-演员关联，billing_order 从 1 开始连续
type MovieCast struct {
	MovieID      uint    `json:"movie_id" gorm:"primaryKey;autoIncrement:false"`
	PersonID     uint    `json:"person_id" gorm:"primaryKey;autoIncrement:false;index"`
	BillingOrder int     `json:"billing_order" gorm:"not null"`
	Movie        *Movie  `json:"-" gorm:"foreignKey:MovieID;constraint:OnDelete:CASCADE"`
	Person       *Person `json:"-" gorm:"foreignKey:PersonID"`
}

func (MovieCast) TableName() string { return "movie_casts" }

// WatchEvent 观影日记中的一次观看记录（只追加）
type WatchEvent struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	MovieID     uint   `json:"movie_id" gorm:"not null;index"`
	WatchedDate string `json:"watched_date" gorm:"not null;index"` // 保留原始格式，通常为 YYYY-MM-DD
	IsRewatch   bool   `json:"is_rewatch" gorm:"not null"`
	Movie       *Movie `json:"-" gorm:"foreignKey:MovieID;constraint:OnDelete:CASCADE"`
}

func (WatchEvent) TableName() string { return "watch_events" }

// All 返回全部模型，顺序即建表顺序
func All() []interface{} {
	return []interface{}{&Movie{}, &Person{}, &MovieCast{}, &WatchEvent{}}
}
