package repository

import (
	"fmt"

	"github.com/user/moovie-wrapped/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WatchEventRepository 观影日记
type WatchEventRepository struct {
	db *gorm.DB
}

func NewWatchEventRepository(db *gorm.DB) *WatchEventRepository {
	return &WatchEventRepository{db: db}
}

// Create 追加一条观看记录
func (r *WatchEventRepository) Create(e *model.WatchEvent) error {
	if err := r.db.Omit(clause.Associations).Create(e).Error; err != nil {
		return fmt.Errorf("failed to insert watch event for movie %d: %w", e.MovieID, err)
	}
	return nil
}

// ListByMovie 某部电影的全部观看记录，按日期排序
func (r *WatchEventRepository) ListByMovie(movieID uint) ([]*model.WatchEvent, error) {
	var events []*model.WatchEvent
	err := r.db.Where("movie_id = ?", movieID).
		Order("watched_date ASC, id ASC").
		Find(&events).Error
	return events, err
}

// Count 观看记录总数
func (r *WatchEventRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.WatchEvent{}).Count(&count).Error
	return count, err
}
