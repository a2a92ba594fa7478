package repository

import (
	"fmt"

	"github.com/user/moovie-wrapped/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxCastPerMovie 每部电影最多保留的演员数
const MaxCastPerMovie = 10

// CastRepository 电影演员关联
type CastRepository struct {
	db *gorm.DB
}

func NewCastRepository(db *gorm.DB) *CastRepository {
	return &CastRepository{db: db}
}

// Replace 先删后插，personIDs 的顺序即 billing_order（从 1 开始），超出部分截断
func (r *CastRepository) Replace(movieID uint, personIDs []uint) error {
	if err := r.db.Where("movie_id = ?", movieID).Delete(&model.MovieCast{}).Error; err != nil {
		return fmt.Errorf("failed to clear cast for movie %d: %w", movieID, err)
	}

	if len(personIDs) > MaxCastPerMovie {
		personIDs = personIDs[:MaxCastPerMovie]
	}
	if len(personIDs) == 0 {
		return nil
	}

	links := make([]model.MovieCast, 0, len(personIDs))
	for i, pid := range personIDs {
		links = append(links, model.MovieCast{
			MovieID:      movieID,
			PersonID:     pid,
			BillingOrder: i + 1,
		})
	}

	if err := r.db.Omit(clause.Associations).Create(&links).Error; err != nil {
		return fmt.Errorf("failed to insert cast for movie %d: %w", movieID, err)
	}
	return nil
}

// ListByMovie 按 billing_order 列出某部电影的演员关联
func (r *CastRepository) ListByMovie(movieID uint) ([]model.MovieCast, error) {
	var links []model.MovieCast
	err := r.db.Preload("Person").
		Where("movie_id = ?", movieID).
		Order("billing_order ASC").
		Find(&links).Error
	return links, err
}

// CountByMovie 某部电影的演员数
func (r *CastRepository) CountByMovie(movieID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.MovieCast{}).Where("movie_id = ?", movieID).Count(&count).Error
	return count, err
}
