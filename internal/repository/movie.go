package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/user/moovie-wrapped/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// UpsertByTMDBID 按 TMDB ID 创建或整体覆盖电影，返回内部 ID
func (r *MovieRepository) UpsertByTMDBID(movie *model.Movie) (uint, error) {
	if movie.TMDBID == nil {
		return 0, errors.New("upsert requires a tmdb id")
	}
	movie.UpdatedAt = time.Now()

	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tmdb_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "director", "year", "runtime_minutes", "rating", "updated_at"}),
	}).Omit(clause.Associations).Create(movie).Error
	if err != nil {
		return 0, fmt.Errorf("failed to upsert movie %q: %w", movie.Title, err)
	}

	// 冲突更新时部分驱动不会回填 ID，统一回查
	var saved model.Movie
	err = r.db.Select("id").Where("tmdb_id = ?", *movie.TMDBID).First(&saved).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load movie id for tmdb %d: %w", *movie.TMDBID, err)
	}
	movie.ID = saved.ID
	return saved.ID, nil
}

// FindByTMDBID 根据 TMDB ID 查找电影，不存在时返回 nil, nil
func (r *MovieRepository) FindByTMDBID(tmdbID int) (*model.Movie, error) {
	var movie model.Movie
	err := r.db.Where("tmdb_id = ?", tmdbID).First(&movie).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &movie, nil
}

// FindByTitle 按标题精确匹配（区分大小写），同名时取 ID 最小的一部
func (r *MovieRepository) FindByTitle(title string) (*model.Movie, error) {
	var movie model.Movie
	err := r.db.Where("title = ?", title).Order("id ASC").First(&movie).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &movie, nil
}

// FindByID 根据 ID 查找电影
func (r *MovieRepository) FindByID(id uint) (*model.Movie, error) {
	var movie model.Movie
	err := r.db.First(&movie, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &movie, nil
}

// List 列出全部电影
func (r *MovieRepository) List() ([]*model.Movie, error) {
	var movies []*model.Movie
	err := r.db.Order("id ASC").Find(&movies).Error
	return movies, err
}

// Count 电影总数
func (r *MovieRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.Movie{}).Count(&count).Error
	return count, err
}
