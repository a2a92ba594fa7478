package repository

import (
	"errors"
	"fmt"

	"github.com/user/moovie-wrapped/internal/model"
	"gorm.io/gorm"
)

// PersonRepository 演员
type PersonRepository struct {
	db *gorm.DB
}

func NewPersonRepository(db *gorm.DB) *PersonRepository {
	return &PersonRepository{db: db}
}

// GetOrCreate 按名称查找演员，不存在则创建，返回 ID
func (r *PersonRepository) GetOrCreate(name string) (uint, error) {
	if name == "" {
		return 0, errors.New("person name is empty")
	}
	person := model.Person{Name: name}
	if err := r.db.Where("name = ?", name).FirstOrCreate(&person).Error; err != nil {
		return 0, fmt.Errorf("failed to get or create person %q: %w", name, err)
	}
	return person.ID, nil
}

// FindByName 按名称精确查找，不存在时返回 nil, nil
func (r *PersonRepository) FindByName(name string) (*model.Person, error) {
	var person model.Person
	err := r.db.Where("name = ?", name).First(&person).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &person, nil
}

// Count 演员总数
func (r *PersonRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.Person{}).Count(&count).Error
	return count, err
}
