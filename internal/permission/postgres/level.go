package postgres

import (
	"errors"

	"github.com/arityo/merchant-bridge/internal/permission"
	"gorm.io/gorm"
)

// LevelRepository implements permission.RepositoryAPI using GORM
type LevelRepository struct {
	db *gorm.DB
}

func NewLevelRepository(db *gorm.DB) permission.RepositoryAPI {
	return &LevelRepository{db: db}
}

func (r *LevelRepository) Create(level *permission.Level) error {
	return r.db.Create(level).Error
}

func (r *LevelRepository) GetByID(id string) (*permission.Level, error) {
	var level permission.Level
	err := r.db.Where("id = ?", id).First(&level).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &level, nil
}

// List returns all levels sorted by ordering so callers can rely on the
// first entry being the fallback level.
func (r *LevelRepository) List() ([]*permission.Level, error) {
	var levels []*permission.Level
	err := r.db.Order("ordering ASC").Find(&levels).Error
	return levels, err
}

func (r *LevelRepository) Update(level *permission.Level) error {
	return r.db.Save(level).Error
}

func (r *LevelRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&permission.Level{}).Error
}
