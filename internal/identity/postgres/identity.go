package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/arityo/merchant-bridge/internal/identity"
)

// UserRepository implements identity.RepositoryAPI using GORM
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) identity.RepositoryAPI {
	return &UserRepository{db: db}
}

// Create inserts a user. Unique-email violations are normalized to
// gorm.ErrDuplicatedKey so the service can map them to a structured error.
func (r *UserRepository) Create(user *identity.User) error {
	err := r.db.Create(user).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return gorm.ErrDuplicatedKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return gorm.ErrDuplicatedKey
	}
	return err
}

func (r *UserRepository) Update(user *identity.User) error {
	return r.db.Save(user).Error
}

func (r *UserRepository) GetByID(id int64) (*identity.User, error) {
	var user identity.User
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail is a direct unique-index lookup, not an enumeration.
func (r *UserRepository) FindByEmail(email string) (*identity.User, error) {
	var user identity.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) List(page, perPage int) ([]*identity.User, error) {
	var users []*identity.User
	err := r.db.Order("id ASC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&users).Error
	return users, err
}
