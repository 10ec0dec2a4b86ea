package postgres

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arityo/merchant-bridge/internal/merchant"
)

// LinkRepository implements merchant.RepositoryAPI using GORM
type LinkRepository struct {
	db *gorm.DB
}

func NewLinkRepository(db *gorm.DB) merchant.RepositoryAPI {
	return &LinkRepository{db: db}
}

// Upsert relies on the store's atomic ON CONFLICT resolution for the unique
// external merchant id, so concurrent bridge attempts for the same merchant
// never race into duplicates.
func (r *LinkRepository) Upsert(link *merchant.Link) error {
	if link.LinkedAt.IsZero() {
		link.LinkedAt = time.Now()
	}
	link.UpdatedAt = time.Now()

	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_merchant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"internal_user_id", "access_token", "linked_at", "updated_at",
		}),
	}).Create(link).Error
}

func (r *LinkRepository) GetByExternalMerchantID(externalMerchantID string) (*merchant.Link, error) {
	var link merchant.Link
	if err := r.db.Where("external_merchant_id = ?", externalMerchantID).First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *LinkRepository) GetByInternalUserID(internalUserID int64) (*merchant.Link, error) {
	var link merchant.Link
	if err := r.db.Where("internal_user_id = ?", internalUserID).First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}
