package merchant

import "time"

// Link records the durable fact that an internal user administers an
// external merchant account. One row per external merchant id.
type Link struct {
	ID                 int64     `json:"id" gorm:"primaryKey"`
	InternalUserID     int64     `json:"internal_user_id" gorm:"column:internal_user_id;not null"`
	ExternalMerchantID string    `json:"external_merchant_id" gorm:"column:external_merchant_id;uniqueIndex;not null"`
	AccessToken        string    `json:"-" gorm:"column:access_token;not null"`
	LinkedAt           time.Time `json:"linked_at" gorm:"column:linked_at;default:now()"`
	CreatedAt          time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (Link) TableName() string {
	return "merchant_links"
}

// RepositoryAPI is the data access contract for merchant links. Upsert is
// keyed on the external merchant id: re-authorizing the same merchant
// updates, never duplicates.
type RepositoryAPI interface {
	Upsert(link *Link) error
	GetByExternalMerchantID(externalMerchantID string) (*Link, error)
	GetByInternalUserID(internalUserID int64) (*Link, error)
}
