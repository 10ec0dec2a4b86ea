package team

import (
	"time"

	"gorm.io/datatypes"

	"github.com/arityo/merchant-bridge/internal/permission"
)

// Member is the durable mirror of an external team-member record, keyed by
// the external member id. Rows are written by directory sync and the invite
// issuer, updated by permission edits, and never deleted automatically.
type Member struct {
	ID                  string            `json:"id" gorm:"primaryKey"`
	MerchantID          string            `json:"merchant_id" gorm:"column:merchant_id;index;not null"`
	Name                string            `json:"name" gorm:"column:name"`
	Email               string            `json:"email" gorm:"column:email"`
	Role                string            `json:"role" gorm:"column:role"`
	Status              string            `json:"status" gorm:"column:status"`
	LevelID             string            `json:"level_id" gorm:"column:level_id"`
	PermissionOverrides datatypes.JSONMap `json:"permission_overrides" gorm:"column:permission_overrides;type:jsonb"`
	Raw                 datatypes.JSONMap `json:"raw,omitempty" gorm:"column:raw;type:jsonb"`
	CreatedAt           time.Time         `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt           time.Time         `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (Member) TableName() string {
	return "team_members"
}

// Overrides returns the member's sparse override set.
func (m *Member) Overrides() permission.PermissionSet {
	return permission.FromJSONMap(m.PermissionOverrides)
}

// SetOverrides replaces the member's override set.
func (m *Member) SetOverrides(set permission.PermissionSet) {
	m.PermissionOverrides = set.ToJSONMap()
}

// RepositoryAPI is the data access contract for the team directory.
type RepositoryAPI interface {
	Upsert(member *Member) error
	GetByID(id string) (*Member, error)
	ListByMerchant(merchantID string) ([]*Member, error)
	Update(member *Member) error
}
