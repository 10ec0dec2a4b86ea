package postgres

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arityo/merchant-bridge/internal/team"
)

// MemberRepository implements team.RepositoryAPI using GORM
type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) team.RepositoryAPI {
	return &MemberRepository{db: db}
}

// Upsert replaces-or-inserts on the external member id. Level assignment and
// overrides are owned by permission edits, so sync callers must load-merge
// before writing (see team.Service.SyncTeamMembers).
func (r *MemberRepository) Upsert(member *team.Member) error {
	member.UpdatedAt = time.Now()

	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"merchant_id", "name", "email", "role", "status",
			"level_id", "permission_overrides", "raw", "updated_at",
		}),
	}).Create(member).Error
}

func (r *MemberRepository) GetByID(id string) (*team.Member, error) {
	var member team.Member
	if err := r.db.Where("id = ?", id).First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *MemberRepository) ListByMerchant(merchantID string) ([]*team.Member, error) {
	var members []*team.Member
	err := r.db.Where("merchant_id = ?", merchantID).
		Order("name ASC").
		Find(&members).Error
	return members, err
}

func (r *MemberRepository) Update(member *team.Member) error {
	member.UpdatedAt = time.Now()
	return r.db.Save(member).Error
}
