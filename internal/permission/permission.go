package permission

import (
	"time"

	"gorm.io/datatypes"
)

// PermissionSet is a fixed-shape mapping of named boolean capabilities. The
// same shape is used for level defaults and for per-member overrides; override
// sets are sparse and only carry keys that differ from the level default.
type PermissionSet map[string]bool

// Keys enumerates every capability the dashboard understands. Unknown keys in
// stored data are carried through untouched so old rows survive new releases.
var Keys = []string{
	"canBookAppointments",
	"canOfferDiscounts",
	"requiresDiscountApproval",
	"viewGlobalReports",
	"viewClientContact",
	"viewAllSalonPlans",
	"can_book_own_schedule",
	"can_book_peer_schedules",
}

// Baseline is the hard-coded fallback applied when no levels exist at all.
// Members can work their own book and nothing else.
func Baseline() PermissionSet {
	set := PermissionSet{}
	for _, key := range Keys {
		set[key] = false
	}
	set["canBookAppointments"] = true
	set["can_book_own_schedule"] = true
	return set
}

func (p PermissionSet) Clone() PermissionSet {
	clone := make(PermissionSet, len(p))
	for k, v := range p {
		clone[k] = v
	}
	return clone
}

func (p PermissionSet) Equal(other PermissionSet) bool {
	if len(p) != len(other) {
		return false
	}
	for k, v := range p {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// ToJSONMap converts a set into the shape gorm stores in a jsonb column.
func (p PermissionSet) ToJSONMap() datatypes.JSONMap {
	m := datatypes.JSONMap{}
	for k, v := range p {
		m[k] = v
	}
	return m
}

// FromJSONMap restores a set from a jsonb column value. Non-boolean values
// are ignored rather than failing the whole row.
func FromJSONMap(m datatypes.JSONMap) PermissionSet {
	set := PermissionSet{}
	for k, v := range m {
		if b, ok := v.(bool); ok {
			set[k] = b
		}
	}
	return set
}

// Level is an ordered permission tier. Identified by id, never by position;
// Ordering only decides which level supplies fallback defaults.
type Level struct {
	ID                 string            `json:"id" gorm:"primaryKey"`
	Name               string            `json:"name" gorm:"column:name;not null"`
	Color              string            `json:"color" gorm:"column:color"`
	Ordering           int               `json:"order" gorm:"column:ordering;not null"`
	DefaultPermissions datatypes.JSONMap `json:"default_permissions" gorm:"column:default_permissions;type:jsonb"`
	CreatedAt          time.Time         `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt          time.Time         `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (Level) TableName() string {
	return "levels"
}

// Defaults returns the level's default capability set.
func (l *Level) Defaults() PermissionSet {
	return FromJSONMap(l.DefaultPermissions)
}

// RepositoryAPI is the data access contract for levels.
type RepositoryAPI interface {
	Create(level *Level) error
	GetByID(id string) (*Level, error)
	List() ([]*Level, error)
	Update(level *Level) error
	Delete(id string) error
}
