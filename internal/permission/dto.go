package permission

import "errors"

// CreateLevelDTO is the request payload for creating a permission level.
type CreateLevelDTO struct {
	Name               string        `json:"name"`
	Color              string        `json:"color"`
	Order              int           `json:"order"`
	DefaultPermissions PermissionSet `json:"default_permissions"`
}

func (dto CreateLevelDTO) Validate() error {
	if dto.Name == "" {
		return errors.New("name is required")
	}
	if dto.Order < 0 {
		return errors.New("order cannot be negative")
	}
	return nil
}

// UpdateLevelDTO carries a partial level edit.
type UpdateLevelDTO struct {
	Name               *string       `json:"name,omitempty"`
	Color              *string       `json:"color,omitempty"`
	Order              *int          `json:"order,omitempty"`
	DefaultPermissions PermissionSet `json:"default_permissions,omitempty"`
}

type LevelView struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	Color              string        `json:"color"`
	Order              int           `json:"order"`
	DefaultPermissions PermissionSet `json:"default_permissions"`
}

func (l *Level) ToView() LevelView {
	return LevelView{
		ID:                 l.ID,
		Name:               l.Name,
		Color:              l.Color,
		Order:              l.Ordering,
		DefaultPermissions: l.Defaults(),
	}
}
