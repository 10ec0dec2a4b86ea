package team

import (
	"errors"

	"github.com/arityo/merchant-bridge/internal/permission"
)

// MemberView is a directory row with its effective permissions resolved.
type MemberView struct {
	ID                   string                   `json:"id"`
	MerchantID           string                   `json:"merchant_id"`
	Name                 string                   `json:"name"`
	Email                string                   `json:"email"`
	Role                 string                   `json:"role"`
	Status               string                   `json:"status"`
	LevelID              string                   `json:"level_id"`
	PermissionOverrides  permission.PermissionSet `json:"permission_overrides"`
	EffectivePermissions permission.PermissionSet `json:"effective_permissions"`
}

// ReassignLevelDTO moves a member to another tier.
type ReassignLevelDTO struct {
	LevelID string `json:"level_id"`
}

func (d ReassignLevelDTO) Validate() error {
	if d.LevelID == "" {
		return errors.New("level_id is required")
	}
	return nil
}

// TogglePermissionDTO flips a single capability for a member.
type TogglePermissionDTO struct {
	Key   string `json:"key"`
	Value bool   `json:"value"`
}

func (d TogglePermissionDTO) Validate() error {
	if d.Key == "" {
		return errors.New("key is required")
	}
	return nil
}
