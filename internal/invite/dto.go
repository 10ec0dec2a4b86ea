package invite

import (
	"errors"
	"strings"
)

// CreateInviteDTO provisions a pending member who will sign in with
// email+password instead of OAuth.
type CreateInviteDTO struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	LevelID string `json:"level_id"`
}

func (d CreateInviteDTO) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(d.Email) == "" || !strings.Contains(d.Email, "@") {
		return errors.New("a valid email is required")
	}
	if d.LevelID == "" {
		return errors.New("level_id is required")
	}
	return nil
}

// InviteResult reports the provisioned pair of rows.
type InviteResult struct {
	MemberID string `json:"member_id"`
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	LevelID  string `json:"level_id"`
}
