package invite

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/arityo/merchant-bridge/internal"
	"github.com/arityo/merchant-bridge/internal/identity"
	"github.com/arityo/merchant-bridge/internal/permission"
	"github.com/arityo/merchant-bridge/internal/team"
)

// invited member ids carry an external-style prefix so directory consumers
// treat them like any provider-issued id
const memberIDPrefix = "TMinv_"

// IdentityAPI is the identity-provider slice the issuer needs.
type IdentityAPI interface {
	InviteUser(email, name string, metadata map[string]interface{}) (*identity.User, error)
}

// DirectoryAPI seeds the team directory row for the invited member.
type DirectoryAPI interface {
	CreateMember(member *team.Member) error
}

// Service provisions a pending internal identity plus a directory row for a
// member joining outside the OAuth flow. Every call mints a new member id;
// re-inviting the same logical person is not collapsed.
type Service struct {
	identity IdentityAPI
	teams    DirectoryAPI
	levels   permission.RepositoryAPI
	logger   *slog.Logger
}

func NewService(identityProvider IdentityAPI, teams DirectoryAPI, levels permission.RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		identity: identityProvider,
		teams:    teams,
		levels:   levels,
		logger:   logger,
	}
}

// Invite requires an administrative session. The invited member starts on the
// chosen level with no overrides: every capability comes from the level until
// an admin toggles one.
func (s *Service) Invite(caller *identity.User, dto *CreateInviteDTO) (*InviteResult, error) {
	if caller == nil || !caller.IsAdmin() {
		return nil, internal.ErrPermissionDenied
	}

	if _, err := s.levels.GetByID(dto.LevelID); err != nil {
		return nil, internal.ErrLevelNotFound
	}

	memberID := memberIDPrefix + uuid.NewString()
	merchantID := caller.MetaString(identity.MetaMerchantID)

	user, err := s.identity.InviteUser(dto.Email, dto.Name, map[string]interface{}{
		identity.MetaRole:        identity.RoleStylist,
		identity.MetaMerchantID:  merchantID,
		identity.MetaStylistID:   memberID,
		identity.MetaStylistName: dto.Name,
		identity.MetaLevelID:     dto.LevelID,
	})
	if err != nil {
		s.logger.Error("invite identity provisioning failed", "error", err, "email", dto.Email)
		return nil, err
	}

	member := &team.Member{
		ID:         memberID,
		MerchantID: merchantID,
		Name:       dto.Name,
		Email:      dto.Email,
		Role:       identity.RoleStylist,
		Status:     "PENDING",
		LevelID:    dto.LevelID,
	}
	member.SetOverrides(permission.PermissionSet{})

	if err := s.teams.CreateMember(member); err != nil {
		return nil, err
	}

	s.logger.Info("invite issued",
		"member_id", memberID,
		"user_id", user.ID,
		"level_id", dto.LevelID,
		"invited_by", caller.ID)

	return &InviteResult{
		MemberID: memberID,
		UserID:   user.ID,
		Email:    dto.Email,
		LevelID:  dto.LevelID,
	}, nil
}
