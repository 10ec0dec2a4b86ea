package team

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"github.com/arityo/merchant-bridge/internal"
	"github.com/arityo/merchant-bridge/internal/permission"
	"github.com/arityo/merchant-bridge/internal/square"
)

// ProviderAPI is the slice of the commerce provider the directory sync needs.
type ProviderAPI interface {
	ListTeamMembers(ctx context.Context, accessToken, merchantID string) ([]square.TeamMember, error)
}

// Service owns the team directory: provider sync plus the permission edits
// that route through the central resolver.
type Service struct {
	repo     RepositoryAPI
	levels   permission.RepositoryAPI
	provider ProviderAPI
	logger   *slog.Logger
}

func NewService(repo RepositoryAPI, levels permission.RepositoryAPI, provider ProviderAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		levels:   levels,
		provider: provider,
		logger:   logger,
	}
}

// SyncTeamMembers mirrors the provider's staff records into the directory.
// Known members keep their level assignment and overrides; only the
// provider-owned fields are refreshed. New members land on the fallback
// level with no overrides.
func (s *Service) SyncTeamMembers(ctx context.Context, merchantID, accessToken string) error {
	providerMembers, err := s.provider.ListTeamMembers(ctx, accessToken, merchantID)
	if err != nil {
		return err
	}

	levels, err := s.levels.List()
	if err != nil {
		return err
	}

	fallbackLevelID := ""
	if fallback := permission.FallbackLevel(levels); fallback != nil {
		fallbackLevelID = fallback.ID
	}

	for _, pm := range providerMembers {
		role := "stylist"
		if pm.IsOwner {
			role = "owner"
		}

		member := &Member{
			ID:         pm.ID,
			MerchantID: merchantID,
			Name:       pm.DisplayName(),
			Email:      pm.EmailAddress,
			Role:       role,
			Status:     pm.Status,
			LevelID:    fallbackLevelID,
			Raw: map[string]interface{}{
				"id":            pm.ID,
				"given_name":    pm.GivenName,
				"family_name":   pm.FamilyName,
				"email_address": pm.EmailAddress,
				"status":        pm.Status,
				"is_owner":      pm.IsOwner,
			},
		}

		if existing, err := s.repo.GetByID(pm.ID); err == nil {
			member.LevelID = existing.LevelID
			member.PermissionOverrides = existing.PermissionOverrides
		}

		if err := s.repo.Upsert(member); err != nil {
			s.logger.Error("failed to upsert team member", "error", err, "member_id", pm.ID)
			return internal.ErrPersistence.WithCause(err)
		}
	}

	s.logger.Info("team directory synced", "merchant_id", merchantID, "member_count", len(providerMembers))
	return nil
}

// CreateMember writes a directory row seeded by the invite issuer.
func (s *Service) CreateMember(member *Member) error {
	if err := s.repo.Upsert(member); err != nil {
		s.logger.Error("failed to create team member", "error", err, "member_id", member.ID)
		return internal.ErrPersistence.WithCause(err)
	}
	return nil
}

func (s *Service) GetMember(id string) (*MemberView, error) {
	member, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrMemberNotFound
		}
		return nil, err
	}
	return s.view(member)
}

func (s *Service) ListMembers(merchantID string) ([]*MemberView, error) {
	members, err := s.repo.ListByMerchant(merchantID)
	if err != nil {
		return nil, err
	}

	levels, err := s.levels.List()
	if err != nil {
		return nil, err
	}

	views := make([]*MemberView, 0, len(members))
	for _, member := range members {
		views = append(views, buildView(member, levels))
	}
	return views, nil
}

// ReassignLevel moves a member to a new tier and re-sparsifies their
// overrides against the new defaults, so overrides always represent a true
// delta from the member's current level.
func (s *Service) ReassignLevel(memberID, newLevelID string) (*MemberView, error) {
	member, err := s.repo.GetByID(memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrMemberNotFound
		}
		return nil, err
	}

	levels, err := s.levels.List()
	if err != nil {
		return nil, err
	}

	var newLevel *permission.Level
	for _, level := range levels {
		if level.ID == newLevelID {
			newLevel = level
			break
		}
	}
	if newLevel == nil {
		return nil, internal.ErrLevelNotFound
	}

	member.LevelID = newLevelID
	member.SetOverrides(permission.ReassignLevel(member.Overrides(), newLevel.Defaults()))

	if err := s.repo.Update(member); err != nil {
		s.logger.Error("failed to reassign level", "error", err, "member_id", memberID)
		return nil, internal.ErrPersistence.WithCause(err)
	}

	s.logger.Info("member level reassigned", "member_id", memberID, "level_id", newLevelID)
	return buildView(member, levels), nil
}

// TogglePermission flips one capability for a member through the resolver,
// keeping the override set sparse.
func (s *Service) TogglePermission(memberID, key string, value bool) (*MemberView, error) {
	member, err := s.repo.GetByID(memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrMemberNotFound
		}
		return nil, err
	}

	levels, err := s.levels.List()
	if err != nil {
		return nil, err
	}

	defaults := permission.DefaultsFor(levels, member.LevelID)
	member.SetOverrides(permission.Toggle(member.Overrides(), key, value, defaults))

	if err := s.repo.Update(member); err != nil {
		s.logger.Error("failed to toggle permission", "error", err, "member_id", memberID, "key", key)
		return nil, internal.ErrPersistence.WithCause(err)
	}

	return buildView(member, levels), nil
}

func (s *Service) view(member *Member) (*MemberView, error) {
	levels, err := s.levels.List()
	if err != nil {
		return nil, err
	}
	return buildView(member, levels), nil
}

func buildView(member *Member, levels []*permission.Level) *MemberView {
	defaults := permission.DefaultsFor(levels, member.LevelID)
	return &MemberView{
		ID:                   member.ID,
		MerchantID:           member.MerchantID,
		Name:                 member.Name,
		Email:                member.Email,
		Role:                 member.Role,
		Status:               member.Status,
		LevelID:              member.LevelID,
		PermissionOverrides:  member.Overrides(),
		EffectivePermissions: permission.Effective(defaults, member.Overrides()),
	}
}
