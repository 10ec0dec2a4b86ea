package permission

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arityo/merchant-bridge/internal"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service handles level administration. Member-facing resolution stays in the
// pure functions of resolver.go; this service owns the durable tier records.
type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// normalize widens a possibly-partial default set to the full fixed shape,
// missing keys default to false.
func normalize(set PermissionSet) PermissionSet {
	full := PermissionSet{}
	for _, key := range Keys {
		full[key] = false
	}
	for key, value := range set {
		full[key] = value
	}
	return full
}

func (s *Service) CreateLevel(dto CreateLevelDTO) (*Level, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeInvalidRequest)
	}

	level := &Level{
		ID:                 fmt.Sprintf("lvl_%s", strings.ReplaceAll(uuid.NewString(), "-", "")[:12]),
		Name:               dto.Name,
		Color:              dto.Color,
		Ordering:           dto.Order,
		DefaultPermissions: normalize(dto.DefaultPermissions).ToJSONMap(),
	}

	if err := s.repo.Create(level); err != nil {
		s.logger.Error("failed to create level", "error", err, "name", dto.Name)
		return nil, internal.ErrPersistence.WithCause(err)
	}

	s.logger.Info("level created", "level_id", level.ID, "name", level.Name, "order", level.Ordering)
	return level, nil
}

func (s *Service) GetLevel(id string) (*Level, error) {
	level, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrLevelNotFound
		}
		return nil, err
	}
	return level, nil
}

func (s *Service) ListLevels() ([]*Level, error) {
	return s.repo.List()
}

func (s *Service) UpdateLevel(id string, dto UpdateLevelDTO) (*Level, error) {
	level, err := s.GetLevel(id)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		level.Name = *dto.Name
	}
	if dto.Color != nil {
		level.Color = *dto.Color
	}
	if dto.Order != nil {
		level.Ordering = *dto.Order
	}
	if dto.DefaultPermissions != nil {
		level.DefaultPermissions = normalize(dto.DefaultPermissions).ToJSONMap()
	}

	if err := s.repo.Update(level); err != nil {
		s.logger.Error("failed to update level", "error", err, "level_id", id)
		return nil, internal.ErrPersistence.WithCause(err)
	}

	s.logger.Info("level updated", "level_id", level.ID)
	return level, nil
}

// DeleteLevel removes a tier. Members still referencing it resolve against
// the lowest-ordered remaining level; see DefaultsFor.
func (s *Service) DeleteLevel(id string) error {
	if _, err := s.GetLevel(id); err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		s.logger.Error("failed to delete level", "error", err, "level_id", id)
		return internal.ErrPersistence.WithCause(err)
	}
	s.logger.Info("level deleted", "level_id", id)
	return nil
}
