package identity

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"strconv"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/arityo/merchant-bridge/internal"
)

// Service is the internal identity provider: the system of record for
// accounts, password auth and session issuance.
type Service struct {
	repo       RepositoryAPI
	tokenGen   TokenGeneratorAPI
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, tokenGen TokenGeneratorAPI, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		tokenGen:   tokenGen,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// CreateUser provisions an account. A duplicate email surfaces as the
// structured internal.ErrEmailExists, never a free-text match.
func (s *Service) CreateUser(email, name, password string, metadata map[string]interface{}) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Metadata:     metadata,
		IsActive:     true,
	}

	if err := s.repo.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, internal.ErrEmailExists
		}
		s.logger.Error("failed to create user", "error", err, "email", email)
		return nil, err
	}

	s.logger.Info("user created", "user_id", user.ID, "email", email)
	return user, nil
}

func (s *Service) UpdateUser(user *User) error {
	return s.repo.Update(user)
}

// SetPassword rotates a user's password to a new value.
func (s *Service) SetPassword(user *User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	return s.repo.Update(user)
}

func (s *Service) UpdateUserMetadata(userID int64, metadata map[string]interface{}) (*User, error) {
	user, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	if user.Metadata == nil {
		user.Metadata = map[string]interface{}{}
	}
	for key, value := range metadata {
		user.Metadata[key] = value
	}

	if err := s.repo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) FindUserByEmail(email string) (*User, error) {
	return s.repo.FindByEmail(email)
}

func (s *Service) ListUsers(page, perPage int) ([]*User, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 50
	}
	return s.repo.List(page, perPage)
}

// SignInWithPassword authenticates and mints a session token pair.
func (s *Service) SignInWithPassword(email, password string) (*Session, error) {
	user, err := s.repo.FindByEmail(email)
	if err != nil {
		return nil, internal.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, internal.NewForbiddenError("User account is inactive", internal.ErrCodeInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, internal.ErrInvalidCredentials
	}

	return s.mintSession(user)
}

func (s *Service) mintSession(user *User) (*Session, error) {
	userID := strconv.FormatInt(user.ID, 10)

	accessToken, err := s.tokenGen.GenerateAccessToken(userID, user.Email, user.Role())
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokenGen.GenerateRefreshToken(userID, user.Email, user.Role())
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// GetSession resolves an access token back to its user.
func (s *Service) GetSession(accessToken string) (*User, error) {
	claims, err := s.tokenGen.ValidateToken(accessToken)
	if err != nil {
		return nil, err
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return nil, internal.ErrInvalidToken
	}

	user, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, internal.ErrInvalidToken
	}
	return user, nil
}

func (s *Service) RefreshSession(refreshToken string) (*Session, error) {
	claims, err := s.tokenGen.ValidateToken(refreshToken)
	if err != nil {
		return nil, err
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return nil, internal.ErrInvalidToken
	}

	user, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, internal.ErrInvalidToken
	}

	return s.mintSession(user)
}

// InviteUser provisions a pending account for someone who will sign in with
// email+password later. Delivery of the invitation itself is an external
// collaborator; the pending marker is what it keys off.
func (s *Service) InviteUser(email, name string, metadata map[string]interface{}) (*User, error) {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadata[MetaInvitePending] = true

	password, err := GenerateOpaquePassword()
	if err != nil {
		return nil, err
	}

	user, err := s.CreateUser(email, name, password, metadata)
	if err != nil {
		return nil, err
	}

	s.logger.Info("invite issued", "user_id", user.ID, "email", email)
	return user, nil
}

// GenerateOpaquePassword returns a high-entropy password that no human ever
// sees; OAuth-provisioned accounts authenticate through freshly rotated
// values of it.
func GenerateOpaquePassword() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
