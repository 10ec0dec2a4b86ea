package identity

import (
	"context"
	"time"

	"gorm.io/datatypes"
)

// Metadata keys written by the OAuth bridge and the invite issuer. The
// provisioned_via flag is the explicit signed-by-us claim that replaces any
// guessing about where an account came from.
const (
	MetaRole           = "role"
	MetaMerchantID     = "merchant_id"
	MetaBusinessName   = "business_name"
	MetaStylistID      = "stylist_id"
	MetaStylistName    = "stylist_name"
	MetaLevelID        = "level_id"
	MetaProvisionedVia = "provisioned_via"
	MetaInvitePending  = "invite_pending"

	RoleAdmin   = "admin"
	RoleStylist = "stylist"

	ProvisionedViaSquareOAuth = "square-oauth"
)

// User is an internal account. One user per email; the identity provider
// authenticates by email+password, so email is the natural key.
type User struct {
	ID           int64             `json:"id" gorm:"primaryKey"`
	Email        string            `json:"email" gorm:"column:email;uniqueIndex;not null"`
	Name         string            `json:"name" gorm:"column:name"`
	PasswordHash string            `json:"-" gorm:"column:password_hash;not null"`
	Metadata     datatypes.JSONMap `json:"metadata" gorm:"column:metadata;type:jsonb"`
	IsActive     bool              `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt    time.Time         `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt    time.Time         `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) Role() string {
	if u.Metadata == nil {
		return ""
	}
	if role, ok := u.Metadata[MetaRole].(string); ok {
		return role
	}
	return ""
}

func (u *User) IsAdmin() bool {
	return u.Role() == RoleAdmin
}

func (u *User) MetaString(key string) string {
	if u.Metadata == nil {
		return ""
	}
	if v, ok := u.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// Session is the access/refresh token pair minted on sign-in.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RepositoryAPI is the durable user store contract. FindByEmail is a direct
// unique-index lookup; enumeration is never required to resolve a conflict.
type RepositoryAPI interface {
	Create(user *User) error
	Update(user *User) error
	GetByID(id int64) (*User, error)
	FindByEmail(email string) (*User, error)
	List(page, perPage int) ([]*User, error)
}

// ProviderAPI is the admin surface consumed by the OAuth bridge and the
// invite issuer.
type ProviderAPI interface {
	CreateUser(email, name, password string, metadata map[string]interface{}) (*User, error)
	UpdateUser(user *User) error
	UpdateUserMetadata(userID int64, metadata map[string]interface{}) (*User, error)
	FindUserByEmail(email string) (*User, error)
	ListUsers(page, perPage int) ([]*User, error)
	SignInWithPassword(email, password string) (*Session, error)
	GetSession(accessToken string) (*User, error)
	RefreshSession(refreshToken string) (*Session, error)
	InviteUser(email, name string, metadata map[string]interface{}) (*User, error)
}

type ctxKey string

const contextUserKey ctxKey = "identityUser"

func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}

func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(contextUserKey).(*User)
	return user, ok
}
