package bridge

import (
	"context"

	"github.com/arityo/merchant-bridge/internal/identity"
	"github.com/arityo/merchant-bridge/internal/merchant"
	"github.com/arityo/merchant-bridge/internal/square"
)

// ProviderAPI is the slice of the commerce provider the bridge consumes: the
// browser hand-off, the one-time code exchange and the profile read.
type ProviderAPI interface {
	AuthorizeURL(state, redirectURI string) string
	ObtainToken(ctx context.Context, code, redirectURI string) (*square.TokenGrant, error)
	RetrieveMerchant(ctx context.Context, accessToken, merchantID string) (*square.Merchant, error)
}

// IdentityAPI is the identity-provider admin surface the bridge needs to turn
// a merchant authorization into an internal account and session.
type IdentityAPI interface {
	CreateUser(email, name, password string, metadata map[string]interface{}) (*identity.User, error)
	FindUserByEmail(email string) (*identity.User, error)
	SetPassword(user *identity.User, password string) error
	UpdateUserMetadata(userID int64, metadata map[string]interface{}) (*identity.User, error)
	SignInWithPassword(email, password string) (*identity.Session, error)
}

// LinkRepositoryAPI persists the durable user-administers-merchant fact.
type LinkRepositoryAPI interface {
	Upsert(link *merchant.Link) error
}

// Syncer mirrors a provider directory after a session is established. Syncs
// run fire-and-forget: failures are logged, never surfaced to the signing-in
// user.
type Syncer interface {
	Name() string
	Sync(ctx context.Context, merchantID, accessToken string) error
}

// SyncerFunc adapts a plain function into a named Syncer.
type SyncerFunc struct {
	SyncerName string
	Fn         func(ctx context.Context, merchantID, accessToken string) error
}

func (s SyncerFunc) Name() string { return s.SyncerName }

func (s SyncerFunc) Sync(ctx context.Context, merchantID, accessToken string) error {
	return s.Fn(ctx, merchantID, accessToken)
}

// Result is the bridge outcome. NeedsEmail marks the resumable branch: the
// caller resubmits with an email plus the token pair below, and the original
// authorization code is never echoed back.
//
// The session field keeps its legacy supabase_session wire name so existing
// dashboard clients keep working.
type Result struct {
	NeedsEmail   bool              `json:"needsEmail,omitempty"`
	MerchantID   string            `json:"merchant_id"`
	BusinessName string            `json:"business_name"`
	AccessToken  string            `json:"access_token"`
	Session      *identity.Session `json:"supabase_session"`
}
