package bridge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/arityo/merchant-bridge/internal"
	"github.com/arityo/merchant-bridge/internal/identity"
	"github.com/arityo/merchant-bridge/internal/merchant"
)

const defaultBusinessName = "Admin"

// Service runs the authorization-code to internal-session pipeline. Steps are
// strictly sequential and not transactional across each other: a failure
// mid-flight leaves earlier upserts standing, and a re-run with the same keys
// converges because every durable write is an upsert.
type Service struct {
	provider    ProviderAPI
	identity    IdentityAPI
	links       LinkRepositoryAPI
	syncers     []Syncer
	redirectURI string
	logger      *slog.Logger
}

func NewService(provider ProviderAPI, identityProvider IdentityAPI, links LinkRepositoryAPI, redirectURI string, logger *slog.Logger) *Service {
	return &Service{
		provider:    provider,
		identity:    identityProvider,
		links:       links,
		redirectURI: redirectURI,
		logger:      logger,
	}
}

// RegisterSyncer adds a fire-and-forget directory sync to run after every
// successful bridge.
func (s *Service) RegisterSyncer(syncer Syncer) {
	s.syncers = append(s.syncers, syncer)
}

// AuthorizeURL builds the provider hand-off URL for the browser redirect.
func (s *Service) AuthorizeURL(state, derivedRedirect string) string {
	return s.provider.AuthorizeURL(state, s.ResolveRedirectURI(derivedRedirect))
}

// ResolveRedirectURI picks the single redirect value sent to the provider.
// The registered value always wins; the request-derived candidate is only a
// fallback for deployments that never configured one. A mismatch is logged so
// operators can spot proxy misconfiguration, never silently substituted.
func (s *Service) ResolveRedirectURI(derived string) string {
	if s.redirectURI == "" {
		return derived
	}
	if derived != "" && derived != s.redirectURI {
		s.logger.Warn("request-derived redirect URI differs from registered value",
			"registered", s.redirectURI,
			"derived", derived)
	}
	return s.redirectURI
}

// Bridge converts a one-time authorization code (or, on retry, a previously
// obtained token) into an active internal session plus a persisted merchant
// link.
func (s *Service) Bridge(ctx context.Context, dto *BridgeDTO) (*Result, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	accessToken := dto.AccessToken
	merchantID := dto.MerchantID

	// The code is single-use upstream. When the retry path already carries a
	// token pair the exchange is skipped entirely, whether or not a code is
	// also present.
	if !dto.hasToken() {
		grant, err := s.provider.ObtainToken(ctx, dto.Code, s.ResolveRedirectURI(""))
		if err != nil {
			return nil, err
		}
		accessToken = grant.AccessToken
		merchantID = grant.MerchantID
	}

	businessName, email := s.fetchProfile(ctx, accessToken, merchantID, dto.Email)

	if email == "" {
		s.logger.Info("no email resolvable, returning resumable branch", "merchant_id", merchantID)
		return &Result{
			NeedsEmail:   true,
			MerchantID:   merchantID,
			BusinessName: businessName,
			AccessToken:  accessToken,
		}, nil
	}

	password, err := identity.GenerateOpaquePassword()
	if err != nil {
		return nil, internal.ErrSession.WithCause(err)
	}

	user, err := s.upsertIdentity(email, businessName, merchantID, password)
	if err != nil {
		return nil, err
	}

	session, err := s.identity.SignInWithPassword(email, password)
	if err != nil {
		s.logger.Error("session mint failed", "error", err, "user_id", user.ID)
		return nil, internal.ErrSession.WithCause(err)
	}
	if session == nil {
		return nil, internal.ErrSession
	}

	link := &merchant.Link{
		InternalUserID:     user.ID,
		ExternalMerchantID: merchantID,
		AccessToken:        accessToken,
		LinkedAt:           time.Now(),
	}
	if err := s.links.Upsert(link); err != nil {
		s.logger.Error("merchant link upsert failed", "error", err, "merchant_id", merchantID)
		return nil, internal.ErrPersistence.WithCause(err)
	}

	s.runSyncers(merchantID, accessToken)

	s.logger.Info("bridge completed",
		"merchant_id", merchantID,
		"user_id", user.ID,
		"business_name", businessName)

	return &Result{
		MerchantID:   merchantID,
		BusinessName: businessName,
		AccessToken:  accessToken,
		Session:      session,
	}, nil
}

// fetchProfile reads the merchant profile and resolves the business name and
// email. A caller-supplied email always wins; the provider's contact fields
// are consulted in their fixed priority order otherwise. A profile-read
// failure degrades to defaults rather than aborting, since the email gate can
// still recover through the retry path.
func (s *Service) fetchProfile(ctx context.Context, accessToken, merchantID, callerEmail string) (string, string) {
	businessName := defaultBusinessName
	email := callerEmail

	profile, err := s.provider.RetrieveMerchant(ctx, accessToken, merchantID)
	if err != nil {
		s.logger.Warn("merchant profile fetch failed", "error", err, "merchant_id", merchantID)
		return businessName, email
	}

	if profile.BusinessName != "" {
		businessName = profile.BusinessName
	}
	if email == "" {
		email = profile.ContactEmail()
	}
	return businessName, email
}

// upsertIdentity creates the internal account, or rotates the password and
// metadata of the existing one when the email is already taken. The conflict
// resolves through a direct find-by-email lookup; if that cannot produce a
// concrete user the bridge fails with UserLookupError.
func (s *Service) upsertIdentity(email, businessName, merchantID, password string) (*identity.User, error) {
	metadata := map[string]interface{}{
		identity.MetaRole:           identity.RoleAdmin,
		identity.MetaMerchantID:     merchantID,
		identity.MetaBusinessName:   businessName,
		identity.MetaProvisionedVia: identity.ProvisionedViaSquareOAuth,
	}

	user, err := s.identity.CreateUser(email, businessName, password, metadata)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, internal.ErrEmailExists) {
		s.logger.Error("identity create failed", "error", err, "email", email)
		return nil, err
	}

	existing, err := s.identity.FindUserByEmail(email)
	if err != nil || existing == nil {
		s.logger.Error("could not resolve existing account after email conflict", "error", err, "email", email)
		return nil, internal.ErrUserLookup.WithCause(err)
	}

	if err := s.identity.SetPassword(existing, password); err != nil {
		return nil, internal.ErrUserLookup.WithCause(err)
	}
	if _, err := s.identity.UpdateUserMetadata(existing.ID, metadata); err != nil {
		return nil, internal.ErrUserLookup.WithCause(err)
	}

	s.logger.Info("existing account relinked", "user_id", existing.ID, "merchant_id", merchantID)
	return existing, nil
}

// runSyncers kicks off the registered directory syncs without waiting on
// them. The signing-in user never blocks on, or sees, a sync failure.
func (s *Service) runSyncers(merchantID, accessToken string) {
	for _, syncer := range s.syncers {
		go func(syncer Syncer) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			if err := syncer.Sync(ctx, merchantID, accessToken); err != nil {
				s.logger.Error("post-bridge sync failed",
					"syncer", syncer.Name(),
					"error", err,
					"merchant_id", merchantID)
				return
			}
			s.logger.Info("post-bridge sync completed", "syncer", syncer.Name(), "merchant_id", merchantID)
		}(syncer)
	}
}
