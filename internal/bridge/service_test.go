package bridge_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/arityo/merchant-bridge/internal"
	"github.com/arityo/merchant-bridge/internal/bridge"
	"github.com/arityo/merchant-bridge/internal/identity"
	"github.com/arityo/merchant-bridge/internal/merchant"
	"github.com/arityo/merchant-bridge/internal/square"
)

func TestBridge(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Bridge Module Suite")
}

type mockProvider struct {
	grant          *square.TokenGrant
	tokenErr       error
	merchant       *square.Merchant
	merchantErr    error
	exchangeCalls  int
	exchangedCodes []string
}

func (m *mockProvider) AuthorizeURL(state, redirectURI string) string {
	return "https://provider.test/oauth2/authorize?state=" + state
}

func (m *mockProvider) ObtainToken(ctx context.Context, code, redirectURI string) (*square.TokenGrant, error) {
	m.exchangeCalls++
	m.exchangedCodes = append(m.exchangedCodes, code)
	if m.tokenErr != nil {
		return nil, m.tokenErr
	}
	return m.grant, nil
}

func (m *mockProvider) RetrieveMerchant(ctx context.Context, accessToken, merchantID string) (*square.Merchant, error) {
	if m.merchantErr != nil {
		return nil, m.merchantErr
	}
	return m.merchant, nil
}

type mockIdentity struct {
	usersByEmail map[string]*identity.User
	nextID       int64
	passwords    map[string]string
	signInErr    error
	createErr    error
}

func newMockIdentity() *mockIdentity {
	return &mockIdentity{
		usersByEmail: map[string]*identity.User{},
		passwords:    map[string]string{},
		nextID:       1,
	}
}

func (m *mockIdentity) CreateUser(email, name, password string, metadata map[string]interface{}) (*identity.User, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	if _, exists := m.usersByEmail[email]; exists {
		return nil, internal.ErrEmailExists
	}
	user := &identity.User{ID: m.nextID, Email: email, Name: name, Metadata: metadata, IsActive: true}
	m.nextID++
	m.usersByEmail[email] = user
	m.passwords[email] = password
	return user, nil
}

func (m *mockIdentity) FindUserByEmail(email string) (*identity.User, error) {
	user, ok := m.usersByEmail[email]
	if !ok {
		return nil, errors.New("not found")
	}
	return user, nil
}

func (m *mockIdentity) SetPassword(user *identity.User, password string) error {
	m.passwords[user.Email] = password
	return nil
}

func (m *mockIdentity) UpdateUserMetadata(userID int64, metadata map[string]interface{}) (*identity.User, error) {
	for _, user := range m.usersByEmail {
		if user.ID == userID {
			if user.Metadata == nil {
				user.Metadata = map[string]interface{}{}
			}
			for k, v := range metadata {
				user.Metadata[k] = v
			}
			return user, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *mockIdentity) SignInWithPassword(email, password string) (*identity.Session, error) {
	if m.signInErr != nil {
		return nil, m.signInErr
	}
	if m.passwords[email] != password {
		return nil, internal.ErrInvalidCredentials
	}
	return &identity.Session{AccessToken: "sess-access", RefreshToken: "sess-refresh"}, nil
}

type mockLinkRepository struct {
	mu    sync.Mutex
	links map[string]*merchant.Link
	err   error
}

func newMockLinkRepository() *mockLinkRepository {
	return &mockLinkRepository{links: map[string]*merchant.Link{}}
}

func (m *mockLinkRepository) Upsert(link *merchant.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	clone := *link
	m.links[link.ExternalMerchantID] = &clone
	return nil
}

func (m *mockLinkRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.links)
}

func (m *mockLinkRepository) get(id string) *merchant.Link {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links[id]
}

type recordingSyncer struct {
	name  string
	calls chan string
}

func (r *recordingSyncer) Name() string { return r.name }

func (r *recordingSyncer) Sync(ctx context.Context, merchantID, accessToken string) error {
	r.calls <- merchantID + "/" + accessToken
	return nil
}

var _ = Describe("Bridge Service", func() {
	var (
		provider *mockProvider
		idp      *mockIdentity
		links    *mockLinkRepository
		service  *bridge.Service
	)

	BeforeEach(func() {
		provider = &mockProvider{
			grant:    &square.TokenGrant{AccessToken: "tok1", MerchantID: "M1"},
			merchant: &square.Merchant{ID: "M1", BusinessName: "Shear Genius", PrimaryContactEmail: "owner@salon.test"},
		}
		idp = newMockIdentity()
		links = newMockLinkRepository()
		service = bridge.NewService(provider, idp, links, "https://app.test/api/v1/oauth/square/callback", slog.Default())
	})

	Describe("request validation", func() {
		It("should reject a request with neither code nor token pair", func() {
			_, err := service.Bridge(context.Background(), &bridge.BridgeDTO{})
			Expect(err).To(MatchError(internal.ErrInvalidRequest))
		})

		It("should reject a token without a merchant id", func() {
			_, err := service.Bridge(context.Background(), &bridge.BridgeDTO{AccessToken: "tok1"})
			Expect(err).To(MatchError(internal.ErrInvalidRequest))
		})
	})

	Describe("token exchange", func() {
		It("should surface the upstream rejection verbatim", func() {
			provider.tokenErr = internal.NewUpstreamError("token exchange returned status 401", internal.ErrCodeUpstreamAuth, `{"errors":["invalid code"]}`)

			_, err := service.Bridge(context.Background(), &bridge.BridgeDTO{Code: "bad"})
			Expect(err).To(HaveOccurred())

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeUpstreamAuth))
			Expect(appErr.Details).To(HaveKeyWithValue("upstream", `{"errors":["invalid code"]}`))
		})

		It("should not exchange when the retry path already carries a token", func() {
			_, err := service.Bridge(context.Background(), &bridge.BridgeDTO{
				AccessToken: "tok1",
				MerchantID:  "M1",
				Email:       "a@b.com",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(provider.exchangeCalls).To(BeZero())
		})
	})

	Describe("email gate", func() {
		It("should return the resumable branch when no email is resolvable", func() {
			provider.merchant = &square.Merchant{ID: "M1"}

			result, err := service.Bridge(context.Background(), &bridge.BridgeDTO{Code: "abc"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.NeedsEmail).To(BeTrue())
			Expect(result.MerchantID).To(Equal("M1"))
			Expect(result.BusinessName).To(Equal("Admin"))
			Expect(result.AccessToken).To(Equal("tok1"))
			Expect(result.Session).To(BeNil())

			// Nothing durable happens before the gate.
			Expect(links.count()).To(BeZero())
			Expect(idp.usersByEmail).To(BeEmpty())
		})

		It("should exchange the code at most once across the retry round-trip", func() {
			provider.merchant = &square.Merchant{ID: "M1", BusinessName: "Shear Genius"}

			first, err := service.Bridge(context.Background(), &bridge.BridgeDTO{Code: "abc"})
			Expect(err).NotTo(HaveOccurred())
			Expect(first.NeedsEmail).To(BeTrue())
			Expect(provider.exchangeCalls).To(Equal(1))

			second, err := service.Bridge(context.Background(), &bridge.BridgeDTO{
				Email:       "a@b.com",
				AccessToken: first.AccessToken,
				MerchantID:  first.MerchantID,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(second.NeedsEmail).To(BeFalse())
			Expect(second.Session).NotTo(BeNil())
			Expect(provider.exchangeCalls).To(Equal(1))
		})

		It("should prefer the caller-supplied email over provider fields", func() {
			result, err := service.Bridge(context.Background(), &bridge.BridgeDTO{Code: "abc", Email: "caller@salon.test"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Session).NotTo(BeNil())
			Expect(idp.usersByEmail).To(HaveKey("caller@salon.test"))
			Expect(idp.usersByEmail).NotTo(HaveKey("owner@salon.test"))
		})

		It("should degrade to the gate when the profile fetch fails", func() {
			provider.merchantErr = errors.New("provider returned status 500")

			result, err := service.Bridge(context.Background(), &bridge.BridgeDTO{Code: "abc"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.NeedsEmail).To(BeTrue())
			Expect(result.BusinessName).To(Equal("Admin"))
		})
	})

	Describe("identity upsert", func() {
		It("should provision a fresh admin account with explicit provenance metadata", func() {
			result, err := service.Bridge(context.Background(), &bridge.BridgeDTO{Code: "abc"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Session).NotTo(BeNil())

			user := idp.usersByEmail["owner@salon.test"]
			Expect(user).NotTo(BeNil())
			Expect(user.Metadata[identity.MetaRole]).To(Equal(identity.RoleAdmin))
			Expect(user.Metadata[identity.MetaMerchantID]).To(Equal("M1"))
			Expect(user.Metadata[identity.MetaBusinessName]).To(Equal("Shear Genius"))
			Expect(user.Metadata[identity.MetaProvisionedVia]).To(Equal(identity.ProvisionedViaSquareOAuth))
		})

		It("should rotate password and metadata when the email already exists", func() {
			_, err := idp.CreateUser("owner@salon.test", "Old Name", "old-password", map[string]interface{}{"role": "stylist"})
			Expect(err).NotTo(HaveOccurred())
			existingID := idp.usersByEmail["owner@salon.test"].ID

			result, err := service.Bridge(context.Background(), &bridge.BridgeDTO{Code: "abc"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Session).NotTo(BeNil())

			user := idp.usersByEmail["owner@salon.test"]
			Expect(user.ID).To(Equal(existingID))
			Expect(idp.passwords["owner@salon.test"]).NotTo(Equal("old-password"))
			Expect(user.Metadata[identity.MetaRole]).To(Equal(identity.RoleAdmin))
			Expect(user.Metadata[identity.MetaProvisionedVia]).To(Equal(identity.ProvisionedViaSquareOAuth))
		})

		It("should fail with UserLookupError when the conflict cannot be resolved", func() {
			idp.createErr = internal.ErrEmailExists

			_, err := service.Bridge(context.Background(), &bridge.BridgeDTO{Code: "abc"})
			Expect(err).To(HaveOccurred())

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeUserLookup))
		})
	})

	Describe("session mint", func() {
		It("should fail with SessionError when sign-in is rejected", func() {
			idp.signInErr = errors.New("identity provider down")

			_, err := service.Bridge(context.Background(), &bridge.BridgeDTO{Code: "abc"})
			Expect(err).To(HaveOccurred())

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeSession))
		})
	})

	Describe("link persistence", func() {
		It("should upsert the merchant link with the fresh token", func() {
			result, err := service.Bridge(context.Background(), &bridge.BridgeDTO{Code: "abc"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Session).NotTo(BeNil())

			link := links.get("M1")
			Expect(link).NotTo(BeNil())
			Expect(link.AccessToken).To(Equal("tok1"))
			Expect(link.InternalUserID).To(Equal(idp.usersByEmail["owner@salon.test"].ID))
		})

		It("should update rather than duplicate on a second run for the same merchant", func() {
			_, err := service.Bridge(context.Background(), &bridge.BridgeDTO{Code: "abc"})
			Expect(err).NotTo(HaveOccurred())

			provider.grant = &square.TokenGrant{AccessToken: "tok2", MerchantID: "M1"}
			_, err = service.Bridge(context.Background(), &bridge.BridgeDTO{Code: "def"})
			Expect(err).NotTo(HaveOccurred())

			Expect(links.count()).To(Equal(1))
			Expect(links.get("M1").AccessToken).To(Equal("tok2"))
		})

		It("should fail with PersistenceError when the upsert fails", func() {
			links.err = errors.New("database gone")

			_, err := service.Bridge(context.Background(), &bridge.BridgeDTO{Code: "abc"})
			Expect(err).To(HaveOccurred())

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodePersistence))
		})
	})

	Describe("fire-and-forget syncs", func() {
		It("should run registered syncers without blocking the bridge result", func() {
			teamSync := &recordingSyncer{name: "team", calls: make(chan string, 1)}
			customerSync := &recordingSyncer{name: "customers", calls: make(chan string, 1)}
			service.RegisterSyncer(teamSync)
			service.RegisterSyncer(customerSync)

			result, err := service.Bridge(context.Background(), &bridge.BridgeDTO{Code: "abc"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Session).NotTo(BeNil())

			Eventually(teamSync.calls).Should(Receive(Equal("M1/tok1")))
			Eventually(customerSync.calls).Should(Receive(Equal("M1/tok1")))
		})
	})

	Describe("redirect URI resolution", func() {
		It("should always prefer the registered value", func() {
			Expect(service.ResolveRedirectURI("https://other.test/cb")).
				To(Equal("https://app.test/api/v1/oauth/square/callback"))
		})

		It("should fall back to the derived value only when nothing is registered", func() {
			unregistered := bridge.NewService(provider, idp, links, "", slog.Default())
			Expect(unregistered.ResolveRedirectURI("https://derived.test/cb")).
				To(Equal("https://derived.test/cb"))
		})
	})
})
