package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/arityo/merchant-bridge/internal"
	"github.com/arityo/merchant-bridge/pkg/logger"
)

func TestIdentity(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Identity Module Suite")
}

// Mock RepositoryAPI for testing
type mockUserRepository struct {
	users  map[string]*User // email -> user
	byID   map[int64]*User
	nextID int64
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:  map[string]*User{},
		byID:   map[int64]*User{},
		nextID: 1,
	}
}

func (m *mockUserRepository) Create(user *User) error {
	if _, exists := m.users[user.Email]; exists {
		return gorm.ErrDuplicatedKey
	}
	user.ID = m.nextID
	m.nextID++
	m.users[user.Email] = user
	m.byID[user.ID] = user
	return nil
}

func (m *mockUserRepository) Update(user *User) error {
	if _, exists := m.byID[user.ID]; !exists {
		return errors.New("user not found")
	}
	m.byID[user.ID] = user
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) GetByID(id int64) (*User, error) {
	if user, exists := m.byID[id]; exists {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepository) FindByEmail(email string) (*User, error) {
	if user, exists := m.users[email]; exists {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepository) List(page, perPage int) ([]*User, error) {
	var users []*User
	for _, u := range m.byID {
		users = append(users, u)
	}
	return users, nil
}

var _ = ginkgo.Describe("IdentityService", func() {
	var (
		service  *Service
		mockRepo *mockUserRepository
		tokenGen *JWTTokenGenerator
	)

	ginkgo.BeforeEach(func() {
		mockRepo = newMockUserRepository()
		tokenGen = NewJWTTokenGenerator(
			"test-access-secret-test-access-secret",
			"test-refresh-secret-test-refresh-secret",
			15*time.Minute,
			24*time.Hour,
		)
		service = NewService(mockRepo, tokenGen, bcrypt.MinCost, logger.LoggerWrapper())
	})

	ginkgo.Describe("CreateUser", func() {
		ginkgo.It("creates an account with hashed password and metadata", func() {
			user, err := service.CreateUser("owner@salon.test", "Owner", "secret-pass", map[string]interface{}{
				MetaRole: RoleAdmin,
			})

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(user.ID).To(gomega.BeNumerically(">", 0))
			gomega.Expect(user.PasswordHash).NotTo(gomega.Equal("secret-pass"))
			gomega.Expect(user.IsAdmin()).To(gomega.BeTrue())
		})

		ginkgo.It("returns the structured email-exists error on conflict", func() {
			_, err := service.CreateUser("owner@salon.test", "Owner", "pw1", nil)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			_, err = service.CreateUser("owner@salon.test", "Other", "pw2", nil)
			gomega.Expect(err).To(gomega.Equal(internal.ErrEmailExists))
		})
	})

	ginkgo.Describe("SignInWithPassword", func() {
		ginkgo.BeforeEach(func() {
			_, err := service.CreateUser("owner@salon.test", "Owner", "correct-password", map[string]interface{}{
				MetaRole: RoleAdmin,
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
		})

		ginkgo.It("mints an access and refresh token pair", func() {
			session, err := service.SignInWithPassword("owner@salon.test", "correct-password")

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(session.AccessToken).NotTo(gomega.BeEmpty())
			gomega.Expect(session.RefreshToken).NotTo(gomega.BeEmpty())
		})

		ginkgo.It("rejects a wrong password", func() {
			_, err := service.SignInWithPassword("owner@salon.test", "wrong")
			gomega.Expect(err).To(gomega.Equal(internal.ErrInvalidCredentials))
		})

		ginkgo.It("rejects an unknown email", func() {
			_, err := service.SignInWithPassword("nobody@salon.test", "whatever")
			gomega.Expect(err).To(gomega.Equal(internal.ErrInvalidCredentials))
		})
	})

	ginkgo.Describe("GetSession", func() {
		ginkgo.It("resolves an access token back to its user", func() {
			user, err := service.CreateUser("owner@salon.test", "Owner", "pw", map[string]interface{}{MetaRole: RoleAdmin})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			session, err := service.SignInWithPassword("owner@salon.test", "pw")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			resolved, err := service.GetSession(session.AccessToken)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(resolved.ID).To(gomega.Equal(user.ID))
			gomega.Expect(resolved.IsAdmin()).To(gomega.BeTrue())
		})

		ginkgo.It("rejects garbage tokens", func() {
			_, err := service.GetSession("not-a-token")
			gomega.Expect(err).To(gomega.Equal(internal.ErrInvalidToken))
		})
	})

	ginkgo.Describe("SetPassword", func() {
		ginkgo.It("rotates the password so the old one stops working", func() {
			user, err := service.CreateUser("owner@salon.test", "Owner", "old-pass", nil)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			gomega.Expect(service.SetPassword(user, "new-pass")).To(gomega.Succeed())

			_, err = service.SignInWithPassword("owner@salon.test", "old-pass")
			gomega.Expect(err).To(gomega.HaveOccurred())

			_, err = service.SignInWithPassword("owner@salon.test", "new-pass")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("InviteUser", func() {
		ginkgo.It("creates a pending account with the invite marker", func() {
			user, err := service.InviteUser("stylist@salon.test", "Stylist", map[string]interface{}{
				MetaRole: RoleStylist,
			})

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(user.Metadata[MetaInvitePending]).To(gomega.Equal(true))
			gomega.Expect(user.Role()).To(gomega.Equal(RoleStylist))
		})
	})

	ginkgo.Describe("UpdateUserMetadata", func() {
		ginkgo.It("merges new keys without dropping existing ones", func() {
			user, err := service.CreateUser("owner@salon.test", "Owner", "pw", map[string]interface{}{
				MetaRole: RoleAdmin,
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			updated, err := service.UpdateUserMetadata(user.ID, map[string]interface{}{
				MetaMerchantID:     "M1",
				MetaProvisionedVia: ProvisionedViaSquareOAuth,
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(updated.Role()).To(gomega.Equal(RoleAdmin))
			gomega.Expect(updated.MetaString(MetaMerchantID)).To(gomega.Equal("M1"))
			gomega.Expect(updated.MetaString(MetaProvisionedVia)).To(gomega.Equal(ProvisionedViaSquareOAuth))
		})
	})
})

var _ = ginkgo.Describe("GenerateOpaquePassword", func() {
	ginkgo.It("produces distinct high-entropy values", func() {
		a, err := GenerateOpaquePassword()
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		b, err := GenerateOpaquePassword()
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		gomega.Expect(a).To(gomega.HaveLen(64))
		gomega.Expect(a).NotTo(gomega.Equal(b))
	})
})
