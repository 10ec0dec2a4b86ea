package postgres_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/arityo/merchant-bridge/internal/permission"
	"github.com/arityo/merchant-bridge/internal/team"
	teamPostgres "github.com/arityo/merchant-bridge/internal/team/postgres"
)

func TestTeamPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Team Postgres Suite")
}

var _ = Describe("Member Repository", func() {
	var (
		db   *gorm.DB
		repo team.RepositoryAPI
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(db.AutoMigrate(&team.Member{})).To(Succeed())
		repo = teamPostgres.NewMemberRepository(db)
	})

	Describe("Upsert", func() {
		It("should insert a new member", func() {
			member := &team.Member{
				ID:         "TM1",
				MerchantID: "MERCH1",
				Name:       "Ana Reyes",
				Email:      "ana@salon.test",
				Role:       "stylist",
				Status:     "ACTIVE",
				LevelID:    "lvl_junior",
			}
			member.SetOverrides(permission.PermissionSet{"canOfferDiscounts": true})

			Expect(repo.Upsert(member)).To(Succeed())

			found, err := repo.GetByID("TM1")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.Name).To(Equal("Ana Reyes"))
			Expect(found.Overrides()).To(Equal(permission.PermissionSet{"canOfferDiscounts": true}))
		})

		It("should update in place on a repeated member id", func() {
			first := &team.Member{ID: "TM1", MerchantID: "MERCH1", Name: "Ana", Status: "ACTIVE", LevelID: "lvl_junior"}
			Expect(repo.Upsert(first)).To(Succeed())

			second := &team.Member{ID: "TM1", MerchantID: "MERCH1", Name: "Ana Reyes", Status: "INACTIVE", LevelID: "lvl_senior"}
			Expect(repo.Upsert(second)).To(Succeed())

			var count int64
			Expect(db.Model(&team.Member{}).Count(&count).Error).To(Succeed())
			Expect(count).To(Equal(int64(1)))

			found, err := repo.GetByID("TM1")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.Name).To(Equal("Ana Reyes"))
			Expect(found.Status).To(Equal("INACTIVE"))
			Expect(found.LevelID).To(Equal("lvl_senior"))
		})
	})

	Describe("ListByMerchant", func() {
		It("should only return the merchant's members, ordered by name", func() {
			Expect(repo.Upsert(&team.Member{ID: "TM1", MerchantID: "MERCH1", Name: "Zoe"})).To(Succeed())
			Expect(repo.Upsert(&team.Member{ID: "TM2", MerchantID: "MERCH1", Name: "Ana"})).To(Succeed())
			Expect(repo.Upsert(&team.Member{ID: "TM3", MerchantID: "MERCH2", Name: "Ben"})).To(Succeed())

			members, err := repo.ListByMerchant("MERCH1")
			Expect(err).NotTo(HaveOccurred())
			Expect(members).To(HaveLen(2))
			Expect(members[0].Name).To(Equal("Ana"))
			Expect(members[1].Name).To(Equal("Zoe"))
		})
	})

	Describe("Update", func() {
		It("should persist override edits", func() {
			member := &team.Member{ID: "TM1", MerchantID: "MERCH1", Name: "Ana", LevelID: "lvl_junior"}
			Expect(repo.Upsert(member)).To(Succeed())

			member.SetOverrides(permission.PermissionSet{"viewGlobalReports": true})
			Expect(repo.Update(member)).To(Succeed())

			found, err := repo.GetByID("TM1")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.Overrides()).To(Equal(permission.PermissionSet{"viewGlobalReports": true}))
		})
	})

	Describe("GetByID", func() {
		It("should return gorm.ErrRecordNotFound for unknown ids", func() {
			_, err := repo.GetByID("TM-missing")
			Expect(err).To(MatchError(gorm.ErrRecordNotFound))
		})
	})
})
