package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/arityo/merchant-bridge/internal/identity"
	"github.com/arityo/merchant-bridge/internal/permission"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with baseline levels and a development admin",
	Long:  `Seed the baseline permission levels and a development admin account. Safe to re-run.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := gorm.Open(gormPostgres.Open(cfg.Database.Source), &gorm.Config{TranslateError: true})
		if err != nil {
			log.Fatalf("failed to open db: %v", err)
		}

		seedLevels(db)
		seedDevAdmin(db, cfg.Security.BCryptCost)
	},
}

func seedLevels(db *gorm.DB) {
	base := permission.Baseline()

	senior := base.Clone()
	senior["canOfferDiscounts"] = true
	senior["viewClientContact"] = true
	senior["can_book_peer_schedules"] = true

	manager := senior.Clone()
	manager["viewGlobalReports"] = true
	manager["viewAllSalonPlans"] = true
	manager["requiresDiscountApproval"] = false

	levels := []*permission.Level{
		{ID: "lvl_junior", Name: "Junior Stylist", Color: "#8ecae6", Ordering: 1, DefaultPermissions: base.ToJSONMap()},
		{ID: "lvl_senior", Name: "Senior Stylist", Color: "#219ebc", Ordering: 2, DefaultPermissions: senior.ToJSONMap()},
		{ID: "lvl_manager", Name: "Manager", Color: "#023047", Ordering: 3, DefaultPermissions: manager.ToJSONMap()},
	}

	for _, level := range levels {
		var existing permission.Level
		if err := db.Where("id = ?", level.ID).First(&existing).Error; err == nil {
			fmt.Printf("level %s already exists, skipping\n", level.ID)
			continue
		}
		if err := db.Create(level).Error; err != nil {
			log.Fatalf("failed to seed level %s: %v", level.ID, err)
		}
		fmt.Printf("seeded level %s (%s)\n", level.ID, level.Name)
	}
}

func seedDevAdmin(db *gorm.DB, bcryptCost int) {
	email := os.Getenv("SEED_ADMIN_EMAIL")
	if email == "" {
		email = "admin@merchant-bridge.local"
	}
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "password"
	}

	var existing identity.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		fmt.Printf("admin user %s already exists, skipping\n", email)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		log.Fatalf("failed to hash admin password: %v", err)
	}

	admin := &identity.User{
		Email:        email,
		Name:         "Development Admin",
		PasswordHash: string(hash),
		IsActive:     true,
		Metadata: map[string]interface{}{
			identity.MetaRole: identity.RoleAdmin,
		},
	}

	if err := db.Create(admin).Error; err != nil {
		log.Fatalf("failed to seed admin user: %v", err)
	}
	fmt.Printf("seeded admin user %s\n", email)
}
