package config

import (
	"log"
	"time"

	"solilend/internal/adapters/persistence/models"
	"solilend/internal/core/domain"
	"solilend/internal/pkg/password"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db  *gorm.DB
	cfg *Config
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, cfg *Config) *Seeder {
	return &Seeder{db: db, cfg: cfg}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedCapacityPolicy(); err != nil {
		return err
	}
	if err := s.seedSuperAdmin(); err != nil {
		log.Printf("⚠️ Super admin seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedCapacityPolicy creates the singleton capacity policy row if missing.
// The system cannot admit anyone without it.
func (s *Seeder) seedCapacityPolicy() error {
	var count int64
	if err := s.db.Model(&models.CapacityPolicy{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	policy := &models.CapacityPolicy{
		ID:                   1,
		TotalCapacity:        s.cfg.Seed.InitialCapacity,
		AutoIncrease:         false,
		IncreaseThresholdPct: 90,
		IncreaseAmount:       50,
	}
	if err := s.db.Create(policy).Error; err != nil {
		return err
	}

	log.Printf("✅ Capacity policy seeded (capacity: %d)", policy.TotalCapacity)
	return nil
}

// seedSuperAdmin seeds the initial super admin from env. Skipped when the
// credentials are not configured or a super admin already exists.
func (s *Seeder) seedSuperAdmin() error {
	var count int64
	s.db.Model(&models.Member{}).Where("role = ?", domain.RoleSuperAdmin).Count(&count)
	if count > 0 {
		return nil
	}

	if s.cfg.Seed.SuperAdminEmail == "" || s.cfg.Seed.SuperAdminPassword == "" {
		log.Println("⚠️ Skipping super admin seed: SUPER_ADMIN_EMAIL / SUPER_ADMIN_PASSWORD not set")
		return nil
	}

	hashed, err := password.Hash(s.cfg.Seed.SuperAdminPassword)
	if err != nil {
		return err
	}

	now := time.Now()
	admin := &models.Member{
		Email:       s.cfg.Seed.SuperAdminEmail,
		Password:    hashed,
		FirstName:   "Super",
		LastName:    "Admin",
		Role:        domain.RoleSuperAdmin,
		Status:      domain.MemberActive,
		ActivatedAt: &now,
	}
	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Super admin created: %s", admin.Email)
	return nil
}
