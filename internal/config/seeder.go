package config

import (
	"log"

	"coop-backoffice/internal/adapters/persistence/models"
	"coop-backoffice/internal/core/domain"
	"coop-backoffice/internal/pkg/password"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedCatalog(); err != nil {
		return err
	}
	if err := s.seedAdminUser(); err != nil {
		log.Printf("⚠️ Admin seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// permission catalog: slug -> module
var permissionCatalog = []models.Permission{
	{Slug: domain.PermMemberView, Module: "member", Description: "View member records"},
	{Slug: domain.PermMemberManage, Module: "member", Description: "Manage member records"},
	{Slug: domain.PermLoanView, Module: "loan", Description: "View any loan"},
	{Slug: domain.PermLoanCreate, Module: "loan", Description: "Create loan applications"},
	{Slug: domain.PermLoanApprove, Module: "loan", Description: "Approve pending loans"},
	{Slug: domain.PermLoanComplete, Module: "loan", Description: "Complete active loans"},
	{Slug: domain.PermLoanDelete, Module: "loan", Description: "Delete loans"},
	{Slug: domain.PermAuditView, Module: "audit", Description: "Query the audit trail"},
	{Slug: domain.PermUserManage, Module: "user", Description: "Manage user accounts and grants"},
}

// role catalog: which permissions each role carries. Members hold no
// catalog permissions at all; their access comes from record linkage
// and active guarantees.
var roleCatalog = map[string][]string{
	string(domain.RolePresident): {
		domain.PermMemberView, domain.PermMemberManage,
		domain.PermLoanView, domain.PermLoanCreate, domain.PermLoanApprove,
		domain.PermLoanComplete, domain.PermLoanDelete,
		domain.PermAuditView, domain.PermUserManage,
	},
	string(domain.RoleSecretary): {
		domain.PermMemberView, domain.PermMemberManage,
		domain.PermLoanView, domain.PermLoanCreate, domain.PermLoanApprove,
		domain.PermLoanComplete,
		domain.PermAuditView,
	},
	string(domain.RoleOfficer): {
		domain.PermMemberView,
		domain.PermLoanView, domain.PermLoanCreate,
	},
	string(domain.RoleMember): {},
}

// seedCatalog seeds the permission and role catalogs idempotently
func (s *Seeder) seedCatalog() error {
	for i := range permissionCatalog {
		p := permissionCatalog[i]
		if err := s.db.Where(models.Permission{Slug: p.Slug}).
			Attrs(models.Permission{Module: p.Module, Description: p.Description}).
			FirstOrCreate(&p).Error; err != nil {
			return err
		}
	}

	for name, slugs := range roleCatalog {
		role := models.Role{Name: name}
		if err := s.db.Where(models.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
			return err
		}

		var perms []models.Permission
		if len(slugs) > 0 {
			if err := s.db.Where("slug IN ?", slugs).Find(&perms).Error; err != nil {
				return err
			}
		}
		if err := s.db.Model(&role).Association("Permissions").Replace(perms); err != nil {
			return err
		}
	}

	log.Printf("✅ Catalog seeded: %d permissions, %d roles", len(permissionCatalog), len(roleCatalog))
	return nil
}

// seedAdminUser seeds a default president account
// This is for development/testing only
// In production, create the account through a secure process
func (s *Seeder) seedAdminUser() error {
	var count int64
	s.db.Model(&models.User{}).Where("role = ?", string(domain.RolePresident)).Count(&count)
	if count > 0 {
		return nil // President account already exists
	}

	hashedPassword, err := password.Hash("admin123456")
	if err != nil {
		return err
	}

	admin := &models.User{
		Username: "admin",
		Email:    "admin@coop.example.org",
		Password: hashedPassword,
		Role:     string(domain.RolePresident),
		IsActive: true,
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ President account created: %s", admin.Username)
	return nil
}
