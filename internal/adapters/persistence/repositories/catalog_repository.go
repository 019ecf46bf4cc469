package repositories

import (
	"context"
	"errors"

	"coop-backoffice/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// CatalogRepository reads the role/permission catalog. The catalog is
// read-mostly; effective permission sets are assembled per request from
// it rather than stored, so catalog edits take effect immediately.
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// GetRolePermissions returns the permission slugs granted to a role.
// An unknown role yields an empty set, not an error.
func (r *CatalogRepository) GetRolePermissions(ctx context.Context, roleName string) ([]string, error) {
	var role models.Role
	err := dbFrom(ctx, r.db).Preload("Permissions").Where("name = ?", roleName).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	slugs := make([]string, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		slugs = append(slugs, p.Slug)
	}
	return slugs, nil
}

// GetDirectPermissions returns permission slugs granted directly to a
// user, on top of whatever their role carries.
func (r *CatalogRepository) GetDirectPermissions(ctx context.Context, userID uint) ([]string, error) {
	var user models.User
	err := dbFrom(ctx, r.db).Preload("DirectPermissions").First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	slugs := make([]string, 0, len(user.DirectPermissions))
	for _, p := range user.DirectPermissions {
		slugs = append(slugs, p.Slug)
	}
	return slugs, nil
}

// GrantDirectPermission attaches a catalog permission directly to a user.
func (r *CatalogRepository) GrantDirectPermission(ctx context.Context, userID uint, slug string) error {
	var perm models.Permission
	if err := dbFrom(ctx, r.db).Where("slug = ?", slug).First(&perm).Error; err != nil {
		return err
	}
	user := models.User{ID: userID}
	return dbFrom(ctx, r.db).Model(&user).Association("DirectPermissions").Append(&perm)
}

// RevokeDirectPermission detaches a direct grant from a user.
func (r *CatalogRepository) RevokeDirectPermission(ctx context.Context, userID uint, slug string) error {
	var perm models.Permission
	if err := dbFrom(ctx, r.db).Where("slug = ?", slug).First(&perm).Error; err != nil {
		return err
	}
	user := models.User{ID: userID}
	return dbFrom(ctx, r.db).Model(&user).Association("DirectPermissions").Delete(&perm)
}

// ListPermissions returns the whole catalog ordered by module then slug.
func (r *CatalogRepository) ListPermissions(ctx context.Context) ([]*models.Permission, error) {
	var perms []*models.Permission
	err := dbFrom(ctx, r.db).Order("module, slug").Find(&perms).Error
	return perms, err
}
