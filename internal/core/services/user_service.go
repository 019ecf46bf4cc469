package services

import (
	"context"
	"errors"

	"coop-backoffice/internal/adapters/persistence/models"
	"coop-backoffice/internal/adapters/persistence/repositories"
	"coop-backoffice/internal/core/domain"
	"coop-backoffice/internal/pkg/audit"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// User management errors
var (
	ErrUnknownRole       = errors.New("unknown role")
	ErrUnknownPermission = errors.New("unknown permission slug")
)

// UserService handles user administration. Role changes and direct
// permission grants are audited operations: they widen or narrow what
// an account can do, which is exactly what the trail exists to explain.
type UserService struct {
	db          *gorm.DB
	userRepo    repositories.UserRepository
	catalogRepo *repositories.CatalogRepository
	interceptor *audit.Interceptor
	logger      zerolog.Logger
}

// NewUserService creates a new user service
func NewUserService(
	db *gorm.DB,
	userRepo repositories.UserRepository,
	catalogRepo *repositories.CatalogRepository,
	interceptor *audit.Interceptor,
	logger zerolog.Logger,
) *UserService {
	return &UserService{
		db:          db,
		userRepo:    userRepo,
		catalogRepo: catalogRepo,
		interceptor: interceptor,
		logger:      logger,
	}
}

// List lists users with pagination
func (s *UserService) List(ctx context.Context, offset, limit int) ([]*models.User, int64, error) {
	return s.userRepo.List(ctx, offset, limit)
}

// GetByID gets a user by ID
func (s *UserService) GetByID(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ListPermissions returns the permission catalog
func (s *UserService) ListPermissions(ctx context.Context) ([]*models.Permission, error) {
	return s.catalogRepo.ListPermissions(ctx)
}

// GrantPermission grants a catalog permission directly to a user
func (s *UserService) GrantPermission(ctx context.Context, userID uint, slug string) error {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := repositories.WithTx(ctx, tx)
		_, err := s.interceptor.Wrap(txCtx, audit.Op{
			Name:   "permission_grant",
			Action: "PERMISSION_GRANT",
			Args:   []interface{}{user},
		}, func(c context.Context) (interface{}, error) {
			if err := s.catalogRepo.GrantDirectPermission(c, user.ID, slug); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, ErrUnknownPermission
				}
				return nil, err
			}
			return map[string]interface{}{"granted": slug}, nil
		})
		return err
	})
}

// RevokePermission removes a direct grant from a user
func (s *UserService) RevokePermission(ctx context.Context, userID uint, slug string) error {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := repositories.WithTx(ctx, tx)
		_, err := s.interceptor.Wrap(txCtx, audit.Op{
			Name:   "permission_revoke",
			Action: "PERMISSION_REVOKE",
			Args:   []interface{}{user},
		}, func(c context.Context) (interface{}, error) {
			if err := s.catalogRepo.RevokeDirectPermission(c, user.ID, slug); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, ErrUnknownPermission
				}
				return nil, err
			}
			return map[string]interface{}{"revoked": slug}, nil
		})
		return err
	})
}

// ChangeRole moves a user onto a different role
func (s *UserService) ChangeRole(ctx context.Context, userID uint, role string) (*models.User, error) {
	switch domain.Role(role) {
	case domain.RolePresident, domain.RoleSecretary, domain.RoleOfficer, domain.RoleMember:
	default:
		return nil, ErrUnknownRole
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := repositories.WithTx(ctx, tx)
		_, err := s.interceptor.Wrap(txCtx, audit.Op{
			Name:   "role_change",
			Action: "ROLE_CHANGE",
			Args:   []interface{}{user},
		}, func(c context.Context) (interface{}, error) {
			user.Role = role
			if err := s.userRepo.Update(c, user); err != nil {
				return nil, err
			}
			return user, nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Deactivate disables a user account. Existing refresh tokens keep
// failing at principal resolution, so the lockout is immediate.
func (s *UserService) Deactivate(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := repositories.WithTx(ctx, tx)
		_, err := s.interceptor.Wrap(txCtx, audit.Op{
			Name:   "user_deactivate",
			Action: "USER_DEACTIVATE",
			Args:   []interface{}{user},
		}, func(c context.Context) (interface{}, error) {
			user.IsActive = false
			if err := s.userRepo.Update(c, user); err != nil {
				return nil, err
			}
			return user, nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
