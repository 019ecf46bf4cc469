package services

import (
	"context"
	"errors"

	"coop-backoffice/internal/adapters/persistence/repositories"
	"coop-backoffice/internal/core/domain"

	"gorm.io/gorm"
)

// PrincipalService resolves the caller's proven identity into a
// Principal. The effective permission set is assembled here on every
// resolve, role catalog plus direct grants, so catalog changes take
// effect on the next request instead of waiting for a stored set to be
// recomputed.
type PrincipalService struct {
	userRepo    repositories.UserRepository
	catalogRepo *repositories.CatalogRepository
}

// NewPrincipalService creates a new principal service
func NewPrincipalService(userRepo repositories.UserRepository, catalogRepo *repositories.CatalogRepository) *PrincipalService {
	return &PrincipalService{
		userRepo:    userRepo,
		catalogRepo: catalogRepo,
	}
}

// Resolve builds the principal for an authenticated user id
func (s *PrincipalService) Resolve(ctx context.Context, userID uint) (*domain.Principal, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUnauthorized
	}

	roleSlugs, err := s.catalogRepo.GetRolePermissions(ctx, user.Role)
	if err != nil {
		return nil, err
	}
	directSlugs, err := s.catalogRepo.GetDirectPermissions(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	slugs := append(roleSlugs, directSlugs...)
	return domain.NewPrincipal(user.ID, user.Username, domain.Role(user.Role), slugs, user.MemberID), nil
}
