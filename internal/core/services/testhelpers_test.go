package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"coop-backoffice/internal/adapters/persistence/models"
	"coop-backoffice/internal/adapters/persistence/repositories"
	"coop-backoffice/internal/core/domain"
	"coop-backoffice/internal/pkg/audit"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens an isolated in-memory database per test
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	return db
}

// loanTestEnv wires the loan service graph over one test database
type loanTestEnv struct {
	db           *gorm.DB
	loanService  *LoanService
	auditService *AuditService
	auditRepo    *repositories.AuditLogRepository
	guarantors   *GuarantorAccessService
}

func newLoanTestEnv(t *testing.T) *loanTestEnv {
	t.Helper()
	db := setupTestDB(t)
	log := zerolog.Nop()

	auditRepo := repositories.NewAuditLogRepository(db)
	auditService := NewAuditService(auditRepo, log, 8, 18)
	interceptor := audit.NewInterceptor(auditService, log, false)

	guarantorRepo := repositories.NewGuarantorRepository(db)
	loanService := NewLoanService(
		db,
		repositories.NewLoanRepository(db),
		guarantorRepo,
		repositories.NewMemberRepository(db),
		NewAuthzService(log),
		interceptor,
		log,
	)

	return &loanTestEnv{
		db:           db,
		loanService:  loanService,
		auditService: auditService,
		auditRepo:    auditRepo,
		guarantors:   NewGuarantorAccessService(guarantorRepo),
	}
}

func seedMember(t *testing.T, db *gorm.DB, memberNo string) *models.Member {
	t.Helper()
	m := &models.Member{MemberNo: memberNo, FullName: "Member " + memberNo, IsActive: true}
	require.NoError(t, db.Create(m).Error)
	return m
}

func principalCtx(p *domain.Principal) context.Context {
	ctx := domain.WithPrincipal(context.Background(), p)
	return domain.WithRequestMeta(ctx, domain.RequestMeta{
		IPAddress: "127.0.0.1",
		UserAgent: "go-test",
		RequestID: "req-" + p.Username,
	})
}

func officerPrincipal(userID uint) *domain.Principal {
	return domain.NewPrincipal(userID, fmt.Sprintf("officer-%d", userID), domain.RoleOfficer,
		[]string{domain.PermLoanView, domain.PermLoanCreate}, nil)
}

func secretaryPrincipal(userID uint) *domain.Principal {
	return domain.NewPrincipal(userID, fmt.Sprintf("secretary-%d", userID), domain.RoleSecretary,
		[]string{domain.PermLoanView, domain.PermLoanApprove, domain.PermLoanComplete}, nil)
}

func memberPrincipal(userID uint, memberID uint) *domain.Principal {
	return domain.NewPrincipal(userID, fmt.Sprintf("member-%d", userID), domain.RoleMember, nil, &memberID)
}

// auditEntries returns all persisted entries for one action
func auditEntries(t *testing.T, repo *repositories.AuditLogRepository, action string) []*models.AuditLog {
	t.Helper()
	entries, _, err := repo.FindByAction(context.Background(), action, 0, 100)
	require.NoError(t, err)
	return entries
}
