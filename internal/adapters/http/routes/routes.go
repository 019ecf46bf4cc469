package routes

import (
	"coop-backoffice/internal/adapters/http/handlers"
	"coop-backoffice/internal/adapters/http/middleware"
	"coop-backoffice/internal/adapters/persistence/repositories"
	"coop-backoffice/internal/config"
	"coop-backoffice/internal/core/domain"
	"coop-backoffice/internal/core/services"
	"coop-backoffice/internal/pkg/audit"
	"coop-backoffice/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Setup configures all routes for the application and wires the
// repository / service / handler graph.
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config, logger zerolog.Logger) *services.CronService {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	memberRepo := repositories.NewMemberRepository(db)
	catalogRepo := repositories.NewCatalogRepository(db)
	loanRepo := repositories.NewLoanRepository(db)
	guarantorRepo := repositories.NewGuarantorRepository(db)
	auditLogRepo := repositories.NewAuditLogRepository(db)

	// Audit trail: the service persists entries, the interceptor wraps
	// state-changing operations
	auditService := services.NewAuditService(auditLogRepo, logger,
		cfg.Audit.BusinessHoursStart, cfg.Audit.BusinessHoursEnd)
	interceptor := audit.NewInterceptor(auditService, logger, cfg.Audit.RequirePrincipal)

	// Initialize services
	authService := services.NewAuthService(userRepo, refreshTokenRepo, memberRepo, cfg, logger)
	principalService := services.NewPrincipalService(userRepo, catalogRepo)
	authzService := services.NewAuthzService(logger)
	memberService := services.NewMemberService(memberRepo)
	memberAccess := services.NewMemberAccessService()
	guarantorAccess := services.NewGuarantorAccessService(guarantorRepo)
	loanService := services.NewLoanService(db, loanRepo, guarantorRepo, memberRepo, authzService, interceptor, logger)
	userService := services.NewUserService(db, userRepo, catalogRepo, interceptor, logger)
	cronService := services.NewCronService(auditService, logger)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	memberHandler := handlers.NewMemberHandler(memberService, memberAccess, guarantorAccess, loanService, auditService)
	loanHandler := handlers.NewLoanHandler(loanService, guarantorAccess, auditService)
	auditHandler := handlers.NewAuditHandler(auditService)
	userHandler := handlers.NewUserHandler(userService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")

	authed := middleware.AuthMiddleware(cfg, principalService)

	// Auth routes (public + protected)
	authRoutes := apiV1.Group("/auth")
	authRoutes.Post("/register", middleware.AuthRateLimiter(), authHandler.Register)
	authRoutes.Post("/login", middleware.AuthRateLimiter(), authHandler.Login)
	authRoutes.Post("/refresh", authHandler.RefreshToken)
	authRoutes.Post("/logout", authHandler.Logout)
	authRoutes.Get("/me", authed, authHandler.Me)
	authRoutes.Post("/logout-all", authed, authHandler.LogoutAll)

	// Member routes
	memberRoutes := apiV1.Group("/members")
	memberRoutes.Use(authed)
	memberRoutes.Get("/", middleware.RequirePermission(domain.PermMemberView, auditService), memberHandler.List)
	memberRoutes.Get("/:id", memberHandler.Get)
	memberRoutes.Get("/:id/loans", memberHandler.Loans)
	memberRoutes.Get("/:id/guaranteed-loans", memberHandler.GuaranteedLoans)

	// Loan routes. The self-service paths come before /:id so they match
	// first.
	loanRoutes := apiV1.Group("/loans")
	loanRoutes.Use(authed)
	loanRoutes.Get("/my", loanHandler.MyLoans)
	loanRoutes.Get("/guaranteed", loanHandler.MyGuarantees)
	loanRoutes.Post("/", middleware.RequirePermission(domain.PermLoanCreate, auditService), loanHandler.Create)
	loanRoutes.Get("/", middleware.RequirePermission(domain.PermLoanView, auditService), loanHandler.List)
	loanRoutes.Get("/:id", loanHandler.Get)
	loanRoutes.Post("/:id/approve", middleware.RequirePermission(domain.PermLoanApprove, auditService), loanHandler.Approve)
	loanRoutes.Post("/:id/complete", middleware.RequirePermission(domain.PermLoanComplete, auditService), loanHandler.Complete)
	loanRoutes.Delete("/:id", middleware.RequirePermission(domain.PermLoanDelete, auditService), loanHandler.Delete)

	// Audit trail routes
	auditRoutes := apiV1.Group("/audit")
	auditRoutes.Use(authed)
	auditRoutes.Use(middleware.RequirePermission(domain.PermAuditView, auditService))
	auditRoutes.Get("/entity/:type/:id", auditHandler.EntityTrail)
	auditRoutes.Get("/actor/:id", auditHandler.ActorTrail)
	auditRoutes.Get("/actions", auditHandler.ByAction)
	auditRoutes.Get("/range", auditHandler.TimeRange)
	auditRoutes.Get("/critical", auditHandler.Critical)
	auditRoutes.Get("/violations", auditHandler.Violations)
	auditRoutes.Get("/off-hours", auditHandler.OffHours)
	auditRoutes.Get("/summary", auditHandler.Summary)
	auditRoutes.Post("/review", func(c *fiber.Ctx) error {
		cronService.RunDailyReview(c.UserContext())
		return response.Success(c, "Compliance review executed", nil)
	})

	// User management routes. A direct user.manage grant alone is not
	// enough here; account administration stays with back-office roles.
	userRoutes := apiV1.Group("/users")
	userRoutes.Use(authed)
	userRoutes.Use(middleware.PrivilegedOnly(auditService))
	userRoutes.Use(middleware.RequirePermission(domain.PermUserManage, auditService))
	userRoutes.Get("/", userHandler.List)
	userRoutes.Get("/permissions", userHandler.Permissions)
	userRoutes.Post("/:id/permissions", userHandler.Grant)
	userRoutes.Delete("/:id/permissions/:slug", userHandler.Revoke)
	userRoutes.Put("/:id/role", userHandler.ChangeRole)
	userRoutes.Post("/:id/deactivate", userHandler.Deactivate)

	return cronService
}
