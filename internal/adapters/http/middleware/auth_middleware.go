package middleware

import (
	"strings"

	"coop-backoffice/internal/config"
	"coop-backoffice/internal/core/domain"
	"coop-backoffice/internal/core/services"
	"coop-backoffice/internal/pkg/jwt"
	"coop-backoffice/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AuthMiddleware validates the access token and resolves the caller
// into a principal. The principal and the request metadata ride the
// fiber user context from here on, which is what the audit interceptor
// reads when operations run deeper in the stack.
func AuthMiddleware(cfg *config.Config, principals *services.PrincipalService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var accessToken string

		// 1. Try to get token from cookie first
		accessToken = c.Cookies("access_token")

		// 2. If not in cookie, try Authorization header
		if accessToken == "" {
			authHeader := c.Get("Authorization")
			if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
				accessToken = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		// 3. No token found
		if accessToken == "" {
			return response.Unauthorized(c, "Access token required")
		}

		// 4. Validate token
		claims, err := jwt.ValidateAccessToken(accessToken, cfg.JWT.Secret)
		if err != nil {
			if err == jwt.ErrTokenExpired {
				return response.Unauthorized(c, "Access token expired")
			}
			return response.Unauthorized(c, "Invalid access token")
		}

		// 5. Resolve the effective permission set for this request.
		// Catalog or grant changes apply on the next request, not on
		// token re-issue.
		p, err := principals.Resolve(c.UserContext(), claims.UserID)
		if err != nil {
			return response.Unauthorized(c, "Account is not authorized")
		}

		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		meta := domain.RequestMeta{
			IPAddress: c.IP(),
			UserAgent: c.Get("User-Agent"),
			RequestID: requestID,
		}

		ctx := domain.WithPrincipal(c.UserContext(), p)
		ctx = domain.WithRequestMeta(ctx, meta)
		c.SetUserContext(ctx)
		c.Locals("principal", p)
		c.Set("X-Request-ID", requestID)

		return c.Next()
	}
}

// Principal returns the principal resolved by AuthMiddleware, nil when
// the route is unauthenticated.
func Principal(c *fiber.Ctx) *domain.Principal {
	p, _ := c.Locals("principal").(*domain.Principal)
	return p
}

// RequirePermission creates permission-based authorization middleware.
// Denials are written to the audit trail as role violations before the
// 403 goes out.
func RequirePermission(slug string, audits *services.AuditService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := Principal(c)
		if p == nil {
			return response.Unauthorized(c, "Unauthorized")
		}

		if !p.HasPermission(slug) {
			audits.RecordAccessDenied(c.UserContext(), p, slug, c.Path())
			return response.Forbidden(c, "You don't have permission to access this resource")
		}

		return c.Next()
	}
}

// PrivilegedOnly allows back-office roles only
func PrivilegedOnly(audits *services.AuditService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := Principal(c)
		if p == nil {
			return response.Unauthorized(c, "Unauthorized")
		}

		if !p.Role.IsPrivileged() {
			audits.RecordAccessDenied(c.UserContext(), p, "role:privileged", c.Path())
			return response.Forbidden(c, "You don't have permission to access this resource")
		}

		return c.Next()
	}
}
