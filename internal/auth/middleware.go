package auth

import (
	"github.com/gofiber/fiber/v2"

	applog "tillbox/internal/log"
	"tillbox/internal/metrics"
)

// tenantKey is the fiber locals slot holding the verified tenant id.
const tenantKey = "tenant_id"

// Middleware rejects requests without a verifiable bearer token and stores
// the resolved tenant id in the request context.
func Middleware(v Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := BearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			metrics.AuthFailuresTotal.Inc()
			applog.Security(c, "auth.token.missing", nil)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false, "message": "Authorization token required.",
			})
		}
		tenant, err := v.Verify(c.UserContext(), token)
		if err != nil {
			metrics.AuthFailuresTotal.Inc()
			applog.Security(c, "auth.token.invalid", nil)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false, "message": "Invalid token.",
			})
		}
		c.Locals(tenantKey, tenant)
		return c.Next()
	}
}

// TenantID returns the tenant resolved by Middleware, or "" on public routes.
func TenantID(c *fiber.Ctx) string {
	id, _ := c.Locals(tenantKey).(string)
	return id
}
