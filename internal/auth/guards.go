package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/turklawai/auth-service/internal/domain"
	"github.com/turklawai/auth-service/pkg/util"
)

// RequireActive rejects authenticated but deactivated accounts. Session
// verification itself reports status rather than failing; mutating routes
// use this guard on top.
func RequireActive() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok {
			return util.NewUnauthorized("authentication required")
		}
		if user.Status != domain.UserStatusActive {
			return util.NewAccountInactive()
		}
		return c.Next()
	}
}

// RequirePlan ensures the account is on one of the allowed plans.
func RequirePlan(allowed ...domain.Plan) fiber.Handler {
	allowedSet := make(map[domain.Plan]struct{}, len(allowed))
	for _, plan := range allowed {
		allowedSet[plan] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok {
			return util.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[user.Plan]; !exists {
			return util.NewDomainError("PLAN_REQUIRED", "current plan does not allow this operation", fiber.StatusForbidden, nil)
		}
		return c.Next()
	}
}
