package api

import (
	"context"
	"strings"
	"time"

	"github.com/example/storefront/domain/apperror"
	domainuser "github.com/example/storefront/domain/user"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// UserContextKey is the key used to store the caller claims in the Fiber context.
const UserContextKey = "user"

// TokenValidator resolves an access token to the caller identity.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*domainuser.Claims, error)
}

// AuthMiddleware validates Bearer tokens and stores the caller claims.
func AuthMiddleware(tokens TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required")
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthorized(c, "Invalid authorization header format. Use: Bearer <token>")
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			return unauthorized(c, "Token is required")
		}

		claims, err := tokens.ValidateToken(c.UserContext(), token)
		if err != nil {
			return unauthorized(c, "Invalid or expired token")
		}

		c.Locals(UserContextKey, claims)
		return c.Next()
	}
}

// RequireRole rejects callers that do not hold role. It must run after
// AuthMiddleware.
func RequireRole(role domainuser.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := actorFrom(c)
		if claims.UserID == "" {
			return unauthorized(c, "Authentication required")
		}
		if claims.Role != role {
			return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
				Error:   string(apperror.KindForbidden),
				Message: "Insufficient permissions",
			})
		}
		return c.Next()
	}
}

// actorFrom returns the caller claims stored by AuthMiddleware.
func actorFrom(c *fiber.Ctx) domainuser.Claims {
	claims, ok := c.Locals(UserContextKey).(*domainuser.Claims)
	if !ok || claims == nil {
		return domainuser.Claims{}
	}
	return *claims
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error:   string(apperror.KindUnauthorized),
		Message: message,
	})
}

// RateLimitConfig configures the per-client request limiter.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
	// Storage keeps the counters. Nil selects fiber's in-memory storage.
	Storage fiber.Storage
}

// RateLimiter limits requests per client IP.
func RateLimiter(cfg RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        cfg.Max,
		Expiration: cfg.Window,
		Storage:    cfg.Storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "ratelimit:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Error:   "rate_limited",
				Message: "Too many requests, slow down",
			})
		},
	})
}
