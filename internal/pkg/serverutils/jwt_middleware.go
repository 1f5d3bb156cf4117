package serverutils

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	LocalSessionID = "session_id"
	LocalVisitorID = "visitor_id"
)

// BearerToken reads the token from the Authorization header, falling back to
// the "token" query parameter that browsers use for websocket handshakes.
func BearerToken(c *fiber.Ctx) string {
	if auth := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return c.Query("token")
}

// JwtMiddleware validates the session token and stores its claims in locals.
func JwtMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := BearerToken(c)
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token"})
		}

		claims, err := ParseSessionToken(secret, tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		}

		c.Locals(LocalSessionID, claims.SessionID)
		c.Locals(LocalVisitorID, claims.VisitorID)
		return c.Next()
	}
}

// OwnsSession rejects requests whose token belongs to another session than
// the :id route parameter.
func OwnsSession(c *fiber.Ctx) error {
	if sid, _ := c.Locals(LocalSessionID).(string); sid != c.Params("id") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Token does not belong to this session"})
	}
	return c.Next()
}
