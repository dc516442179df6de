package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tutorcast/api/pkg/response"
)

// TokenVerifier checks that a viewer token is bound to a session
type TokenVerifier interface {
	VerifyToken(token, sessionID string) error
}

// SessionAuth guards the routes of one session. The token comes from the
// Authorization header, or from the token query parameter for WebSocket
// upgrades where browsers cannot set headers.
func SessionAuth(verifier TokenVerifier, param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Params(param)
		if sessionID == "" {
			return response.ValidationError(c, "Session ID is required", nil)
		}

		token, err := bearerToken(c)
		if err != "" {
			return response.Unauthorized(c, err)
		}

		if verr := verifier.VerifyToken(token, sessionID); verr != nil {
			return response.Unauthorized(c, "Invalid or expired session token")
		}

		c.Locals("sessionId", sessionID)
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, string) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		if q := c.Query("token"); q != "" {
			return q, ""
		}
		return "", "Missing authorization header"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", "Invalid authorization header format"
	}
	return parts[1], ""
}

// GetSessionID extracts the authenticated session id from context
func GetSessionID(c *fiber.Ctx) string {
	if id, ok := c.Locals("sessionId").(string); ok {
		return id
	}
	return ""
}
