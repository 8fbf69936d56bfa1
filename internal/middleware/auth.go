package middleware

import (
	"strings"

	"forum/internal/models"

	"github.com/gofiber/fiber/v2"
)

// TokenAuthenticator resolves a bearer token to a username.
type TokenAuthenticator interface {
	Authenticate(token string) (string, error)
}

// AuthRequired rejects requests without a valid "Bearer <token>" header and
// stores the authenticated username in c.Locals(LocalUsername).
func AuthRequired(authn TokenAuthenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewMissingTokenError())
		}

		username, err := authn.Authenticate(token)
		if err != nil {
			return models.RespondWithError(c, models.StatusFor(err), err)
		}

		c.Locals(LocalUsername, username)
		c.SetUserContext(WithUsername(c.UserContext(), username))
		return c.Next()
	}
}

// CurrentUsername returns the username set by AuthRequired.
func CurrentUsername(c *fiber.Ctx) (string, bool) {
	username, ok := c.Locals(LocalUsername).(string)
	return username, ok && username != ""
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
