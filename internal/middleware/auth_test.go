package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"forum/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authnFunc func(token string) (string, error)

func (f authnFunc) Authenticate(token string) (string, error) { return f(token) }

func TestAuthRequired(t *testing.T) {
	authn := authnFunc(func(token string) (string, error) {
		if token == "good" {
			return "alice", nil
		}
		return "", models.NewInvalidTokenError(errors.New("bad signature"))
	})

	app := fiber.New()
	app.Get("/test", AuthRequired(authn), func(c *fiber.Ctx) error {
		username, _ := CurrentUsername(c)
		ctxUser, _ := c.UserContext().Value(UsernameKey).(string)
		return c.JSON(fiber.Map{"username": username, "ctx": ctxUser})
	})

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedCode   string
	}{
		{name: "valid token", authHeader: "Bearer good", expectedStatus: http.StatusOK},
		{name: "lowercase scheme", authHeader: "bearer good", expectedStatus: http.StatusOK},
		{name: "uppercase scheme", authHeader: "BEARER good", expectedStatus: http.StatusOK},
		{name: "missing header", expectedStatus: http.StatusUnauthorized, expectedCode: models.CodeMissingToken},
		{name: "wrong scheme", authHeader: "Basic dXNlcjpwYXNz", expectedStatus: http.StatusUnauthorized, expectedCode: models.CodeMissingToken},
		{name: "empty bearer", authHeader: "Bearer ", expectedStatus: http.StatusUnauthorized, expectedCode: models.CodeMissingToken},
		{name: "invalid token", authHeader: "Bearer forged", expectedStatus: http.StatusForbidden, expectedCode: models.CodeInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var body map[string]string
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, "alice", body["username"])
				assert.Equal(t, "alice", body["ctx"])
				return
			}

			var body models.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.expectedCode, body.Code)
		})
	}
}

func TestAuthRequired_DoesNotCallAuthenticatorWithoutHeader(t *testing.T) {
	called := false
	authn := authnFunc(func(string) (string, error) {
		called = true
		return "alice", nil
	})

	app := fiber.New()
	app.Post("/posts", AuthRequired(authn), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/posts", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, called)
}
