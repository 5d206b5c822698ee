package auth

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"warehouse-backend/internal/config"
	"warehouse-backend/internal/httpx"
	"warehouse-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newApp() *fiber.App {
	cfg := &config.Config{JWTSecret: testSecret}
	users := NewMemoryUsers()

	app := fiber.New(fiber.Config{ErrorHandler: httpx.ErrorHandler})
	app.Post("/auth/register-admin", RegisterAdminHandler(users))
	app.Post("/auth/login", LoginHandler(cfg, users))

	protected := app.Group("", JWTMiddleware(cfg))
	protected.Get("/auth/me", MeHandler(users))
	protected.Post("/users", RequireRole(models.RoleAdmin), CreateUserHandler(users))
	return app
}

func do(t *testing.T, app *fiber.App, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func login(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()
	status, body := do(t, app, "POST", "/auth/login", "", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, 200, status)
	return body["token"].(string)
}

func TestRegisterAdminOnlyOnce(t *testing.T) {
	app := newApp()
	status, body := do(t, app, "POST", "/auth/register-admin", "", `{"name":"Ada","email":"Ada@Example.com","password":"correct-horse"}`)
	require.Equal(t, 201, status)
	assert.Equal(t, "ada@example.com", body["email"])
	assert.Equal(t, "admin", body["role"])

	status, _ = do(t, app, "POST", "/auth/register-admin", "", `{"name":"Bob","email":"bob@example.com","password":"correct-horse"}`)
	assert.Equal(t, 403, status)
}

func TestRegisterValidatesBody(t *testing.T) {
	status, body := do(t, newApp(), "POST", "/auth/register-admin", "", `{"name":"Ada","email":"not-an-email","password":"x"}`)
	assert.Equal(t, 400, status)
	assert.Equal(t, "validation", body["kind"])
}

func TestLoginAndMe(t *testing.T) {
	app := newApp()
	do(t, app, "POST", "/auth/register-admin", "", `{"name":"Ada","email":"ada@example.com","password":"correct-horse"}`)

	status, _ := do(t, app, "POST", "/auth/login", "", `{"email":"ada@example.com","password":"wrong-password"}`)
	assert.Equal(t, 401, status)

	token := login(t, app, "ada@example.com", "correct-horse")
	status, me := do(t, app, "GET", "/auth/me", token, "")
	require.Equal(t, 200, status)
	assert.Equal(t, "Ada", me["name"])
}

func TestMiddlewareRejectsBadTokens(t *testing.T) {
	app := newApp()
	status, _ := do(t, app, "GET", "/auth/me", "", "")
	assert.Equal(t, 401, status)
	status, _ = do(t, app, "GET", "/auth/me", "garbage", "")
	assert.Equal(t, 401, status)
}

func TestRequireRole(t *testing.T) {
	app := newApp()
	do(t, app, "POST", "/auth/register-admin", "", `{"name":"Ada","email":"ada@example.com","password":"correct-horse"}`)
	admin := login(t, app, "ada@example.com", "correct-horse")

	status, body := do(t, app, "POST", "/users", admin, `{"name":"Sam","email":"sam@example.com","password":"correct-horse","role":"staff"}`)
	require.Equal(t, 201, status)
	assert.Equal(t, "staff", body["role"])

	staff := login(t, app, "sam@example.com", "correct-horse")
	status, _ = do(t, app, "POST", "/users", staff, `{"name":"Eve","email":"eve@example.com","password":"correct-horse"}`)
	assert.Equal(t, 403, status)

	status, _ = do(t, app, "POST", "/users", admin, `{"name":"Sam2","email":"sam@example.com","password":"correct-horse"}`)
	assert.Equal(t, 409, status)
}
