package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"warehouse-backend/internal/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(err error) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/", func(c *fiber.Ctx) error { return err })
	return app
}

func call(t *testing.T, app *fiber.App, target string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", target, nil))
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestErrorHandlerStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{apperr.Validation("bad"), 400, "validation"},
		{apperr.NotFound("purchase order", 9), 404, "not_found"},
		{apperr.InvalidState("nope"), 409, "invalid_state"},
		{apperr.InsufficientStock("A-1", 5, 2), 409, "insufficient_stock"},
		{apperr.Conflict("dup"), 409, "conflict"},
		{apperr.Persistence(errors.New("conn reset")), 503, "persistence"},
	}
	for _, tc := range cases {
		status, body := call(t, newApp(tc.err), "/")
		assert.Equal(t, tc.status, status, tc.kind)
		assert.Equal(t, tc.kind, body["kind"])
	}
}

func TestErrorHandlerKeepsDetails(t *testing.T) {
	_, body := call(t, newApp(apperr.InsufficientStock("A-1", 5, 2)), "/")
	details, ok := body["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "A-1", details["sku"])
	assert.EqualValues(t, 2, details["available"])
}

func TestErrorHandlerHidesStorageErrors(t *testing.T) {
	_, body := call(t, newApp(apperr.Persistence(errors.New("password=secret"))), "/")
	assert.NotContains(t, body["error"], "secret")
}

func TestListOptionsClampsValues(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(ListOptions(c))
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/?page=0&limit=5000&order=DESC&q=%20bolt%20", nil))
	require.NoError(t, err)
	var opts struct {
		Page   int
		Limit  int
		Desc   bool
		Search string
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&opts))
	assert.Equal(t, 1, opts.Page)
	assert.Equal(t, 200, opts.Limit)
	assert.True(t, opts.Desc)
	assert.Equal(t, "bolt", opts.Search)
}
