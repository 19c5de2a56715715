package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"lane-inventory/internal/metrics"
	"lane-inventory/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	out := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func withRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name   string
		role   string
		status int
		error  string
	}{
		{"admin allowed", "ADMIN", http.StatusOK, ""},
		{"staff rejected", "STAFF", http.StatusForbidden, "Forbidden: requires role ADMIN"},
		{"no role", "", http.StatusForbidden, "No role found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", withRole(tt.role), RequireRole(model.RoleAdmin), func(c *fiber.Ctx) error {
				return c.JSON(fiber.Map{"ok": true})
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.error != "" {
				assert.Equal(t, tt.error, decode(t, resp)["error"])
			}
		})
	}
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("database exploded") })
	app.Get("/teapot", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Internal Server Error", decode(t, resp)["error"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/teapot", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.Equal(t, "short and stout", decode(t, resp)["error"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsLabelsByRoute(t *testing.T) {
	app := fiber.New()
	app.Use(Metrics())
	app.Get("/widgets/:id", func(c *fiber.Ctx) error { return c.SendString(c.Params("id")) })

	counter := metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/widgets/:id", "200")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"1", "2"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/widgets/"+id, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestRequestLoggerAttachesRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	app := fiber.New()
	app.Use(requestid.New())
	app.Use(RequestLogger(base))
	app.Get("/", func(c *fiber.Ctx) error {
		zerolog.Ctx(c.UserContext()).Info().Msg("inside handler")
		return c.SendStatus(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	for _, line := range lines {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(line, &entry))
		assert.Equal(t, "req-123", entry["request_id"])
	}

	var last map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[1], &last))
	assert.Equal(t, "request", last["message"])
	assert.EqualValues(t, http.StatusNoContent, last["status"])
}
