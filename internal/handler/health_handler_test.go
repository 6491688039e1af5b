package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-portal-api/internal/config"
)

func TestHealthCheckReportsProbes(t *testing.T) {
	cfg := config.Config{AppName: "Course Portal Test", AppEnv: "test"}
	healthy := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	cases := []struct {
		name   string
		probes map[string]HealthProbe
		status int
		state  string
		checks map[string]string
	}{
		{name: "no probes", status: fiber.StatusOK, state: "ok"},
		{
			name:   "all healthy",
			probes: map[string]HealthProbe{"database": healthy, "redis": healthy},
			status: fiber.StatusOK,
			state:  "ok",
			checks: map[string]string{"database": "ok", "redis": "ok"},
		},
		{
			name:   "redis down",
			probes: map[string]HealthProbe{"database": healthy, "redis": down},
			status: fiber.StatusServiceUnavailable,
			state:  "degraded",
			checks: map[string]string{"database": "ok", "redis": "connection refused"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/health", HealthCheck(cfg, tc.probes))

			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil), -1)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			var body struct {
				Success bool           `json:"success"`
				Data    HealthResponse `json:"data"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			require.Equal(t, tc.status == fiber.StatusOK, body.Success)
			require.Equal(t, tc.state, body.Data.Status)
			require.Equal(t, tc.checks, body.Data.Checks)
		})
	}
}
