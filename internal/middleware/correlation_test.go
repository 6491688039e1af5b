package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestCorrelationIDPropagatesToServiceContext(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(GetCorrelationID(c) + "|" + CorrelationIDFromContext(c.UserContext()))
	})

	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "correlation header", headers: map[string]string{CorrelationHeader: "grade-run-42"}, want: "grade-run-42"},
		{name: "request id fallback", headers: map[string]string{"X-Request-ID": "req.7"}, want: "req.7"},
		{name: "unsafe id replaced", headers: map[string]string{CorrelationHeader: "bad id<script>"}},
		{name: "oversized id replaced", headers: map[string]string{CorrelationHeader: strings.Repeat("a", maxCorrelationLen+1)}},
		{name: "generated"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)

			echoed := resp.Header.Get(CorrelationHeader)
			require.NotEmpty(t, echoed)
			if tc.want != "" {
				require.Equal(t, tc.want, echoed)
			} else {
				require.Len(t, echoed, 36)
			}

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			require.Equal(t, echoed+"|"+echoed, string(body))
		})
	}
}

func TestContextWithCorrelationIgnoresBlankIDs(t *testing.T) {
	ctx := ContextWithCorrelation(nil, "  ")
	require.NotNil(t, ctx)
	require.Empty(t, CorrelationIDFromContext(ctx))

	ctx = ContextWithCorrelation(context.Background(), " abc ")
	require.Equal(t, "abc", CorrelationIDFromContext(ctx))
	require.Empty(t, CorrelationIDFromContext(nil))
	require.Empty(t, GetCorrelationID(nil))
}
