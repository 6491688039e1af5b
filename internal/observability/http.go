package observability

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler serves the portal collectors in the Prometheus text format.
// A non-empty token must be presented as a bearer token by the scraper.
func MetricsHandler(token string) fiber.Handler {
	RegisterMetrics()
	scrape := adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	token = strings.TrimSpace(token)
	if token == "" {
		return scrape
	}
	return func(c *fiber.Ctx) error {
		presented := strings.TrimSpace(strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "))
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return scrape(c)
	}
}
