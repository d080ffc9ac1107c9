package server

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the server's Prometheus collectors. Each Server owns its own
// registry so tests can spin up several servers without collector collisions.
type metrics struct {
	registry      *prometheus.Registry
	queriesTotal  prometheus.Counter
	requestsTotal *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		queriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shelfql_queries_total",
			Help: "SQL statements executed by the query session.",
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shelfql_http_requests_total",
			Help: "HTTP requests served, by route and status.",
		}, []string{"path", "status"}),
	}
	m.registry.MustRegister(m.queriesTotal, m.requestsTotal)
	return m
}

// instrument is an Echo middleware counting requests per route and status.
func (m *metrics) instrument(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		status := c.Response().Status
		if err != nil {
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
		}
		m.requestsTotal.WithLabelValues(c.Path(), strconv.Itoa(status)).Inc()
		return err
	}
}
