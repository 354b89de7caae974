package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics serves the default registry. Collector failures are logged and the
// remaining metrics are still served.
func (s *Server) Metrics() gin.HandlerFunc {
	handler := promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorLog:          s.logger,
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	})
	return gin.WrapH(promhttp.InstrumentMetricHandler(prometheus.DefaultRegisterer, handler))
}
