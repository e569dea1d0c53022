package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AlibekovAA/margarine/internal/common/constants"
	"github.com/AlibekovAA/margarine/internal/common/logger"
)

// BuildOpsHandler serves /metrics and /health for the worker process.
func BuildOpsHandler(log *logger.Logger, checks map[string]HealthCheck) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", RequireMethod(http.MethodGet)(HealthHandler(log, constants.HealthTimeout, checks)))

	return RecoveryMiddleware(log)(mux)
}
