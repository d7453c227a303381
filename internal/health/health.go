// Package health serves liveness and readiness probes on the admin HTTP port.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fekuna/pantry-service/pkg/logger"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Check is one readiness dependency, e.g. a database ping.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func Router(log logger.ZapLogger, checks ...Check) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		write(w, log, http.StatusOK, report{Status: "ok"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/readyz", readiness(log, checks)).Methods(http.MethodGet)
	return r
}

func readiness(log logger.ZapLogger, checks []Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		code := http.StatusOK
		rep := report{Status: "ok", Checks: make(map[string]string, len(checks))}
		for _, c := range checks {
			if err := c.Ping(ctx); err != nil {
				log.Warn("readiness check failed", zap.String("check", c.Name), zap.Error(err))
				rep.Checks[c.Name] = err.Error()
				rep.Status = "unavailable"
				code = http.StatusServiceUnavailable
				continue
			}
			rep.Checks[c.Name] = "ok"
		}
		write(w, log, code, rep)
	}
}

func write(w http.ResponseWriter, log logger.ZapLogger, code int, rep report) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		log.Error("write health response", zap.Error(err))
	}
}
