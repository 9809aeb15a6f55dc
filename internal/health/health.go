// Package health reports process liveness and readiness. Two signals are
// specific to this core rather than generic to any server: whether the
// master key was generated for this process instead of loaded from
// configuration (ciphertext from any prior run becomes permanently
// undecryptable the moment that happens), and whether the backing store
// is reachable.
package health

import (
	"encoding/json"
	"net/http"
	"sync"
)

// Checker is a function that returns an error if the check fails.
type Checker func() error

// Handler returns an HTTP handler for /health. masterKeyGenerated is true
// when envelope.ResolveMasterKey minted a random key for this process
// rather than parsing PRIVACYCORE_MASTER_KEY — a WARNING, not a failure:
// the process is otherwise healthy, but nothing encrypted before this
// process started can be decrypted by it. storeCheck is optional (nil
// skips the storage check).
func Handler(masterKeyGenerated bool, storeCheck Checker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status := http.StatusOK
		checks := map[string]string{
			"master_key": "configured",
		}
		if masterKeyGenerated {
			checks["master_key"] = "generated_ephemeral"
		}
		if storeCheck != nil {
			if err := storeCheck(); err != nil {
				checks["storage"] = err.Error()
				status = http.StatusServiceUnavailable
			} else {
				checks["storage"] = "ok"
			}
		}
		resp := map[string]any{
			"status": "ok",
			"checks": checks,
		}
		switch {
		case status != http.StatusOK:
			resp["status"] = "degraded"
		case masterKeyGenerated:
			resp["status"] = "warning"
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	})
}

// LiveHandler returns a bare liveness probe: 200 OK once the process is
// accepting connections, with no dependency checks. Kept separate from
// Handler so an orchestrator's liveness probe never flaps on a transient
// storage blip that readiness already reports.
func LiveHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// Readiness wraps a checker and runs it on each request.
type Readiness struct {
	mu    sync.RWMutex
	check Checker
}

// NewReadiness returns a readiness checker.
func NewReadiness(check Checker) *Readiness {
	return &Readiness{check: check}
}

// ServeHTTP runs the check and returns 200 if nil, 503 otherwise.
func (r *Readiness) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.RLock()
	check := r.check
	r.mu.RUnlock()
	if check == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	err := check()
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_ready", "error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}
