package handlers

import (
	"context"
	"net/http"
	"time"
)

const healthTimeout = 2 * time.Second

type healthHandler struct {
	deps HandlerDeps
}

// NewHealthHandler reports whether the store is reachable.
func NewHealthHandler(deps HandlerDeps) http.HandlerFunc {
	return healthHandler{deps}.Handle
}

func (h healthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := h.deps.Store.Ping(ctx); err != nil {
		h.deps.Logger.With("handler", "health").WarnContext(ctx, "Health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
