// Package handlers contains the webhook, health and metrics HTTP handlers,
// along with their routing and middleware.
package handlers

import "net/http"

const maxCallbackBytes = 64 << 10

// LimitBody caps request bodies. GroupMe callbacks are a few hundred bytes.
func LimitBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
