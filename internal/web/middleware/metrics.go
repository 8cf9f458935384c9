package middleware

import (
	"net/http"
	"time"
)

// RequestObserver records finished requests. Satisfied by *metrics.Metrics.
type RequestObserver interface {
	ObserveRequest(route, method string, status int, d time.Duration)
}

// Metrics reports every request to obs, labelled by chi route pattern so
// path parameters do not explode label cardinality.
func Metrics(obs RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := wrapWriter(w)

			next.ServeHTTP(ww, r)

			obs.ObserveRequest(routePattern(r), r.Method, ww.status, time.Since(start))
		})
	}
}
