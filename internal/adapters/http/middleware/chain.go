package middleware

import "net/http"

// Chain folds a list of middleware into one. Order reads outermost first:
//
//	Chain(Recovery, RequestID, Logging)(handler)
//
// wraps as Recovery(RequestID(Logging(handler))), so Recovery sees the
// request first and the response last. Keeping the whole production stack
// in a single Chain call in main makes the order reviewable in one place.
func Chain(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(handler http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			handler = middlewares[i](handler)
		}
		return handler
	}
}
