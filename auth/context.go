package auth

import (
	"context"
	"net/http"
)

type contextKey int

const stateKey contextKey = iota

// WithState returns a context carrying st.
func WithState(ctx context.Context, st *State) context.Context {
	return context.WithValue(ctx, stateKey, st)
}

// FromContext returns the State provided by WithState. It panics when none
// was provided.
func FromContext(ctx context.Context) *State {
	st, ok := ctx.Value(stateKey).(*State)
	if !ok || st == nil {
		panic("auth: FromContext called outside a context provided by WithState")
	}
	return st
}

// Provide is middleware that makes st available to downstream handlers
// through FromContext.
func Provide(st *State) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithState(r.Context(), st)))
		})
	}
}
