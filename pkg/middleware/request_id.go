package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/gradekit/speed-grader/pkg/requestid"
)

// RequestID gets the request ID from the x-request-id header or generates a
// unique one for each HTTP request and injects it into the request's
// context.Context for consistent access across the application layers.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("x-request-id")

		if requestID == "" {
			requestID = middleware.GetReqID(r.Context())
		}

		if requestID == "" {
			requestID = requestid.Generate()
		}

		ctx := requestid.ToContext(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
