// Package middlewares provides the request middleware used by the pinspot
// plugins: request IDs, panic recovery, per-request timeouts, CORS and
// bearer token authentication.
//
// Recover and Timeout convert failures into typed errors (PanicError,
// TimeoutError) that the terminal error handler maps to 500 and 504.
//
//	srv := a.Server()
//	_ = srv.Use(
//	    middlewares.RequestID(),
//	    middlewares.Recover(),
//	    middlewares.Timeout(30*time.Second),
//	)
//
// Use RequestIDExtractor with logger.WithExtractors to stamp request_id on
// every log entry written with the request context.
package middlewares
