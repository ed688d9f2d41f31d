// Package middleware provides the gin middleware chain of the HTTP server:
// recovery, request ID, access logging, metrics, CORS and request deadlines.
package middleware
