package server

import "time"

const (
	// DefaultReadTimeout bounds reading a request, headers and body.
	DefaultReadTimeout = 15 * time.Second

	// DefaultWriteTimeout bounds writing a response.
	DefaultWriteTimeout = 15 * time.Second

	// DefaultIdleTimeout bounds keep-alive idle time.
	DefaultIdleTimeout = 60 * time.Second

	// DefaultListLimit is the page size when the caller sends no limit.
	DefaultListLimit = 100

	// MaxListLimit caps the page size.
	MaxListLimit = 1000

	// SlowRequestThreshold marks a request slow in the access log.
	SlowRequestThreshold = time.Second
)

const (
	// HeaderXResponseTime reports request processing duration.
	HeaderXResponseTime = "X-Response-Time"

	// HeaderWWWAuthenticate is sent with 401 responses.
	HeaderWWWAuthenticate = "WWW-Authenticate"

	// TasksPath is the collection route.
	TasksPath = "/api/v1/tasks"

	// HealthPath is excluded from auth, faults and access logs.
	HealthPath = "/health"
)
