package testing

import "time"

// Tokens used across auth and client tests.
const (
	TestToken        = "test-token"
	TestRotatedToken = "rotated-token"
	TestStaleToken   = "stale-token"
)

// Task API paths and identifiers.
const (
	TestTasksPath  = "/api/v1/tasks"
	TestTaskID     = "11111111-1111-4111-8111-111111111111"
	TestTaskTitle  = "Write report"
	TestMissingID  = "00000000-0000-4000-8000-000000000000"
	TestSignInPath = "/auth/sign-in"
)

const (
	TestServiceName = "taskclient-test"
	TestTracerName  = "test"
)

// Short delays keep retry tests fast.
const (
	TestRetryDelay        = 10 * time.Millisecond
	TestEventuallyTimeout = 500 * time.Millisecond
	TestEventuallyTick    = 10 * time.Millisecond
)
