// Package testing holds shared helpers for taskclient tests.
//
// Subpackages:
//   - mocks: testify mocks for the token store, redirector and transport
//   - fixtures: canned tasks and stub-server responses
//   - containers: testcontainers helpers, built only with -tags integration
package testing
