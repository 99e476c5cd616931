// Package http is the resilient client core of the task API: a request pipeline
// of outbound stages, a transport, and inbound stages that classify each result.
//
// Pipeline
//   - Outbound: the auth stage attaches "Authorization: Bearer <token>" when the
//     token store holds a token, then custom stages run in registration order.
//   - Inbound: custom stages first, then UnwrapStage, the 401 stage, and the
//     retry stage. The first stage that handles a result decides the Outcome.
//
// Authentication failures
//   - 401 removes the stored token and triggers the sign-in redirect exactly once.
//   - 401 is never retried. The caller receives the original HTTP error.
//
// Retries
//   - Network errors, timeouts and 5xx responses are transient.
//   - A call is retried at most once: the gate is Request.RetryCount == 0.
//     The delay is 2^RetryCount * base after the increment (2s with a 1s base).
//   - Other 4xx responses fail immediately with the server's body attached.
//
// Backoff helper
//   - Retry and RetryValue run any operation up to 1 + Retries times with
//     delays of Delay * 2^n (1s, 2s, 4s by default).
//   - A spent budget returns *ExhaustedRetriesError wrapping the last error.
//   - Client.DoWithBackoff dispatches a fresh copy of the request per attempt.
package http
