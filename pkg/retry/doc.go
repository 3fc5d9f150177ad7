// Package retry provides retry logic for handling transient failures in
// network operations against the platform API.
//
// Features:
//   - Multiple backoff strategies (constant, linear, exponential)
//   - Jitter to avoid thundering herd problems
//   - Context support for cancellation
//   - Configurable retry predicates
//   - Integration with the platform error taxonomy
//
// Basic usage:
//
//	// Simple retry with defaults
//	err := retry.Do(func() error {
//		return client.Pong(ctx)
//	}, nil)
//
//	// Custom configuration
//	cfg := &retry.Config{
//		MaxAttempts: 5,
//		Backoff:     &retry.ConstantBackoff{Delay: time.Second},
//		RetryIf:     retry.DefaultRetryIf,
//		Logger:      logger.GetLogger(),
//	}
//	err := retry.Do(operation, cfg)
//
// The default predicate retries transport errors only. Identity errors
// trigger rotation in the request client instead of a blind retry, and
// rate limiting is handled by its own fixed sleep.
package retry
