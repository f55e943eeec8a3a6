// SPDX-License-Identifier: GPL-3.0-or-later
package retry

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// Retryable marks an error returned from the function passed to Do as worth another attempt. Other
// errors end Do immediately.
func Retryable(err error) error {
	return retry.RetryableError(err)
}

// Do runs f up to attempts times, sleeping interval between attempts. It returns the last error if
// all attempts fail or the context is done.
func Do(ctx context.Context, attempts uint64, interval time.Duration, f func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(attempts-1, retry.NewConstant(interval))

	return retry.Do(ctx, backoff, f)
}
