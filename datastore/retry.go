/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// IsRetryable reports whether err is a transient store fault worth retrying:
// network errors and timeouts of the MongoDB driver, and any error (such as
// the AWS SDK's throttling errors) that says so through IsRetryable() bool.
// Cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return !errors.Is(err, context.DeadlineExceeded)
	}
	var r interface{ IsRetryable() bool }
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return false
}
