package util

import (
	"context"
	"time"
)

// RetryOptions 有界重试配置。MaxRetries 是首次尝试之外的重试次数上限。
type RetryOptions struct {
	MaxRetries int
	Backoff    time.Duration
	Retryable  func(error) bool
}

// Retry 执行 fn，失败时按固定退避重试。上下文取消立即终止。
func Retry(ctx context.Context, opts RetryOptions, fn func() error) error {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 300 * time.Millisecond
	}

	var err error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.Backoff):
			}
		}

		if err = fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if opts.Retryable != nil && !opts.Retryable(err) {
			return err
		}
	}
	return err
}
