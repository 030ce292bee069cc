// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package judge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// NewHTTPError creates a new HTTP error from an HTTP response
func NewHTTPError(resp *http.Response) error {
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Message:    resp.Status,
	}
}

// RetryConfig controls the retry policy around a judge.
type RetryConfig struct {
	MaxRetries        int
	InitialBackoffMs  int
	MaxBackoffMs      int
	BackoffMultiplier float64
	RetryOnStatus     []int
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        2,
		InitialBackoffMs:  1000,
		MaxBackoffMs:      8000,
		BackoffMultiplier: 2.0,
		RetryOnStatus:     []int{429, 500, 502, 503},
	}
}

// Retryable wraps a Judge with exponential backoff retry logic
type Retryable struct {
	judge  Judge
	config RetryConfig
	logger *zap.Logger
}

// NewRetryable creates a new retryable judge wrapper
func NewRetryable(judge Judge, config RetryConfig, logger *zap.Logger) *Retryable {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Apply defaults
	defaults := DefaultRetryConfig()
	if config.MaxRetries == 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.InitialBackoffMs == 0 {
		config.InitialBackoffMs = defaults.InitialBackoffMs
	}
	if config.MaxBackoffMs == 0 {
		config.MaxBackoffMs = defaults.MaxBackoffMs
	}
	if config.BackoffMultiplier == 0 {
		config.BackoffMultiplier = defaults.BackoffMultiplier
	}
	if len(config.RetryOnStatus) == 0 {
		config.RetryOnStatus = defaults.RetryOnStatus
	}

	return &Retryable{
		judge:  judge,
		config: config,
		logger: logger,
	}
}

// Judge implements the Judge interface with retry logic
func (r *Retryable) Judge(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error) {
	var lastErr error
	maxRetries := r.config.MaxRetries

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			r.logger.Info("Retrying judge call",
				zap.String("judge", r.judge.Name()),
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", maxRetries+1),
			)
		}

		response, err := r.judge.Judge(ctx, systemPrompt, userPrompt, temperature, maxTokens)
		if err == nil {
			if attempt > 0 {
				r.logger.Info("Judge call succeeded after retry",
					zap.String("judge", r.judge.Name()),
					zap.Int("attempt", attempt+1),
				)
			}
			return response, nil
		}

		lastErr = err

		if !r.isRetryable(err) {
			r.logger.Debug("Non-retryable error, not retrying",
				zap.String("judge", r.judge.Name()),
				zap.Error(err),
				zap.Int("attempt", attempt+1),
			)
			return "", fmt.Errorf("judge %s failed with non-retryable error: %w", r.judge.Name(), err)
		}

		// Last attempt? Don't sleep, just return
		if attempt == maxRetries {
			r.logger.Warn("Judge call failed after all retries",
				zap.String("judge", r.judge.Name()),
				zap.Int("attempts", attempt+1),
				zap.Error(err),
			)
			break
		}

		backoff := r.calculateBackoff(attempt)

		r.logger.Info("Judge call failed, backing off before retry",
			zap.String("judge", r.judge.Name()),
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
		)

		// Wait for backoff or context cancellation
		select {
		case <-time.After(backoff):
			// Continue to next attempt
		case <-ctx.Done():
			return "", fmt.Errorf("judge %s cancelled during retry: %w", r.judge.Name(), ctx.Err())
		}
	}

	return "", fmt.Errorf("judge %s failed after %d attempts: %w",
		r.judge.Name(), maxRetries+1, lastErr)
}

// Name implements the Judge interface
func (r *Retryable) Name() string {
	return r.judge.Name()
}

// Model implements the Judge interface
func (r *Retryable) Model() string {
	return r.judge.Model()
}

// isRetryable determines if an error should trigger a retry
func (r *Retryable) isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Check for HTTP errors with retryable status codes
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		for _, status := range r.config.RetryOnStatus {
			if httpErr.StatusCode == status {
				return true
			}
		}
	}

	// Check for context deadline exceeded (timeout)
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Check for network errors
	if errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	if errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	// Check error message for common retryable errors
	errMsg := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout",
		"temporary failure",
		"connection reset",
		"connection refused",
		"no such host",
		"i/o timeout",
		"rate limit",
		"too many requests",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return false
}

// calculateBackoff calculates the backoff duration for the given attempt using exponential backoff
func (r *Retryable) calculateBackoff(attempt int) time.Duration {
	// Exponential backoff: initialBackoff * (multiplier ^ attempt)
	backoffMs := float64(r.config.InitialBackoffMs) * math.Pow(r.config.BackoffMultiplier, float64(attempt))

	// Cap at max backoff
	if backoffMs > float64(r.config.MaxBackoffMs) {
		backoffMs = float64(r.config.MaxBackoffMs)
	}

	return time.Duration(backoffMs) * time.Millisecond
}

var _ Judge = (*Retryable)(nil)
