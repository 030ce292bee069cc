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

	"go.uber.org/zap"
)

// DefaultMaxConcurrent is the process-wide cap on in-flight model calls
// when no explicit limit is configured.
const DefaultMaxConcurrent = 20

// Limited wraps a Judge with a counting semaphore so that no more than
// a fixed number of model calls are in flight at once, regardless of
// how many evaluations run concurrently.
type Limited struct {
	judge  Judge
	sem    chan struct{}
	logger *zap.Logger
}

// NewLimited creates a concurrency-limited judge wrapper. A non-positive
// maxConcurrent falls back to DefaultMaxConcurrent.
func NewLimited(judge Judge, maxConcurrent int, logger *zap.Logger) *Limited {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limited{
		judge:  judge,
		sem:    make(chan struct{}, maxConcurrent),
		logger: logger,
	}
}

// Judge acquires a semaphore slot, forwards the call, and releases the
// slot when the call returns. Acquisition respects context cancellation.
func (l *Limited) Judge(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-l.sem }()

	l.logger.Debug("Acquired LLM slot",
		zap.String("judge", l.judge.Name()),
		zap.Int("in_flight", len(l.sem)),
		zap.Int("capacity", cap(l.sem)),
	)

	return l.judge.Judge(ctx, systemPrompt, userPrompt, temperature, maxTokens)
}

// Name implements the Judge interface
func (l *Limited) Name() string {
	return l.judge.Name()
}

// Model implements the Judge interface
func (l *Limited) Model() string {
	return l.judge.Model()
}

var _ Judge = (*Limited)(nil)
