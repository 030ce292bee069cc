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

package evaluation

import (
	"context"

	"github.com/teradata-labs/rubric/internal/csync"
)

// task is the in-flight or settled evaluation of one scheme. done closes
// once result is set.
type task struct {
	done   chan struct{}
	result *Result
}

// requestCache memoizes scheme results for the lifetime of one request.
// Schemes requested twice, directly or through a shared dependency, are
// evaluated once; later callers block on the first caller's task.
type requestCache struct {
	tasks *csync.Map[string, *task]
}

func newRequestCache() *requestCache {
	return &requestCache{tasks: csync.NewMap[string, *task]()}
}

// do returns the memoized result for id, running eval at most once per
// id per cache. When the context ends while another goroutine is still
// evaluating, do returns nil and the caller shapes a fallback.
func (c *requestCache) do(ctx context.Context, id string, eval func() *Result) *Result {
	t := &task{done: make(chan struct{})}
	actual, loaded := c.tasks.GetOrSet(id, t)
	if loaded {
		select {
		case <-actual.done:
			return actual.result
		case <-ctx.Done():
			return nil
		}
	}
	t.result = eval()
	close(t.done)
	return t.result
}
