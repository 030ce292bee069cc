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

// Package judge abstracts the LLM providers that score text. A Judge
// takes one system and user prompt pair and returns the model's raw
// text response; everything above this package treats the model as a
// stateless function. Wrappers in this package add retries and a
// process-wide concurrency cap.
package judge

import "context"

// Judge sends one prompt pair to a model and returns the raw response
// text. Implementations must be safe for concurrent use.
type Judge interface {
	// Judge blocks until the model responds, the context is done, or
	// the provider fails.
	Judge(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error)

	// Name returns the provider name, e.g. "openai".
	Name() string

	// Model returns the model identifier requests are sent to.
	Model() string
}
