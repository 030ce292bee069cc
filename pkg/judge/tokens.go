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
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates prompt sizes before dispatch so oversized
// prompts show up in logs rather than as opaque provider errors.
// Uses tiktoken with cl100k_base encoding.
type TokenCounter struct {
	encoder *tiktoken.Tiktoken
	mu      sync.Mutex
}

var (
	tokenCounter    *TokenCounter
	counterInitOnce sync.Once
)

// GetTokenCounter returns the process-wide token counter singleton.
func GetTokenCounter() *TokenCounter {
	counterInitOnce.Do(func() {
		tkm, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			// Fallback: approximate counting when the encoding data is
			// unavailable.
			tokenCounter = &TokenCounter{}
			return
		}
		tokenCounter = &TokenCounter{encoder: tkm}
	})
	return tokenCounter
}

// CountTokens returns the estimated token count of text.
func (tc *TokenCounter) CountTokens(text string) int {
	if tc.encoder == nil {
		// Rough heuristic: one token per four characters.
		return len(text) / 4
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return len(tc.encoder.Encode(text, nil, nil))
}

// CountTokensMultiple sums the estimated token counts of several texts.
func (tc *TokenCounter) CountTokensMultiple(texts ...string) int {
	total := 0
	for _, text := range texts {
		total += tc.CountTokens(text)
	}
	return total
}
