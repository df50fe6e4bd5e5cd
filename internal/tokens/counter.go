// Package tokens provides exact token counting for budget enforcement.
//
// Counting uses the tiktoken cl100k_base vocabulary (the GPT-3.5/GPT-4
// family encoding) with an offline BPE loader, so no network access is
// needed at startup. Completion backends bill and limit by tokens, not
// characters, so every budget decision in the pipeline goes through a
// Counter.
package tokens

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktokenloader "github.com/pkoukk/tiktoken-go-loader"
)

// Encoding is the tokenizer vocabulary used for all budget accounting.
const Encoding = "cl100k_base"

func init() {
	tiktoken.SetBpeLoader(tiktokenloader.NewOfflineLoader())
}

// Counter converts text to a token count.
//
// Counter is an explicit dependency: components that enforce budgets
// receive one via their constructor rather than reaching for a package
// global, which keeps tests deterministic with stub counters.
//
// Counter is safe for concurrent use.
type Counter struct {
	mu       sync.RWMutex
	encoding *tiktoken.Tiktoken
}

// NewCounter creates a Counter backed by the cl100k_base encoding.
func NewCounter() (*Counter, error) {
	enc, err := tiktoken.GetEncoding(Encoding)
	if err != nil {
		return nil, fmt.Errorf("loading %s encoding: %w", Encoding, err)
	}
	return &Counter{encoding: enc}, nil
}

// Count returns the number of tokens in text. Empty text counts as zero.
// Count is deterministic and has no side effects.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.encoding.Encode(text, nil, nil))
}
