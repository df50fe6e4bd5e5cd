package chat

import (
	"slices"
	"strings"

	"github.com/cosmicworks/ragchat/internal/llm"
	"github.com/cosmicworks/ragchat/internal/session"
)

// TokenCounter reports the token cost of a text.
type TokenCounter interface {
	Count(text string) int
}

// ContextBuilder fits conversation history under a token budget.
type ContextBuilder struct {
	counter TokenCounter
}

// NewContextBuilder creates a ContextBuilder using counter for messages that
// carry no recorded token counts.
func NewContextBuilder(counter TokenCounter) *ContextBuilder {
	return &ContextBuilder{counter: counter}
}

// Build selects the most recent exchanges whose combined token cost fits
// within maxTokens and returns them in chronological order.
//
// Exchanges are taken whole, newest first; the first one that would push the
// total past the budget stops the walk, so a prompt is never separated from
// its completion and no older exchange can displace a newer one.
func (b *ContextBuilder) Build(messages []*session.Message, maxTokens int) []*session.Message {
	kept := make([]*session.Message, 0, len(messages))
	total := 0

	for i := len(messages) - 1; i >= 0; i-- {
		cost := b.messageTokens(messages[i])
		if total+cost > maxTokens {
			break
		}
		kept = append(kept, messages[i])
		total += cost
	}

	slices.Reverse(kept)
	return kept
}

// messageTokens prefers the counts recorded at persist time; messages written
// before token tracking fall back to the counter.
func (b *ContextBuilder) messageTokens(msg *session.Message) int {
	if t := msg.Tokens(); t > 0 {
		return t
	}
	return b.counter.Count(msg.Prompt) + b.counter.Count(msg.Completion)
}

// joinMessages renders exchanges into the newline-joined text that seeds the
// retrieval embedding.
func joinMessages(messages []*session.Message) string {
	var sb strings.Builder
	for i, msg := range messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(msg.Prompt)
		sb.WriteString("\n")
		sb.WriteString(msg.Completion)
	}
	return sb.String()
}

// toTurns converts stored exchanges into model conversation turns.
func toTurns(messages []*session.Message) []llm.Turn {
	turns := make([]llm.Turn, 0, len(messages))
	for _, msg := range messages {
		turns = append(turns, llm.Turn{User: msg.Prompt, Assistant: msg.Completion})
	}
	return turns
}
