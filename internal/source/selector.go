package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/cosmicworks/ragchat/internal/llm"
	"github.com/cosmicworks/ragchat/internal/log"
)

// classificationPrompt instructs the model to answer with a single collection
// name. Questions about sales, purchases or invoices are always routed to the
// sales order collection.
const classificationPrompt = `Select which source of additional information would be most useful to answer the question provided from either product, customer and sales order information sources based on the prompt provided.

The product source contains information about the products with the following properties: categoryId, categoryName, sku, productName, description, price and tags.
The customer source contains information about the customer and has the following properties: customerId, title, firstName, lastName, emailAddress, phoneNumber, addresses and order creation date.
The sales order source contains information about customer sales and has the following properties: customerId, orderDate, shipDate, sku, name, price and quantity.

Instructions:
- If you're unsure of an answer, you must say "unknown".
- Always select salesOrders as the response when the question contains the words "sales", "purchases" or "invoices".
- Only provide a one word answer:
    "products" if the product source is preferred
    "customers" if the customer source is preferred
    "salesOrders" if the sales order source is preferred
    "none"
    "unknown" if you are unsure.

Text of the question is:`

// classificationSampling runs hot so the model commits to one of the listed
// answers instead of hedging.
var classificationSampling = llm.Sampling{
	Temperature:     1.0,
	TopP:            1.0,
	PresencePenalty: -2,
}

// Completer issues the classification call.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Decision is the outcome of resolving a source request.
type Decision struct {
	// Collection is the collection to search. Empty when UseRetrieval is
	// false.
	Collection Collection

	// UseRetrieval reports whether vector search should run at all.
	UseRetrieval bool

	// Usage is the token cost of the classification call, zero for explicit
	// and disabled requests.
	Usage llm.Usage
}

// Selector resolves source requests, delegating ModeAuto to a model call.
type Selector struct {
	completer Completer
	maxTokens int
	logger    log.Logger
}

// NewSelector creates a Selector. maxTokens caps the classification
// completion length.
func NewSelector(completer Completer, maxTokens int, logger log.Logger) *Selector {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Selector{
		completer: completer,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Resolve turns a source request and question into a Decision. Explicit and
// disabled requests resolve locally; automatic requests classify the question
// with a model call. Classification answers outside the collection set
// (including "none" and "unknown") disable retrieval.
func (s *Selector) Resolve(ctx context.Context, req Request, question string) (Decision, error) {
	switch req.Mode {
	case ModeExplicit:
		return Decision{Collection: req.Collection, UseRetrieval: true}, nil
	case ModeNone:
		return Decision{}, nil
	}

	sampling := classificationSampling
	sampling.MaxOutputTokens = s.maxTokens

	resp, err := s.completer.Complete(ctx, llm.Request{
		SystemPrompt: classificationPrompt,
		Prompt:       question,
		Sampling:     sampling,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("classifying question: %w", err)
	}

	// Case-sensitive mapping: the prompt dictates the exact spelling, so a
	// differently-cased answer counts as unrecognized.
	answer := normalizeAnswer(resp.Text)
	decision := Decision{Usage: resp.Usage}
	for _, c := range Collections {
		if answer == string(c) {
			decision.Collection = c
			decision.UseRetrieval = true
			break
		}
	}

	s.logger.Debug("resolved source",
		"answer", answer,
		"collection", decision.Collection,
		"use_retrieval", decision.UseRetrieval,
	)
	return decision, nil
}

// normalizeAnswer strips the noise a model wraps around a one-word answer.
func normalizeAnswer(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'.`)
	return strings.TrimSpace(s)
}
