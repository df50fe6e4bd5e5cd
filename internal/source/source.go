// Package source decides which knowledge collection, if any, should ground a
// chat completion. Callers either name a collection explicitly, disable
// retrieval, or ask for automatic selection, which classifies the question
// with a one-word model call.
package source

import (
	"errors"
	"fmt"
)

// Collection identifies a knowledge collection. The set is closed: documents
// are partitioned into exactly these collections by the schema.
type Collection string

const (
	CollectionProducts    Collection = "products"
	CollectionCustomers   Collection = "customers"
	CollectionSalesOrders Collection = "salesOrders"
)

// Collections lists all valid collections.
var Collections = []Collection{
	CollectionProducts,
	CollectionCustomers,
	CollectionSalesOrders,
}

// Mode determines how the collection for a request is chosen.
type Mode int

const (
	// ModeAuto asks the model to pick the most useful collection.
	ModeAuto Mode = iota

	// ModeNone disables retrieval for the request.
	ModeNone

	// ModeExplicit uses the collection named by the caller.
	ModeExplicit
)

// ErrUnknownCollection indicates a collection name outside the closed set.
var ErrUnknownCollection = errors.New("unknown collection")

// Request is a parsed source choice.
type Request struct {
	Mode       Mode
	Collection Collection // set only when Mode == ModeExplicit
}

// ParseCollection validates a collection name.
func ParseCollection(s string) (Collection, error) {
	switch Collection(s) {
	case CollectionProducts, CollectionCustomers, CollectionSalesOrders:
		return Collection(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCollection, s)
	}
}

// ParseRequest parses a source choice. An empty string or "auto" selects
// automatic classification, "none" disables retrieval, and anything else
// must name a valid collection.
func ParseRequest(s string) (Request, error) {
	switch s {
	case "", "auto":
		return Request{Mode: ModeAuto}, nil
	case "none":
		return Request{Mode: ModeNone}, nil
	default:
		c, err := ParseCollection(s)
		if err != nil {
			return Request{}, err
		}
		return Request{Mode: ModeExplicit, Collection: c}, nil
	}
}

// String returns the wire form of the request.
func (r Request) String() string {
	switch r.Mode {
	case ModeNone:
		return "none"
	case ModeExplicit:
		return string(r.Collection)
	default:
		return "auto"
	}
}
