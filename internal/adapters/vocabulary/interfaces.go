// Package vocabulary defines the Vocabulary Adapter contract (C4):
// expanding a keyword list with controlled-vocabulary synonyms.
package vocabulary

import "context"

// Adapter expands a keyword list. Order is stable: original terms first,
// then expansions in input order, duplicates removed case-insensitively.
// On any upstream failure the adapter returns the input unchanged.
type Adapter interface {
	Expand(ctx context.Context, keywords []string) ([]string, error)
}
