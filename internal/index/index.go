package index

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fyrsmithlabs/docsd/internal/category"
)

// Source records how an index came into memory during startup.
type Source string

const (
	// SourceLoaded means the index was restored from a persisted snapshot.
	SourceLoaded Source = "loaded"

	// SourceRebuilt means the index was rebuilt from source documents and
	// persisted fresh.
	SourceRebuilt Source = "rebuilt"
)

// Result is a single retrieval hit.
//
// Content is the synthesis rendering of the matched document: visible
// metadata lines followed by the section text, with excluded envelope keys
// already stripped. It is safe to hand to a language model as-is. Metadata
// carries the full envelope, excluded keys included, so callers can cite
// the source file and header path without re-reading anything from disk.
type Result struct {
	ID       string
	Content  string
	Score    float32
	Metadata map[string]string
}

// Index is a queryable per-category vector index. It is immutable after
// construction and safe for concurrent queries.
type Index struct {
	category   category.Category
	collection *chromem.Collection
	source     Source
	docCount   int
}

// Category returns the category this index covers.
func (ix *Index) Category() category.Category {
	return ix.category
}

// Source reports whether the index was loaded from disk or rebuilt.
func (ix *Index) Source() Source {
	return ix.source
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	return ix.docCount
}

// Query returns the k most similar documents to the query text, most
// similar first. k is capped at the index size; an empty index returns an
// empty slice without error.
func (ix *Index) Query(ctx context.Context, query string, k int) ([]Result, error) {
	ctx, span := tracer.Start(ctx, "Index.Query")
	defer span.End()

	span.SetAttributes(
		attribute.String("category", ix.category.Name),
		attribute.Int("k", k),
	)

	if query == "" {
		err := fmt.Errorf("%w: query text cannot be empty", ErrInvalidQuery)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if k <= 0 {
		err := fmt.Errorf("%w: k must be positive, got %d", ErrInvalidQuery, k)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if ix.docCount == 0 {
		span.SetStatus(codes.Ok, "empty index")
		return []Result{}, nil
	}
	if k > ix.docCount {
		k = ix.docCount
	}

	hits, err := ix.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying %s index: %w", ix.category.Name, err)
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			ID:       h.ID,
			Content:  h.Content,
			Score:    h.Similarity,
			Metadata: h.Metadata,
		}
	}

	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(codes.Ok, "success")
	return results, nil
}
