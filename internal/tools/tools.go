// Package tools wraps each category index in a named query tool: retrieve
// the most similar sections, synthesize an answer over them, and report
// where the answer came from.
package tools

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docsd/internal/category"
	"github.com/fyrsmithlabs/docsd/internal/docs"
	"github.com/fyrsmithlabs/docsd/internal/index"
)

var tracer = otel.Tracer("docsd.tools")

// DefaultTopK is how many sections a tool retrieves per question when not
// configured otherwise.
const DefaultTopK = 2

// NoContentAnswer is returned verbatim when a tool's index holds nothing
// relevant for a question.
const NoContentAnswer = "No relevant documentation found."

// Retriever is the slice of the index a tool needs.
type Retriever interface {
	Query(ctx context.Context, query string, k int) ([]index.Result, error)
	Len() int
}

// Synthesizer turns a question plus retrieved context passages into a
// natural-language answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, contexts []string) (string, error)
}

// Citation points at the documentation a tool's answer was grounded on.
type Citation struct {
	FileName    string  `json:"file_name"`
	HeaderPath  string  `json:"header_path,omitempty"`
	ContentType string  `json:"content_type,omitempty"`
	Score       float32 `json:"score"`
}

// Answer is the result of asking a tool a question.
type Answer struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations,omitempty"`
}

// Config holds tool configuration.
type Config struct {
	// TopK is the number of sections retrieved per question.
	TopK int `koanf:"top_k"`
}

// Tool answers questions against a single category's index.
type Tool struct {
	name        string
	description string
	cat         category.Category
	retriever   Retriever
	synth       Synthesizer
	topK        int
	logger      *zap.Logger
}

// New creates a query tool for one category. Name and description are the
// registry entry's, verbatim; the router sees exactly what was configured.
func New(cat category.Category, retriever Retriever, synth Synthesizer, cfg Config, logger *zap.Logger) (*Tool, error) {
	if retriever == nil {
		return nil, fmt.Errorf("retriever cannot be nil")
	}
	if synth == nil {
		return nil, fmt.Errorf("synthesizer cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Tool{
		name:        cat.Name,
		description: cat.Description,
		cat:         cat,
		retriever:   retriever,
		synth:       synth,
		topK:        topK,
		logger:      logger,
	}, nil
}

// Name returns the tool name, identical to the category name.
func (t *Tool) Name() string { return t.name }

// Description returns the routing description, identical to the category's.
func (t *Tool) Description() string { return t.description }

// Category returns the category this tool covers.
func (t *Tool) Category() category.Category { return t.cat }

// Answer retrieves the top sections for the question and synthesizes an
// answer over them. An empty index short-circuits to NoContentAnswer
// without calling the synthesizer.
func (t *Tool) Answer(ctx context.Context, question string) (*Answer, error) {
	ctx, span := tracer.Start(ctx, "Tool.Answer")
	defer span.End()

	span.SetAttributes(attribute.String("tool", t.name))

	if question == "" {
		err := fmt.Errorf("%w: question cannot be empty", index.ErrInvalidQuery)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if t.retriever.Len() == 0 {
		span.SetStatus(codes.Ok, "empty index")
		return &Answer{Text: NoContentAnswer}, nil
	}

	results, err := t.retriever.Query(ctx, question, t.topK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%s: %w", t.name, err)
	}
	if len(results) == 0 {
		span.SetStatus(codes.Ok, "no results")
		return &Answer{Text: NoContentAnswer}, nil
	}

	contexts := make([]string, len(results))
	citations := make([]Citation, len(results))
	for i, r := range results {
		contexts[i] = r.Content
		citations[i] = Citation{
			FileName:    r.Metadata[docs.MetaFileName],
			HeaderPath:  r.Metadata[docs.MetaHeaderPath],
			ContentType: r.Metadata[docs.MetaContentType],
			Score:       r.Score,
		}
	}

	text, err := t.synth.Synthesize(ctx, question, contexts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%s: synthesizing answer: %w", t.name, err)
	}

	t.logger.Debug("tool answered",
		zap.String("tool", t.name),
		zap.Int("sections", len(results)))
	span.SetAttributes(attribute.Int("sections", len(results)))
	span.SetStatus(codes.Ok, "success")
	return &Answer{Text: text, Citations: citations}, nil
}

// Build creates one tool per registry category, in registry order. Every
// category must have an index; a missing one is a wiring bug and fails the
// whole build.
func Build(reg *category.Registry, indexes map[string]Retriever, synth Synthesizer, cfg Config, logger *zap.Logger) ([]*Tool, error) {
	cats := reg.Categories()
	out := make([]*Tool, 0, len(cats))
	for _, cat := range cats {
		retriever, ok := indexes[cat.Key()]
		if !ok {
			return nil, fmt.Errorf("no index for category %s", cat.Name)
		}
		tool, err := New(cat, retriever, synth, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("building tool for %s: %w", cat.Name, err)
		}
		out = append(out, tool)
	}
	return out, nil
}
