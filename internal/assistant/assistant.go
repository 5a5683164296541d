// Package assistant wires the documentation QA pipeline together: load each
// category's documents, bring up its index, wrap every index in a query
// tool, and put the sub-question router on top.
package assistant

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/tmc/langchaingo/llms"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docsd/internal/category"
	"github.com/fyrsmithlabs/docsd/internal/docs"
	"github.com/fyrsmithlabs/docsd/internal/index"
	"github.com/fyrsmithlabs/docsd/internal/router"
	"github.com/fyrsmithlabs/docsd/internal/tools"
)

var tracer = otel.Tracer("docsd.assistant")

// DocumentLoader loads a category's source documents.
type DocumentLoader interface {
	Load(ctx context.Context, cat category.Category) ([]docs.Document, error)
}

// IndexProvider brings up per-category indexes.
type IndexProvider interface {
	GetIndex(ctx context.Context, cat category.Category, documents []docs.Document) (*index.Index, error)
	Dir(cat category.Category) string
	Rebuilds() int64
}

// Dependencies carries everything the assistant needs. All fields are
// required except Logger.
type Dependencies struct {
	Registry     *category.Registry
	Loader       DocumentLoader
	Indexes      IndexProvider
	LLM          llms.Model
	ToolConfig   tools.Config
	RouterConfig router.Config
	Logger       *zap.Logger
}

func (d Dependencies) validate() error {
	switch {
	case d.Registry == nil:
		return fmt.Errorf("registry cannot be nil")
	case d.Loader == nil:
		return fmt.Errorf("loader cannot be nil")
	case d.Indexes == nil:
		return fmt.Errorf("index provider cannot be nil")
	case d.LLM == nil:
		return fmt.Errorf("llm cannot be nil")
	}
	return nil
}

// Assistant is a ready documentation QA pipeline. Construction is
// all-or-nothing: every category index must come up or New fails.
type Assistant struct {
	registry *category.Registry
	indexes  map[string]*index.Index
	tools    []*tools.Tool
	engine   router.Engine
	logger   *zap.Logger
}

// New initializes every category in parallel and assembles the router.
// Results are assembled in registry order regardless of which category
// finished first.
func New(ctx context.Context, deps Dependencies) (*Assistant, error) {
	ctx, span := tracer.Start(ctx, "assistant.New")
	defer span.End()

	if err := deps.validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cats := deps.Registry.Categories()
	span.SetAttributes(attribute.Int("categories", len(cats)))

	built := make([]*index.Index, len(cats))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for i, cat := range cats {
		wg.Add(1)
		go func(i int, cat category.Category) {
			defer wg.Done()
			ix, err := initCategory(ctx, deps, cat)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			built[i] = ix
		}(i, cat)
	}
	wg.Wait()
	if firstErr != nil {
		span.RecordError(firstErr)
		span.SetStatus(codes.Error, firstErr.Error())
		return nil, firstErr
	}

	indexes := make(map[string]*index.Index, len(cats))
	retrievers := make(map[string]tools.Retriever, len(cats))
	for i, cat := range cats {
		indexes[cat.Key()] = built[i]
		retrievers[cat.Key()] = built[i]
		logger.Info("category ready",
			zap.String("category", cat.Name),
			zap.String("source", string(built[i].Source())),
			zap.Int("documents", built[i].Len()))
	}

	synth, err := router.NewLLMSynthesizer(deps.LLM, logger)
	if err != nil {
		return nil, err
	}
	toolList, err := tools.Build(deps.Registry, retrievers, synth, deps.ToolConfig, logger)
	if err != nil {
		return nil, err
	}
	engine, err := router.NewSubQuestionEngine(deps.LLM, toolList, deps.RouterConfig, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("assistant ready",
		zap.Int("categories", len(cats)),
		zap.Int64("rebuilds", deps.Indexes.Rebuilds()))
	span.SetStatus(codes.Ok, "success")

	return &Assistant{
		registry: deps.Registry,
		indexes:  indexes,
		tools:    toolList,
		engine:   engine,
		logger:   logger,
	}, nil
}

// initCategory loads one category's documents and brings up its index.
func initCategory(ctx context.Context, deps Dependencies, cat category.Category) (*index.Index, error) {
	documents, err := deps.Loader.Load(ctx, cat)
	if err != nil {
		return nil, fmt.Errorf("loading %s documents: %w", cat.Name, err)
	}
	ix, err := deps.Indexes.GetIndex(ctx, cat, documents)
	if err != nil {
		return nil, err
	}
	return ix, nil
}

// Reindex discards every persisted snapshot and rebuilds the assistant from
// source documents.
func Reindex(ctx context.Context, deps Dependencies) (*Assistant, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	for _, cat := range deps.Registry.Categories() {
		dir := deps.Indexes.Dir(cat)
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("removing %s index: %w", cat.Name, err)
		}
	}
	return New(ctx, deps)
}

// Ask answers a question through the sub-question router.
func (a *Assistant) Ask(ctx context.Context, question string) (*router.Response, error) {
	return a.engine.Ask(ctx, question)
}

// AskStream streams the final answer.
func (a *Assistant) AskStream(ctx context.Context, question string) (<-chan router.Fragment, error) {
	return a.engine.AskStream(ctx, question)
}

// Tools returns the category tools in registry order.
func (a *Assistant) Tools() []*tools.Tool {
	out := make([]*tools.Tool, len(a.tools))
	copy(out, a.tools)
	return out
}

// Index returns the index for a category key.
func (a *Assistant) Index(key string) (*index.Index, bool) {
	ix, ok := a.indexes[key]
	return ix, ok
}

// Registry returns the category registry.
func (a *Assistant) Registry() *category.Registry {
	return a.registry
}
