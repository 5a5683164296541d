package assistant_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docsd/internal/assistant"
	"github.com/fyrsmithlabs/docsd/internal/category"
	"github.com/fyrsmithlabs/docsd/internal/docs"
	"github.com/fyrsmithlabs/docsd/internal/index"
	"github.com/fyrsmithlabs/docsd/internal/router"
	"github.com/fyrsmithlabs/docsd/internal/tools"
)

// hashEmbedder is deterministic: one dimension per tracked keyword plus a
// constant tail, normalized.
type hashEmbedder struct{}

var testKeywords = []string{"install", "agent", "upgrade"}

func (hashEmbedder) embed(text string) []float32 {
	v := make([]float32, len(testKeywords)+1)
	lower := strings.ToLower(text)
	for i, kw := range testKeywords {
		if strings.Contains(lower, kw) {
			v[i] = 1
		}
	}
	v[len(testKeywords)] = 0.1
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}

func (e hashEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e hashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.embed(text), nil
}

func (hashEmbedder) Model() string  { return "hash-test-model" }
func (hashEmbedder) Dimension() int { return len(testKeywords) + 1 }
func (hashEmbedder) Close() error   { return nil }

// passthroughLLM decomposes to nothing (forcing the all-tools fallback) and
// merges by echoing a marker.
type passthroughLLM struct {
	mu      sync.Mutex
	prompts []string
}

func (m *passthroughLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, o := range options {
		o(&opts)
	}

	var prompt string
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				prompt += text.Text
			}
		}
	}
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	text := "final answer"
	if strings.Contains(prompt, "JSON array") {
		text = "not json"
	} else if strings.Contains(prompt, "Context information") {
		text = "synthesized from context"
	}

	if opts.StreamingFunc != nil {
		if err := opts.StreamingFunc(ctx, []byte(text)); err != nil {
			return nil, err
		}
	}

	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}, nil
}

func (m *passthroughLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

// writeDocsTree lays out two category source directories with markdown.
func writeDocsTree(t *testing.T) (category.Category, category.Category) {
	t.Helper()
	root := t.TempDir()

	gettingStarted := filepath.Join(root, "getting_started")
	agents := filepath.Join(root, "agents")
	require.NoError(t, os.MkdirAll(gettingStarted, 0o755))
	require.NoError(t, os.MkdirAll(agents, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(gettingStarted, "install.md"),
		[]byte("# Install\n\nRun the install script to get started.\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(agents, "agents.md"),
		[]byte("# Agents\n\nAn agent runs tasks autonomously.\n"), 0o600))

	return category.Category{
			Name:        "Getting Started",
			Path:        gettingStarted,
			Description: "Install and first steps",
		}, category.Category{
			Name:        "Agents",
			Path:        agents,
			Description: "Agent guides",
		}
}

func testDeps(t *testing.T, storageDir string) (assistant.Dependencies, *index.Manager) {
	t.Helper()
	catA, catB := writeDocsTree(t)
	reg, err := category.NewRegistry([]category.Category{catA, catB})
	require.NoError(t, err)

	mgr, err := index.NewManager(index.Config{BaseDir: storageDir}, hashEmbedder{}, zap.NewNop())
	require.NoError(t, err)

	return assistant.Dependencies{
		Registry: reg,
		Loader:   docs.NewLoader(zap.NewNop()),
		Indexes:  mgr,
		LLM:      &passthroughLLM{},
		Logger:   zap.NewNop(),
	}, mgr
}

func TestNew_BringsUpEveryCategory(t *testing.T) {
	deps, mgr := testDeps(t, t.TempDir())

	a, err := assistant.New(context.Background(), deps)
	require.NoError(t, err)

	toolList := a.Tools()
	require.Len(t, toolList, 2)
	assert.Equal(t, "Getting Started", toolList[0].Name())
	assert.Equal(t, "Agents", toolList[1].Name())
	assert.Equal(t, int64(2), mgr.Rebuilds())

	ix, ok := a.Index("getting_started")
	require.True(t, ok)
	assert.Equal(t, index.SourceRebuilt, ix.Source())
	assert.Equal(t, 1, ix.Len())
}

func TestNew_SecondStartupLoadsSnapshots(t *testing.T) {
	storage := t.TempDir()

	deps, _ := testDeps(t, storage)
	_, err := assistant.New(context.Background(), deps)
	require.NoError(t, err)

	// Same storage, fresh manager: everything should load.
	mgr, err := index.NewManager(index.Config{BaseDir: storage}, hashEmbedder{}, zap.NewNop())
	require.NoError(t, err)
	deps.Indexes = mgr

	a, err := assistant.New(context.Background(), deps)
	require.NoError(t, err)
	assert.Equal(t, int64(0), mgr.Rebuilds())

	for _, key := range []string{"getting_started", "agents"} {
		ix, ok := a.Index(key)
		require.True(t, ok)
		assert.Equal(t, index.SourceLoaded, ix.Source())
	}
}

func TestNew_FailsWhenCategorySourceMissing(t *testing.T) {
	deps, _ := testDeps(t, t.TempDir())

	cats := deps.Registry.Categories()
	cats = append(cats, category.Category{
		Name:        "Ghost",
		Path:        filepath.Join(t.TempDir(), "does_not_exist"),
		Description: "missing on disk",
	})
	reg, err := category.NewRegistry(cats)
	require.NoError(t, err)
	deps.Registry = reg

	_, err = assistant.New(context.Background(), deps)
	require.Error(t, err)
	assert.ErrorIs(t, err, docs.ErrSourceMissing)
	assert.Contains(t, err.Error(), "Ghost")
}

func TestNew_DependencyValidation(t *testing.T) {
	deps, _ := testDeps(t, t.TempDir())
	deps.LLM = nil
	_, err := assistant.New(context.Background(), deps)
	assert.Error(t, err)
}

func TestAsk_EndToEnd(t *testing.T) {
	deps, _ := testDeps(t, t.TempDir())

	a, err := assistant.New(context.Background(), deps)
	require.NoError(t, err)

	resp, err := a.Ask(context.Background(), "how do I install?")
	require.NoError(t, err)

	// The malformed decomposition forces the all-tools fallback, so both
	// categories contribute a sub-answer and the merge pass runs.
	assert.Equal(t, "final answer", resp.Text)
	require.Len(t, resp.SubAnswers, 2)
	assert.Equal(t, "Getting Started", resp.SubAnswers[0].Tool)
	assert.Equal(t, "synthesized from context", resp.SubAnswers[0].Answer)
	require.NotEmpty(t, resp.SubAnswers[0].Citations)
	assert.Equal(t, "install.md", resp.SubAnswers[0].Citations[0].FileName)
}

func TestAskStream_EndToEnd(t *testing.T) {
	deps, _ := testDeps(t, t.TempDir())

	a, err := assistant.New(context.Background(), deps)
	require.NoError(t, err)

	stream, err := a.AskStream(context.Background(), "what is an agent?")
	require.NoError(t, err)

	var b strings.Builder
	for f := range stream {
		require.NoError(t, f.Err)
		b.WriteString(f.Text)
	}
	assert.Equal(t, "final answer", b.String())
}

func TestReindex_ForcesRebuild(t *testing.T) {
	storage := t.TempDir()

	deps, _ := testDeps(t, storage)
	_, err := assistant.New(context.Background(), deps)
	require.NoError(t, err)

	mgr, err := index.NewManager(index.Config{BaseDir: storage}, hashEmbedder{}, zap.NewNop())
	require.NoError(t, err)
	deps.Indexes = mgr

	a, err := assistant.Reindex(context.Background(), deps)
	require.NoError(t, err)

	assert.Equal(t, int64(2), mgr.Rebuilds())
	ix, ok := a.Index("agents")
	require.True(t, ok)
	assert.Equal(t, index.SourceRebuilt, ix.Source())
}

// failingProvider breaks a single category's index bring-up.
type failingProvider struct {
	inner   assistant.IndexProvider
	failKey string
}

func (p *failingProvider) GetIndex(ctx context.Context, cat category.Category, documents []docs.Document) (*index.Index, error) {
	if cat.Key() == p.failKey {
		return nil, errors.New("disk full")
	}
	return p.inner.GetIndex(ctx, cat, documents)
}

func (p *failingProvider) Dir(cat category.Category) string { return p.inner.Dir(cat) }
func (p *failingProvider) Rebuilds() int64                  { return p.inner.Rebuilds() }

func TestNew_AllOrNothing(t *testing.T) {
	deps, mgr := testDeps(t, t.TempDir())
	deps.Indexes = &failingProvider{inner: mgr, failKey: "agents"}

	_, err := assistant.New(context.Background(), deps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

var _ tools.Retriever = (*index.Index)(nil)
var _ router.Engine = (*router.SubQuestionEngine)(nil)
