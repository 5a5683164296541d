package tools_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docsd/internal/category"
	"github.com/fyrsmithlabs/docsd/internal/docs"
	"github.com/fyrsmithlabs/docsd/internal/index"
	"github.com/fyrsmithlabs/docsd/internal/tools"
)

// fakeRetriever serves canned results and records the k it was asked for.
type fakeRetriever struct {
	results []index.Result
	err     error
	lastK   int
}

func (f *fakeRetriever) Query(_ context.Context, _ string, k int) ([]index.Result, error) {
	f.lastK = k
	if f.err != nil {
		return nil, f.err
	}
	if k > len(f.results) {
		k = len(f.results)
	}
	return f.results[:k], nil
}

func (f *fakeRetriever) Len() int { return len(f.results) }

// joinSynthesizer answers by joining the contexts, making assertions easy.
type joinSynthesizer struct {
	err   error
	calls int
}

func (s *joinSynthesizer) Synthesize(_ context.Context, question string, contexts []string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return question + " => " + strings.Join(contexts, " | "), nil
}

func sampleCategory(name string) category.Category {
	return category.Category{
		Name:        name,
		Path:        "docs/" + strings.ToLower(name),
		Description: name + " docs",
	}
}

func sampleResults() []index.Result {
	return []index.Result{
		{
			ID:      "r1",
			Content: "Install with the package manager.",
			Score:   0.92,
			Metadata: map[string]string{
				docs.MetaFileName:    "install.md",
				docs.MetaHeaderPath:  "Install / Quick Start",
				docs.MetaContentType: docs.ContentTypeText,
			},
		},
		{
			ID:      "r2",
			Content: "brew install docsd",
			Score:   0.81,
			Metadata: map[string]string{
				docs.MetaFileName:    "install.md",
				docs.MetaHeaderPath:  "Install / Homebrew",
				docs.MetaContentType: docs.ContentTypeCode,
			},
		},
	}
}

func TestTool_NameAndDescription(t *testing.T) {
	cat := sampleCategory("Getting Started")
	tool, err := tools.New(cat, &fakeRetriever{}, &joinSynthesizer{}, tools.Config{}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "Getting Started", tool.Name())
	assert.Equal(t, cat.Description, tool.Description())
	assert.Equal(t, "getting_started", tool.Category().Key())
}

func TestTool_AnswerSynthesizesOverRetrievedSections(t *testing.T) {
	retriever := &fakeRetriever{results: sampleResults()}
	synth := &joinSynthesizer{}
	tool, err := tools.New(sampleCategory("Agents"), retriever, synth, tools.Config{}, zap.NewNop())
	require.NoError(t, err)

	answer, err := tool.Answer(context.Background(), "how do I install?")
	require.NoError(t, err)

	assert.Equal(t, tools.DefaultTopK, retriever.lastK)
	assert.Contains(t, answer.Text, "Install with the package manager.")
	assert.Contains(t, answer.Text, "brew install docsd")

	require.Len(t, answer.Citations, 2)
	assert.Equal(t, "install.md", answer.Citations[0].FileName)
	assert.Equal(t, "Install / Quick Start", answer.Citations[0].HeaderPath)
	assert.Equal(t, docs.ContentTypeCode, answer.Citations[1].ContentType)
}

func TestTool_AnswerHonorsConfiguredTopK(t *testing.T) {
	retriever := &fakeRetriever{results: sampleResults()}
	tool, err := tools.New(sampleCategory("Agents"), retriever, &joinSynthesizer{}, tools.Config{TopK: 1}, zap.NewNop())
	require.NoError(t, err)

	answer, err := tool.Answer(context.Background(), "install?")
	require.NoError(t, err)
	assert.Equal(t, 1, retriever.lastK)
	assert.Len(t, answer.Citations, 1)
}

func TestTool_AnswerEmptyIndexSkipsSynthesizer(t *testing.T) {
	synth := &joinSynthesizer{}
	tool, err := tools.New(sampleCategory("Agents"), &fakeRetriever{}, synth, tools.Config{}, zap.NewNop())
	require.NoError(t, err)

	answer, err := tool.Answer(context.Background(), "anything at all?")
	require.NoError(t, err)
	assert.Equal(t, tools.NoContentAnswer, answer.Text)
	assert.Empty(t, answer.Citations)
	assert.Zero(t, synth.calls)
}

func TestTool_AnswerEmptyQuestion(t *testing.T) {
	tool, err := tools.New(sampleCategory("Agents"), &fakeRetriever{results: sampleResults()}, &joinSynthesizer{}, tools.Config{}, zap.NewNop())
	require.NoError(t, err)

	_, err = tool.Answer(context.Background(), "")
	assert.ErrorIs(t, err, index.ErrInvalidQuery)
}

func TestTool_AnswerPropagatesFailures(t *testing.T) {
	t.Run("retriever", func(t *testing.T) {
		retriever := &fakeRetriever{results: sampleResults(), err: errors.New("store offline")}
		tool, err := tools.New(sampleCategory("Agents"), retriever, &joinSynthesizer{}, tools.Config{}, zap.NewNop())
		require.NoError(t, err)

		_, err = tool.Answer(context.Background(), "install?")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "store offline")
	})

	t.Run("synthesizer", func(t *testing.T) {
		synth := &joinSynthesizer{err: errors.New("llm unavailable")}
		tool, err := tools.New(sampleCategory("Agents"), &fakeRetriever{results: sampleResults()}, synth, tools.Config{}, zap.NewNop())
		require.NoError(t, err)

		_, err = tool.Answer(context.Background(), "install?")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "llm unavailable")
	})
}

func TestBuild_RegistryOrder(t *testing.T) {
	names := []string{"Getting Started", "Agents", "Data Modules"}
	cats := make([]category.Category, len(names))
	indexes := make(map[string]tools.Retriever, len(names))
	for i, n := range names {
		cats[i] = sampleCategory(n)
		indexes[cats[i].Key()] = &fakeRetriever{results: sampleResults()}
	}
	reg, err := category.NewRegistry(cats)
	require.NoError(t, err)

	built, err := tools.Build(reg, indexes, &joinSynthesizer{}, tools.Config{}, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, built, 3)

	var got []string
	for _, tool := range built {
		got = append(got, tool.Name())
	}
	assert.Equal(t, names, got)

	for i := 0; i < 5; i++ {
		again, err := tools.Build(reg, indexes, &joinSynthesizer{}, tools.Config{}, zap.NewNop())
		require.NoError(t, err)
		for j, tool := range again {
			assert.Equal(t, got[j], tool.Name())
		}
	}
}

func TestBuild_MissingIndexFails(t *testing.T) {
	reg, err := category.NewRegistry([]category.Category{sampleCategory("Agents")})
	require.NoError(t, err)

	_, err = tools.Build(reg, map[string]tools.Retriever{}, &joinSynthesizer{}, tools.Config{}, zap.NewNop())
	require.Error(t, err)
	assert.Equal(t, "no index for category Agents", fmt.Sprint(err))
}
