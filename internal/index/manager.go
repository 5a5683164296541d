// Package index manages the lifecycle of per-category vector indexes: each
// category gets its own persistent chromem store under the base directory,
// reused across restarts when its manifest still matches the configured
// embedding model and rebuilt from source documents otherwise.
package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docsd/internal/category"
	"github.com/fyrsmithlabs/docsd/internal/docs"
	"github.com/fyrsmithlabs/docsd/internal/embeddings"
)

var tracer = otel.Tracer("docsd.index")

// collectionName is the fixed collection inside every per-category store.
// One category maps to one directory maps to one collection.
const collectionName = "docs"

// dirSuffix is appended to the category key to form the index directory.
const dirSuffix = "_index"

// Config holds index manager configuration.
type Config struct {
	// BaseDir is the directory under which per-category index directories
	// are created. Defaults to the working directory, giving
	// ./getting_started_index and friends.
	BaseDir string `koanf:"base_dir"`

	// Compress enables gzip compression of the persisted store.
	Compress bool `koanf:"compress"`
}

// NewDefaultConfig returns the default index manager configuration.
func NewDefaultConfig() Config {
	return Config{BaseDir: "."}
}

// Manager builds and loads per-category indexes. It is safe for concurrent
// use; categories are independent and never share a store.
type Manager struct {
	baseDir  string
	compress bool
	embedder embeddings.Provider
	logger   *zap.Logger
	rebuilds atomic.Int64
}

// NewManager creates an index manager rooted at cfg.BaseDir.
func NewManager(cfg Config, embedder embeddings.Provider, logger *zap.Logger) (*Manager, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	baseDir := cfg.BaseDir
	if baseDir == "" {
		baseDir = NewDefaultConfig().BaseDir
	}
	return &Manager{
		baseDir:  baseDir,
		compress: cfg.Compress,
		embedder: embedder,
		logger:   logger,
	}, nil
}

// Dir returns the persistence directory for a category.
func (m *Manager) Dir(cat category.Category) string {
	return filepath.Join(m.baseDir, cat.Key()+dirSuffix)
}

// Rebuilds returns how many indexes have been rebuilt from documents over
// the manager's lifetime. A warm restart with intact snapshots reports 0.
func (m *Manager) Rebuilds() int64 {
	return m.rebuilds.Load()
}

// GetIndex returns a ready index for the category, loading the persisted
// snapshot when it is present and valid and rebuilding from documents
// otherwise. Rebuilding replaces the category's directory wholesale; other
// categories are never touched. Every returned error names the category.
func (m *Manager) GetIndex(ctx context.Context, cat category.Category, documents []docs.Document) (*Index, error) {
	ctx, span := tracer.Start(ctx, "Manager.GetIndex")
	defer span.End()

	span.SetAttributes(
		attribute.String("category", cat.Name),
		attribute.Int("document_count", len(documents)),
	)

	ix, err := m.loadSnapshot(ctx, cat)
	if err == nil {
		m.logger.Info("loaded persisted index",
			zap.String("category", cat.Name),
			zap.Int("documents", ix.Len()))
		span.SetAttributes(attribute.String("source", string(SourceLoaded)))
		span.SetStatus(codes.Ok, "success")
		return ix, nil
	}
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	m.logger.Info("rebuilding index",
		zap.String("category", cat.Name),
		zap.String("reason", err.Error()))
	m.rebuilds.Add(1)

	ix, err = m.build(ctx, cat, documents)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	m.logger.Info("rebuilt index",
		zap.String("category", cat.Name),
		zap.Int("documents", ix.Len()))
	span.SetAttributes(attribute.String("source", string(SourceRebuilt)))
	span.SetStatus(codes.Ok, "success")
	return ix, nil
}

// loadSnapshot attempts to restore a persisted index. Every defect on this
// path, from a missing directory to a corrupt store, comes back wrapped in
// ErrSnapshotMiss so the caller falls through to a rebuild.
func (m *Manager) loadSnapshot(_ context.Context, cat category.Category) (*Index, error) {
	dir := m.Dir(cat)

	man, err := readManifest(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotMiss, err)
	}
	if man.FormatVersion != manifestVersion {
		return nil, fmt.Errorf("%w: format version %d, want %d", ErrSnapshotMiss, man.FormatVersion, manifestVersion)
	}
	if man.Model != m.embedder.Model() {
		return nil, fmt.Errorf("%w: embedding model %q, want %q", ErrSnapshotMiss, man.Model, m.embedder.Model())
	}
	if man.Dimension != m.embedder.Dimension() {
		return nil, fmt.Errorf("%w: embedding dimension %d, want %d", ErrSnapshotMiss, man.Dimension, m.embedder.Dimension())
	}

	if man.Documents == 0 {
		// A valid snapshot of an empty category: manifest only, no store.
		return &Index{category: cat, source: SourceLoaded}, nil
	}

	db, err := chromem.NewPersistentDB(dir, m.compress)
	if err != nil {
		return nil, fmt.Errorf("%w: opening store: %v", ErrSnapshotMiss, err)
	}

	// Must pass an embedding function: chromem-go installs its OpenAI
	// default for persisted collections when nil is passed.
	col := db.GetCollection(collectionName, m.embedQueryFunc())
	if col == nil {
		return nil, fmt.Errorf("%w: collection %q not found", ErrSnapshotMiss, collectionName)
	}
	if count := col.Count(); count != man.Documents {
		return nil, fmt.Errorf("%w: store holds %d documents, manifest says %d", ErrSnapshotMiss, count, man.Documents)
	}

	return &Index{
		category:   cat,
		collection: col,
		source:     SourceLoaded,
		docCount:   man.Documents,
	}, nil
}

// build embeds the documents and persists a fresh index, replacing whatever
// was in the category's directory.
func (m *Manager) build(ctx context.Context, cat category.Category, documents []docs.Document) (*Index, error) {
	dir := m.Dir(cat)

	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("%w: clearing %s index directory: %v", ErrPersistFailed, cat.Name, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating %s index directory: %v", ErrPersistFailed, cat.Name, err)
	}

	man := &manifest{
		FormatVersion: manifestVersion,
		Category:      cat.Name,
		Model:         m.embedder.Model(),
		Dimension:     m.embedder.Dimension(),
		Documents:     len(documents),
		CreatedAt:     time.Now().UTC(),
	}

	if len(documents) == 0 {
		if err := writeManifest(dir, man); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrPersistFailed, cat.Name, err)
		}
		return &Index{category: cat, source: SourceRebuilt}, nil
	}

	texts := make([]string, len(documents))
	for i, doc := range documents {
		texts[i] = doc.SynthesisText()
	}
	vectors, err := m.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding %s documents: %v", ErrBuildFailed, cat.Name, err)
	}
	if len(vectors) != len(documents) {
		return nil, fmt.Errorf("%w: embedded %d of %d %s documents", ErrBuildFailed, len(vectors), len(documents), cat.Name)
	}

	db, err := chromem.NewPersistentDB(dir, m.compress)
	if err != nil {
		return nil, fmt.Errorf("%w: creating %s store: %v", ErrPersistFailed, cat.Name, err)
	}
	col, err := db.GetOrCreateCollection(collectionName, nil, m.embedQueryFunc())
	if err != nil {
		return nil, fmt.Errorf("%w: creating %s collection: %v", ErrPersistFailed, cat.Name, err)
	}

	chromemDocs := make([]chromem.Document, len(documents))
	for i, doc := range documents {
		id := doc.ID
		if id == "" {
			id = uuid.NewString()
		}
		chromemDocs[i] = chromem.Document{
			ID: id,
			// Content is the synthesis rendering so query hits are already
			// stripped of excluded envelope keys. The full envelope stays
			// in Metadata for citations.
			Content:   texts[i],
			Metadata:  doc.Metadata,
			Embedding: vectors[i],
		}
	}

	// Concurrency of 1 since the embeddings are already computed.
	if err := col.AddDocuments(ctx, chromemDocs, 1); err != nil {
		return nil, fmt.Errorf("%w: persisting %s documents: %v", ErrPersistFailed, cat.Name, err)
	}

	if err := writeManifest(dir, man); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPersistFailed, cat.Name, err)
	}

	return &Index{
		category:   cat,
		collection: col,
		source:     SourceRebuilt,
		docCount:   len(documents),
	}, nil
}

// embedQueryFunc adapts the provider to chromem's embedding function,
// used for query-time embedding.
func (m *Manager) embedQueryFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return m.embedder.EmbedQuery(ctx, text)
	}
}
