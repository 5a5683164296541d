// Package docs loads a category's source documents from disk.
//
// The loader walks a category's source directory recursively, parses files
// of the recognized documentation format (markdown) into per-section
// documents, and attaches the metadata envelope every downstream stage
// relies on. Files of any other type are silently skipped.
package docs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docsd/internal/category"
)

// DocExtension is the recognized documentation format.
const DocExtension = ".md"

// ErrSourceMissing is returned when a configured category's source path does
// not exist or is not a directory. This is fatal: a silently empty category
// would narrow router coverage with no signal.
var ErrSourceMissing = errors.New("category source path missing")

// Loader loads markdown documents for categories.
type Loader struct {
	reader *MarkdownReader
	logger *zap.Logger
}

// NewLoader creates a loader.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		reader: NewMarkdownReader(),
		logger: logger,
	}
}

// Load returns the documents for one category, in directory-walk order then
// in-file order. A category with no matching files yields an empty, non-nil
// slice; a missing source directory is an error.
func (l *Loader) Load(ctx context.Context, cat category.Category) ([]Document, error) {
	info, err := os.Stat(cat.Path)
	if err != nil {
		return nil, fmt.Errorf("category %q: %w: %v", cat.Name, ErrSourceMissing, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("category %q: %w: %s is not a directory", cat.Name, ErrSourceMissing, cat.Path)
	}

	documents := make([]Document, 0)
	err = filepath.WalkDir(cat.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !strings.EqualFold(filepath.Ext(path), DocExtension) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		relPath, err := filepath.Rel(cat.Path, path)
		if err != nil {
			return fmt.Errorf("computing relative path for %s: %w", path, err)
		}

		documents = append(documents, l.reader.Parse(relPath, content)...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading category %q: %w", cat.Name, err)
	}

	l.logger.Debug("loaded category documents",
		zap.String("category", cat.Name),
		zap.String("path", cat.Path),
		zap.Int("documents", len(documents)),
	)

	return documents, nil
}
