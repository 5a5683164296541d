// Package category defines the documentation categories docsd partitions its
// corpus into, and the ordered registry that is the single source of truth for
// category identity.
//
// Registry order is load-bearing: it determines the order tools are presented
// to the question router, which may use it as a tie-break signal.
package category

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for registry construction.
var (
	// ErrEmptyRegistry is returned when no categories are configured.
	ErrEmptyRegistry = errors.New("at least one category is required")

	// ErrDuplicateName is returned when two categories share a name.
	ErrDuplicateName = errors.New("duplicate category name")

	// ErrInvalidCategory indicates a category with missing fields.
	ErrInvalidCategory = errors.New("invalid category")
)

// Category identifies one documentation subtree.
type Category struct {
	// Name is the unique, stable identifier. It doubles as the display name
	// and, via Key, as the persistence-directory key.
	Name string

	// Path is the filesystem location of the category's source documents.
	Path string

	// Description is the natural-language tool description the router uses
	// to decide relevance.
	Description string
}

// Key returns the persistence key derived from the category name: lowercased,
// with runs of non-alphanumeric characters collapsed to a single underscore.
// "Getting Started" becomes "getting_started".
func (c Category) Key() string {
	var b strings.Builder
	b.Grow(len(c.Name))
	pendingSep := false
	for _, r := range strings.ToLower(c.Name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	return b.String()
}

// Validate checks that all required fields are set.
func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCategory)
	}
	if c.Key() == "" {
		return fmt.Errorf("%w: name %q yields an empty persistence key", ErrInvalidCategory, c.Name)
	}
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("%w: source path is required for %q", ErrInvalidCategory, c.Name)
	}
	if strings.TrimSpace(c.Description) == "" {
		return fmt.Errorf("%w: description is required for %q", ErrInvalidCategory, c.Name)
	}
	return nil
}

// Registry is a fixed, ordered collection of categories. It is immutable
// after construction; the category set never changes at runtime.
type Registry struct {
	categories []Category
	byName     map[string]int
}

// NewRegistry builds a registry from categories in declaration order.
func NewRegistry(categories []Category) (*Registry, error) {
	if len(categories) == 0 {
		return nil, ErrEmptyRegistry
	}

	byName := make(map[string]int, len(categories))
	byKey := make(map[string]string, len(categories))
	for i, c := range categories {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, exists := byName[c.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, c.Name)
		}
		// Distinct names may still collide after key normalization; that
		// would make two categories share a persistence directory.
		if other, exists := byKey[c.Key()]; exists {
			return nil, fmt.Errorf("%w: %q and %q share persistence key %q",
				ErrDuplicateName, other, c.Name, c.Key())
		}
		byName[c.Name] = i
		byKey[c.Key()] = c.Name
	}

	return &Registry{
		categories: append([]Category(nil), categories...),
		byName:     byName,
	}, nil
}

// Categories returns the categories in declaration order. The returned slice
// is a copy; mutating it does not affect the registry.
func (r *Registry) Categories() []Category {
	return append([]Category(nil), r.categories...)
}

// Get returns the category with the given name.
func (r *Registry) Get(name string) (Category, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Category{}, false
	}
	return r.categories[i], true
}

// Len returns the number of categories.
func (r *Registry) Len() int {
	return len(r.categories)
}
