package docs

import (
	"sort"
	"strings"
)

// Metadata keys attached to every document. These are fixed strings; the
// exclusion contract with the synthesis stage is keyed on them byte for byte.
const (
	// MetaFileName is the source file, relative to the category root.
	MetaFileName = "File Name"

	// MetaContentType distinguishes prose ("text") from fenced code ("code").
	MetaContentType = "Content Type"

	// MetaHeaderPath is the header trail leading to the section,
	// e.g. "Installation / From Source".
	MetaHeaderPath = "Header Path"
)

// Content type values for MetaContentType.
const (
	ContentTypeText = "text"
	ContentTypeCode = "code"
)

// ExcludedSynthesisKeys are the metadata keys that must never be forwarded
// into the text given to the language model. They stay on the document for
// citation and display purposes.
func ExcludedSynthesisKeys() []string {
	return []string{MetaFileName, MetaContentType, MetaHeaderPath}
}

// Document is one parsed section of a source file plus its metadata envelope.
type Document struct {
	// ID uniquely identifies the document within its category index.
	ID string

	// Text is the section content.
	Text string

	// Metadata is the envelope attached by the loader. It always carries
	// MetaFileName, MetaContentType and MetaHeaderPath.
	Metadata map[string]string

	// ExcludedKeys lists metadata keys withheld from synthesis text.
	ExcludedKeys []string
}

// SynthesisText renders the text handed to the answer-synthesis stage:
// visible metadata (sorted by key for determinism) followed by the content.
// Keys listed in ExcludedKeys never appear here.
func (d Document) SynthesisText() string {
	excluded := make(map[string]bool, len(d.ExcludedKeys))
	for _, k := range d.ExcludedKeys {
		excluded[k] = true
	}

	visible := make([]string, 0, len(d.Metadata))
	for k := range d.Metadata {
		if !excluded[k] {
			visible = append(visible, k)
		}
	}
	if len(visible) == 0 {
		return d.Text
	}
	sort.Strings(visible)

	var b strings.Builder
	for _, k := range visible {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(d.Metadata[k])
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(d.Text)
	return b.String()
}
