package docs

import (
	"strings"

	"github.com/google/uuid"
)

// MarkdownReader splits a markdown file into documents: one per header
// section for prose, plus one per fenced code block. Each document carries
// the header trail it appeared under.
type MarkdownReader struct{}

// NewMarkdownReader creates a markdown reader.
func NewMarkdownReader() *MarkdownReader {
	return &MarkdownReader{}
}

type headerFrame struct {
	level int
	title string
}

// Parse extracts documents from one markdown file. fileName is recorded in
// the metadata envelope as-is. Empty sections are skipped; a file with no
// content yields zero documents.
func (r *MarkdownReader) Parse(fileName string, content []byte) []Document {
	var (
		out    []Document
		stack  []headerFrame
		text   strings.Builder
		code   strings.Builder
		inCode bool
	)

	headerPath := func() string {
		titles := make([]string, len(stack))
		for i, f := range stack {
			titles[i] = f.title
		}
		return strings.Join(titles, " / ")
	}

	flushText := func() {
		body := strings.TrimSpace(text.String())
		text.Reset()
		if body == "" {
			return
		}
		out = append(out, newSection(fileName, ContentTypeText, headerPath(), body))
	}

	flushCode := func() {
		body := strings.TrimSpace(code.String())
		code.Reset()
		if body == "" {
			return
		}
		out = append(out, newSection(fileName, ContentTypeCode, headerPath(), body))
	}

	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			if inCode {
				flushCode()
			} else {
				flushText()
			}
			inCode = !inCode
			continue
		}

		if inCode {
			code.WriteString(line)
			code.WriteString("\n")
			continue
		}

		if level, title, ok := parseHeader(trimmed); ok {
			flushText()
			for len(stack) > 0 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, headerFrame{level: level, title: title})
			continue
		}

		text.WriteString(line)
		text.WriteString("\n")
	}

	// An unterminated fence swallows the rest of the file; keep the content.
	if inCode {
		flushCode()
	}
	flushText()

	return out
}

func newSection(fileName, contentType, headerPath, body string) Document {
	return Document{
		ID:   uuid.NewString(),
		Text: body,
		Metadata: map[string]string{
			MetaFileName:    fileName,
			MetaContentType: contentType,
			MetaHeaderPath:  headerPath,
		},
		ExcludedKeys: ExcludedSynthesisKeys(),
	}
}

// parseHeader recognizes ATX headers (# through ######).
func parseHeader(line string) (level int, title string, ok bool) {
	if !strings.HasPrefix(line, "#") {
		return 0, "", false
	}
	level = 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level > 6 {
		return 0, "", false
	}
	rest := line[level:]
	if rest != "" && !strings.HasPrefix(rest, " ") {
		return 0, "", false
	}
	title = strings.TrimSpace(strings.TrimRight(rest, "#"))
	if title == "" {
		return 0, "", false
	}
	return level, title, true
}
