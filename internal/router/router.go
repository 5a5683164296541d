// Package router decomposes a documentation question into per-category
// sub-questions, dispatches each to its query tool, and synthesizes the
// sub-answers into one final answer, optionally streamed.
package router

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/docsd/internal/tools"
)

// Sentinel errors for the router.
var (
	// ErrNoTools indicates an engine was constructed without any tools.
	ErrNoTools = errors.New("router: no tools registered")

	// ErrEmptyQuestion indicates an empty question.
	ErrEmptyQuestion = errors.New("router: question cannot be empty")
)

// Fragment is one streamed piece of a final answer. A closed channel marks
// the end of the stream; a Fragment with Err set is terminal.
type Fragment struct {
	Text string
	Err  error
}

// SubAnswer is the answer one tool gave to one sub-question.
type SubAnswer struct {
	Tool      string           `json:"tool"`
	Question  string           `json:"question"`
	Answer    string           `json:"answer"`
	Citations []tools.Citation `json:"citations,omitempty"`
}

// Response is a complete routed answer.
type Response struct {
	Text       string      `json:"text"`
	SubAnswers []SubAnswer `json:"sub_answers,omitempty"`
}

// Engine answers documentation questions.
type Engine interface {
	// Ask returns the complete answer.
	Ask(ctx context.Context, question string) (*Response, error)

	// AskStream streams the final answer as it is generated. Construction
	// and validation errors are returned directly; failures after that
	// arrive as a terminal Fragment with Err set.
	AskStream(ctx context.Context, question string) (<-chan Fragment, error)
}
