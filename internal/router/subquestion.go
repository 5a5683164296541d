package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docsd/internal/tools"
)

var tracer = otel.Tracer("docsd.router")

// DefaultMaxSubQuestions caps how many sub-questions the decomposition may
// produce.
const DefaultMaxSubQuestions = 4

// Config holds router configuration.
type Config struct {
	// MaxSubQuestions caps decomposition output. Defaults to 4.
	MaxSubQuestions int `koanf:"max_sub_questions"`
}

// subQuestion pairs a tool with the question routed to it.
type subQuestion struct {
	Tool     string `json:"tool"`
	Question string `json:"question"`
}

// SubQuestionEngine routes questions across category tools. Decomposition
// and final synthesis go through the language model; retrieval runs inside
// the tools. Safe for concurrent use.
type SubQuestionEngine struct {
	llm         llms.Model
	tools       []*tools.Tool
	toolsByName map[string]*tools.Tool
	maxSubQs    int
	logger      *zap.Logger
}

// NewSubQuestionEngine creates a router over the given tools. Tool order is
// preserved: it determines dispatch order for the fallback path and the
// order of sub-answers in responses.
func NewSubQuestionEngine(llm llms.Model, toolList []*tools.Tool, cfg Config, logger *zap.Logger) (*SubQuestionEngine, error) {
	if llm == nil {
		return nil, fmt.Errorf("llm cannot be nil")
	}
	if len(toolList) == 0 {
		return nil, ErrNoTools
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	maxSubQs := cfg.MaxSubQuestions
	if maxSubQs <= 0 {
		maxSubQs = DefaultMaxSubQuestions
	}

	byName := make(map[string]*tools.Tool, len(toolList))
	for _, t := range toolList {
		if _, dup := byName[t.Name()]; dup {
			return nil, fmt.Errorf("duplicate tool name %q", t.Name())
		}
		byName[t.Name()] = t
	}

	return &SubQuestionEngine{
		llm:         llm,
		tools:       toolList,
		toolsByName: byName,
		maxSubQs:    maxSubQs,
		logger:      logger,
	}, nil
}

// Tools returns the registered tools in dispatch order.
func (e *SubQuestionEngine) Tools() []*tools.Tool {
	out := make([]*tools.Tool, len(e.tools))
	copy(out, e.tools)
	return out
}

// Ask decomposes the question, answers every sub-question, and synthesizes
// the final answer.
func (e *SubQuestionEngine) Ask(ctx context.Context, question string) (*Response, error) {
	ctx, span := tracer.Start(ctx, "SubQuestionEngine.Ask")
	defer span.End()

	subAnswers, err := e.route(ctx, question)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	text, err := e.synthesizeFinal(ctx, question, subAnswers, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("sub_answers", len(subAnswers)))
	span.SetStatus(codes.Ok, "success")
	return &Response{Text: text, SubAnswers: subAnswers}, nil
}

// AskStream is Ask with the final synthesis streamed. Retrieval and
// sub-answer generation complete before the first fragment is emitted.
func (e *SubQuestionEngine) AskStream(ctx context.Context, question string) (<-chan Fragment, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	out := make(chan Fragment)
	go func() {
		defer close(out)

		ctx, span := tracer.Start(ctx, "SubQuestionEngine.AskStream")
		defer span.End()

		// Never block on a consumer that walked away after cancellation.
		fail := func(err error) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			select {
			case out <- Fragment{Err: err}:
			case <-ctx.Done():
			}
		}

		subAnswers, err := e.route(ctx, question)
		if err != nil {
			fail(err)
			return
		}

		emit := func(chunk string) error {
			select {
			case out <- Fragment{Text: chunk}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if _, err := e.synthesizeFinal(ctx, question, subAnswers, emit); err != nil {
			fail(err)
			return
		}
		span.SetStatus(codes.Ok, "success")
	}()
	return out, nil
}

// route decomposes the question and answers every sub-question, preserving
// decomposition order in the returned slice.
func (e *SubQuestionEngine) route(ctx context.Context, question string) ([]SubAnswer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	subQs := e.decompose(ctx, question)

	answers := make([]SubAnswer, len(subQs))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for i, sq := range subQs {
		wg.Add(1)
		go func(i int, sq subQuestion) {
			defer wg.Done()
			tool := e.toolsByName[sq.Tool]
			answer, err := tool.Answer(ctx, sq.Question)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("answering sub-question via %s: %w", sq.Tool, err)
				}
				mu.Unlock()
				return
			}
			answers[i] = SubAnswer{
				Tool:      sq.Tool,
				Question:  sq.Question,
				Answer:    answer.Text,
				Citations: answer.Citations,
			}
		}(i, sq)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return answers, nil
}

// decompose asks the model to split the question into per-tool
// sub-questions. Malformed output never fails a request: when no valid
// sub-question survives parsing, every tool is asked the original question
// in registration order.
func (e *SubQuestionEngine) decompose(ctx context.Context, question string) []subQuestion {
	prompt := e.decomposePrompt(question)

	raw, err := llms.GenerateFromSinglePrompt(ctx, e.llm, prompt, llms.WithTemperature(0))
	if err != nil {
		e.logger.Warn("sub-question decomposition failed, falling back to all tools",
			zap.Error(err))
		return e.fallbackSubQuestions(question)
	}

	subQs := e.parseSubQuestions(raw)
	if len(subQs) == 0 {
		e.logger.Warn("no usable sub-questions in model output, falling back to all tools",
			zap.String("output", raw))
		return e.fallbackSubQuestions(question)
	}
	if len(subQs) > e.maxSubQs {
		subQs = subQs[:e.maxSubQs]
	}

	e.logger.Debug("decomposed question", zap.Int("sub_questions", len(subQs)))
	return subQs
}

// parseSubQuestions extracts the JSON array from the model output and drops
// entries that name an unknown tool or carry an empty question.
func (e *SubQuestionEngine) parseSubQuestions(raw string) []subQuestion {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil
	}

	var parsed []subQuestion
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return nil
	}

	valid := parsed[:0]
	for _, sq := range parsed {
		if strings.TrimSpace(sq.Question) == "" {
			continue
		}
		if _, ok := e.toolsByName[sq.Tool]; !ok {
			continue
		}
		valid = append(valid, sq)
	}
	return valid
}

// fallbackSubQuestions routes the original question to every tool.
func (e *SubQuestionEngine) fallbackSubQuestions(question string) []subQuestion {
	out := make([]subQuestion, len(e.tools))
	for i, t := range e.tools {
		out[i] = subQuestion{Tool: t.Name(), Question: question}
	}
	return out
}

func (e *SubQuestionEngine) decomposePrompt(question string) string {
	var b strings.Builder
	b.WriteString("You route documentation questions to search tools.\n")
	b.WriteString("Available tools:\n")
	for _, t := range e.tools {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name(), t.Description())
	}
	fmt.Fprintf(&b, "\nBreak the user question into at most %d sub-questions, each assigned to the single most relevant tool.\n", e.maxSubQs)
	b.WriteString("Respond with only a JSON array of objects with keys \"tool\" and \"question\".\n\n")
	fmt.Fprintf(&b, "User question: %s\n", question)
	return b.String()
}

// synthesizeFinal merges the sub-answers into one answer. When emit is
// non-nil the model streams through it; the full text is returned either way.
func (e *SubQuestionEngine) synthesizeFinal(ctx context.Context, question string, subAnswers []SubAnswer, emit func(string) error) (string, error) {
	// A single sub-answer needs no merge pass. Replay it through emit so
	// streaming callers still receive fragments.
	if len(subAnswers) == 1 {
		if emit != nil {
			if err := emit(subAnswers[0].Answer); err != nil {
				return "", err
			}
		}
		return subAnswers[0].Answer, nil
	}

	var b strings.Builder
	b.WriteString("Combine the partial answers below into a single coherent answer to the question. Use only the information given.\n\n")
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	for _, sa := range subAnswers {
		fmt.Fprintf(&b, "Sub-question (%s): %s\nAnswer: %s\n\n", sa.Tool, sa.Question, sa.Answer)
	}
	b.WriteString("Final answer:")

	opts := []llms.CallOption{llms.WithTemperature(0)}
	if emit != nil {
		opts = append(opts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			return emit(string(chunk))
		}))
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, e.llm, b.String(), opts...)
	if err != nil {
		return "", fmt.Errorf("synthesizing final answer: %w", err)
	}
	return text, nil
}

var _ Engine = (*SubQuestionEngine)(nil)
