// Package mcp exposes the documentation assistant over the Model Context
// Protocol: one ask tool routed across every category, plus a direct search
// tool per category.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docsd/internal/assistant"
	"github.com/fyrsmithlabs/docsd/internal/router"
	"github.com/fyrsmithlabs/docsd/internal/tools"
)

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "docsd").
	Name string

	// Version is the server version (default: "dev").
	Version string

	// Logger for structured logging.
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "docsd",
		Version: "dev",
		Logger:  zap.NewNop(),
	}
}

// Server serves the assistant over MCP stdio.
type Server struct {
	mcp       *mcp.Server
	assistant *assistant.Assistant
	logger    *zap.Logger
}

// NewServer creates an MCP server over a ready assistant.
func NewServer(cfg *Config, a *assistant.Assistant) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if a == nil {
		return nil, fmt.Errorf("assistant is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		nil,
	)

	s := &Server{
		mcp:       mcpServer,
		assistant: a,
		logger:    logger,
	}
	s.registerAskTool()
	s.registerCategoryTools()
	s.registerListTool()
	return s, nil
}

// Run serves MCP over stdio until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio")
	transport := &mcp.StdioTransport{}
	if err := s.mcp.Run(ctx, transport); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

type askInput struct {
	Question string `json:"question" jsonschema:"required,The documentation question to answer. It is decomposed into per-category sub-questions automatically."`
}

type askOutput struct {
	Answer     string             `json:"answer" jsonschema:"The synthesized answer"`
	SubAnswers []router.SubAnswer `json:"sub_answers,omitempty" jsonschema:"Per-category sub-answers with citations"`
}

func (s *Server) registerAskTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "ask_docs",
		Description: "Answer a documentation question by routing it across every documentation category and merging the results",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args askInput) (*mcp.CallToolResult, askOutput, error) {
		resp, err := s.assistant.Ask(ctx, args.Question)
		if err != nil {
			s.logger.Warn("ask_docs failed", zap.Error(err))
			return nil, askOutput{}, err
		}
		return nil, askOutput{Answer: resp.Text, SubAnswers: resp.SubAnswers}, nil
	})
}

type searchInput struct {
	Question string `json:"question" jsonschema:"required,The question to answer from this category's documentation"`
}

type searchOutput struct {
	Answer    string           `json:"answer" jsonschema:"The synthesized answer"`
	Citations []tools.Citation `json:"citations,omitempty" jsonschema:"Source files and header paths the answer was grounded on"`
}

// registerCategoryTools adds one search tool per category, in registry
// order so clients always see a stable tool list. MCP tool names must be
// machine-safe, so search_<category key> stands in for the display name.
func (s *Server) registerCategoryTools() {
	for _, tool := range s.assistant.Tools() {
		tool := tool
		name := "search_" + tool.Category().Key()
		mcp.AddTool(s.mcp, &mcp.Tool{
			Name:        name,
			Description: tool.Description(),
		}, func(ctx context.Context, req *mcp.CallToolRequest, args searchInput) (*mcp.CallToolResult, searchOutput, error) {
			answer, err := tool.Answer(ctx, args.Question)
			if err != nil {
				s.logger.Warn("category search failed",
					zap.String("tool", name),
					zap.Error(err))
				return nil, searchOutput{}, err
			}
			return nil, searchOutput{Answer: answer.Text, Citations: answer.Citations}, nil
		})
	}
}

type listInput struct{}

type categoryInfo struct {
	Name        string `json:"name" jsonschema:"Display name"`
	Key         string `json:"key" jsonschema:"Stable key, also the suffix of the search tool name"`
	Description string `json:"description" jsonschema:"What the category covers"`
	Documents   int    `json:"documents" jsonschema:"Number of indexed sections"`
}

type listOutput struct {
	Categories []categoryInfo `json:"categories"`
}

func (s *Server) registerListTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_categories",
		Description: "List the documentation categories and how many sections each index holds",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listInput) (*mcp.CallToolResult, listOutput, error) {
		cats := s.assistant.Registry().Categories()
		out := listOutput{Categories: make([]categoryInfo, 0, len(cats))}
		for _, cat := range cats {
			info := categoryInfo{
				Name:        cat.Name,
				Key:         cat.Key(),
				Description: cat.Description,
			}
			if ix, ok := s.assistant.Index(cat.Key()); ok {
				info.Documents = ix.Len()
			}
			out.Categories = append(out.Categories, info)
		}
		return nil, out, nil
	})
}
