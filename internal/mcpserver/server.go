// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Saga tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/saga/internal/models"
	"github.com/starford/saga/internal/narrative"
)

const contextFormatURI = "saga://context-format"

// Server wraps the MCP server with Saga tools.
type Server struct {
	mcp *server.MCPServer
	svc *narrative.Service
}

// New creates a new MCP server with all Saga tools registered.
func New(svc *narrative.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Saga",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	seriesArg := mcp.WithString("series_id", mcp.Required(), mcp.Description("Series ID"))

	s.mcp.AddTool(mcp.NewTool("list_series",
		mcp.WithDescription("List series, optionally only those of one author."),
		mcp.WithString("author_id", mcp.Description("Optional author filter")),
	), s.listSeries)

	s.mcp.AddTool(mcp.NewTool("compile_generation_context",
		mcp.WithDescription("Compile the generation context for a series at a target book. "+
			"Only characters, arcs, rules and world facts valid at that book are included. "+
			"Read the contract via get_context_format or the "+contextFormatURI+" resource."),
		seriesArg,
		mcp.WithNumber("book", mcp.Required(), mcp.Description("Target book number, 1 or greater")),
	), s.compileContext)

	s.mcp.AddTool(mcp.NewTool("evaluate_canon",
		mcp.WithDescription("Check a passage against the canon rules that apply at a target book. "+
			"Returns violations with their severity; an incomplete report means the check could not finish."),
		seriesArg,
		mcp.WithNumber("book", mcp.Required(), mcp.Description("Target book number, 1 or greater")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Passage to check")),
	), s.evaluateCanon)

	s.mcp.AddTool(mcp.NewTool("search_series",
		mcp.WithDescription("Full-text search over the names and descriptions of a series' entities."),
		seriesArg,
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.searchSeries)

	s.mcp.AddTool(mcp.NewTool("list_books",
		mcp.WithDescription("List the books of a series."),
		seriesArg,
	), s.listBooks)

	s.mcp.AddTool(mcp.NewTool("list_characters",
		mcp.WithDescription("List every character of a series, regardless of book."),
		seriesArg,
	), s.listCharacters)

	s.mcp.AddTool(mcp.NewTool("list_world_elements",
		mcp.WithDescription("List the world elements of a series, including inactive ones."),
		seriesArg,
	), s.listWorldElements)

	s.mcp.AddTool(mcp.NewTool("list_arcs",
		mcp.WithDescription("List the narrative arcs of a series."),
		seriesArg,
	), s.listArcs)

	s.mcp.AddTool(mcp.NewTool("list_canon_rules",
		mcp.WithDescription("List the canon rules of a series."),
		seriesArg,
	), s.listCanonRules)

	s.mcp.AddTool(mcp.NewTool("create_canon_rule",
		mcp.WithDescription("Add a canon rule to a series."),
		seriesArg,
		mcp.WithString("rule_name", mcp.Required(), mcp.Description("Short rule name")),
		mcp.WithString("rule_category", mcp.Required(),
			mcp.Enum("character", "world", "plot", "timeline", "relationship", "system")),
		mcp.WithString("rule_type", mcp.Required(), mcp.Enum("must", "must_not", "should", "should_not", "may")),
		mcp.WithString("lock_level", mcp.Required(), mcp.Enum("soft", "hard", "immutable")),
		mcp.WithNumber("applies_from_book", mcp.Required(), mcp.Description("First book the rule applies to")),
		mcp.WithNumber("applies_until_book", mcp.Description("Last book the rule applies to; omit for open-ended")),
		mcp.WithString("rule_description", mcp.Description("What the rule means")),
		mcp.WithString("violation_message", mcp.Description("Message shown when the rule is violated")),
		mcp.WithArray("invalid_examples", mcp.Description("Passages that violate the rule"),
			mcp.Items(map[string]any{"type": "string"})),
		mcp.WithArray("valid_examples", mcp.Description("Passages that respect the rule"),
			mcp.Items(map[string]any{"type": "string"})),
	), s.createCanonRule)

	s.mcp.AddTool(mcp.NewTool("get_context_format",
		mcp.WithDescription("Returns the Saga generation context contract. "+
			"Call this before writing from a compiled context."),
	), s.getContextFormat)

	// Resource: generation context contract.
	s.mcp.AddResource(
		mcp.NewResource(contextFormatURI, "Generation Context Contract",
			mcp.WithResourceDescription("How generation contexts and canon reports are structured and used."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContextFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// jsonResult renders v as indented JSON text, or err as a tool error.
func jsonResult(v any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listSeries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.ListSeries(ctx, req.GetString("author_id", "")))
}

func (s *Server) compileContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seriesID, err := req.RequireString("series_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	book, err := req.RequireInt("book")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.CompileGenerationContext(ctx, seriesID, book))
}

func (s *Server) evaluateCanon(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seriesID, err := req.RequireString("series_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	book, err := req.RequireInt("book")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.EvaluateText(ctx, seriesID, book, text))
}

func (s *Server) searchSeries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seriesID, err := req.RequireString("series_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.SearchSeries(ctx, seriesID, query, req.GetInt("limit", 0)))
}

func (s *Server) listBooks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seriesID, err := req.RequireString("series_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.GetSeriesBooks(ctx, seriesID))
}

func (s *Server) listCharacters(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seriesID, err := req.RequireString("series_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.GetSeriesCharacters(ctx, seriesID))
}

func (s *Server) listWorldElements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seriesID, err := req.RequireString("series_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.GetWorldElements(ctx, seriesID))
}

func (s *Server) listArcs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seriesID, err := req.RequireString("series_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.GetNarrativeArcs(ctx, seriesID))
}

func (s *Server) listCanonRules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seriesID, err := req.RequireString("series_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.GetCanonRules(ctx, seriesID))
}

func (s *Server) createCanonRule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seriesID, err := req.RequireString("series_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("rule_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	from, err := req.RequireInt("applies_from_book")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rule := models.CanonRule{
		RuleName:         name,
		RuleCategory:     models.RuleCategory(req.GetString("rule_category", "")),
		RuleType:         models.RuleType(req.GetString("rule_type", "")),
		LockLevel:        models.LockLevel(req.GetString("lock_level", "")),
		AppliesFromBook:  from,
		RuleDescription:  req.GetString("rule_description", ""),
		ViolationMessage: req.GetString("violation_message", ""),
		InvalidExamples:  req.GetStringSlice("invalid_examples", nil),
		ValidExamples:    req.GetStringSlice("valid_examples", nil),
	}
	// Any given end book is kept so validation can reject a window that
	// closes before it opens.
	if v, ok := req.GetArguments()["applies_until_book"]; ok && v != nil {
		until, err := req.RequireInt("applies_until_book")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		rule.AppliesUntilBook = models.IntPtr(until)
	}
	return jsonResult(s.svc.CreateCanonRule(ctx, seriesID, rule))
}

func (s *Server) getContextFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ContextFormatContract), nil
}

func (s *Server) readContextFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contextFormatURI,
			MIMEType: "text/markdown",
			Text:     ContextFormatContract,
		},
	}, nil
}
