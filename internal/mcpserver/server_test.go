package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/saga/internal/canon"
	"github.com/starford/saga/internal/models"
	"github.com/starford/saga/internal/narrative"
	"github.com/starford/saga/internal/testutil"
)

func testServer(t *testing.T) (*Server, *narrative.Service, *models.Series) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := narrative.NewService(testutil.TestDB(t),
		canon.NewEvaluator(canon.NewHeuristic(0), time.Second, logger),
		narrative.WithLogger(logger))
	s, err := svc.CreateSeries(context.Background(), models.Series{AuthorID: "author-1", Title: "The Drowned Crown"})
	if err != nil {
		t.Fatal(err)
	}
	return New(svc), svc, s
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"list_series":                srv.listSeries,
		"compile_generation_context": srv.compileContext,
		"evaluate_canon":             srv.evaluateCanon,
		"search_series":              srv.searchSeries,
		"list_books":                 srv.listBooks,
		"list_characters":            srv.listCharacters,
		"list_world_elements":        srv.listWorldElements,
		"list_arcs":                  srv.listArcs,
		"list_canon_rules":           srv.listCanonRules,
		"create_canon_rule":          srv.createCanonRule,
		"get_context_format":         srv.getContextFormat,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCompileGenerationContext(t *testing.T) {
	srv, svc, s := testServer(t)
	ctx := context.Background()
	for _, c := range []models.Character{
		{Name: "Aria", Role: models.RoleProtagonist, FirstAppearsBook: 1},
		{Name: "Kael", Role: models.RoleAntagonist, FirstAppearsBook: 4},
	} {
		if _, err := svc.CreateCharacter(ctx, s.ID, c); err != nil {
			t.Fatal(err)
		}
	}

	r := callTool(t, srv, "compile_generation_context", map[string]interface{}{
		"series_id": s.ID,
		"book":      float64(2),
	})
	if r.IsError {
		t.Fatalf("compile error: %s", resultText(r))
	}
	var gc models.GenerationContext
	if err := json.Unmarshal([]byte(resultText(r)), &gc); err != nil {
		t.Fatal(err)
	}
	if len(gc.ActiveCharacters) != 1 || gc.ActiveCharacters[0].Name != "Aria" {
		t.Errorf("active characters = %+v, want only Aria", gc.ActiveCharacters)
	}

	r = callTool(t, srv, "compile_generation_context", map[string]interface{}{"series_id": s.ID, "book": float64(0)})
	if !r.IsError {
		t.Error("expected error for book 0")
	}
	r = callTool(t, srv, "compile_generation_context", map[string]interface{}{"series_id": "nope", "book": float64(1)})
	if !r.IsError {
		t.Error("expected error for missing series")
	}
}

func TestCreateRuleAndEvaluate(t *testing.T) {
	srv, _, s := testServer(t)

	r := callTool(t, srv, "create_canon_rule", map[string]interface{}{
		"series_id":         s.ID,
		"rule_name":         "No resurrection",
		"rule_category":     "character",
		"rule_type":         "must_not",
		"lock_level":        "hard",
		"applies_from_book": float64(1),
		"invalid_examples":  []interface{}{"Aria died and returned to life"},
	})
	if r.IsError {
		t.Fatalf("create rule error: %s", resultText(r))
	}
	var rule models.CanonRule
	if err := json.Unmarshal([]byte(resultText(r)), &rule); err != nil {
		t.Fatal(err)
	}
	if len(rule.InvalidExamples) != 1 {
		t.Errorf("invalid examples = %v", rule.InvalidExamples)
	}

	r = callTool(t, srv, "evaluate_canon", map[string]interface{}{
		"series_id": s.ID,
		"book":      float64(3),
		"text":      "Aria died, and returned to life at dawn.",
	})
	var report models.CanonReport
	if err := json.Unmarshal([]byte(resultText(r)), &report); err != nil {
		t.Fatal(err)
	}
	if len(report.Violations) != 1 || report.Violations[0].RuleID != rule.ID {
		t.Errorf("violations = %+v", report.Violations)
	}

	r = callTool(t, srv, "list_canon_rules", map[string]interface{}{"series_id": s.ID})
	if !strings.Contains(resultText(r), "No resurrection") {
		t.Errorf("list rules = %s", resultText(r))
	}
}

func TestCreateRuleValidation(t *testing.T) {
	srv, svc, s := testServer(t)

	r := callTool(t, srv, "create_canon_rule", map[string]interface{}{
		"series_id":         s.ID,
		"rule_name":         "Bad",
		"rule_category":     "character",
		"rule_type":         "sometimes",
		"lock_level":        "hard",
		"applies_from_book": float64(1),
	})
	if !r.IsError {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(resultText(r), "rule_type") {
		t.Errorf("error = %q, want rule_type field", resultText(r))
	}

	for _, until := range []float64{-1, 0, 2} {
		r = callTool(t, srv, "create_canon_rule", map[string]interface{}{
			"series_id":          s.ID,
			"rule_name":          "Short window",
			"rule_category":      "world",
			"rule_type":          "must_not",
			"lock_level":         "hard",
			"applies_from_book":  float64(3),
			"applies_until_book": until,
		})
		if !r.IsError {
			t.Errorf("applies_until_book %v before applies_from_book 3 was accepted: %s", until, resultText(r))
			continue
		}
		if !strings.Contains(resultText(r), "applies_until_book") {
			t.Errorf("error = %q, want applies_until_book field", resultText(r))
		}
	}

	gc, err := svc.CompileGenerationContext(context.Background(), s.ID, 99)
	if err != nil {
		t.Fatal(err)
	}
	if len(gc.CanonRules) != 0 {
		t.Errorf("rules at book 99 = %+v, want none", gc.CanonRules)
	}
}

func TestListTools(t *testing.T) {
	srv, _, s := testServer(t)

	for _, name := range []string{"list_books", "list_characters", "list_world_elements", "list_arcs"} {
		r := callTool(t, srv, name, map[string]interface{}{"series_id": s.ID})
		if r.IsError {
			t.Errorf("%s error: %s", name, resultText(r))
			continue
		}
		if got := resultText(r); got != "[]" {
			t.Errorf("%s = %q, want []", name, got)
		}
	}

	r := callTool(t, srv, "list_characters", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error without series_id")
	}

	r = callTool(t, srv, "list_series", map[string]interface{}{"author_id": "author-1"})
	if !strings.Contains(resultText(r), s.ID) {
		t.Errorf("list series = %s", resultText(r))
	}
}

func TestContextFormat(t *testing.T) {
	srv, _, _ := testServer(t)

	r := callTool(t, srv, "get_context_format", nil)
	if resultText(r) != ContextFormatContract {
		t.Error("contract mismatch")
	}

	contents, err := srv.readContextFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != contextFormatURI {
		t.Errorf("resource = %+v", contents[0])
	}
}

func TestSearchSeries(t *testing.T) {
	srv, svc, s := testServer(t)
	ctx := context.Background()
	w, err := svc.CreateWorldElement(ctx, s.ID, models.WorldElement{
		Name: "Saltspire", ElementType: models.ElementGeography, IntroducedInBook: 1,
		Description: models.Descriptions{Short: "A tower of salt above the drowned city."},
	})
	if err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "search_series", map[string]interface{}{"series_id": s.ID, "query": "Saltspire"})
	if r.IsError {
		t.Fatalf("search error: %s", resultText(r))
	}
	var hits []models.SearchHit
	if err := json.Unmarshal([]byte(resultText(r)), &hits); err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].EntityID != w.ID || hits[0].Kind != "world_element" {
		t.Errorf("hits = %+v", hits)
	}

	r = callTool(t, srv, "search_series", map[string]interface{}{"series_id": s.ID, "query": "  "})
	if !r.IsError {
		t.Error("expected error for blank query")
	}
}
