package llmcheck

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/saga/internal/models"
)

func fakeCompletions(t *testing.T, content string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

var rules = []models.CanonRule{
	{ID: "r1", RuleName: "No resurrection", RuleType: models.RuleMustNot, LockLevel: models.LockHard,
		InvalidExamples: []string{"Aria died and returned to life"}},
}

func TestCheck_ParsesVerdict(t *testing.T) {
	var req map[string]any
	srv := fakeCompletions(t,
		`{"violations":[{"rule_id":"r1","evidence":"she returned to life"},{"rule_id":"made-up","evidence":"x"}]}`, &req)

	c := New(Config{APIKey: "test", BaseURL: srv.URL + "/v1/"})
	got, err := c.Check(context.Background(), rules, "Aria returned to life.")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].RuleID)
	assert.Equal(t, "she returned to life", got[0].MatchedExample)

	format, _ := req["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, string(DefaultModel), req["model"])
}

func TestCheck_BadJSON(t *testing.T) {
	srv := fakeCompletions(t, "not json", nil)
	_, err := New(Config{APIKey: "test", BaseURL: srv.URL + "/v1/"}).Check(context.Background(), rules, "text")
	assert.Error(t, err)
}

func TestCheck_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad request","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	_, err := New(Config{APIKey: "test", BaseURL: srv.URL + "/v1/"}).Check(context.Background(), rules, "text")
	assert.Error(t, err)
}

func TestSystemPromptListsRules(t *testing.T) {
	p := systemPrompt(rules)
	assert.Contains(t, p, "id=r1")
	assert.Contains(t, p, `violating_example="Aria died and returned to life"`)
}
