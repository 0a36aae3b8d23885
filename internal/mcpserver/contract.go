package mcpserver

// ContextFormatContract describes the generation context and canon report
// that LLM consumers receive, and how they are expected to use them.
const ContextFormatContract = `# Saga Generation Context Contract

A generation context is compiled for one series at one target book. It holds
only what is true and relevant at that book, so text written from it cannot
leak later events.

## Generation context

` + "```" + `json
{
  "series_id": "…",
  "target_book": 3,
  "series_title": "The Drowned Crown",
  "genre": "fantasy",
  "premise": "…",
  "main_conflict": "…",
  "tone_guidance": "somber",
  "pacing_guidance": "measured",
  "audience": "adult",
  "active_characters": [{"id": "…", "name": "Aria", "role": "protagonist", "status": "active"}],
  "active_arcs": [{"id": "…", "name": "Betrayal", "type": "plot", "status": "rising", "completion_percentage": 40}],
  "canon_rules": [{"id": "…", "rule_name": "No resurrection", "rule_type": "must_not", "lock_level": "hard", "…": "…"}],
  "world_state": {"Saltspire": "A tower of salt above the drowned city."},
  "fingerprint": "sha256 hex"
}
` + "```" + `

## Rules

1. **Scope is the target book.** Characters appear from their first book,
   retired characters stop after their last book, arcs and rules apply only
   inside their book window. Do not mention anything that is not listed.
2. **The planned ending is never included.** Do not guess or foreshadow it.
3. **Canon rules are binding.** ` + "`" + `must_not` + "`" + ` and ` + "`" + `should_not` + "`" + ` rules list forbidden
   situations; their ` + "`" + `invalid_examples` + "`" + ` show what a violation looks like.
4. **Lock levels** set the weight of a rule:
   - ` + "`" + `soft` + "`" + `: a violation is a warning.
   - ` + "`" + `hard` + "`" + `: a violation blocks the text unless the author overrides it with a justification.
   - ` + "`" + `immutable` + "`" + `: a violation rejects the text; no override is possible.
5. **Fingerprint.** Two contexts with the same fingerprint are identical. Compile
   again when the fingerprint you hold is stale.

## Canon report

` + "`" + `evaluate_canon` + "`" + ` returns a report listing each violated rule with its severity and
the matched example. When ` + "`" + `complete` + "`" + ` is false the check timed out or failed; the
report then carries a warning and the blocking rules that could not be verified.
Treat an incomplete report as unverified, never as clean.
`
