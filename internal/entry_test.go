package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/saga/internal/bundle"
	"github.com/starford/saga/internal/models"
)

const testBundle = `series:
  title: Ember Road
  author_id: author-1
books:
  - book_number: 1
    title: Kindling
  - book_number: 2
    title: Wildfire
characters:
  - name: Mira
    role: protagonist
    first_appears_book: 1
  - name: Tollan
    role: supporting
    first_appears_book: 2
`

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.SQLite.Path = filepath.Join(dir, "saga.db")
	cfg.Bundles.Path = filepath.Join(dir, "bundles")
	if err := os.MkdirAll(cfg.Bundles.Path, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Bundles.Path, "ember.yaml"), []byte(testBundle), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestImportCompileExport(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	var out bytes.Buffer
	if err := Import(ctx, "", WithConfig(cfg), WithOutput(&out), WithLogOutput(io.Discard)); err != nil {
		t.Fatalf("import: %v", err)
	}
	var results []bundle.Result
	if err := json.Unmarshal(out.Bytes(), &results); err != nil {
		t.Fatalf("decode import output: %v", err)
	}
	if len(results) != 1 || !results[0].SeriesCreated {
		t.Fatalf("results = %+v, want one created series", results)
	}
	seriesID := results[0].SeriesID

	out.Reset()
	if err := Compile(ctx, seriesID, 1, WithConfig(cfg), WithOutput(&out), WithLogOutput(io.Discard)); err != nil {
		t.Fatalf("compile: %v", err)
	}
	var gc models.GenerationContext
	if err := json.Unmarshal(out.Bytes(), &gc); err != nil {
		t.Fatalf("decode context: %v", err)
	}
	if len(gc.ActiveCharacters) != 1 || gc.ActiveCharacters[0].Name != "Mira" {
		t.Errorf("active characters = %+v, want only Mira", gc.ActiveCharacters)
	}

	if err := Export(ctx, seriesID, "exports/ember.yaml", WithConfig(cfg), WithLogOutput(io.Discard)); err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Bundles.Path, "exports", "ember.yaml")); err != nil {
		t.Fatalf("exported file missing: %v", err)
	}
}

func TestImport_SecondSyncIsNoop(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	if err := Import(ctx, "", WithConfig(cfg), WithOutput(io.Discard), WithLogOutput(io.Discard)); err != nil {
		t.Fatalf("first import: %v", err)
	}
	var out bytes.Buffer
	if err := Import(ctx, "", WithConfig(cfg), WithOutput(&out), WithLogOutput(io.Discard)); err != nil {
		t.Fatalf("second import: %v", err)
	}
	var results []bundle.Result
	if err := json.Unmarshal(out.Bytes(), &results); err != nil {
		t.Fatalf("decode import output: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %+v, want none", results)
	}
}

func TestImport_RequiresBundlePath(t *testing.T) {
	cfg := testConfig(t)
	cfg.Bundles.Path = ""
	err := Import(context.Background(), "", WithConfig(cfg), WithOutput(io.Discard), WithLogOutput(io.Discard))
	if err == nil {
		t.Fatal("import without bundles path should fail")
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err != errConfigRequired {
		t.Fatalf("err = %v, want %v", err, errConfigRequired)
	}
}
