// Package bundle imports and exports series as YAML bundle files and keeps
// a directory of bundles in sync with the store.
//
// A bundle is one series with everything it owns:
//
//	series:
//	  title: The Drowned Crown
//	  author_id: author-1
//	books:
//	  - book_number: 1
//	    title: Tides
//	characters:
//	  - name: Aria
//	    role: protagonist
//	    first_appears_book: 1
//	arcs:
//	  - arc_name: Betrayal
//	    arc_type: plot
//	    starts_in_book: 2
//	    characters: [Aria]
//	canon_rules:
//	  - rule_name: No resurrection
//	    ...
//
// Field names follow the JSON names of the models. Arcs name their
// characters instead of using ids so bundles stay portable between stores.
package bundle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/saga/internal/apperr"
	"github.com/starford/saga/internal/models"
)

// Bundle is the file representation of a series.
type Bundle struct {
	Series        models.Series         `json:"series"`
	Books         []models.Book         `json:"books"`
	Characters    []models.Character    `json:"characters"`
	WorldElements []models.WorldElement `json:"world_elements"`
	Arcs          []Arc                 `json:"arcs"`
	CanonRules    []models.CanonRule    `json:"canon_rules"`
}

// Arc is a narrative arc that names its characters.
type Arc struct {
	models.NarrativeArc
	Characters []string `json:"characters,omitempty"`
}

// Parse decodes a YAML bundle. Unknown keys are rejected so that typos do
// not silently drop data.
func Parse(data []byte) (*Bundle, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("bundle: yaml: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("bundle: empty document")
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("bundle: convert: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var b Bundle
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("bundle: decode: %w", err)
	}
	return &b, nil
}

type validatable interface {
	Normalize()
	Validate() error
}

// Validate checks every entry the way the store would, before anything is
// written, and that arcs only name characters listed in the bundle.
// Field paths are prefixed with the entry position, as in "books.1.title".
func (b *Bundle) Validate() error {
	fields := make(map[string]string)
	check := func(prefix string, v validatable) error {
		v.Normalize()
		err := apperr.FromValidation(v.Validate())
		if err == nil {
			return nil
		}
		var ve *apperr.ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		for k, msg := range ve.Fields {
			fields[prefix+k] = msg
		}
		return nil
	}

	// Entries are validated as if they already belonged to a series.
	const owner = "bundle"
	series := b.Series
	if err := check("series.", &series); err != nil {
		return err
	}
	for i, book := range b.Books {
		book.SeriesID = owner
		if err := check(fmt.Sprintf("books.%d.", i), &book); err != nil {
			return err
		}
	}
	names := make(map[string]struct{}, len(b.Characters))
	for i, c := range b.Characters {
		c.SeriesID = owner
		if err := check(fmt.Sprintf("characters.%d.", i), &c); err != nil {
			return err
		}
		names[strings.ToLower(c.Name)] = struct{}{}
	}
	for i, w := range b.WorldElements {
		w.SeriesID = owner
		if err := check(fmt.Sprintf("world_elements.%d.", i), &w); err != nil {
			return err
		}
	}
	for i, a := range b.Arcs {
		arc := a.NarrativeArc
		arc.SeriesID = owner
		if err := check(fmt.Sprintf("arcs.%d.", i), &arc); err != nil {
			return err
		}
		for _, name := range a.Characters {
			if _, ok := names[strings.ToLower(strings.TrimSpace(name))]; !ok {
				fields[fmt.Sprintf("arcs.%d.characters", i)] = fmt.Sprintf("unknown character %q", name)
			}
		}
	}
	for i, r := range b.CanonRules {
		r.SeriesID = owner
		if err := check(fmt.Sprintf("canon_rules.%d.", i), &r); err != nil {
			return err
		}
	}
	if len(fields) > 0 {
		return &apperr.ValidationError{Fields: fields}
	}
	return nil
}

// storedKeys are assigned by the store and left out of exported bundles.
var storedKeys = []string{"id", "series_id", "version", "created_at", "updated_at", "character_ids"}

// Marshal encodes b as YAML without store-assigned fields, except the
// series id, which lets a bundle find its series again.
func Marshal(b *Bundle) ([]byte, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("bundle: encode: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("bundle: encode: %w", err)
	}
	if series, ok := doc["series"].(map[string]any); ok {
		id := series["id"]
		strip(series)
		series["id"] = id
	}
	for _, key := range []string{"books", "characters", "world_elements", "arcs", "canon_rules"} {
		items, _ := doc[key].([]any)
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				strip(m)
			}
		}
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("bundle: yaml: %w", err)
	}
	return out, nil
}

func strip(m map[string]any) {
	for _, k := range storedKeys {
		delete(m, k)
	}
	for k, v := range m {
		if v == nil {
			delete(m, k)
		}
	}
}
