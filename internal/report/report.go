// Package report renders the outcome of a validation or import run in a
// machine-readable form.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mvp-joe/ldraw-import/internal/diag"
	"github.com/mvp-joe/ldraw-import/internal/model"
	"github.com/mvp-joe/ldraw-import/internal/registry"
	"github.com/mvp-joe/ldraw-import/internal/scene"
	"github.com/mvp-joe/ldraw-import/internal/session"
	"gopkg.in/yaml.v3"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatYAML:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown format %q (want json or yaml)", s)
	}
}

// Report is the serializable outcome of a run.
type Report struct {
	Session  string                `json:"session" yaml:"session"`
	File     string                `json:"file" yaml:"file"`
	Library  string                `json:"library,omitempty" yaml:"library,omitempty"`
	MPD      bool                  `json:"mpd" yaml:"mpd"`
	Summary  registry.Summary      `json:"summary" yaml:"summary"`
	Parts    []registry.UniquePart `json:"parts" yaml:"parts"`
	Models   []Model               `json:"models,omitempty" yaml:"models,omitempty"`
	Dropped  []model.DroppedRef    `json:"dropped,omitempty" yaml:"dropped,omitempty"`
	Concerns []session.Concern     `json:"concerns,omitempty" yaml:"concerns,omitempty"`
	Plan     []scene.Op            `json:"plan,omitempty" yaml:"plan,omitempty"`
	Diags    Diagnostics           `json:"diagnostics" yaml:"diagnostics"`
}

// Model summarizes one model of the graph.
type Model struct {
	Name      string   `json:"name" yaml:"name"`
	Parts     []string `json:"parts,omitempty" yaml:"parts,omitempty"`
	Submodels []string `json:"submodels,omitempty" yaml:"submodels,omitempty"`
}

// Diagnostics mirrors the four ledger categories.
type Diagnostics struct {
	Errors  []string `json:"errors,omitempty" yaml:"errors,omitempty"`
	Missing []string `json:"missing,omitempty" yaml:"missing,omitempty"`
	Found   []string `json:"found,omitempty" yaml:"found,omitempty"`
	Results []string `json:"results,omitempty" yaml:"results,omitempty"`
}

// FromSession captures the session's document, registry and diagnostics.
// Parts are listed alphabetically.
func FromSession(s *session.Session) *Report {
	r := &Report{
		Session: s.ID(),
		File:    s.FilePath(),
		Summary: s.Registry().Summary(),
		Parts:   s.Registry().Sorted(),
		Diags:   diagnostics(s.Diagnostics()),
	}
	if doc := s.Document(); doc != nil {
		r.MPD = doc.IsMPD()
	}
	if lib := s.Library(); lib != nil {
		r.Library = lib.Root()
	}
	return r
}

// WithGraph adds the model structure and dropped references.
func (r *Report) WithGraph(g *model.Graph) *Report {
	for _, id := range g.Models() {
		m := Model{Name: g.Model(id).Name}
		for _, p := range g.PartsOf(id) {
			m.Parts = append(m.Parts, p.Name)
		}
		for _, s := range g.SubmodelsOf(id) {
			m.Submodels = append(m.Submodels, s.Name)
		}
		r.Models = append(r.Models, m)
	}
	r.Dropped = g.Dropped
	return r
}

// Refresh re-reads the diagnostics, e.g. after assembly added results.
func (r *Report) Refresh(diags *diag.Collector) *Report {
	r.Diags = diagnostics(diags)
	return r
}

func diagnostics(c *diag.Collector) Diagnostics {
	return Diagnostics{
		Errors:  c.Errors(),
		Missing: c.Missing(),
		Found:   c.Found(),
		Results: c.Results(),
	}
}

// Write encodes r to w.
func Write(w io.Writer, r *Report, format Format) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(r)
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(r); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
