// Package diag accumulates categorized messages produced while validating and
// importing an LDraw document.
package diag

import (
	"slices"
	"sync"
)

// Category classifies a diagnostic message.
type Category int

const (
	// Error is a setup or unexpected failure that halted a stage.
	Error Category = iota
	// Missing holds part IDs that could not be found in the library.
	Missing
	// Found holds part IDs that were found in the library.
	Found
	// Result is a free-form progress or outcome message.
	Result
)

func (c Category) String() string {
	switch c {
	case Error:
		return "error"
	case Missing:
		return "missing"
	case Found:
		return "found"
	case Result:
		return "result"
	default:
		return "unknown"
	}
}

// Report section separators.
const (
	ResultsFooter = "-----------------------------------------"
	FoundHeader   = "--------Below are the parts found--------"
	FoundFooter   = "-------------------------------------------"
	MissingHeader = "--------Below are the parts that were not found--------"
	MissingFooter = "-------------------------------------------------------"
)

// Collector is an append-only, clearable ledger of diagnostics.
// Order within each category is insertion order.
type Collector struct {
	mu      sync.Mutex
	entries [4][]string
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add appends a message to a category.
func (c *Collector) Add(cat Category, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cat] = append(c.entries[cat], message)
}

// Errors returns a copy of the error messages.
func (c *Collector) Errors() []string { return c.get(Error) }

// Missing returns a copy of the missing part IDs.
func (c *Collector) Missing() []string { return c.get(Missing) }

// Found returns a copy of the found part IDs.
func (c *Collector) Found() []string { return c.get(Found) }

// Results returns a copy of the result messages.
func (c *Collector) Results() []string { return c.get(Result) }

func (c *Collector) get(cat Category) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.entries[cat])
}

// Count returns the number of messages in a category.
func (c *Collector) Count(cat Category) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries[cat])
}

// Succeeded reports a clean validation: parts were found, none are missing
// and no errors were recorded.
func (c *Collector) Succeeded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries[Found]) > 0 && len(c.entries[Missing]) == 0 && len(c.entries[Error]) == 0
}

// Report returns every category as one sectioned sequence: results followed by
// a separator, found IDs sorted between a header and footer, missing IDs
// likewise, then errors. Exact duplicates are collapsed, keeping the first.
// The collector itself is not modified.
func (c *Collector) Report() []string {
	c.mu.Lock()
	results := slices.Clone(c.entries[Result])
	found := slices.Clone(c.entries[Found])
	missing := slices.Clone(c.entries[Missing])
	errs := slices.Clone(c.entries[Error])
	c.mu.Unlock()

	var out []string
	if len(results) > 0 {
		out = append(out, results...)
		out = append(out, ResultsFooter)
	}
	if len(found) > 0 {
		slices.Sort(found)
		out = append(out, FoundHeader)
		out = append(out, found...)
		out = append(out, FoundFooter)
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		out = append(out, MissingHeader)
		out = append(out, missing...)
		out = append(out, MissingFooter)
	}
	out = append(out, errs...)

	return dedupe(out)
}

// Clear empties all categories.
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		c.entries[i] = nil
	}
}

// ClearCategory empties a single category.
func (c *Collector) ClearCategory(cat Category) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cat] = nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
