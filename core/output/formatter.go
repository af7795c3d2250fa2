// Package output provides output formatting for pricing results.
// This package produces human and machine-readable outputs.
package output

import (
	"encoding/json"
	"io"
	"sort"
	"strings"
	"sync"

	"plan-pricing/core/catalog"
	"plan-pricing/core/model"
	"plan-pricing/internal/errors"
)

// Format represents output format type
type Format string

const (
	// FormatCLI is a human-readable CLI table
	FormatCLI Format = "cli"

	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"
)

// Formatter produces output in a specific format
type Formatter interface {
	// Format returns the format type
	Format() Format

	// Render writes a pricing result
	Render(w io.Writer, result *model.Result) error

	// RenderFindings writes catalog lint findings
	RenderFindings(w io.Writer, findings []catalog.Finding) error
}

// Registry manages formatter registration
type Registry struct {
	mu         sync.RWMutex
	formatters map[Format]Formatter
}

// NewRegistry creates a registry holding the built-in formatters
func NewRegistry(showDetails bool) *Registry {
	r := &Registry{formatters: make(map[Format]Formatter)}
	_ = r.Register(&CLIFormatter{ShowDetails: showDetails})
	_ = r.Register(&JSONFormatter{Indent: "  "})
	return r
}

// Register adds a formatter to the registry
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Format()]; exists {
		return errors.Conflict("formatter", string(f.Format()))
	}
	r.formatters[f.Format()] = f
	return nil
}

// Get returns the formatter for a format, or a config error naming the
// supported formats.
func (r *Registry) Get(format Format) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.formatters[format]; ok {
		return f, nil
	}
	return nil, errors.Newf(errors.TypeConfig, "unknown output format %q (supported: %s)",
		format, strings.Join(r.names(), ", "))
}

// Formats lists the registered formats in name order
func (r *Registry) Formats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Format, 0, len(r.formatters))
	for _, n := range r.names() {
		out = append(out, Format(n))
	}
	return out
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.formatters))
	for f := range r.formatters {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}

// JSONFormatter renders machine-readable JSON. Money is written as decimal
// strings.
type JSONFormatter struct {
	Indent string
}

// Format implements Formatter
func (f *JSONFormatter) Format() Format { return FormatJSON }

// Render implements Formatter
func (f *JSONFormatter) Render(w io.Writer, result *model.Result) error {
	if result == nil {
		return errors.New(errors.TypeInvariant, "cannot render a nil result")
	}
	return f.encode(w, result)
}

// RenderFindings implements Formatter
func (f *JSONFormatter) RenderFindings(w io.Writer, findings []catalog.Finding) error {
	if findings == nil {
		findings = []catalog.Finding{}
	}
	return f.encode(w, findings)
}

func (f *JSONFormatter) encode(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", f.Indent)
	return enc.Encode(v)
}
