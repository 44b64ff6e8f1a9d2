// Package console prints the human-facing report of a single command run.
// Diagnostics go through slog to stderr; everything here goes to stdout.
package console

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stranslate/host/internal/hosterr"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Report is the machine-readable summary emitted in json/yaml mode.
type Report struct {
	Operation string         `json:"operation" yaml:"operation"`
	OK        bool           `json:"ok" yaml:"ok"`
	Message   string         `json:"message,omitempty" yaml:"message,omitempty"`
	Error     string         `json:"error,omitempty" yaml:"error,omitempty"`
	Kind      string         `json:"kind,omitempty" yaml:"kind,omitempty"`
	Warnings  []string       `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Details   map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
	Output    string         `json:"output,omitempty" yaml:"output,omitempty"`
}

type Printer struct {
	out       io.Writer
	format    string
	verbose   bool
	operation string
	warnings  []string
	details   map[string]any
	output    string
}

func New(out io.Writer, format string, verbose bool) (*Printer, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		format = FormatText
	case FormatJSON, FormatYAML:
		format = strings.ToLower(format)
	default:
		return nil, hosterr.NewInvalidInput("unknown output format %q (use text, json or yaml)", format)
	}
	return &Printer{out: out, format: format, verbose: verbose, details: map[string]any{}}, nil
}

func (p *Printer) Verbose() bool { return p.verbose }

// Begin names the operation the final report describes.
func (p *Printer) Begin(operation string) {
	p.operation = operation
}

// Stage narrates a step before it runs. Only shown in verbose text mode.
func (p *Printer) Stage(format string, args ...any) {
	if !p.verbose || p.format != FormatText {
		return
	}
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Warn records a soft failure. Text mode prints it immediately.
func (p *Printer) Warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.warnings = append(p.warnings, msg)
	if p.format == FormatText {
		fmt.Fprintf(p.out, "⚠️  %s\n", msg)
	}
}

// Detail attaches a key/value to the structured report.
func (p *Printer) Detail(key string, value any) {
	p.details[key] = value
}

// Block prints an opaque multi-line block (scheduler tables, raw query
// output). In structured modes it becomes the report's output field.
func (p *Printer) Block(title, body string) {
	if p.format != FormatText {
		p.output = body
		return
	}
	if title != "" {
		fmt.Fprintf(p.out, "📋 %s\n", title)
	}
	fmt.Fprintln(p.out, strings.TrimRight(body, "\r\n"))
}

func (p *Printer) Success(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if p.format == FormatText {
		_, err := fmt.Fprintf(p.out, "✅ %s\n", msg)
		return err
	}
	return p.emit(Report{
		Operation: p.operation,
		OK:        true,
		Message:   msg,
		Warnings:  p.warnings,
		Details:   p.nonEmptyDetails(),
		Output:    p.output,
	})
}

// Negative reports a successful run whose answer is "no", such as a task
// check for a task that is not registered.
func (p *Printer) Negative(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if p.format == FormatText {
		_, err := fmt.Fprintf(p.out, "❌ %s\n", msg)
		return err
	}
	return p.emit(Report{
		Operation: p.operation,
		OK:        true,
		Message:   msg,
		Warnings:  p.warnings,
		Details:   p.nonEmptyDetails(),
		Output:    p.output,
	})
}

// Failure prints the terminal error. The error text is printed as-is so
// scheduler and OS messages reach the user verbatim.
func (p *Printer) Failure(cause error) error {
	if p.format == FormatText {
		_, err := fmt.Fprintf(p.out, "❌ %s\n", cause)
		return err
	}
	return p.emit(Report{
		Operation: p.operation,
		OK:        false,
		Error:     cause.Error(),
		Kind:      hosterr.KindOf(cause),
		Warnings:  p.warnings,
		Details:   p.nonEmptyDetails(),
		Output:    p.output,
	})
}

func (p *Printer) nonEmptyDetails() map[string]any {
	if len(p.details) == 0 {
		return nil
	}
	return p.details
}

func (p *Printer) emit(r Report) error {
	switch p.format {
	case FormatJSON:
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(p.out)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	}
	return nil
}
