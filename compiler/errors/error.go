package errors

import (
	"encoding/json"
	"fmt"
)

// Severity represents the severity level of a diagnostic
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for Severity
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Severity
func (s *Severity) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}

	switch str {
	case "info":
		*s = Info
	case "warning":
		*s = Warning
	case "error":
		*s = Error
	default:
		*s = Error // Default to Error if unknown
	}
	return nil
}

// SourceLocation represents a location in source code
type SourceLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Diagnostic represents a single problem found while introspecting,
// classifying, or synthesizing code for an annotated declaration.
// Every diagnostic references the originating declaration's source position.
type Diagnostic struct {
	Phase       string         // "introspect", "classify", "directive", "codegen"
	Code        string         // "W001", "E001", etc.
	Message     string         // Human-readable message
	Location    SourceLocation // File, line, column of the annotated declaration
	Severity    Severity       // Error, Warning, Info
	Declaration string         // Name of the annotated declaration, if known
	Suggestion  string         // Optional hint on how to fix the problem
}

// Error implements the error interface
func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s",
		d.Location.File,
		d.Location.Line,
		d.Location.Column,
		d.Code,
		d.Message)
}

// New creates a new Diagnostic
func New(phase, code, message string, location SourceLocation, severity Severity) Diagnostic {
	return Diagnostic{
		Phase:    phase,
		Code:     code,
		Message:  message,
		Location: location,
		Severity: severity,
	}
}

// WithDeclaration records the name of the declaration the diagnostic refers to
func (d Diagnostic) WithDeclaration(name string) Diagnostic {
	d.Declaration = name
	return d
}

// WithSuggestion adds a fix suggestion to the diagnostic
func (d Diagnostic) WithSuggestion(suggestion string) Diagnostic {
	d.Suggestion = suggestion
	return d
}

// IsError returns true if the diagnostic is at Error severity
func (d Diagnostic) IsError() bool {
	return d.Severity == Error
}

// IsWarning returns true if the diagnostic is at Warning severity
func (d Diagnostic) IsWarning() bool {
	return d.Severity == Warning
}

// MarshalJSON implements json.Marshaler
func (d Diagnostic) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Phase       string         `json:"phase"`
		Code        string         `json:"code"`
		Message     string         `json:"message"`
		Severity    Severity       `json:"severity"`
		Location    SourceLocation `json:"location"`
		Declaration string         `json:"declaration,omitempty"`
		Suggestion  string         `json:"suggestion,omitempty"`
	}{
		Phase:       d.Phase,
		Code:        d.Code,
		Message:     d.Message,
		Severity:    d.Severity,
		Location:    d.Location,
		Declaration: d.Declaration,
		Suggestion:  d.Suggestion,
	})
}

// HasErrors reports whether any diagnostic in the slice is at Error
// severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.IsError() {
			return true
		}
	}
	return false
}

// CountErrors returns the number of Error-severity diagnostics in the
// slice.
func CountErrors(diags []Diagnostic) int {
	n := 0
	for _, d := range diags {
		if d.IsError() {
			n++
		}
	}
	return n
}

// CountWarnings returns the number of Warning-severity diagnostics in
// the slice.
func CountWarnings(diags []Diagnostic) int {
	n := 0
	for _, d := range diags {
		if d.IsWarning() {
			n++
		}
	}
	return n
}

// List collects diagnostics across phases so a single declaration's
// failure never aborts the whole generation run.
type List struct {
	diags []Diagnostic
}

// Add appends diagnostics to the list
func (l *List) Add(diags ...Diagnostic) {
	l.diags = append(l.diags, diags...)
}

// All returns every collected diagnostic in order of emission
func (l *List) All() []Diagnostic {
	return l.diags
}

// HasErrors returns true if any collected diagnostic is at Error severity
func (l *List) HasErrors() bool {
	for _, d := range l.diags {
		if d.IsError() {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of Error-severity diagnostics
func (l *List) ErrorCount() int {
	n := 0
	for _, d := range l.diags {
		if d.IsError() {
			n++
		}
	}
	return n
}

// WarningCount returns the number of Warning-severity diagnostics
func (l *List) WarningCount() int {
	n := 0
	for _, d := range l.diags {
		if d.IsWarning() {
			n++
		}
	}
	return n
}
