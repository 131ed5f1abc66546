package errors

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDiagnosticCodeUniqueness(t *testing.T) {
	codes := make(map[string]string)

	introspectCodes := []string{
		ErrUnsupportedDeclaration, ErrNoConstructor, ErrUnreadableSource,
	}
	for _, code := range introspectCodes {
		if prev, exists := codes[code]; exists {
			t.Errorf("Duplicate diagnostic code %s (previously used for %s)", code, prev)
		}
		codes[code] = "introspect"
	}

	directiveCodes := []string{
		ErrUnknownDirective, ErrUnknownOption, ErrInvalidOptionValue,
		ErrMissingOption, ErrDuplicateDirective,
	}
	for _, code := range directiveCodes {
		if prev, exists := codes[code]; exists {
			t.Errorf("Duplicate diagnostic code %s (previously used for %s)", code, prev)
		}
		codes[code] = "directive"
	}

	codegenCodes := []string{ErrEmitFailed, ErrFormatFailed}
	for _, code := range codegenCodes {
		if prev, exists := codes[code]; exists {
			t.Errorf("Duplicate diagnostic code %s (previously used for %s)", code, prev)
		}
		codes[code] = "codegen"
	}

	warningCodes := []string{WarnSelfDependency, WarnSuperfluousFactory}
	for _, code := range warningCodes {
		if prev, exists := codes[code]; exists {
			t.Errorf("Duplicate diagnostic code %s (previously used for %s)", code, prev)
		}
		codes[code] = "warning"
	}
}

func TestCodeRanges(t *testing.T) {
	tests := []struct {
		code   string
		prefix string
	}{
		{ErrUnsupportedDeclaration, "E0"},
		{ErrNoConstructor, "E0"},
		{ErrUnreadableSource, "E0"},
		{ErrUnknownDirective, "E1"},
		{ErrUnknownOption, "E1"},
		{ErrInvalidOptionValue, "E1"},
		{ErrMissingOption, "E1"},
		{ErrDuplicateDirective, "E1"},
		{ErrEmitFailed, "E2"},
		{ErrFormatFailed, "E2"},
		{WarnSelfDependency, "W0"},
		{WarnSuperfluousFactory, "W1"},
	}

	for _, tt := range tests {
		if !strings.HasPrefix(tt.code, tt.prefix) {
			t.Errorf("Code %s should be in the %sxx range", tt.code, tt.prefix)
		}
	}
}

func TestSeverityString(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{Info, "info"},
		{Warning, "warning"},
		{Error, "error"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.severity.String(); got != tt.want {
			t.Errorf("Severity(%d).String() = %q, want %q", tt.severity, got, tt.want)
		}
	}
}

func TestSeverityJSONRoundTrip(t *testing.T) {
	for _, sev := range []Severity{Info, Warning, Error} {
		data, err := json.Marshal(sev)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", sev, err)
		}
		var back Severity
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("Unmarshal(%s): %v", data, err)
		}
		if back != sev {
			t.Errorf("Round trip of %v produced %v", sev, back)
		}
	}

	var unknown Severity
	if err := json.Unmarshal([]byte(`"bogus"`), &unknown); err != nil {
		t.Fatalf("Unmarshal bogus severity: %v", err)
	}
	if unknown != Error {
		t.Errorf("Unknown severity should default to Error, got %v", unknown)
	}
}

func TestDiagnosticError(t *testing.T) {
	d := New("introspect", ErrNoConstructor, "no constructor found for UserService",
		SourceLocation{File: "services.go", Line: 12, Column: 1}, Error)

	got := d.Error()
	want := "services.go:12:1: E002: no constructor found for UserService"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestDiagnosticBuilders(t *testing.T) {
	d := New("directive", ErrUnknownDirective, "unknown directive //weld:retyr",
		SourceLocation{File: "svc.go", Line: 3, Column: 1}, Error).
		WithDeclaration("NewPaymentService").
		WithSuggestion("did you mean //weld:retry?")

	if d.Declaration != "NewPaymentService" {
		t.Errorf("Declaration = %q", d.Declaration)
	}
	if d.Suggestion != "did you mean //weld:retry?" {
		t.Errorf("Suggestion = %q", d.Suggestion)
	}
	if !d.IsError() || d.IsWarning() {
		t.Error("Error-severity diagnostic misreports its severity")
	}
}

func TestHasErrorsAndCounts(t *testing.T) {
	loc := SourceLocation{File: "a.go", Line: 1, Column: 1}
	diags := []Diagnostic{
		New("classify", WarnSelfDependency, "self dependency", loc, Warning),
		New("directive", ErrUnknownOption, "unknown option", loc, Error),
		New("codegen", WarnSuperfluousFactory, "factory without runtime parameters", loc, Warning),
	}

	if !HasErrors(diags) {
		t.Error("HasErrors should be true")
	}
	if got := CountErrors(diags); got != 1 {
		t.Errorf("CountErrors = %d, want 1", got)
	}
	if got := CountWarnings(diags); got != 2 {
		t.Errorf("CountWarnings = %d, want 2", got)
	}

	if HasErrors(diags[:1]) {
		t.Error("HasErrors should be false for warnings only")
	}
	if HasErrors(nil) {
		t.Error("HasErrors should be false for nil")
	}
}

func TestList(t *testing.T) {
	loc := SourceLocation{File: "b.go", Line: 2, Column: 1}

	var list List
	if list.HasErrors() {
		t.Error("Empty list should have no errors")
	}

	list.Add(
		New("directive", ErrDuplicateDirective, "duplicate //weld:retry directive", loc, Error),
		New("classify", WarnSelfDependency, "self dependency", loc, Warning),
	)

	if !list.HasErrors() {
		t.Error("List should report errors")
	}
	if got := list.ErrorCount(); got != 1 {
		t.Errorf("ErrorCount = %d, want 1", got)
	}
	if got := list.WarningCount(); got != 1 {
		t.Errorf("WarningCount = %d, want 1", got)
	}
	if got := len(list.All()); got != 2 {
		t.Errorf("All() returned %d diagnostics, want 2", got)
	}
}

func TestFormatForTerminal(t *testing.T) {
	d := New("directive", ErrInvalidOptionValue, `invalid value "abc" for option "maxAttempts": expected an integer`,
		SourceLocation{File: "payment.go", Line: 7, Column: 1}, Error).
		WithDeclaration("ProcessPayment").
		WithSuggestion("recognized options: maxAttempts, backoff")

	out := d.FormatForTerminal()

	for _, want := range []string{
		"[E102]",
		"payment.go:7:1",
		"ProcessPayment",
		"hint:",
		"recognized options: maxAttempts, backoff",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Terminal output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatListForTerminalSummary(t *testing.T) {
	loc := SourceLocation{File: "c.go", Line: 1, Column: 1}
	diags := []Diagnostic{
		New("introspect", ErrNoConstructor, "no constructor found for Cache", loc, Error),
		New("classify", WarnSelfDependency, "self dependency", loc, Warning),
		New("classify", WarnSelfDependency, "self dependency", loc, Warning),
	}

	out := FormatListForTerminal(diags)
	if !strings.Contains(out, "1 error(s), 2 warning(s)") {
		t.Errorf("Summary line missing:\n%s", out)
	}

	if got := FormatListForTerminal(nil); got != "" {
		t.Errorf("Empty list should format to empty string, got %q", got)
	}
}

func TestFormatListAsJSON(t *testing.T) {
	loc := SourceLocation{File: "d.go", Line: 4, Column: 2}
	diags := []Diagnostic{
		New("directive", ErrUnknownDirective, "unknown directive //weld:cachr", loc, Error).
			WithDeclaration("FetchProfile"),
		New("codegen", WarnSuperfluousFactory, "factory without runtime parameters", loc, Warning),
	}

	raw, err := FormatListAsJSON(diags)
	if err != nil {
		t.Fatalf("FormatListAsJSON: %v", err)
	}

	var out JSONOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}

	if out.Status != "failure" {
		t.Errorf("Status = %q, want failure", out.Status)
	}
	if len(out.Errors) != 1 || len(out.Warnings) != 1 {
		t.Errorf("Got %d errors and %d warnings, want 1 and 1", len(out.Errors), len(out.Warnings))
	}
	if out.Summary.TotalCount != 2 {
		t.Errorf("TotalCount = %d, want 2", out.Summary.TotalCount)
	}
	if out.Errors[0].Declaration != "FetchProfile" {
		t.Errorf("Declaration = %q", out.Errors[0].Declaration)
	}

	clean, err := FormatListAsJSON(nil)
	if err != nil {
		t.Fatalf("FormatListAsJSON(nil): %v", err)
	}
	var cleanOut JSONOutput
	if err := json.Unmarshal([]byte(clean), &cleanOut); err != nil {
		t.Fatalf("Clean output is not valid JSON: %v", err)
	}
	if cleanOut.Status != "success" {
		t.Errorf("Status for empty list = %q, want success", cleanOut.Status)
	}
}
