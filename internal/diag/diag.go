// Package diag implements the failure taxonomy of section 7: contract
// violations (fail fast, identify the offending Def's generation id),
// unknown-symbol substitution, and analysis-degenerate warnings. No
// exception escapes the core boundary; callers see a Sink of Diagnostics and
// a boolean success, in the style of the teacher's internal/errors package.
package diag

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

// Severity classifies a Diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityTrace   Severity = "trace"
)

// Category names the section 7 failure taxonomy.
type Category string

const (
	// CategoryContract is a failed graph invariant: mismatched operand
	// count, a cyclic operand graph among non-nominal Defs, and similar.
	// Fail fast, identify the offending Def's generation id, halt the pass.
	CategoryContract Category = "contract-violation"
	// CategoryUnknownSymbol is an unbound name surfaced from a frontend
	// into the builder: recorded, and a Bottom of the expected type is
	// substituted so analysis can continue.
	CategoryUnknownSymbol Category = "unknown-symbol"
	// CategoryDegenerate is an analysis degenerate case (e.g. no
	// post-dominator reachable for a continuation): logged, the
	// continuation in question is left untouched.
	CategoryDegenerate Category = "analysis-degenerate"
	// CategoryTrace is routine pass progress, not a fault.
	CategoryTrace Category = "trace"
)

// Diagnostic is one structured record. GIDText names the offending node
// (formatted already, so this package need not import ir and create a
// dependency cycle between ir and diag).
type Diagnostic struct {
	Severity Severity
	Category Category
	Message  string
	GIDText  string
	Cause    error
}

func (d Diagnostic) String() string {
	if d.GIDText != "" {
		return fmt.Sprintf("%s[%s] %s (at %s)", d.Severity, d.Category, d.Message, d.GIDText)
	}
	return fmt.Sprintf("%s[%s] %s", d.Severity, d.Category, d.Message)
}

// Sink collects Diagnostics for the duration of a build/pass pipeline.
// There is one Sink per World, mirroring the teacher's one-ErrorReporter-
// per-file pattern.
type Sink struct {
	diags []Diagnostic
}

// NewSink creates an empty Sink.
func NewSink() *Sink { return &Sink{} }

// ContractViolation records a fail-fast invariant failure. Callers
// conventionally panic with the returned error immediately afterward to halt
// the current pass (section 7: "fail fast ... halt the pass").
func (s *Sink) ContractViolation(gidText, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	err := errors.Errorf("contract violation: %s", msg)
	s.diags = append(s.diags, Diagnostic{
		Severity: SeverityError,
		Category: CategoryContract,
		Message:  msg,
		GIDText:  gidText,
		Cause:    err,
	})
	return err
}

// UnknownSymbol records an unbound name from a frontend. The caller
// substitutes a Bottom of the expected type and continues (section 7).
func (s *Sink) UnknownSymbol(name, gidText string) {
	s.diags = append(s.diags, Diagnostic{
		Severity: SeverityWarning,
		Category: CategoryUnknownSymbol,
		Message:  fmt.Sprintf("unbound name %q, substituting bottom", name),
		GIDText:  gidText,
	})
}

// Degenerate records an analysis degenerate case. The caller leaves the
// continuation in question untouched (section 7).
func (s *Sink) Degenerate(gidText, format string, args ...any) {
	s.diags = append(s.diags, Diagnostic{
		Severity: SeverityWarning,
		Category: CategoryDegenerate,
		Message:  fmt.Sprintf(format, args...),
		GIDText:  gidText,
	})
}

// Tracef records routine pass progress.
func (s *Sink) Tracef(format string, args ...any) {
	s.diags = append(s.diags, Diagnostic{
		Severity: SeverityTrace,
		Category: CategoryTrace,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Diagnostics returns every recorded Diagnostic in order.
func (s *Sink) Diagnostics() []Diagnostic { return s.diags }

// HasErrors reports whether any SeverityError diagnostic was recorded.
func (s *Sink) HasErrors() bool {
	for _, d := range s.diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Render writes every Diagnostic to out in teacher style: severity-colored
// tag, category, message, location.
func (s *Sink) Render(w fmtWriter) {
	for _, d := range s.diags {
		lvl := levelColor(d.Severity)
		if d.GIDText != "" {
			fmt.Fprintf(w, "%s[%s]: %s (at %s)\n", lvl(string(d.Severity)), d.Category, d.Message, d.GIDText)
		} else {
			fmt.Fprintf(w, "%s[%s]: %s\n", lvl(string(d.Severity)), d.Category, d.Message)
		}
	}
}

// fmtWriter is the minimal io.Writer-shaped interface Render needs, kept
// local to avoid importing io just for this signature.
type fmtWriter interface {
	Write(p []byte) (n int, err error)
}

func levelColor(sev Severity) func(...interface{}) string {
	switch sev {
	case SeverityError:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	case SeverityWarning:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	default:
		return color.New(color.FgBlue).SprintFunc()
	}
}
