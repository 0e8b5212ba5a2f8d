package lsp

import (
	"kanso/internal/diag"

	"github.com/alecthomas/participle/v2"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// convertSinkDiagnostics renders every recorded diag.Diagnostic as an LSP
// diagnostic. A Diagnostic only carries a GIDText (section 7 taxonomy), not
// a source position, so every entry is anchored to the start of the
// document -- the same "rough span for visibility" compromise the teacher's
// ConvertScanErrors makes for diagnostics whose parser doesn't hand back an
// exact column.
func convertSinkDiagnostics(sink *diag.Sink) []protocol.Diagnostic {
	var out []protocol.Diagnostic
	for _, d := range sink.Diagnostics() {
		if d.Severity == diag.SeverityTrace {
			continue
		}
		out = append(out, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: 0, Character: 0},
				End:   protocol.Position{Line: 0, Character: 1},
			},
			Severity: ptrSeverity(severityOf(d.Severity)),
			Source:   ptrString("thorin-textual"),
			Message:  d.String(),
		})
	}
	return out
}

func severityOf(sev diag.Severity) protocol.DiagnosticSeverity {
	switch sev {
	case diag.SeverityError:
		return protocol.DiagnosticSeverityError
	case diag.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	default:
		return protocol.DiagnosticSeverityInformation
	}
}

// parseErrorDiagnostic converts a participle syntax error -- which does
// carry a precise Position -- into a single-point diagnostic at that
// location.
func parseErrorDiagnostic(err error) protocol.Diagnostic {
	pe, ok := err.(participle.Error)
	if !ok {
		return protocol.Diagnostic{
			Severity: ptrSeverity(protocol.DiagnosticSeverityError),
			Source:   ptrString("thorin-textual"),
			Message:  err.Error(),
		}
	}
	pos := pe.Position()
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: uint32(pos.Line - 1), Character: uint32(pos.Column - 1)},
			End:   protocol.Position{Line: uint32(pos.Line - 1), Character: uint32(pos.Column + 5)},
		},
		Severity: ptrSeverity(protocol.DiagnosticSeverityError),
		Source:   ptrString("thorin-textual"),
		Message:  pe.Message(),
	}
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity { return &s }
func ptrString(s string) *string                                            { return &s }
