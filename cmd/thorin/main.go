package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"kanso/internal/diag"
	"kanso/internal/ir"
	"kanso/internal/pass"
	"kanso/internal/scope"
	"kanso/internal/textual"

	"github.com/fatih/color"
)

// availablePasses lists the mutating passes -passes can name, in the order
// the teacher's cmd/kanso-cli lists its pipeline stages.
var availablePasses = []string{"lower2cff", "partial-eval", "mem2reg", "copy-prop", "cleanup"}

func main() {
	passesFlag := flag.String("passes", "", "comma-separated passes to run: "+strings.Join(availablePasses, ","))
	lanes := flag.Int("lanes", 0, "vectorize every top-level scope to this lane width (0 disables)")
	dump := flag.Bool("dump", true, "print the textual IR after running passes")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: thorin [-passes p1,p2,...] [-lanes N] [-dump=false] <file.thorin>")
		os.Exit(1)
	}
	path := flag.Arg(0)

	w, sink, err := textual.ParseFile(path)
	if err != nil {
		os.Exit(1)
	}
	renderSink(sink)
	if sink.HasErrors() {
		color.Red("aborting: %s has unresolved diagnostics", path)
		os.Exit(1)
	}

	if *passesFlag != "" {
		runPasses(w, strings.Split(*passesFlag, ","))
	}

	if *lanes > 0 {
		vectorizeExternals(w, *lanes)
	}

	if *dump {
		fmt.Print(textual.Print(w))
	}

	color.Green("ok: %s (world %s)", path, w.ID())
}

func runPasses(w *ir.World, names []string) {
	for _, name := range names {
		name = strings.TrimSpace(name)
		switch name {
		case "lower2cff":
			pass.Lower2CFF(w)
		case "partial-eval":
			pass.PartialEvaluation(w)
		case "mem2reg":
			pass.Mem2Reg(w)
		case "copy-prop":
			for pass.CopyProp(w) {
			}
		case "cleanup":
			pass.Cleanup(w)
		case "":
			continue
		default:
			color.Yellow("skipping unknown pass %q", name)
		}
	}
}

// vectorizeExternals runs Vectorize over the scope of every external
// continuation that is neither an intrinsic nor non-returning, in place of a
// frontend choosing specific entry points.
func vectorizeExternals(w *ir.World, lanes int) {
	for _, c := range w.Externals() {
		if c.IsIntrinsic() || !c.IsReturning() {
			continue
		}
		sc := scope.New(w, c)
		pass.Vectorize(w, sc.Entry(), lanes)
	}
}

func renderSink(sink *diag.Sink) {
	if sink == nil {
		return
	}
	sink.Render(os.Stderr)
}
