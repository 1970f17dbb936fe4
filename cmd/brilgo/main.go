// Command brilgo is the toolkit's CLI entry point: `transform` runs the
// configurable pass pipeline over a JSON program on stdin and writes JSON
// to stdout; `analyze` runs one dataflow analysis and prints it blockwise.
// Minimal hand-rolled subcommand dispatch on os.Args[1] rather than pulling
// in a CLI framework.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"

	"brilgo/internal/analysis"
	"brilgo/internal/bril"
	"brilgo/internal/bril/textfmt"
	"brilgo/internal/cfg"
	"brilgo/internal/config"
	"brilgo/internal/names"
	"brilgo/internal/pipeline"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "transform":
		err = runTransform(os.Args[2:], os.Stdin, os.Stdout, os.Stderr)
	case "analyze":
		err = runAnalyze(os.Args[2:], os.Stdin, os.Stdout, os.Stderr)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fail(os.Stderr, err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: brilgo transform [-o OPT]... [-dump-text] [-v]")
	fmt.Fprintln(os.Stderr, "       brilgo analyze -a {reaching_defns,live}")
}

// runTransform decodes a program from in, runs the pass pipeline opts
// selects, and writes the result to out. dumpText output (if requested)
// and debug trace logging (if -v) go to errOut.
func runTransform(args []string, in io.Reader, out, errOut io.Writer) error {
	fs := flag.NewFlagSet("transform", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var optValues config.Values
	fs.Var(&optValues, "o", "pass to apply, repeatable: "+joinOpts())
	dumpText := fs.Bool("dump-text", false, "print a human-readable text dump to stderr")
	verbose := fs.Bool("v", false, "enable debug trace logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *verbose {
		commonlog.Configure(1, nil)
	}

	opts, err := config.FromFlags(optValues)
	if err != nil {
		return err
	}

	prog, err := bril.Decode(in)
	if err != nil {
		return err
	}

	if err := pipeline.Run(prog, opts); err != nil {
		return err
	}

	if *dumpText {
		if err := textfmt.Dump(errOut, prog.Names, prog); err != nil {
			return err
		}
	}

	return bril.Encode(out, prog)
}

// runAnalyze decodes a program from in, runs one dataflow analysis, and
// prints per-block in/out sets to out.
func runAnalyze(args []string, in io.Reader, out, errOut io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(errOut)
	name := fs.String("a", "", "analysis to run: reaching_defns, live")
	if err := fs.Parse(args); err != nil {
		return err
	}

	which, err := config.ParseAnalysis(*name)
	if err != nil {
		return err
	}

	prog, err := bril.Decode(in)
	if err != nil {
		return err
	}

	header := color.New(color.Faint)
	for _, fn := range prog.Functions {
		funcName := prog.Names.String(fn.Name.Name())
		cfgFn, err := cfg.Build(fn, prog.Names, funcName)
		if err != nil {
			return err
		}
		header.Fprintf(out, "%s:\n", funcName)

		switch which {
		case config.ReachingDefinitions:
			results, err := analysis.Reaching(cfgFn, prog.Names, funcName)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Fprintf(out, "  %s: in=%s out=%s\n", prog.Names.String(r.Node.LabelName().Name()), reachSetString(prog.Names, r.In), reachSetString(prog.Names, r.Out))
			}
		case config.LiveVariables:
			results := analysis.LiveVariables(cfgFn)
			for _, r := range results {
				fmt.Fprintf(out, "  %s: in=%s out=%s\n", prog.Names.String(r.Node.LabelName().Name()), varSetString(prog.Names, r.In), varSetString(prog.Names, r.Out))
			}
		}
	}
	return nil
}

func reachSetString(tbl *names.Table, s analysis.ReachSet) string {
	out := "{"
	first := true
	for def := range s {
		if !first {
			out += ", "
		}
		first = false
		out += fmt.Sprintf("%s@%d", tbl.String(def.Var.Name()), def.Block)
	}
	return out + "}"
}

func varSetString(tbl *names.Table, s analysis.VarSet) string {
	out := "{"
	first := true
	for v := range s {
		if !first {
			out += ", "
		}
		first = false
		out += tbl.String(v.Name())
	}
	return out + "}"
}

func joinOpts() string {
	names := config.SortedOptNames()
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

func fail(w io.Writer, err error) {
	color.New(color.FgRed).Fprintf(w, "error: %s\n", err)
	os.Exit(1)
}
