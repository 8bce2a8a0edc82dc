package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/benbjohnson/ntbounds"
	"github.com/benbjohnson/ntbounds/ast"
	"github.com/benbjohnson/ntbounds/cfg"
	"github.com/benbjohnson/ntbounds/cfront"
	"github.com/benbjohnson/ntbounds/preorder"
	"github.com/davecgh/go-spew/spew"
	"github.com/gookit/color"
	"gopkg.in/yaml.v3"
)

// WidenCommand represents a command for reporting widened bounds.
type WidenCommand struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewWidenCommand returns a new instance of WidenCommand.
func NewWidenCommand() *WidenCommand {
	return &WidenCommand{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// FunctionReport represents the widened bounds of a single function.
type FunctionReport struct {
	Function string                 `yaml:"function"`
	Blocks   []ntbounds.BlockResult `yaml:"blocks"`
}

// Run executes the "widen" subcommand.
func (cmd *WidenCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ntbounds-widen", flag.ContinueOnError)
	fs.SetOutput(cmd.Stderr)
	configPath := fs.String("config", "", "config file")
	format := fs.String("format", "text", "output format")
	useColor := fs.Bool("color", false, "colorize text output")
	verbose := fs.Bool("v", false, "verbose")
	fs.Usage = cmd.usage
	if err := fs.Parse(args); err != nil {
		return err
	} else if fs.NArg() == 0 {
		return fmt.Errorf("source file required")
	} else if fs.NArg() > 1 {
		return fmt.Errorf("too many source files specified")
	}

	log.SetFlags(0)
	if !*verbose {
		log.SetOutput(io.Discard)
	} else {
		log.SetOutput(cmd.Stderr)
	}

	// Flags given on the command line take precedence over the file.
	config, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}
	set := explicitFlags(fs)
	if set["format"] || !config.IsDefined("format") {
		config.Format = *format
	}
	if set["color"] || !config.IsDefined("color") {
		config.Color = *useColor
	}
	if err := config.Validate(); err != nil {
		return err
	}

	src, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	actx := config.Context()
	fns, err := cfront.Parse(actx, src)
	if err != nil {
		return fmt.Errorf("%s: %w", fs.Arg(0), err)
	}

	var reports []FunctionReport
	for _, fn := range fns {
		a, err := cmd.widenFunction(actx, fn)
		if err != nil {
			return err
		}

		if config.DumpPreorder {
			if err := cmd.dumpPreorder(actx, a); err != nil {
				return err
			}
		}

		switch config.Format {
		case "yaml":
			reports = append(reports, FunctionReport{Function: fn.Name, Blocks: a.Widened()})
		default:
			if err := cmd.writeText(a, config.Color); err != nil {
				return err
			}
		}
	}

	if config.Format == "yaml" {
		enc := yaml.NewEncoder(cmd.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(reports); err != nil {
			return err
		}
		return enc.Close()
	}
	return nil
}

// widenFunction builds the control flow graph of fn and runs the analysis.
func (cmd *WidenCommand) widenFunction(ctx *ast.Context, fn *ast.Function) (*ntbounds.Analysis, error) {
	g, err := cfg.Build(fn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Name, err)
	}

	log.Printf("[begin] %s", fn.Name)
	a := ntbounds.WidenBounds(ctx, fn, g)
	log.Print(spew.Sdump(a.Widened()))
	log.Print("[end]")
	return a, nil
}

// dumpPreorder writes the canonical form of every declared upper bound.
func (cmd *WidenCommand) dumpPreorder(ctx *ast.Context, a *ntbounds.Analysis) error {
	for _, v := range a.NtPtrs() {
		r := a.DeclaredBounds(v)
		if r == nil {
			continue
		}
		fmt.Fprintf(cmd.Stdout, "Preorder: upper_bound(%s) = %s\n", v.Name, ast.String(r.Upper))
		tree, err := preorder.Canonicalize(ctx, r.Upper)
		if err != nil {
			return fmt.Errorf("upper bound of %s: %w", v.Name, err)
		} else if err := tree.PrettyPrint(cmd.Stdout); err != nil {
			return err
		}
	}
	return nil
}

// writeText writes the report of a single function. Colored output
// highlights block headers and widened bounds.
func (cmd *WidenCommand) writeText(a *ntbounds.Analysis, enableColor bool) error {
	if !enableColor {
		if err := a.DumpWidenedBounds(cmd.Stdout); err != nil {
			return err
		}
		_, err := fmt.Fprintln(cmd.Stdout)
		return err
	}

	w := cmd.Stdout
	fmt.Fprintf(w, "In function: %s\n", color.Notice.Render(a.Function().Name))
	for _, result := range a.Widened() {
		fmt.Fprintf(w, "\n%s\n", color.Info.Render(fmt.Sprintf("Block: B%d", result.Block)))
		writeColorWidened(w, "  In:", result.In)
		for _, s := range result.Stmts {
			writeColorWidened(w, fmt.Sprintf("  %d: %s", s.Index, s.Stmt), s.Widened)
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

func writeColorWidened(w io.Writer, header string, a []ntbounds.WidenedBounds) {
	fmt.Fprintln(w, header)
	if len(a) == 0 {
		fmt.Fprintln(w, color.Comment.Render("    <no widening>"))
		return
	}
	for _, wb := range a {
		fmt.Fprintf(w, "    %s\n", color.Success.Render(wb.String()))
	}
}

func (cmd *WidenCommand) usage() {
	fmt.Fprintln(cmd.Stderr, `
usage: ntbounds widen [arguments] FILE.c

Arguments:

	-config PATH
	    Read settings from a TOML file.

	-format FORMAT
	    Output format: text or yaml. Defaults to text.

	-color
	    Colorize text output.

	-v
	    Enable verbose logging.
`[1:])
}
