package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/benbjohnson/ntbounds/ast"
	"github.com/benbjohnson/ntbounds/cfront"
	"github.com/benbjohnson/ntbounds/preorder"
)

// identPattern matches C identifiers.
var identPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z_0-9]*`)

// CanonCommand represents a command for printing canonical expressions.
type CanonCommand struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewCanonCommand returns a new instance of CanonCommand.
func NewCanonCommand() *CanonCommand {
	return &CanonCommand{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run executes the "canon" subcommand.
func (cmd *CanonCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ntbounds-canon", flag.ContinueOnError)
	fs.SetOutput(cmd.Stderr)
	configPath := fs.String("config", "", "config file")
	fs.Usage = cmd.usage
	if err := fs.Parse(args); err != nil {
		return err
	} else if fs.NArg() == 0 {
		return fmt.Errorf("expression required")
	}

	config, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}
	actx := config.Context()

	src := strings.Join(fs.Args(), " ")
	e, err := cfront.ParseExpr(actx, src, declareIdents(src)...)
	if err != nil {
		return err
	}

	a, err := preorder.Canonicalize(actx, e)
	if err != nil {
		return err
	}
	return a.PrettyPrint(cmd.Stdout)
}

// declareIdents declares every identifier in src. Names starting with p are
// null-terminated char pointers and the rest are ints.
func declareIdents(src string) []*ast.VarDecl {
	var vars []*ast.VarDecl
	seen := make(map[string]bool)
	for _, name := range identPattern.FindAllString(src, -1) {
		if seen[name] {
			continue
		}
		seen[name] = true

		typ := ast.IntType
		if strings.HasPrefix(name, "p") {
			typ = ast.NtArrayPtrTo(ast.CharType)
		}
		vars = append(vars, &ast.VarDecl{ID: len(vars) + 1, Name: name, Type: typ})
	}
	return vars
}

func (cmd *CanonCommand) usage() {
	fmt.Fprintln(cmd.Stderr, `
usage: ntbounds canon [arguments] EXPR

Prints the canonical form of EXPR. Identifiers starting with p are
null-terminated char pointers, all others are ints.

Arguments:

	-config PATH
	    Read settings from a TOML file.
`[1:])
}
