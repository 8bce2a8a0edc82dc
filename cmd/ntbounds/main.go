package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err == flag.ErrHelp {
		os.Exit(1)
	} else if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	var cmd string
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "", "-h", "--help", "help":
		usage()
		return flag.ErrHelp
	case "widen":
		return NewWidenCommand().Run(ctx, args)
	case "canon":
		return NewCanonCommand().Run(ctx, args)
	default:
		return fmt.Errorf(`ntbounds %s: unknown command`, cmd)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `
Ntbounds widens the bounds of null-terminated array pointers in Checked C.

Usage:

	ntbounds <command> [arguments]

The commands are:

	widen       report widened bounds for every function in a file
	canon       print the canonical form of an expression
	help        this screen
`[1:])
}
