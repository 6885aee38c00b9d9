package main

import (
	"context"
	"io"

	flag "github.com/spf13/pflag"
)

// Command is a subcommand of sandrunnerd: a named flag set plus the closure
// that executes it. Subcommands are looked up by name rather than dispatched
// through argv0 (sandrunnerd has no multicall/wrapped-binary mode).
type Command struct {
	Flags *flag.FlagSet

	Usage string
	Short string
	Long  string

	Exec func(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) error
}
