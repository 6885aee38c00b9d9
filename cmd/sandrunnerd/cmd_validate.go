package main

import (
	"context"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/forgecode/sandrunner/manifest"
)

// ValidateCmd loads and validates every manifest under a runners directory,
// matching manifest.Load's own fail-fast-at-startup contract.
func ValidateCmd() *Command {
	flags := flag.NewFlagSet("validate", flag.ContinueOnError)
	flagRoot := flags.StringP("runners", "r", "./runners", "Path to the runners directory")

	return &Command{
		Flags: flags,
		Usage: "validate [--runners dir]",
		Short: "Load and validate every runner manifest",
		Long:  "Loads every ./runners/<name>/manifest.yml, validates bin_deps and files_deps, and exits non-zero if any manifest fails, reporting every failure.",
		Exec: func(_ context.Context, _ io.Reader, stdout, stderr io.Writer, args []string) error {
			if err := flags.Parse(args); err != nil {
				return err
			}

			reg, err := manifest.Load(*flagRoot)
			if err != nil {
				fprintError(stderr, err)
				return err
			}

			names := reg.Names()
			fprintf(stdout, "validated %d runner(s)\n", len(names))

			for _, name := range names {
				fprintf(stdout, "  ok: %s\n", name)
			}

			return nil
		},
	}
}
