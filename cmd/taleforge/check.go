package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nathoo/taleforge/engine"
	"github.com/nathoo/taleforge/loader"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <story_directory>",
		Short: "Load and validate a story without playing it",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheck,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	defs, warnings, err := loader.Check(args[0])

	var ve *loader.ValidationError
	if errors.As(err, &ve) {
		fmt.Fprintf(out, "Errors (%d):\n", len(ve.Errors))
		for _, e := range ve.Errors {
			fmt.Fprintf(out, "  - %s\n", e)
		}
	} else if err != nil {
		return err
	}
	if len(warnings) > 0 {
		if ve != nil {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "Warnings (%d):\n", len(warnings))
		for _, w := range warnings {
			fmt.Fprintf(out, "  - %s\n", w)
		}
	}
	if ve != nil {
		return fmt.Errorf("%s: %d validation error(s)", args[0], len(ve.Errors))
	}

	// A story that validates must also build.
	eng, err := engine.New(defs)
	if err != nil {
		return fmt.Errorf("building story: %w", err)
	}
	fmt.Fprintf(out, "%s: OK (%d entities, %d rules, %d verbs)\n",
		defs.Game.Title, eng.World.Len(), eng.Rules.Len(), len(defs.Verbs))
	return nil
}
