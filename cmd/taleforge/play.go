package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nathoo/taleforge/cli"
	"github.com/nathoo/taleforge/tui"
)

func playCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play <story_directory>",
		Short: "Play a story",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlay,
	}
	cmd.Flags().Bool("plain", false, "use the plain line interface instead of the TUI")
	cmd.Flags().String("script", "", "read commands from a file (implies --plain)")
	cmd.Flags().Bool("trace", false, "print commands and events after each turn")
	cmd.Flags().Bool("strict", false, "check world invariants after every turn")
	return cmd
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, cmd, args[0], true)
	if err != nil {
		return err
	}
	defer s.Close()

	plain, _ := cmd.Flags().GetBool("plain")
	script, _ := cmd.Flags().GetString("script")
	trace, _ := cmd.Flags().GetBool("trace")

	g := s.defs.Game
	out := cmd.OutOrStdout()

	// Script mode: open file, force plain, echo commands.
	if script != "" {
		f, err := os.Open(script)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		fmt.Fprintf(out, "%s v%s by %s\n\n", g.Title, g.Version, g.Author)
		c := cli.New(s.engine, s.slots)
		c.In = f
		c.Out = out
		c.EchoInput = true
		c.Trace = trace
		c.Run(ctx)
		return nil
	}

	// Use plain CLI if --plain flag or stdout is not a terminal.
	if plain || !isTerminal() {
		fmt.Fprintf(out, "%s v%s by %s\n\n", g.Title, g.Version, g.Author)
		c := cli.New(s.engine, s.slots)
		c.In = cmd.InOrStdin()
		c.Out = out
		c.Trace = trace
		c.Run(ctx)
		return nil
	}

	return tui.Run(ctx, s.engine, s.slots)
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
