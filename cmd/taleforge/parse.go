package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nathoo/taleforge/engine/parser"
	"github.com/nathoo/taleforge/engine/resolve"
	"github.com/nathoo/taleforge/engine/vocab"
	"github.com/nathoo/taleforge/types"
)

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <story_directory> <command...>",
		Short: "Show how a command is parsed and resolved at the start of a story",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runParse,
	}
}

func runParse(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), cmd, args[0], false)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	input := strings.Join(args[1:], " ")
	eng := s.engine

	cands, err := parser.Parse(eng.Vocab, input)
	if err != nil {
		fmt.Fprintf(out, "parse error: %v\n", err)
		fmt.Fprintf(out, "player sees: %s\n", eng.Narrator.Error(eng.World, err))
		return nil
	}
	fmt.Fprintf(out, "%d candidate(s) for %q:\n", len(cands), input)
	for i, c := range cands {
		fmt.Fprintf(out, "  %d. %s\n", i+1, describe(c))
	}

	vc, err := resolve.Resolve(eng.World, resolve.Request{
		Actor:      eng.Player(),
		Candidates: cands,
		RawText:    input,
	})
	if err != nil {
		fmt.Fprintf(out, "resolve error: %v\n", err)
		fmt.Fprintf(out, "player sees: %s\n", eng.Narrator.Error(eng.World, err))
		return nil
	}
	fmt.Fprintf(out, "resolved: action=%s target=%s secondary=%s\n", vc.Action, orDash(vc.Target), orDash(vc.Secondary))
	return nil
}

func describe(c types.ParsedCommand) string {
	parts := []string{
		fmt.Sprintf("%s [%s]", c.Action, vocab.FormatSyntax(c.Syntax)),
		fmt.Sprintf("verb=%q", c.Verb),
	}
	if c.Direct != nil {
		parts = append(parts, fmt.Sprintf("direct=%q", c.Direct.Text))
	}
	if c.Preposition != "" {
		parts = append(parts, "prep="+c.Preposition)
	}
	if c.Indirect != nil {
		parts = append(parts, fmt.Sprintf("indirect=%q", c.Indirect.Text))
	}
	if c.Direction != "" {
		parts = append(parts, "dir="+c.Direction)
	}
	parts = append(parts, fmt.Sprintf("confidence=%.2f", c.Confidence))
	return strings.Join(parts, " ")
}

func orDash(id types.EntityID) string {
	if id == types.Nowhere {
		return "-"
	}
	return string(id)
}
