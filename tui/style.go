package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	stylePlayerInput = styleInputPrompt
	styleItems       = lipgloss.NewStyle().Bold(true)
	styleSystem      = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindNarrative lineKind = iota
	kindYouSee
	kindExits
	kindDialogue
	kindSystem
	kindError
	kindTrace
)

// kindStyles colours narrative lines by kind.
var kindStyles = map[lineKind]lipgloss.Style{
	kindNarrative: lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
	kindExits:     lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
	kindDialogue:  lipgloss.NewStyle().Foreground(lipgloss.Color("228")),
	kindSystem:    styleSystem,
	kindError:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	kindTrace:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
}

func (k lineKind) render(line string) string {
	if k == kindYouSee {
		return styledYouSee(line)
	}
	style, ok := kindStyles[k]
	if !ok {
		style = kindStyles[kindNarrative]
	}
	return style.Render(line)
}

// Message openings that mark a refusal or a parser complaint in the
// English pack.
var errorPrefixes = []string{
	"You can't",
	"You aren't",
	"I don't know the word",
	"That's not a verb",
	"I beg your pardon",
	"Something went wrong",
}

// classifyLine determines what kind of output line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case strings.HasPrefix(line, youSeePrefix):
		return kindYouSee
	case strings.HasPrefix(line, "Exits:"), strings.HasPrefix(line, "There are no obvious exits"):
		return kindExits
	case hasAnyPrefix(line, errorPrefixes):
		return kindError
	case containsQuotedSpeech(line):
		return kindDialogue
	}
	return kindNarrative
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// containsQuotedSpeech reports whether a line carries a quoted passage of
// more than five characters, single or double quoted, as story text
// printed by say effects often does.
func containsQuotedSpeech(line string) bool {
	var open rune
	n := 0
	for _, r := range line {
		switch {
		case open == 0 && (r == '\'' || r == '"'):
			open, n = r, 0
		case r == open:
			if n > 5 {
				return true
			}
			open = 0
		case open != 0:
			n++
		}
	}
	return false
}

const (
	youSeePrefix = "You can see "
	youSeeSuffix = " here."
)

// styledYouSee renders "You can see a lamp and a box here." with the item
// list bold.
func styledYouSee(line string) string {
	plain := kindStyles[kindNarrative]
	if !strings.HasPrefix(line, youSeePrefix) || !strings.HasSuffix(line, youSeeSuffix) {
		return plain.Render(line)
	}
	items := strings.TrimSuffix(strings.TrimPrefix(line, youSeePrefix), youSeeSuffix)
	return plain.Render(youSeePrefix) + styleItems.Render(items) + plain.Render(youSeeSuffix)
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}
