package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/depotview/pkg/scene"
)

// stdout receives all status output; tests swap it.
var stdout io.Writer = os.Stdout

// Palette, ANSI 256 colors.
var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorBlue   = lipgloss.Color("75")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)
	StyleLink      = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue     = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber    = lipgloss.NewStyle().Foreground(colorCyan)
	StyleSuccess   = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorYellow)

	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleCommand     = lipgloss.NewStyle().Foreground(colorBlue)
	styleKey         = lipgloss.NewStyle().Foreground(colorGray).Width(12)
)

// statusLine is one kind of prefixed status output.
type statusLine struct {
	icon  string
	style lipgloss.Style
	body  func(string) string
}

var (
	lineSuccess = statusLine{"✓", lipgloss.NewStyle().Foreground(colorGreen), nil}
	lineError   = statusLine{"✗", lipgloss.NewStyle().Foreground(colorRed), nil}
	lineWarning = statusLine{"!", lipgloss.NewStyle().Foreground(colorYellow), func(s string) string { return StyleWarning.Render(s) }}
	lineInfo    = statusLine{"›", lipgloss.NewStyle().Foreground(colorGray), nil}
)

func (l statusLine) print(format string, args []any) {
	msg := fmt.Sprintf(format, args...)
	if l.body != nil {
		msg = l.body(msg)
	}
	fmt.Fprintln(stdout, l.style.Render(l.icon)+" "+msg)
}

func printSuccess(format string, args ...any) { lineSuccess.print(format, args) }
func printError(format string, args ...any)   { lineError.print(format, args) }
func printWarning(format string, args ...any) { lineWarning.print(format, args) }
func printInfo(format string, args ...any)    { lineInfo.print(format, args) }

// printDetail prints an indented, dimmed line under a status line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile reports a written output file.
func printFile(path string) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render("→")+" "+StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Fprintln(stdout, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(stdout, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// printSceneStats summarizes a built scene on one line, then lists the
// skipped records.
func printSceneStats(g *scene.Graph, fillRate float64) {
	parts := []string{
		StyleDim.Render(fmt.Sprintf("%d locations", g.Len())),
		StyleDim.Render(fmt.Sprintf("fill %.0f%%", fillRate*100)),
		StyleDim.Render(fmt.Sprintf("v%d", g.Version)),
	}
	if n := len(g.Skipped); n > 0 {
		parts = append(parts, StyleWarning.Render(fmt.Sprintf("%d skipped", n)))
	}
	fmt.Fprintln(stdout, "  "+strings.Join(parts, StyleDim.Render(" · ")))
	for _, sk := range g.Skipped {
		printDetail("skipped %s (record %d): %v", sk.ID, sk.Index, sk.Err)
	}
}

// stockSwatch renders a block in the box color.
func stockSwatch(b *scene.Box) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(b.Color.Hex())).Render("■")
}
