package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"kritactl/internal/update"
)

const notesWrapWidth = 80

// --- Styles ---
var (
	cCyan      = lipgloss.Color("39")
	cNeonGreen = lipgloss.Color("118")
	cOrange    = lipgloss.Color("214")
	cRed       = lipgloss.Color("196")
	cGray      = lipgloss.Color("245")

	styleOK      = lipgloss.NewStyle().Foreground(cNeonGreen).Bold(true)
	styleBusy    = lipgloss.NewStyle().Foreground(cCyan)
	styleWarn    = lipgloss.NewStyle().Foreground(cOrange).Bold(true)
	styleFail    = lipgloss.NewStyle().Foreground(cRed).Bold(true)
	styleMuted   = lipgloss.NewStyle().Foreground(cGray)
	styleHeading = lipgloss.NewStyle().Foreground(cCyan).Bold(true).Underline(true)
)

// renderState returns a human-readable, styled description of an update state.
func renderState(state update.UpdateState) string {
	switch state {
	case update.StateChecking:
		return styleBusy.Render("checking for updates...")
	case update.StateAvailable:
		return styleWarn.Render("update available")
	case update.StateLatest:
		return styleOK.Render("plugin is up to date")
	case update.StateDownloading:
		return styleBusy.Render("downloading update...")
	case update.StateInstalling:
		return styleBusy.Render("installing update...")
	case update.StateRestartRequired:
		return styleOK.Render("update installed - restart Krita to finish")
	case update.StateFailedCheck:
		return styleFail.Render("update check failed")
	case update.StateFailedUpdate:
		return styleFail.Render("update failed")
	default:
		return styleMuted.Render("unknown")
	}
}

// buildMarkdownRenderer returns a renderer for release notes honoring the
// configured output format (rich, light, plain).
func buildMarkdownRenderer(format string, width int) func(string) string {
	fallback := func(input string) string {
		return wordwrap.String(input, width)
	}

	style := strings.ToLower(strings.TrimSpace(format))
	if style == "" || style == "rich" || style == "dark" {
		style = "dark"
	}
	if style == "plain" {
		return fallback
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fallback
	}
	return func(input string) string {
		out, err := renderer.Render(input)
		if err != nil {
			return fallback(input)
		}
		return strings.TrimSpace(out)
	}
}

// formatVersionComparison describes the relationship between the installed
// and the latest version. Release tags that do not parse as semantic
// versions yield no extra diagnostics.
func formatVersionComparison(installed, latest string) string {
	cur, err1 := update.ParseVersion(installed)
	next, err2 := update.ParseVersion(latest)
	if err1 != nil || err2 != nil {
		return ""
	}
	switch next.Compare(cur) {
	case -1:
		return styleWarn.Render(fmt.Sprintf(
			"note: latest release %s is older than installed %s (downgrade)", latest, installed))
	case 0:
		return styleMuted.Render("versions differ only in formatting")
	default:
		return ""
	}
}
