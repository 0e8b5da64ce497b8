package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Status is the display state of a mod in listings.
type Status int

const (
	StatusAvailable Status = iota // source only
	StatusInstalled               // source and backup
	StatusOrphaned                // backup only, source gone from the library
)

var (
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	WarnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	AccentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	HeaderStyle  = lipgloss.NewStyle().Bold(true)
	MutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Colorize applies the given 24-bit RGB color to the text using lipgloss.
func Colorize(text string, color int) string {
	hexColor := fmt.Sprintf("#%06x", color&0xffffff)
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(hexColor))
	return style.Render(text)
}

// ColorFor derives a stable, readable color from a mod hash. The low
// bits pick the hue and every channel is kept above a floor so names stay
// legible on dark terminals.
func ColorFor(hash uint64) int {
	r := int(hash>>16&0xff) | 0x60
	g := int(hash>>8&0xff) | 0x60
	b := int(hash&0xff) | 0x60
	return r<<16 | g<<8 | b
}

// Label returns the short tag shown next to a mod in listings.
func (s Status) Label() string {
	switch s {
	case StatusInstalled:
		return SuccessStyle.Render("installed")
	case StatusOrphaned:
		return WarnStyle.Render("backup only")
	default:
		return MutedStyle.Render("available")
	}
}

// Plain is Label without styling.
func (s Status) Plain() string {
	switch s {
	case StatusInstalled:
		return "installed"
	case StatusOrphaned:
		return "backup only"
	default:
		return "available"
	}
}
