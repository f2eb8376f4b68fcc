package main

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is the color palette for both front-ends. Colors are ANSI
// 256-color codes; lipgloss drops them when stdout has no color support.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color
	Header     lipgloss.Color

	// Bar fill colors by load band.
	LoadLow  lipgloss.Color
	LoadMid  lipgloss.Color
	LoadHigh lipgloss.Color
	BarEmpty lipgloss.Color

	StateConnecting lipgloss.Color
	StateConnected  lipgloss.Color
	StateClosed     lipgloss.Color

	WarnText  lipgloss.Color
	ErrorText lipgloss.Color
}

// LoadColor picks the fill color for a bar at pct percent.
func (theme Theme) LoadColor(pct float64) lipgloss.Color {
	switch {
	case pct >= 85:
		return theme.LoadHigh
	case pct >= 60:
		return theme.LoadMid
	default:
		return theme.LoadLow
	}
}

func (theme Theme) StateColor(state ConnState) lipgloss.Color {
	switch state {
	case StateConnected:
		return theme.StateConnected
	case StateClosed:
		return theme.StateClosed
	default:
		return theme.StateConnecting
	}
}

var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),
	Header:     lipgloss.Color("255"),

	LoadLow:  lipgloss.Color("114"), // green
	LoadMid:  lipgloss.Color("220"), // amber
	LoadHigh: lipgloss.Color("196"), // red
	BarEmpty: lipgloss.Color("238"),

	StateConnecting: lipgloss.Color("220"),
	StateConnected:  lipgloss.Color("114"),
	StateClosed:     lipgloss.Color("196"),

	WarnText:  lipgloss.Color("208"),
	ErrorText: lipgloss.Color("196"),
}
