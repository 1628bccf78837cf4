// Package cli renders command output for the terminal using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme colors.
var (
	PrimaryColor = lipgloss.Color("#5B8DEF")
	SuccessColor = lipgloss.Color("#4ECDC4")
	WarningColor = lipgloss.Color("#FFE66D")
	ErrorColor   = lipgloss.Color("#FF6B6B")
	InfoColor    = lipgloss.Color("#95E1D3")
	SubtleColor  = lipgloss.Color("#666666")
	BorderColor  = lipgloss.Color("#333333")
)

// Text styles.
var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor).MarginBottom(1)
	SuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor)
	WarningStyle = lipgloss.NewStyle().Foreground(WarningColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ErrorColor)
	InfoStyle    = lipgloss.NewStyle().Foreground(InfoColor)
	SubtleStyle  = lipgloss.NewStyle().Foreground(SubtleColor)
	BoldStyle    = lipgloss.NewStyle().Bold(true)
)

// Layout styles.
var (
	// BoxStyle frames summaries.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(1, 2)

	// TableHeaderStyle is applied to every header cell; its width is set per column.
	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor)

	// TableCellStyle is applied to every body cell.
	TableCellStyle = lipgloss.NewStyle()
)

// Icons.
const (
	SuccessIcon  = "✓"
	ErrorIcon    = "✗"
	SkipIcon     = "↷"
	WarningIcon  = "⚠️"
	InfoIcon     = "ℹ️"
	InvoiceIcon  = "🧾"
	ChartIcon    = "📊"
	RegistryIcon = "🗂️"
)

func withIcon(style lipgloss.Style, icon, message string) string {
	return style.Render(icon + " " + message)
}

// FormatSuccess prefixes message with a check mark.
func FormatSuccess(message string) string { return withIcon(SuccessStyle, SuccessIcon, message) }

// FormatError prefixes message with a cross.
func FormatError(message string) string { return withIcon(ErrorStyle, ErrorIcon, message) }

// FormatWarning prefixes message with a warning sign.
func FormatWarning(message string) string { return withIcon(WarningStyle, WarningIcon, message) }

// FormatInfo prefixes message with an info sign.
func FormatInfo(message string) string { return withIcon(InfoStyle, InfoIcon, message) }

// FormatTitle renders a section title.
func FormatTitle(title string) string { return withIcon(TitleStyle, InvoiceIcon, title) }

// RenderBox renders content under a title inside a rounded border.
func RenderBox(title, content string) string {
	heading := TitleStyle.UnsetMargins().Render(title)
	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, heading, content))
}
