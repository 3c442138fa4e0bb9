package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorCyan    = lipgloss.AdaptiveColor{Dark: "#66D9E8", Light: "#0C8599"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
)

// StepStyle marks an operation that is about to start.
var StepStyle = lipgloss.NewStyle().
	Foreground(ColorCyan)

// SuccessStyle marks a completed operation.
var SuccessStyle = lipgloss.NewStyle().
	Foreground(ColorGreen)

// WarnStyle is used for non-fatal problems.
var WarnStyle = lipgloss.NewStyle().
	Foreground(ColorYellow)

// ErrorStyle is used for the fatal error line printed before exit.
var ErrorStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed)

// EmphasisStyle highlights counts and names inside a message.
var EmphasisStyle = lipgloss.NewStyle().
	Bold(true)

// PathStyle highlights file paths.
var PathStyle = lipgloss.NewStyle().
	Foreground(ColorBlue)

// AppStyle highlights external application names.
var AppStyle = lipgloss.NewStyle().
	Foreground(ColorMagenta)

// DoneStyle is the final completion banner.
var DoneStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorGreen)

// HintStyle is used for secondary text such as remediation hints.
var HintStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// SourceLabelStyle returns a color-coded style for the given task source.
func SourceLabelStyle(source string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch source {
	case "github":
		return base.Foreground(ColorMagenta)
	case "slack":
		return base.Foreground(ColorYellow)
	case "other":
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorGray)
	}
}
