package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/noediv/mediaplay/internal/playback"
)

// Oxocarbon palette (base16 oxocarbon-dark)
var (
	OxocarbonBase00 = lipgloss.Color("#262626") // UI elements
	OxocarbonBase01 = lipgloss.Color("#393939") // Borders
	OxocarbonBase02 = lipgloss.Color("#525252") // Muted
	OxocarbonBase03 = lipgloss.Color("#767676") // Muted text
	OxocarbonBase04 = lipgloss.Color("#dde1e6") // Secondary foreground
	OxocarbonBase05 = lipgloss.Color("#f2f4f8") // Primary foreground
	OxocarbonWhite  = lipgloss.Color("#ffffff")

	OxocarbonTeal   = lipgloss.Color("#3ddbd9")
	OxocarbonBlue   = lipgloss.Color("#78a9ff")
	OxocarbonPink   = lipgloss.Color("#ee5396")
	OxocarbonRed    = lipgloss.Color("#ff5252")
	OxocarbonCyan   = lipgloss.Color("#33b1ff")
	OxocarbonGreen  = lipgloss.Color("#42be65")
	OxocarbonPurple = lipgloss.Color("#be95ff") // main accent
	OxocarbonMauve  = lipgloss.Color("#d1aaff")
)

var (
	AppStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(OxocarbonBase01)

	TitleStyle = lipgloss.NewStyle().
			Foreground(OxocarbonWhite).
			Background(OxocarbonPurple).
			Padding(0, 1).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(OxocarbonMauve).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(OxocarbonBase03).
			Width(9)

	ValueStyle = lipgloss.NewStyle().
			Foreground(OxocarbonBase05)

	URLStyle = lipgloss.NewStyle().
			Foreground(OxocarbonCyan).
			Italic(true)

	SynopsisStyle = lipgloss.NewStyle().
			Foreground(OxocarbonBase04).
			Italic(true)

	TagStyle = lipgloss.NewStyle().
			Foreground(OxocarbonBase05).
			Background(OxocarbonBase01).
			Padding(0, 1).
			MarginRight(1)

	StatusBadgeStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Bold(true)

	// Error panel shown while the session is errored
	ErrorPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(OxocarbonRed).
			Foreground(OxocarbonBase05).
			Padding(0, 1).
			MarginTop(1)

	ErrorTitleStyle = lipgloss.NewStyle().
			Foreground(OxocarbonRed).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(OxocarbonBase03).
			Italic(true).
			MarginTop(1)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(OxocarbonPink)
)

// StatusColor returns the badge color for a session status
func StatusColor(status playback.Status) lipgloss.Color {
	switch status {
	case playback.StatusPlaying:
		return OxocarbonGreen
	case playback.StatusReady:
		return OxocarbonBlue
	case playback.StatusProbing, playback.StatusLoading:
		return OxocarbonTeal
	case playback.StatusErrored:
		return OxocarbonRed
	default:
		return OxocarbonBase03
	}
}

// StatusBadge renders a colored status badge
func StatusBadge(status playback.Status) string {
	return StatusBadgeStyle.Foreground(StatusColor(status)).Render(status.String())
}
