package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/noediv/mediaplay/internal/playback"
	"github.com/noediv/mediaplay/internal/tui/styles"
)

const defaultWidth = 80

// View implements tea.Model
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width := m.width
	if width <= 0 {
		width = defaultWidth
	}
	inner := width - 8 // app padding and border
	if inner < 20 {
		inner = 20
	}

	sections := []string{
		styles.TitleStyle.Render(truncate(m.snap.Filename, inner-2)),
		"",
		m.statusLine(),
		field("source", m.snap.Source.String()),
		field("engine", m.snap.Engine.String()),
		field("attempt", fmt.Sprintf("%d", m.snap.Attempt)),
	}
	if m.snap.URL != "" {
		sections = append(sections, field("url", styles.URLStyle.Render(truncate(m.snap.URL, inner-9))))
	}

	if m.snap.Err != nil {
		sections = append(sections, m.errorPanel(inner))
	}

	if meta := m.metadataView(inner); meta != "" {
		sections = append(sections, "", meta)
	}

	if m.notice != "" {
		sections = append(sections, "", styles.NoticeStyle.Render(truncate(m.notice, inner)))
	}

	sections = append(sections, styles.HelpStyle.Render(m.help.View(m.keys)))

	return styles.AppStyle.Width(width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) statusLine() string {
	badge := styles.StatusBadge(m.snap.Status)
	switch m.snap.Status {
	case playback.StatusProbing, playback.StatusLoading:
		return field("status", m.spinner.View()+" "+badge)
	default:
		return field("status", badge)
	}
}

// errorPanel shows the last error with the pair that produced it and the
// actions that can recover from it
func (m Model) errorPanel(width int) string {
	err := m.snap.Err
	lines := []string{
		styles.ErrorTitleStyle.Render(string(err.Kind)),
	}
	if err.Message != "" {
		lines = append(lines, truncate(err.Message, width-4))
	}
	lines = append(lines, fmt.Sprintf("while playing %s via the %s engine", m.snap.Source, m.snap.Engine))
	if len(m.snap.History) > 0 {
		tried := make([]string, 0, len(m.snap.History))
		for _, p := range m.snap.History {
			tried = append(tried, p.String())
		}
		lines = append(lines, "tried: "+strings.Join(tried, ", "))
	}
	if m.snap.Status == playback.StatusErrored {
		lines = append(lines, "", "r retry · e switch engine · s switch source · f force "+m.opts.ForceFormat)
	}
	return styles.ErrorPanelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m Model) metadataView(width int) string {
	if m.opts.Metadata == nil {
		return ""
	}
	if !m.metaDone {
		return styles.HelpStyle.Render("loading metadata…")
	}
	if m.metaErr != nil || m.metadata == nil {
		return ""
	}

	meta := m.metadata
	var lines []string
	if meta.Title != "" {
		lines = append(lines, styles.SubtitleStyle.Render(truncate(meta.Title, width)))
	}
	if meta.Duration > 0 {
		lines = append(lines, field("duration", formatDuration(meta.Duration)))
	}
	if meta.Description != "" {
		lines = append(lines, styles.SynopsisStyle.Width(width).Render(meta.Description))
	}
	if len(meta.Tags) > 0 {
		tags := make([]string, 0, len(meta.Tags))
		for _, tag := range meta.Tags {
			tags = append(tags, styles.TagStyle.Render(tag))
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, tags...))
	}
	return strings.Join(lines, "\n")
}

func field(label, value string) string {
	return styles.LabelStyle.Render(label) + styles.ValueStyle.Render(value)
}

// formatDuration renders seconds as 1h2m3s
func formatDuration(seconds float64) string {
	return (time.Duration(seconds * float64(time.Second))).Round(time.Second).String()
}

// truncate cuts s to maxWidth terminal cells, adding "..." when cut
func truncate(s string, maxWidth int) string {
	if maxWidth <= 3 || runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, "...")
}
