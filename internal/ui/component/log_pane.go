package component

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/burn-portal/internal/logger"
	"github.com/rovshanmuradov/burn-portal/internal/ui/style"
)

// LogFilter defines what log levels to show
type LogFilter struct {
	ShowError   bool
	ShowWarning bool
	ShowInfo    bool
	ShowDebug   bool
}

// LogPane renders the tail of a logger.LogBuffer.
type LogPane struct {
	buffer   *logger.LogBuffer
	viewport viewport.Model
	filter   LogFilter
	style    logPaneStyle
	visible  bool
}

type logPaneStyle struct {
	container lipgloss.Style
	title     lipgloss.Style
	timestamp lipgloss.Style
	error     lipgloss.Style
	warning   lipgloss.Style
	info      lipgloss.Style
	debug     lipgloss.Style
}

func NewLogPane(buffer *logger.LogBuffer) *LogPane {
	palette := style.DefaultPalette()
	return &LogPane{
		buffer: buffer,
		filter: LogFilter{ShowError: true, ShowWarning: true, ShowInfo: true},
		style: logPaneStyle{
			container: lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(palette.Info).
				Padding(0, 1),
			title:     lipgloss.NewStyle().Foreground(palette.Info).Bold(true),
			timestamp: lipgloss.NewStyle().Foreground(palette.TextMuted),
			error:     lipgloss.NewStyle().Foreground(palette.Error).Bold(true),
			warning:   lipgloss.NewStyle().Foreground(palette.Warning),
			info:      lipgloss.NewStyle().Foreground(palette.Text),
			debug:     lipgloss.NewStyle().Foreground(palette.TextMuted),
		},
		viewport: viewport.New(60, 6),
	}
}

// SetSize sets the outer dimensions of the pane.
func (lp *LogPane) SetSize(width, height int) {
	lp.viewport.Width = max(width-4, 10)
	lp.viewport.Height = max(height-3, 2)
}

func (lp *LogPane) Toggle() {
	lp.visible = !lp.visible
}

func (lp *LogPane) IsVisible() bool {
	return lp.visible
}

// ToggleDebug shows or hides debug entries.
func (lp *LogPane) ToggleDebug() {
	lp.filter.ShowDebug = !lp.filter.ShowDebug
}

// Update forwards scroll keys to the viewport.
func (lp *LogPane) Update(msg tea.Msg) tea.Cmd {
	if !lp.visible {
		return nil
	}
	var cmd tea.Cmd
	lp.viewport, cmd = lp.viewport.Update(msg)
	return cmd
}

func (lp *LogPane) View() string {
	if !lp.visible {
		return ""
	}
	lp.refresh()
	return lp.style.container.Render(lipgloss.JoinVertical(lipgloss.Left,
		lp.style.title.Render("Recent Logs [L] toggle"),
		lp.viewport.View(),
	))
}

func (lp *LogPane) refresh() {
	if lp.buffer == nil {
		lp.viewport.SetContent("No log buffer available")
		return
	}

	var lines []string
	for _, entry := range lp.buffer.GetRecentLogs(100) {
		if lp.shouldShow(entry) {
			lines = append(lines, lp.format(entry))
		}
	}
	if len(lines) == 0 {
		lp.viewport.SetContent("No logs match current filter")
		return
	}
	lp.viewport.SetContent(strings.Join(lines, "\n"))
	lp.viewport.GotoBottom()
}

func (lp *LogPane) shouldShow(entry logger.LogEntry) bool {
	switch strings.ToLower(entry.Level) {
	case "error", "dpanic", "panic", "fatal":
		return lp.filter.ShowError
	case "warn", "warning":
		return lp.filter.ShowWarning
	case "debug":
		return lp.filter.ShowDebug
	default:
		return lp.filter.ShowInfo
	}
}

func (lp *LogPane) format(entry logger.LogEntry) string {
	ts := lp.style.timestamp.Render(entry.Timestamp.Format("15:04:05"))

	msg := entry.Message
	if entry.Logger != "" {
		msg = entry.Logger + ": " + msg
	}
	if sig, ok := entry.Fields["signature"].(string); ok {
		msg += " " + logger.ShortenAddress(sig)
	}

	switch strings.ToLower(entry.Level) {
	case "error", "dpanic", "panic", "fatal":
		msg = lp.style.error.Render(msg)
	case "warn", "warning":
		msg = lp.style.warning.Render(msg)
	case "debug":
		msg = lp.style.debug.Render(msg)
	default:
		msg = lp.style.info.Render(msg)
	}
	return fmt.Sprintf("%s %s", ts, msg)
}
