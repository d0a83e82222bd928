package viz

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/san-kum/qmfsim/internal/sim"
)

// Styles are derived from the current theme on every render so that
// switching themes takes effect immediately.
func titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(CurrentTheme.Primary)
}

func panelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(CurrentTheme.Muted).
		Padding(0, 1)
}

func labelStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(CurrentTheme.Muted).Width(12)
}

func valueStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(CurrentTheme.Text)
}

func selectedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(CurrentTheme.Accent)
}

func keyHint() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(CurrentTheme.Muted).Italic(true)
}

func errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(CurrentTheme.Error)
}

// statusStyle colours a transmission fraction.
func statusStyle(frac float64) lipgloss.Style {
	c := CurrentTheme.Error
	switch {
	case frac > 0.8:
		c = CurrentTheme.Success
	case frac > 0.4:
		c = CurrentTheme.Warning
	}
	return lipgloss.NewStyle().Foreground(c)
}

// AnimatedSpinner returns frame of animated spinner
func AnimatedSpinner(frame int) string {
	spinners := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	return spinners[frame%len(spinners)]
}

// SparklineChart renders a mini sparkline from values in [0, 1].
func SparklineChart(values []float64, width int) string {
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	step := len(values) / width
	if step < 1 {
		step = 1
	}

	var result strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		v := values[i*step]
		idx := int(v * float64(len(chars)-1))
		if idx >= len(chars) {
			idx = len(chars) - 1
		}
		if idx < 0 {
			idx = 0
		}
		result.WriteString(statusStyle(v).Render(string(chars[idx])))
	}
	return result.String()
}

// Separator is a muted horizontal rule.
func Separator(width int) string {
	mid := width / 2
	if mid < 3 {
		return strings.Repeat("─", width)
	}
	left := strings.Repeat("─", mid-3)
	right := strings.Repeat("─", width-mid-3)
	return lipgloss.NewStyle().Foreground(CurrentTheme.Muted).Render(left + " ◆ " + right)
}

// SummaryHeaders are the columns of SummaryTable.
var SummaryHeaders = []string{"Species", "Count", "Alive", "Lost", "Detected", "Transmission"}

// SummaryRows formats one row per result.
func SummaryRows(results []*sim.Result) [][]string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Tag,
			strconv.Itoa(r.Species.Count),
			strconv.Itoa(r.Alive),
			strconv.Itoa(r.Lost),
			strconv.Itoa(r.Detected),
			fmt.Sprintf("%.1f%%", 100*r.Transmission()),
		})
	}
	return rows
}

// SummaryTable renders the outcome of a run as a bordered table.
func SummaryTable(results []*sim.Result) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(CurrentTheme.Muted)).
		Headers(SummaryHeaders...).
		Rows(SummaryRows(results)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true).Foreground(CurrentTheme.Primary)
			}
			if col == len(SummaryHeaders)-1 && row >= 0 && row < len(results) {
				return s.Inherit(statusStyle(results[row].Transmission()))
			}
			return s.Foreground(CurrentTheme.Text)
		})
	return t.Render()
}
