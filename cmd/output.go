package cmd

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"promptgrid/internal/models"
	"promptgrid/internal/prompt"
)

const outputWidth = 60

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	failedStyle = cellStyle.Foreground(lipgloss.Color("203"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// renderMarkdown renders a completion for terminal display. It falls back
// to the raw text if glamour fails.
func renderMarkdown(text string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return text
	}

	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func tenth(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}

// tableCells returns the cells of one comparison row in column order.
func tableCells(row models.Row, withStop bool) []string {
	cells := []string{
		tenth(row.Params.Temperature),
		strconv.Itoa(row.Params.MaxTokens),
		tenth(row.Params.PresencePenalty),
		tenth(row.Params.FrequencyPenalty),
	}
	if withStop {
		stop := "None"
		if len(row.Stop) > 0 {
			stop = prompt.FormatStopSequences(row.Stop)
		}
		cells = append(cells, stop)
	}
	return append(cells, row.Result.String())
}

func renderTable(rows []models.Row, withStop bool) string {
	headers := []string{"Temperature", "Max Tokens", "Presence Penalty", "Frequency Penalty"}
	if withStop {
		headers = append(headers, "Stop Sequence")
	}
	headers = append(headers, "Output")
	outputCol := len(headers) - 1

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			style := cellStyle
			if row >= 0 && row < len(rows) && !rows[row].Result.OK() {
				style = failedStyle
			}
			if col == outputCol {
				style = style.Width(outputWidth)
			}
			return style
		})

	for _, row := range rows {
		t.Row(tableCells(row, withStop)...)
	}
	return t.String()
}
