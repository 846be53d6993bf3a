package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	colorAccent = lipgloss.Color("#20B9B4")
	colorBorder = lipgloss.Color("#16858E")
	colorMuted  = lipgloss.Color("#6C7A80")
	colorUp     = lipgloss.Color("#2CD7C7")
	colorDown   = lipgloss.Color("#E74C3C")
)

// Render writes r as a terminal table. Colour is used only when w is a
// terminal that supports it.
func Render(w io.Writer, r *Report) error {
	re := lipgloss.NewRenderer(w)
	title := re.NewStyle().Bold(true).Foreground(colorAccent)
	muted := re.NewStyle().Foreground(colorMuted)

	var b strings.Builder
	b.WriteString(title.Render("Ticker sentiment · " + r.Tag))
	b.WriteString("\n")
	b.WriteString(muted.Render(summaryLine(r)))
	b.WriteString("\n")
	if filters := filterLine(r); filters != "" {
		b.WriteString(muted.Render(filters))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(r.Rows) == 0 {
		b.WriteString("No mentions recorded for this tag yet.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString(renderTable(re, r))
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func renderTable(re *lipgloss.Renderer, r *Report) string {
	base := re.NewStyle().Padding(0, 1)
	header := base.Bold(true).Foreground(colorAccent)
	up := base.Foreground(colorUp)
	down := base.Foreground(colorDown)

	rows := make([][]string, len(r.Rows))
	for i, s := range r.Rows {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			s.Ticker,
			strconv.Itoa(s.Bullish),
			strconv.Itoa(s.Bearish),
			strconv.Itoa(s.Neutral),
			strconv.Itoa(s.Mentions),
			signed(s.Score),
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(re.NewStyle().Foreground(colorBorder)).
		Headers("#", "TICKER", "BULL", "BEAR", "NEUT", "MENTIONS", "SCORE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			style := base
			if col != 1 {
				style = style.Align(lipgloss.Right)
			}
			if col == 6 && row >= 0 && row < len(r.Rows) {
				switch score := r.Rows[row].Score; {
				case score > 0:
					style = up.Align(lipgloss.Right)
				case score < 0:
					style = down.Align(lipgloss.Right)
				}
			}
			return style
		})
	return t.String()
}

func summaryLine(r *Report) string {
	var parts []string
	if r.Model != "" {
		parts = append(parts, "model "+r.Model)
	}
	parts = append(parts,
		fmt.Sprintf("%d records", r.Records),
		fmt.Sprintf("%d ok", r.Counts.OK),
		fmt.Sprintf("%d skipped", r.Counts.Skipped),
		fmt.Sprintf("%d errors", r.Counts.Error))
	return strings.Join(parts, " · ")
}

func filterLine(r *Report) string {
	var parts []string
	if len(r.Subreddits) > 0 {
		subs := make([]string, len(r.Subreddits))
		for i, s := range r.Subreddits {
			subs[i] = "r/" + s
		}
		parts = append(parts, "subreddits "+strings.Join(subs, ", "))
	}
	if !r.Since.IsZero() {
		parts = append(parts, "since "+r.Since.Format("2006-01-02 15:04"))
	}
	return strings.Join(parts, " · ")
}

func signed(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
