package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kass/occmap/pkg/aggregate"
	"github.com/kass/occmap/pkg/render"
	"github.com/kass/occmap/pkg/style"
	"github.com/mattn/go-isatty"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF79C6"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4")).
			Width(14)

	statStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB86C"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#BD93F9")).
			Padding(0, 1)
)

type summary struct {
	title  string
	output string
	stats  aggregate.Stats
	keys   int
	total  int
	render *render.Result
}

func summaryFromAggregate(out string, agg *aggregate.Aggregator) summary {
	return summary{
		title:  "Aggregate saved",
		output: out,
		stats:  agg.Stats(),
		keys:   agg.Len(),
		total:  agg.Total(),
	}
}

func summaryFromRender(out string, agg *aggregate.Aggregator, res *render.Result) summary {
	s := summaryFromAggregate(out, agg)
	s.title = "Map rendered"
	s.render = res
	return s
}

func (s summary) rows() [][2]string {
	rows := [][2]string{
		{"output", s.output},
		{"records", fmt.Sprint(s.stats.Read)},
		{"accepted", fmt.Sprint(s.stats.Accepted)},
		{"no id", fmt.Sprint(s.stats.MissingID)},
		{"no coord", fmt.Sprint(s.stats.MissingCoord)},
		{"out of range", fmt.Sprint(s.stats.OutOfRange)},
		{"duplicate", fmt.Sprint(s.stats.Duplicate)},
		{"locations", fmt.Sprint(s.keys)},
		{"occurrences", fmt.Sprint(s.total)},
	}
	if s.render != nil {
		rows = append(rows,
			[2]string{"drawn", fmt.Sprint(s.render.Drawn)},
			[2]string{"culled", fmt.Sprint(s.render.Culled)},
		)
	}
	return rows
}

// printSummary writes plain lines unless w is a terminal
func printSummary(w io.Writer, s summary) {
	if f, ok := w.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		fmt.Fprint(w, plainSummary(s))
		return
	}
	fmt.Fprintln(w, styledSummary(s))
}

func plainSummary(s summary) string {
	var b strings.Builder
	for _, r := range s.rows() {
		fmt.Fprintf(&b, "%s: %s\n", r[0], r[1])
	}
	if s.render != nil {
		for _, band := range style.Bands {
			fmt.Fprintf(&b, "band %s: %d\n", band.Name, s.render.Bands[band.Name])
		}
	}
	return b.String()
}

func styledSummary(s summary) string {
	lines := []string{titleStyle.Render(s.title), ""}
	for _, r := range s.rows() {
		lines = append(lines, labelStyle.Render(r[0])+statStyle.Render(r[1]))
	}
	if s.render != nil {
		lines = append(lines, "")
		for _, band := range style.Bands {
			swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(hex(band))).Render("●")
			lines = append(lines, fmt.Sprintf("%s %s %s",
				swatch,
				labelStyle.Render(band.Name),
				statStyle.Render(fmt.Sprint(s.render.Bands[band.Name]))))
		}
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func hex(b style.Band) string {
	return fmt.Sprintf("#%02X%02X%02X", b.Fill.R, b.Fill.G, b.Fill.B)
}
