package app

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/ui/style"
)

// summaryDurationUnit is the rounding applied to displayed durations.
const summaryDurationUnit = time.Millisecond

var (
	okStyle      = lipgloss.NewStyle().Foreground(style.Green)
	cachedStyle  = lipgloss.NewStyle().Foreground(style.Slate)
	failedStyle  = lipgloss.NewStyle().Foreground(style.Red)
	skippedStyle = lipgloss.NewStyle().Foreground(style.Yellow)
	diagStyle    = lipgloss.NewStyle().Foreground(style.Slate).PaddingLeft(4)
)

// WriteSummary renders the per-node outcome list and the run totals. Failed
// nodes carry their captured tool output indented below the node line.
func WriteSummary(w io.Writer, res *domain.RunResult) {
	for i := range res.Nodes {
		n := &res.Nodes[i]
		fmt.Fprintln(w, nodeLine(n))

		if n.Status == domain.StatusFailed && n.Diagnostics != "" {
			fmt.Fprintln(w, diagStyle.Render(strings.TrimRight(n.Diagnostics, "\n")))
		}
	}

	fmt.Fprintln(w, totalsLine(res))
}

func nodeLine(n *domain.NodeResult) string {
	switch n.Status {
	case domain.StatusSucceeded:
		if n.UpToDate {
			return cachedStyle.Render(style.Dot+" "+n.Key) + cachedStyle.Render(" (up to date)")
		}
		return okStyle.Render(style.Check+" "+n.Key) + cachedStyle.Render(fmt.Sprintf(" (%s)", n.Duration.Round(summaryDurationUnit)))
	case domain.StatusFailed:
		return failedStyle.Render(style.Cross + " " + n.Key)
	case domain.StatusSkipped:
		return skippedStyle.Render(style.Circle+" "+n.Key) + cachedStyle.Render(" (skipped, caused by "+n.CausedBy+")")
	default:
		return cachedStyle.Render(style.Circle + " " + n.Key + " (not run)")
	}
}

func totalsLine(res *domain.RunResult) string {
	totals := fmt.Sprintf(
		"%d executed, %d up to date, %d failed, %d skipped in %s",
		res.Executed, res.UpToDate, res.Failed, res.Skipped,
		res.WallTime.Round(summaryDurationUnit),
	)
	if res.Success {
		return okStyle.Render(style.Check + " " + totals)
	}
	return failedStyle.Render(style.Cross + " " + totals)
}
