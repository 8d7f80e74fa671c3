package progress

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/pterm/pterm"

	"github.com/starford/notegen/internal/models"
)

// Console prints events to the terminal with pterm.
type Console struct {
	verbose bool
}

// NewConsole returns a console observer. Non-verbose consoles only print
// terminal transitions.
func NewConsole(verbose bool) *Console {
	return &Console{verbose: verbose}
}

// Run prints events from ch until it is closed.
func (c *Console) Run(ch <-chan Event) {
	for e := range ch {
		c.Print(e)
	}
}

// Print renders one event.
func (c *Console) Print(e Event) {
	counter := pterm.Gray(fmt.Sprintf("[%d/%d]", e.Index, e.Total))
	switch e.Status {
	case models.StatusCompleted:
		if e.Message != "" {
			pterm.Info.Printf("%s %s: %s\n", counter, e.Path, e.Message)
			return
		}
		pterm.Success.Printf("%s %s\n", counter, e.Path)
	case models.StatusFailed:
		pterm.Error.Printf("%s %s failed during %s: %s\n", counter, e.Path, e.Stage, e.Message)
	default:
		if c.verbose {
			pterm.Printf("%s %s: %s\n", counter, pterm.LightCyan(e.Stage.String()), e.Path)
		}
	}
}

// Summary prints the final run report.
func Summary(r *models.BatchProcessResult, breakdown map[string]int) {
	if r.Cancelled {
		pterm.Warning.Println("Run cancelled before all files were processed")
	}
	pterm.Success.Printf("Processed %s, skipped %s, failed %s in %s\n",
		pterm.Green(r.Processed), pterm.Yellow(r.Skipped), pterm.Red(r.Failed), r.TotalBatchDuration.Round(time.Millisecond))
	if r.SummaryCount > 0 {
		pterm.Info.Printf("Summaries: %d, tokens: %d, avg summary time: %s\n",
			r.SummaryCount, r.TotalTokens, r.AverageSummaryDuration.Round(time.Millisecond))
	}
	for _, stage := range slices.Sorted(maps.Keys(breakdown)) {
		pterm.Printf("  failed at %s: %d\n", pterm.LightMagenta(stage), breakdown[stage])
	}
	for _, p := range r.FailedPaths {
		pterm.Printf("  %s %s\n", pterm.Red("✗"), p)
	}
}
