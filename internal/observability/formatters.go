// Package observability provides formatted output for verbose CLI mode and
// Prometheus metrics for refinement runs.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/essay-refiner/internal/refine"
	"github.com/jonathan/essay-refiner/internal/strategy"
	"github.com/jonathan/essay-refiner/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len([]rune(line)) > boxWidth-4 {
			line = truncate(line, boxWidth-4)
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// bar renders a raw 0-10 score as a ten-cell bar.
func bar(raw float64) string {
	filled := int(raw + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > 10 {
		filled = 10
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}

// PrintScorecard outputs category scores and the composite for one snapshot.
func (p *Printer) PrintScorecard(title string, card *types.Scorecard) {
	if card == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Composite: %d/100   (rubric %s)\n\n", card.Composite(), card.RubricVersion))

	for _, c := range card.Categories {
		sb.WriteString(fmt.Sprintf("%-16s %s %4.1f  w=%.2f\n", c.Name, bar(c.RawScore), c.RawScore, c.Weight))
	}

	if len(card.Flags) > 0 {
		sb.WriteString(fmt.Sprintf("\nFlags: %s\n", strings.Join(card.Flags, ", ")))
	}

	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintTrace outputs one line per iteration record.
func (p *Printer) PrintTrace(records []types.IterationRecord, best int) {
	if len(records) == 0 {
		return
	}

	var sb strings.Builder
	for _, rec := range records {
		applied := string(rec.StrategyApplied)
		if applied == "" {
			applied = "baseline"
		}
		marker := " "
		if rec.AttemptIndex == best {
			marker = "★"
		}
		sb.WriteString(fmt.Sprintf("%s #%d  %3d  %s\n", marker, rec.AttemptIndex, rec.CompositeScore, applied))
	}

	p.printBox("ITERATION TRACE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintResult outputs the stop reason, the best record and per-strategy outcomes.
func (p *Printer) PrintResult(result *refine.Result) {
	if result == nil {
		return
	}

	p.PrintTrace(result.Records, result.Best.AttemptIndex)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Stop reason:  %s\n", result.StopReason))
	sb.WriteString(fmt.Sprintf("Best:         %d (attempt %d)\n", result.Best.CompositeScore, result.Best.AttemptIndex))
	sb.WriteString(fmt.Sprintf("Refinements:  %d\n", result.Refinements))
	if len(result.DisabledTiers) > 0 {
		tiers := make([]string, len(result.DisabledTiers))
		for i, t := range result.DisabledTiers {
			tiers[i] = string(t)
		}
		sb.WriteString(fmt.Sprintf("Disabled:     %s\n", strings.Join(tiers, ", ")))
	}

	if len(result.Strategies) > 0 {
		sb.WriteString("\nStrategies:\n")
		for _, s := range result.Strategies {
			sb.WriteString(fmt.Sprintf("  • %-28s %s\n", s.ID, s.Outcome))
		}
	}

	dropped := 0
	for _, w := range result.WorkItems {
		if w.Status != refine.WorkItemAccepted {
			dropped++
		}
	}
	if dropped > 0 {
		sb.WriteString(fmt.Sprintf("\n⚠ %d of %d work items produced no text\n", dropped, len(result.WorkItems)))
	}

	p.printBox("RUN SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSuggestions outputs the accepted suggestions of a suggestion batch.
func (p *Printer) PrintSuggestions(result *refine.SuggestResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Composite: %d   Target: %s via %s\n", result.Composite, result.Category, result.Strategy))

	shown := 0
	for _, item := range result.Items {
		for _, a := range item.Accepted {
			if shown == maxItemsToShow {
				break
			}
			sb.WriteString("\n")
			sb.WriteString(fmt.Sprintf("“%s”\n", a.Suggestion.SourceQuote))
			sb.WriteString(fmt.Sprintf("  → %s\n", a.Suggestion.ProposedText))
			sb.WriteString(fmt.Sprintf("  [%s, quality %d]\n", a.Suggestion.ApproachType, a.QualityScore))
			shown++
		}
	}
	if shown == 0 {
		sb.WriteString("\nNo suggestions passed validation\n")
	}

	if result.Dropped > 0 || result.Abandoned > 0 {
		sb.WriteString(fmt.Sprintf("\n%d passages dropped, %d abandoned\n", result.Dropped, result.Abandoned))
	}

	p.printBox("SUGGESTIONS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStrategies outputs the strategy library in selection order.
func (p *Printer) PrintStrategies(lib *strategy.Library) {
	if lib == nil {
		return
	}

	var sb strings.Builder
	for _, s := range lib.All() {
		sb.WriteString(fmt.Sprintf("%3d  %-8s %s\n", s.Priority, s.Tier, s.ID))
		sb.WriteString(fmt.Sprintf("          %s\n", strings.Join(s.Categories, ", ")))
	}

	p.printBox("STRATEGY LIBRARY", strings.TrimSuffix(sb.String(), "\n"))
}
