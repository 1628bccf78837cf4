package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/invoice-flow/internal/export"
	"github.com/Veraticus/invoice-flow/internal/model"
	"github.com/Veraticus/invoice-flow/internal/registry"
	"github.com/Veraticus/invoice-flow/internal/service"
)

// RenderTable lays out rows under a header with columns padded to the widest cell.
func RenderTable(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	renderRow := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = style.Width(widths[i] + 2).Render(cell)
		}
		return strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, parts...), " ")
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, renderRow(header, TableHeaderStyle))
	for _, row := range rows {
		lines = append(lines, renderRow(row, TableCellStyle))
	}
	return strings.Join(lines, "\n")
}

// RenderSummary formats the outcome of a batch run.
func RenderSummary(summary service.BatchSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Documents:      %d\n", summary.Total)
	fmt.Fprintf(&b, "%s\n", SuccessStyle.Render(fmt.Sprintf("Succeeded:      %d", summary.Succeeded)))
	if summary.Failed > 0 {
		fmt.Fprintf(&b, "%s\n", ErrorStyle.Render(fmt.Sprintf("Failed:         %d", summary.Failed)))
	} else {
		fmt.Fprintf(&b, "Failed:         %d\n", summary.Failed)
	}
	if summary.Skipped > 0 {
		fmt.Fprintf(&b, "Skipped:        %d\n", summary.Skipped)
	}
	fmt.Fprintf(&b, "By rule:        %d\n", summary.IdentifiedByRule)
	fmt.Fprintf(&b, "By inference:   %d\n", summary.IdentifiedByLLM)
	fmt.Fprintf(&b, "Rules learned:  %d\n", summary.RulesLearned)
	fmt.Fprintf(&b, "Elapsed:        %s", summary.Duration.Round(time.Millisecond))
	return RenderBox(ChartIcon+" Batch summary", b.String())
}

// RenderResults lists per-document outcomes.
func RenderResults(results []model.DocumentResult) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		detail := r.OutputFilename
		if r.Status == model.StatusFailed {
			detail = r.ErrorMessage
		}

		var icon string
		switch r.Status {
		case model.StatusSuccess:
			icon = SuccessStyle.Render(SuccessIcon)
		case model.StatusSkipped:
			icon = SubtleStyle.Render(SkipIcon)
		default:
			icon = ErrorStyle.Render(ErrorIcon)
		}

		rows = append(rows, []string{icon, r.Filename, string(r.Mode), detail})
	}
	return RenderTable([]string{"", "Document", "Mode", "Result"}, rows)
}

// RenderRules lists provider rules in registry order.
func RenderRules(rules []model.ProviderRule) string {
	if len(rules) == 0 {
		return SubtleStyle.Render("No provider rules defined.")
	}

	rows := make([][]string, 0, len(rules))
	for i, rule := range rules {
		lastUsed := "never"
		if rule.LastUsed != nil {
			lastUsed = rule.LastUsed.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			rule.Pattern,
			rule.Provider,
			fmt.Sprintf("%.2f", rule.Confidence),
			string(rule.Source),
			lastUsed,
		})
	}
	return RenderTable([]string{"#", "Pattern", "Provider", "Confidence", "Source", "Last used"}, rows)
}

// RenderRegistryStats formats registry counters.
func RenderRegistryStats(stats registry.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rules:     %d (%d compiled, %d skipped)\n", stats.Rules, stats.Compiled, stats.Skipped)
	fmt.Fprintf(&b, "Version:   %s\n", stats.Version)
	if !stats.LastUpdated.IsZero() {
		fmt.Fprintf(&b, "Updated:   %s\n", stats.LastUpdated.Local().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "Hit rate:  %.1f%% (%d hits, %d misses)", stats.HitRate(), stats.Hits, stats.Misses)
	return RenderBox(RegistryIcon+" Provider registry", b.String())
}

// RenderHistory lists ledger rows.
func RenderHistory(entries []model.LedgerEntry) string {
	if len(entries) == 0 {
		return SubtleStyle.Render("No documents processed yet.")
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		detail := e.AmountSource
		if e.Status == model.StatusFailed {
			detail = e.Error
		}
		rows = append(rows, []string{
			e.ProcessedAt.Local().Format("2006-01-02 15:04"),
			string(e.Status),
			e.Filename,
			e.Provider,
			e.InvoiceDate,
			detail,
		})
	}
	return RenderTable([]string{"Processed", "Status", "Document", "Provider", "Date", "Amount / error"}, rows)
}

// RenderStats formats batch statistics.
func RenderStats(stats export.Stats, target string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Success rate:   %.1f%% (%d/%d)\n", stats.SuccessRate, stats.Successful, stats.Total)
	fmt.Fprintf(&b, "Total USD:      %s\n", stats.Amounts.TotalSource.StringFixed(2))
	fmt.Fprintf(&b, "Total %s:      %s\n", target, stats.Amounts.TotalConverted.StringFixed(2))
	if stats.Successful > 0 {
		fmt.Fprintf(&b, "Average USD:    %s\n", stats.Amounts.AverageSource.StringFixed(2))
		fmt.Fprintf(&b, "Range USD:      %s .. %s\n",
			stats.Amounts.MinSource.StringFixed(2), stats.Amounts.MaxSource.StringFixed(2))
	}
	fmt.Fprintf(&b, "Average time:   %s", stats.Performance.Average.Round(time.Millisecond))

	if len(stats.Providers) > 0 {
		b.WriteString("\n\n" + BoldStyle.Render("Providers") + "\n")
		b.WriteString(renderCounts(stats.Providers))
	}
	if len(stats.Errors) > 0 {
		b.WriteString("\n\n" + BoldStyle.Render("Errors") + "\n")
		b.WriteString(renderCounts(stats.Errors))
	}
	return RenderBox(ChartIcon+" Statistics", b.String())
}

// renderCounts lists counts highest first, ties by name.
func renderCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = fmt.Sprintf("  %4d  %s", counts[k], k)
	}
	return strings.Join(lines, "\n")
}

// RenderCheck formats the validation of one document.
func RenderCheck(name string, check model.DocumentCheck) string {
	if !check.Valid {
		return FormatError(fmt.Sprintf("%s: %s", name, check.Error))
	}
	return FormatSuccess(fmt.Sprintf("%s: %d page(s), %d bytes", name, check.Pages, check.FileSize))
}
