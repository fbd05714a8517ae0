package cli

import (
	"fmt"
	"strings"

	"github.com/AlanFontoura/myscripts/internal/infrastructure/storage"
)

// PrintHeader prints the tool header
func PrintHeader(tool string, details ...string) {
	fmt.Printf("myscripts: %s", tool)
	if len(details) > 0 {
		fmt.Printf(" (%s)", strings.Join(details, " | "))
	}
	fmt.Println()
}

// PrintFiles lists the written files.
func PrintFiles(files []string) {
	if len(files) == 0 {
		return
	}
	fmt.Println("\nFiles:")
	for _, f := range files {
		fmt.Printf("  - %s\n", f)
	}
}

// PrintSummary prints a one-line result summary and, when a history store
// is available, the all-time counts of the tool.
func PrintSummary(tool string, counts map[string]int, order []string, store *storage.Storage) {
	fmt.Println(strings.Repeat("-", 60))
	parts := make([]string, 0, len(order))
	for _, k := range order {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	fmt.Printf("Summary: %s\n", strings.Join(parts, " "))

	if store == nil {
		return
	}
	stats, _ := store.GetStats()
	if stats == nil {
		return
	}
	if ts, ok := stats.ToolStats[tool]; ok && ts.Runs > 0 {
		fmt.Printf("\nAll-Time Stats: Runs=%d Breaks=%d\n", ts.Runs, ts.Breaks)
	}
}
