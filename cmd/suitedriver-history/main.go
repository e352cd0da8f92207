package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"suitedriver/internal/exitcodes"
	"suitedriver/internal/history"
)

func main() {
	// Parse command-line flags
	dbPath := flag.String("db", "suitedriver.db", "Path to run history database")
	recent := flag.Int("recent", 0, "Show N most recent runs")
	runID := flag.String("run", "", "Show one run and its per-file results")
	failed := flag.Int("failed", 0, "Show N most recent failing file invocations")
	sweeps := flag.Int("sweeps", 0, "Show sweep records of the N most recent clean runs")
	stats := flag.Bool("stats", false, "Show aggregate statistics")
	days := flag.Int("days", 30, "Number of days for statistics (default: 30)")
	jsonOutput := flag.Bool("json", false, "Output in JSON format")
	flag.Parse()

	db, err := history.Open(*dbPath)
	if err != nil {
		log.Fatalf("ERROR: Failed to open database %s: %v", *dbPath, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("ERROR: Failed to close database: %v", err)
		}
	}()

	switch {
	case *stats:
		showStats(db, *days, *jsonOutput)
	case *recent > 0:
		showRecent(db, *recent, *jsonOutput)
	case *runID != "":
		showRun(db, *runID, *jsonOutput)
	case *failed > 0:
		showFailed(db, *failed, *jsonOutput)
	case *sweeps > 0:
		showSweeps(db, *sweeps, *jsonOutput)
	default:
		flag.Usage()
		fmt.Println("\nExamples:")
		fmt.Println("  suitedriver-history --recent 10       # Show 10 most recent runs")
		fmt.Println("  suitedriver-history --run <ID>        # Show one run's per-file results")
		fmt.Println("  suitedriver-history --failed 20       # Show recent failing files")
		fmt.Println("  suitedriver-history --sweeps 5        # Show recent clean activity")
		fmt.Println("  suitedriver-history --stats           # Show aggregate statistics")
		os.Exit(exitcodes.InvalidConfig)
	}
}

func showStats(db *history.DB, days int, jsonOutput bool) {
	stats, err := db.GetStats(days)
	if err != nil {
		log.Fatalf("ERROR: Failed to get statistics: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Run Statistics (Last %d days)\n", days)
	fmt.Printf("Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Printf("Total Runs:         %d\n", stats.TotalRuns)
	fmt.Printf("Failed Runs:        %d\n", stats.FailedRuns)
	fmt.Printf("Total Invocations:  %d\n", stats.TotalInvocations)
	fmt.Printf("Failed Files:       %d\n", stats.FailedFiles)
	fmt.Printf("Artifacts Swept:    %d\n", stats.FilesSwept)
	fmt.Printf("Bytes Freed:        %d\n", stats.BytesFreed)
}

func showRecent(db *history.DB, limit int, jsonOutput bool) {
	runs, err := db.GetRecentRuns(limit)
	if err != nil {
		log.Fatalf("ERROR: Failed to query runs: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(runs, "", "  ")
		fmt.Println(string(data))
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tOPERATION\tSTARTED\tELAPSED\tTOTAL\tFAILED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			run.ID, run.Operation,
			run.StartedAt.Format(time.RFC3339),
			time.Duration(run.ElapsedMS)*time.Millisecond,
			run.Total, run.Failed)
	}
	w.Flush()
}

func showRun(db *history.DB, id string, jsonOutput bool) {
	run, invocations, err := db.GetRun(id)
	if err != nil {
		log.Fatalf("ERROR: Failed to query run %s: %v", id, err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(struct {
			Run         *history.RunRecord
			Invocations []history.InvocationRecord
		}{run, invocations}, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Run %s (%s) started %s: %d files, %d failed\n\n",
		run.ID, run.Operation, run.StartedAt.Format(time.RFC3339), run.Total, run.Failed)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tFILE\tEXIT\tDURATION\tERROR")
	for _, inv := range invocations {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n",
			inv.Seq, inv.File, inv.ExitCode,
			time.Duration(inv.DurationMS)*time.Millisecond,
			inv.ErrorMessage)
	}
	w.Flush()
}

func showFailed(db *history.DB, limit int, jsonOutput bool) {
	invocations, err := db.GetFailedInvocations(limit)
	if err != nil {
		log.Fatalf("ERROR: Failed to query failed invocations: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(invocations, "", "  ")
		fmt.Println(string(data))
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tFILE\tEXIT\tERROR")
	for _, inv := range invocations {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", inv.RunID, inv.File, inv.ExitCode, inv.ErrorMessage)
	}
	w.Flush()
}

func showSweeps(db *history.DB, limit int, jsonOutput bool) {
	records, err := db.GetSweeps(limit)
	if err != nil {
		log.Fatalf("ERROR: Failed to query sweeps: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(data))
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tACTION\tPATH\tSIZE\tERROR")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", rec.RunID, rec.Action, rec.Path, rec.Size, rec.ErrorMessage)
	}
	w.Flush()
}
