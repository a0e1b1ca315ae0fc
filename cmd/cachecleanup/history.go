package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cache-cleanup/internal/config"
	"cache-cleanup/internal/database"
	"cache-cleanup/internal/exitcodes"
)

type historyFlags struct {
	db         string
	recent     int
	hook       string
	errorsOnly bool
	stats      bool
	days       int
	prune      int
	jsonOutput bool
}

func historyCmd(flags *globalFlags) *cobra.Command {
	hf := &historyFlags{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query the removal history database",
		Example: `  cachecleanup history --recent 10      # Show 10 most recent removals
  cachecleanup history --hook afterTest  # Show removals made by afterTest
  cachecleanup history --errors          # Show failed removals
  cachecleanup history --stats --days 7  # Show counts for the last week
  cachecleanup history --prune 30        # Drop records older than 30 days`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbPath, err := hf.resolveDB(flags)
			if err != nil {
				return err
			}

			db, err := database.NewHistoryDB(dbPath)
			if err != nil {
				return exitcodes.WithCode(exitcodes.RuntimeError, fmt.Errorf("open history %s: %w", dbPath, err))
			}
			defer db.Close()

			if err := hf.show(cmd.OutOrStdout(), db); err != nil {
				return exitcodes.WithCode(exitcodes.RuntimeError, err)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&hf.db, "db", "", "Path to history database (default: historyDB from the configuration)")
	f.IntVar(&hf.recent, "recent", 20, "Show N most recent removals")
	f.StringVar(&hf.hook, "hook", "", "Filter by hook")
	f.BoolVar(&hf.errorsOnly, "errors", false, "Show failed removals only")
	f.BoolVar(&hf.stats, "stats", false, "Show removal statistics")
	f.IntVar(&hf.days, "days", 30, "Number of days for statistics")
	f.IntVar(&hf.prune, "prune", 0, "Delete records older than N days, then vacuum")
	f.BoolVar(&hf.jsonOutput, "json", false, "Output in JSON format")
	return cmd
}

func (hf *historyFlags) resolveDB(flags *globalFlags) (string, error) {
	if hf.db != "" {
		return hf.db, nil
	}
	cfg, err := config.Load(flags.config, flags.root)
	if err != nil {
		return "", exitcodes.WithCode(exitcodes.InvalidConfig, err)
	}
	if cfg.HistoryDB == "" {
		return "", exitcodes.WithCode(exitcodes.InvalidConfig,
			errors.New("no history database: set historyDB in the configuration or pass --db"))
	}
	return cfg.HistoryDB, nil
}

func (hf *historyFlags) show(out io.Writer, db *database.HistoryDB) error {
	switch {
	case hf.prune > 0:
		n, err := db.DeleteOldRecords(hf.prune)
		if err != nil {
			return fmt.Errorf("prune: %w", err)
		}
		if err := db.Vacuum(); err != nil {
			return fmt.Errorf("vacuum: %w", err)
		}
		fmt.Fprintf(out, "Deleted %d records older than %d days\n", n, hf.prune)
		return nil
	case hf.stats:
		stats, err := db.GetStats(hf.days)
		if err != nil {
			return fmt.Errorf("get statistics: %w", err)
		}
		if hf.jsonOutput {
			return writeJSON(out, stats)
		}
		printStats(out, stats, hf.days)
		return nil
	}

	var (
		records []database.Record
		err     error
	)
	switch {
	case hf.errorsOnly:
		records, err = db.GetByStatus(database.StatusError, hf.recent)
	case hf.hook != "":
		records, err = db.GetByHook(hf.hook, hf.recent)
	default:
		records, err = db.GetRecent(hf.recent)
	}
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}

	if hf.jsonOutput {
		return writeJSON(out, records)
	}
	return printRecords(out, records)
}

func writeJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func printStats(out io.Writer, stats *database.Stats, days int) {
	fmt.Fprintf(out, "Removal Statistics (Last %d days)\n", days)
	fmt.Fprintf(out, "Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Fprintf(out, "Total Removed:  %d\n", stats.TotalRemoved)
	fmt.Fprintf(out, "Total Errors:   %d\n", stats.TotalErrors)

	printCounts(out, "By Hook:", stats.ByHook)
	printCounts(out, "By Job:", stats.ByJob)
}

func printCounts(out io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(out, "\n%s\n", title)
	for _, k := range keys {
		fmt.Fprintf(out, "  %-15s %d\n", k, counts[k])
	}
}

func printRecords(out io.Writer, records []database.Record) error {
	if len(records) == 0 {
		fmt.Fprintln(out, "No records found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTimestamp\tHook\tJob\tAction\tObject\tStatus\tPath")
	_, _ = fmt.Fprintln(w, "--\t---------\t----\t---\t------\t------\t------\t----")

	for _, r := range records {
		timestamp := r.Timestamp.Local().Format("2006-01-02 15:04:05")
		path := r.Path
		if r.ErrorMessage != "" {
			path = path + " (" + r.ErrorMessage + ")"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, timestamp, r.Hook, r.Job, r.Action, r.ObjectType, r.Status, path)
	}
	return w.Flush()
}
