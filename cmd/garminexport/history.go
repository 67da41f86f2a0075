package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previous exports",
	Long:  `Displays the exports recorded in the local history database, newest first.`,
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of exports to show (0 = all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	records, err := db.ListExports(historyLimit)
	if err != nil {
		return fmt.Errorf("listing exports: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No exports recorded")
		return nil
	}

	fmt.Fprintln(out, "------------------------------------------------------------------------")
	fmt.Fprintf(out, "%-20s  %-26s  %5s  %9s  %s\n", "Exported", "Window", "Files", "Size", "Archive")
	fmt.Fprintln(out, "------------------------------------------------------------------------")

	for _, rec := range records {
		fmt.Fprintf(out, "%-20s  %-26s  %2d/%-2d  %9s  %s\n",
			rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			rec.Label,
			rec.FilesWritten, rec.Measurements,
			humanize.Bytes(uint64(rec.Bytes)),
			rec.Archive)
	}

	fmt.Fprintln(out, "------------------------------------------------------------------------")
	fmt.Fprintf(out, "Total: %d exports\n", len(records))
	return nil
}
