package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
)

var errorLogCmd = &cobra.Command{
	Use:   "errorlog",
	Short: "Operational error log maintenance",
}

var pruneErrorLogCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete error logs older than the retention window",
	Long:  `Delete error logs older than error_log.retention_days, or --days when given.`,
	Run: func(cmd *cobra.Command, args []string) {
		deps, err := initializeDependencies()
		if err != nil {
			log.Fatalf("failed to init dependencies: %v", err)
		}
		defer deps.close()

		days := deps.Config.ErrorLog.RetentionDays
		if pruneDays > 0 {
			days = pruneDays
		}
		cutoff := time.Now().UTC().AddDate(0, 0, -days)

		deleted, err := deps.ErrorLogs.PruneOlderThan(context.Background(), cutoff)
		if err != nil {
			log.Fatalf("failed to prune error logs: %v", err)
		}
		fmt.Printf("deleted %d error logs older than %s\n", deleted, cutoff.Format(time.RFC3339))
	},
}

var listErrorLogCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the most recent error logs",
	Run: func(cmd *cobra.Command, args []string) {
		deps, err := initializeDependencies()
		if err != nil {
			log.Fatalf("failed to init dependencies: %v", err)
		}
		defer deps.close()

		entries, err := deps.ErrorLogs.List(context.Background(), listLimit)
		if err != nil {
			log.Fatalf("failed to list error logs: %v", err)
		}
		for _, e := range entries {
			fmt.Printf("%s  %-16s  %s  %v\n", e.CreatedAt.Format(time.RFC3339), e.Source, e.Message, e.Details)
		}
	},
}

var (
	pruneDays int
	listLimit int
)

func init() {
	pruneErrorLogCmd.Flags().IntVar(&pruneDays, "days", 0, "retention in days, overrides error_log.retention_days")
	listErrorLogCmd.Flags().IntVar(&listLimit, "limit", 20, "number of entries to print")

	errorLogCmd.AddCommand(pruneErrorLogCmd)
	errorLogCmd.AddCommand(listErrorLogCmd)
}
