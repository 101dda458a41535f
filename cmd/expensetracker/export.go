package main

import (
	"context"
	"fmt"

	"expensetracker/internal/database"
	"expensetracker/internal/export"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <file.xlsx>",
	Short: "Export all expenses and category totals to an Excel workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			summary, err := export.NewExcelExporter(a.store, a.logger).WriteFile(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d expenses (total %s) to %s\n", summary.Expenses, summary.Total, args[0])
			return nil
		})
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write a backup copy of the database and prune old copies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			svc := database.NewBackupService(a.db, a.cfg.Database.Backup, a.logger)
			path, err := svc.PerformBackup(ctx)
			if err != nil {
				return err
			}
			removed := svc.CleanupOldBackups()
			fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s (%d old backups removed)\n", path, removed)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(exportCmd, backupCmd)
}
