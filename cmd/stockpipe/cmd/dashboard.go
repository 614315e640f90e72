package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stockpipe/internal/dashboard"
	"stockpipe/internal/model"
	"stockpipe/internal/recorder"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Serve the stored table as an HTML dashboard",
	Long: `Serve the SQLite table as a data table plus Close, Volume and High/Low
charts. The table is read again on every page load. Stop with Ctrl+C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rec := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		table, symbol := cfg.Database.Table, cfg.DataSource.Symbol
		handler := dashboard.NewRouter(func(ctx context.Context) (*model.Frame, error) {
			f, err := rec.Read(ctx, table)
			if err != nil {
				return nil, err
			}
			f.Symbol = symbol
			return f, nil
		})
		return dashboard.Serve(ctx, cfg.Dashboard.Addr, handler)
	},
}
