package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hauldata/fleetqa/internal/ingest"
	"github.com/hauldata/fleetqa/internal/store"
)

var (
	loadLog       string
	loadProposals string
)

var loaddbCmd = &cobra.Command{
	Use:   "loaddb",
	Short: "Load a driving log (and optionally its proposals) into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		records, err := ingest.ReadRecords(loadLog)
		if err != nil {
			return err
		}

		run, err := st.CreateLoadRun(ctx, loadLog)
		if err != nil {
			return err
		}

		n, err := st.InsertRecords(ctx, run.ID, records)
		if err != nil {
			return err
		}

		if loadProposals != "" {
			proposals, err := ingest.ReadProposals(loadProposals)
			if err != nil {
				return err
			}
			byID := make(map[int]int, len(records))
			for i, r := range records {
				byID[r.ID] = i
			}
			rows := make([]store.ProposalRow, 0, len(proposals))
			for _, p := range proposals {
				row := store.ProposalRow{Proposal: p}
				if i, ok := byID[p.ID]; ok {
					row.Date = records[i].Date
					row.VehicleID = records[i].VehicleID
				}
				rows = append(rows, row)
			}
			if _, err := st.InsertProposals(ctx, run.ID, rows); err != nil {
				return err
			}
		}

		if err := st.FinishLoadRun(ctx, run.ID, n); err != nil {
			return err
		}
		zap.L().Info("load complete",
			zap.String("run", run.ID),
			zap.Int("records", n))
		return nil
	},
}

// openStore picks the configured backend.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Store.Driver)
	}
}

func init() {
	loaddbCmd.Flags().StringVar(&loadLog, "log", "driving_log.csv", "normalized driving log to load")
	loaddbCmd.Flags().StringVar(&loadProposals, "proposals", "", "optional proposal artifact to load alongside")
	rootCmd.AddCommand(loaddbCmd)
}
