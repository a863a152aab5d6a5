package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hauldata/fleetqa/internal/ingest"
)

var (
	ingestOut     string
	ingestAliases string
	ingestVehicle string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <workbook.xlsx>",
	Short: "Normalize a raw vendor export into the standard driving-log CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		aliasFile := ingestAliases
		if aliasFile == "" {
			aliasFile = cfg.Ingest.AliasFile
		}

		n, err := ingest.ConvertXLSX(args[0], ingestOut, ingest.ConvertOptions{
			AliasFile: aliasFile,
			Vehicle:   ingestVehicle,
		})
		if err != nil {
			return err
		}
		zap.L().Info("ingest complete",
			zap.Int("rows", n),
			zap.String("out", ingestOut))
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestOut, "out", "driving_log.csv", "normalized CSV to write")
	ingestCmd.Flags().StringVar(&ingestAliases, "aliases", "", "YAML file extending the header alias table")
	ingestCmd.Flags().StringVar(&ingestVehicle, "vehicle", "", "override vehicle detection for all sheets")
	rootCmd.AddCommand(ingestCmd)
}
