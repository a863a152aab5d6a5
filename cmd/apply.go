package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hauldata/fleetqa/internal/pipeline"
)

var (
	applyLog       string
	applyProposals string
	applyOut       string
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Merge accepted proposals back into the driving log",
	Long:  "Reads a proposal artifact, skips rows flagged manual_check or without a proposed value, and writes the corrected log.",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := pipeline.Apply(applyLog, applyProposals, applyOut)
		if err != nil {
			return err
		}
		zap.L().Info("apply complete",
			zap.Int("edits", n),
			zap.String("out", applyOut))
		return nil
	},
}

func init() {
	applyCmd.Flags().StringVar(&applyLog, "log", "driving_log.csv", "normalized driving log")
	applyCmd.Flags().StringVar(&applyProposals, "proposals", "proposed_corrections.csv", "proposal artifact from a clean run")
	applyCmd.Flags().StringVar(&applyOut, "out", "driving_log_corrected.csv", "corrected log to write")
	rootCmd.AddCommand(applyCmd)
}
