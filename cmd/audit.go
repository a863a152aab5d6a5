package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hauldata/fleetqa/internal/pipeline"
)

var (
	auditIn  string
	auditOut string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Report hard rule violations without calling the inference model",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := pipeline.AuditFile(cfg.Audit, auditIn, auditOut)
		if err != nil {
			return err
		}
		zap.L().Info("audit complete",
			zap.Int("findings", n),
			zap.String("out", auditOut))
		return nil
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditIn, "in", "driving_log.csv", "normalized driving log to audit")
	auditCmd.Flags().StringVar(&auditOut, "out", "audit_report.csv", "findings report to write")
	rootCmd.AddCommand(auditCmd)
}
