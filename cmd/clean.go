package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hauldata/fleetqa/internal/oracle"
	"github.com/hauldata/fleetqa/internal/pipeline"
	"github.com/hauldata/fleetqa/pkg/anthropic"
	"github.com/hauldata/fleetqa/pkg/gemini"
)

var (
	cleanIn  string
	cleanOut string
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Run a correction pass over a normalized driving log",
	Long:  "Derives reference values, selects suspect records, requests corrections from the configured inference provider in concurrent batches, and writes the accepted proposals to CSV.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		o, err := buildOracle()
		if err != nil {
			return err
		}

		p := pipeline.New(o, cfg.Clean, cfg.Retry, pipeline.NewZapReporter())
		n, err := p.Run(ctx, cleanIn, cleanOut)
		if err != nil {
			return err
		}
		zap.L().Info("clean complete",
			zap.Int("proposals", n),
			zap.String("out", cleanOut))
		return nil
	},
}

// buildOracle constructs the configured inference provider.
func buildOracle() (oracle.Oracle, error) {
	switch cfg.Oracle.Provider {
	case "gemini", "":
		if cfg.Oracle.GeminiKey == "" {
			return nil, eris.New("oracle: FLEETQA_ORACLE_GEMINI_KEY is required")
		}
		opts := []gemini.Option{
			gemini.WithModel(cfg.Oracle.GeminiModel),
			gemini.WithRateLimit(cfg.Oracle.RequestsPerSec),
		}
		if cfg.Oracle.GeminiBaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(cfg.Oracle.GeminiBaseURL))
		}
		client := gemini.NewClient(cfg.Oracle.GeminiKey, opts...)
		return oracle.NewGemini(client, cfg.Oracle), nil

	case "anthropic":
		if cfg.Oracle.AnthropicKey == "" {
			return nil, eris.New("oracle: FLEETQA_ORACLE_ANTHROPIC_KEY is required")
		}
		client := anthropic.NewClient(cfg.Oracle.AnthropicKey)
		return oracle.NewAnthropic(client, cfg.Oracle), nil

	default:
		return nil, eris.Errorf("oracle: unknown provider %q", cfg.Oracle.Provider)
	}
}

func init() {
	cleanCmd.Flags().StringVar(&cleanIn, "in", "driving_log.csv", "normalized driving log to clean")
	cleanCmd.Flags().StringVar(&cleanOut, "out", "proposed_corrections.csv", "proposal artifact to write")
	rootCmd.AddCommand(cleanCmd)
}
