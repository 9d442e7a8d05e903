package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dudu/frvtface/internal/evaluation"
	"github.com/dudu/frvtface/internal/pipeline"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <list>",
	Short: "Score a verification test list and report TPR at fixed FPR",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := evaluation.LoadTestList(args[0])
		if err != nil {
			return err
		}
		log.Info().
			Int("gallery_size", list.GallerySize).
			Int("pairs", len(list.Pairs)).
			Int("workers", cfg.Workers).
			Msg("test list loaded")

		factory := func() (evaluation.TemplateSource, error) {
			p, err := pipeline.New(cfg)
			if err != nil {
				return nil, err
			}
			return &evaluation.PipelineSource{Pipeline: p, Root: cfg.ImageRoot}, nil
		}

		runner, err := evaluation.NewRunner(cmd.Context(), factory, evaluation.RunnerConfig{
			Workers:  cfg.Workers,
			Dividers: cfg.FPRDividers,
			Progress: os.Stderr,
		})
		if err != nil {
			return err
		}
		defer runner.Close()

		report, err := runner.Run(cmd.Context(), list)
		if err != nil {
			return fmt.Errorf("evaluation failed: %w", err)
		}

		fmt.Fprintln(os.Stderr)
		return report.Write(os.Stdout)
	},
}

func init() {
	d := flagCfg
	evaluateCmd.Flags().StringVar(&flagCfg.ImageRoot, "images", d.ImageRoot, "Directory test list file names are relative to")
	evaluateCmd.Flags().IntVar(&flagCfg.Workers, "workers", d.Workers, "Parallel workers, each with its own models")
	evaluateCmd.Flags().IntSliceVar(&flagCfg.FPRDividers, "fpr", d.FPRDividers, "FPR dividers N for TPR @ FPR 1:N")
	rootCmd.AddCommand(evaluateCmd)
}
