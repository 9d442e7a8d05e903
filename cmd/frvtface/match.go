package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dudu/frvtface/internal/pipeline"
	"github.com/dudu/frvtface/internal/store"
)

var matchCmd = &cobra.Command{
	Use:   "match <templateA> <templateB>",
	Short: "Score two templates (files, or IDs with --db)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		load := loadTemplateFile
		if cfg.DatabaseURL != "" {
			db, err := store.New(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close(context.Background())
			load = func(id string) (pipeline.Template, error) {
				rec, err := db.GetTemplate(cmd.Context(), id)
				if err != nil {
					return pipeline.Template{}, fmt.Errorf("%s: %w", id, err)
				}
				return rec.Template, nil
			}
		}

		a, err := load(args[0])
		if err != nil {
			return err
		}
		b, err := load(args[1])
		if err != nil {
			return err
		}

		fmt.Printf("%.6f\n", pipeline.MatchTemplates(a, b))
		return nil
	},
}

func loadTemplateFile(path string) (pipeline.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Template{}, fmt.Errorf("failed to read template: %w", err)
	}
	var t pipeline.Template
	if err := t.UnmarshalBinary(data); err != nil {
		return pipeline.Template{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func init() {
	matchCmd.Flags().StringVar(&flagCfg.DatabaseURL, "db", "", "PostgreSQL connection string; arguments are template IDs")
	rootCmd.AddCommand(matchCmd)
}
