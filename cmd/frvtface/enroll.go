package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/dudu/frvtface/internal/imageio"
	"github.com/dudu/frvtface/internal/pipeline"
	"github.com/dudu/frvtface/internal/store"
)

var (
	enrollOut   string
	enrollLabel string
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <image>...",
	Short: "Build one template from one or more images",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		images := make([]gocv.Mat, 0, len(args))
		defer func() {
			for _, img := range images {
				img.Close()
			}
		}()
		for _, path := range args {
			img, err := imageio.Load(path)
			if err != nil {
				return err
			}
			images = append(images, img)
		}

		p, err := pipeline.New(cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		tmpl, err := p.CreateTemplate(images)
		if err != nil {
			return fmt.Errorf("failed to create template: %w", err)
		}

		for i, eyes := range tmpl.EyePairs {
			if !eyes.LeftAssigned {
				fmt.Printf("%s: no reliable landmarks\n", args[i])
				continue
			}
			fmt.Printf("%s: eyes (%d,%d) (%d,%d)\n", args[i], eyes.LeftX, eyes.LeftY, eyes.RightX, eyes.RightY)
		}
		fmt.Printf("valid: %t\n", tmpl.Valid)

		if enrollOut != "" {
			data, err := tmpl.MarshalBinary()
			if err != nil {
				return err
			}
			if err := os.WriteFile(enrollOut, data, 0644); err != nil {
				return fmt.Errorf("failed to write template: %w", err)
			}
			fmt.Printf("template written to %s\n", enrollOut)
		}

		if cfg.DatabaseURL != "" {
			db, err := store.New(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close(cmd.Context())

			id, err := db.SaveTemplate(cmd.Context(), enrollLabel, tmpl)
			if err != nil {
				return fmt.Errorf("failed to store template: %w", err)
			}
			fmt.Printf("template id: %s\n", id)
		}
		return nil
	},
}

func init() {
	enrollCmd.Flags().StringVarP(&enrollOut, "out", "o", "", "Write the binary template to this file")
	enrollCmd.Flags().StringVar(&enrollLabel, "label", "", "Label stored with the template")
	enrollCmd.Flags().StringVar(&flagCfg.DatabaseURL, "db", "", "PostgreSQL connection string to store the template in")
	rootCmd.AddCommand(enrollCmd)
}
