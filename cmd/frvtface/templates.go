package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dudu/frvtface/internal/store"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage templates stored in PostgreSQL",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("--db or FRVT_DATABASE_URL is required")
		}
		return nil
	},
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.New(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close(context.Background())

		records, err := db.ListTemplates(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tLABEL\tVALID\tCREATED")
		for _, r := range records {
			fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", r.ID, r.Label, r.Template.Valid, humanize.Time(r.CreatedAt))
		}
		return tw.Flush()
	},
}

var templatesDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete stored templates",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close(context.Background())

		for _, id := range args {
			if err := db.DeleteTemplate(ctx, id); err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
			fmt.Printf("deleted %s\n", id)
		}
		return nil
	},
}

func init() {
	templatesCmd.PersistentFlags().StringVar(&flagCfg.DatabaseURL, "db", "", "PostgreSQL connection string")
	templatesCmd.AddCommand(templatesListCmd, templatesDeleteCmd)
	rootCmd.AddCommand(templatesCmd)
}
