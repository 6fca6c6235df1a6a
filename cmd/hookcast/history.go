package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"hookcast/internal/history"
)

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent deliveries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if !cfg.History.Enabled {
				return fmt.Errorf("history is disabled in config")
			}

			store, err := history.Open(cfg.History.DBPath, logger)
			if err != nil {
				return fmt.Errorf("history store: %w", err)
			}
			defer store.Close()

			deliveries, err := store.Recent(context.Background(), limit)
			if err != nil {
				return err
			}
			if len(deliveries) == 0 {
				fmt.Println("no deliveries recorded")
				return nil
			}

			for _, d := range deliveries {
				line := fmt.Sprintf("%s  %-10s  %s  bytes=%d files=%d",
					d.CreatedAt.Format("2006-01-02 15:04:05"), d.Status, d.ID, d.Bytes, d.Files)
				if d.Error != "" {
					line += "  error=" + d.Error
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of deliveries to show")
	return cmd
}
