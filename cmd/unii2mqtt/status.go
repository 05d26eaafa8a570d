package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unii2mqtt/unii2mqtt/internal/config"
	"github.com/unii2mqtt/unii2mqtt/internal/log"
	"github.com/unii2mqtt/unii2mqtt/internal/panel"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the armed state of all sections",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withConnectedPanel(func(ctx context.Context, cfg *config.Config, p *panel.Panel, logger *log.Logger) error {
		if err := p.Refresh(ctx); err != nil {
			return err
		}

		sections := p.Sections()
		if len(sections) == 0 {
			fmt.Println("No sections reported")
			return nil
		}

		for _, s := range sections {
			pending := ""
			if s.Pending {
				pending = " (pending)"
			}
			fmt.Printf("Section %d: %s%s\n", s.Number, s.State, pending)
		}
		return nil
	})
}
