package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unii2mqtt/unii2mqtt/internal/config"
	"github.com/unii2mqtt/unii2mqtt/internal/log"
	"github.com/unii2mqtt/unii2mqtt/internal/panel"
)

var inputsRescan bool

var inputsCmd = &cobra.Command{
	Use:   "inputs",
	Short: "List panel inputs and their status",
	Long: `Lists the provisioned inputs with their live status. The input
arrangement comes from the cache when available; --rescan forces a
fresh block-by-block discovery scan.`,
	RunE: runInputs,
}

func init() {
	inputsCmd.Flags().BoolVar(&inputsRescan, "rescan", false, "Ignore the cached arrangement and rescan the panel")
	rootCmd.AddCommand(inputsCmd)
}

func runInputs(cmd *cobra.Command, args []string) error {
	return withConnectedPanel(func(ctx context.Context, cfg *config.Config, p *panel.Panel, logger *log.Logger) error {
		if inputsRescan {
			if err := p.LoadArrangement(ctx); err != nil {
				return err
			}
		} else if err := discoverArrangement(ctx, cfg, p, logger); err != nil {
			return err
		}

		if err := p.Refresh(ctx); err != nil {
			return err
		}

		inputs := p.Inputs()
		if len(inputs) == 0 {
			fmt.Println("No inputs found")
			return nil
		}

		for _, in := range inputs {
			name := in.Name
			if name == "" {
				name = "(unnamed)"
			}

			var flags []string
			if in.Status.Bypassed() {
				flags = append(flags, "bypassed")
			}
			if in.Status.Tamper() {
				flags = append(flags, "tamper")
			}
			if in.Status.Masked() {
				flags = append(flags, "masked")
			}
			if in.Status.LowBattery() {
				flags = append(flags, "low battery")
			}

			extra := ""
			if len(flags) > 0 {
				extra = " [" + strings.Join(flags, ", ") + "]"
			}
			fmt.Printf("Input %3d  %-16s  %-11s  %s%s\n", in.Number, name, in.SensorType, in.Status, extra)
		}
		return nil
	})
}
