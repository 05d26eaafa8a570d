package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unii2mqtt/unii2mqtt/internal/config"
	"github.com/unii2mqtt/unii2mqtt/internal/log"
	"github.com/unii2mqtt/unii2mqtt/internal/panel"
)

var (
	controlSection int
	controlInput   int
	controlCode    string
)

var armCmd = &cobra.Command{
	Use:   "arm",
	Short: "Arm a section",
	RunE:  runArm,
}

var disarmCmd = &cobra.Command{
	Use:   "disarm",
	Short: "Disarm a section",
	RunE:  runDisarm,
}

var bypassCmd = &cobra.Command{
	Use:   "bypass",
	Short: "Bypass an input",
	RunE:  runBypass,
}

var unbypassCmd = &cobra.Command{
	Use:   "unbypass",
	Short: "Remove the bypass from an input",
	RunE:  runUnbypass,
}

func init() {
	armCmd.Flags().IntVar(&controlSection, "section", 0, "Section number")
	armCmd.Flags().StringVar(&controlCode, "code", "", "User code (defaults to the configured code)")
	armCmd.MarkFlagRequired("section")

	disarmCmd.Flags().IntVar(&controlSection, "section", 0, "Section number")
	disarmCmd.Flags().StringVar(&controlCode, "code", "", "User code (defaults to the configured code)")
	disarmCmd.MarkFlagRequired("section")

	bypassCmd.Flags().IntVar(&controlInput, "input", 0, "Input number")
	bypassCmd.Flags().StringVar(&controlCode, "code", "", "User code (defaults to the configured code)")
	bypassCmd.MarkFlagRequired("input")

	unbypassCmd.Flags().IntVar(&controlInput, "input", 0, "Input number")
	unbypassCmd.Flags().StringVar(&controlCode, "code", "", "User code (defaults to the configured code)")
	unbypassCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(armCmd)
	rootCmd.AddCommand(disarmCmd)
	rootCmd.AddCommand(bypassCmd)
	rootCmd.AddCommand(unbypassCmd)
}

func runArm(cmd *cobra.Command, args []string) error {
	return withConnectedPanel(func(ctx context.Context, cfg *config.Config, p *panel.Panel, logger *log.Logger) error {
		if err := p.Arm(ctx, controlSection, controlCode); err != nil {
			return err
		}
		fmt.Printf("Section %d armed\n", controlSection)
		return nil
	})
}

func runDisarm(cmd *cobra.Command, args []string) error {
	return withConnectedPanel(func(ctx context.Context, cfg *config.Config, p *panel.Panel, logger *log.Logger) error {
		if err := p.Disarm(ctx, controlSection, controlCode); err != nil {
			return err
		}
		fmt.Printf("Section %d disarmed\n", controlSection)
		return nil
	})
}

func runBypass(cmd *cobra.Command, args []string) error {
	return withConnectedPanel(func(ctx context.Context, cfg *config.Config, p *panel.Panel, logger *log.Logger) error {
		if err := p.Bypass(ctx, controlInput, controlCode); err != nil {
			return err
		}
		fmt.Printf("Input %d bypassed\n", controlInput)
		return nil
	})
}

func runUnbypass(cmd *cobra.Command, args []string) error {
	return withConnectedPanel(func(ctx context.Context, cfg *config.Config, p *panel.Panel, logger *log.Logger) error {
		if err := p.Unbypass(ctx, controlInput, controlCode); err != nil {
			return err
		}
		fmt.Printf("Input %d bypass removed\n", controlInput)
		return nil
	})
}
