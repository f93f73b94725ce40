package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cotizador/pkg/registry"
)

var registryPath string

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect the worker activity registry",
}

var registryValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the registry file and its input schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.Load(registryPath)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		if err := reg.Validate(); err != nil {
			return fmt.Errorf("registry validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed. Found %d activities.\n", len(reg.Activities))
		return nil
	},
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered activities",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.Load(registryPath)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TASK TYPE\tSTATUS\tTIMEOUT\tRETRIES\t")
		for _, a := range reg.Activities {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t\n", a.TaskType, a.Status, a.Timeout, a.Retries)
		}
		return tw.Flush()
	},
}

func init() {
	registryCmd.PersistentFlags().StringVar(&registryPath, "path", "configs/activity-registry.json", "Path to registry file")
	registryCmd.AddCommand(registryValidateCmd)
	registryCmd.AddCommand(registryListCmd)
	rootCmd.AddCommand(registryCmd)
}
