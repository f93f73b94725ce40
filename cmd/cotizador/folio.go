package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var folioCmd = &cobra.Command{
	Use:   "folio",
	Short: "Inspect and advance the proposal counter",
}

var folioNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Allocate and print the next folio",
	Long: `Allocates the next folio from the configured backend (file, redis or
postgres). The number is consumed, exactly as when a proposal is rendered.`,
	RunE: runFolioNext,
}

func init() {
	folioCmd.AddCommand(folioNextCmd)
}

func runFolioNext(cmd *cobra.Command, args []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	n, err := a.Folio.Next(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), n)
	return nil
}
