package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of interactions to show (0 for all)")
	historyCmd.Flags().Bool("json", false, "Output as JSON")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent interactions",
	Long:  "Show interactions recorded in the journal, newest first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		agent, cleanup, err := openAgent(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		entries, err := agent.History(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		renderHistory(cmd.OutOrStdout(), entries)
		return nil
	},
}
