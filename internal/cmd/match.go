package cmd

import (
	"encoding/json"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
)

func init() {
	matchCmd.Flags().Bool("json", false, "Output as JSON")
}

var matchCmd = &cobra.Command{
	Use:   "match <text>",
	Short: "Match a single input against the concepts",
	Long: heredoc.Doc(`
		Embed the input, match it against the concepts and print the
		resulting action. The interaction is recorded in the journal.
	`),
	Example: heredoc.Doc(`
		starweave match "what makes a melody beautiful"
		starweave match --json "check this claim"
	`),
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		agent, cleanup, err := openAgent(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := agent.Process(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		renderResult(cmd.OutOrStdout(), res)
		return nil
	},
}
