package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/rand/starweave/internal/app"
	"github.com/rand/starweave/internal/journal"
)

func init() {
	statsCmd.Flags().Bool("json", false, "Output as JSON")
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show interaction statistics",
	Long:  "Show journal statistics along with the modules and concepts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		agent, cleanup, err := openAgent(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		stats, err := agent.Stats(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				*journal.Stats
				MatchRate  float64          `json:"match_rate"`
				Propensity float64          `json:"propensity"`
				Modules    []app.ModuleInfo `json:"modules"`
			}{stats, stats.MatchRate(), agent.Propensity(), agent.Modules()})
		}

		renderStats(out, stats, agent.Propensity())
		out.Write([]byte("\n"))
		renderModules(out, agent.Modules())
		return nil
	},
}
