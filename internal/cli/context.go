package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/campaign-memory/internal/recall"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context <query>",
		Short: "Assemble relevant memories for the narrator",
		Long: "Retrieve memories of every kind for a query and render them in priority order: " +
			"session, npc, location, item.",
		Args: cobra.MinimumNArgs(1),
		Run:  runContext,
	}

	cmd.Flags().StringP("session", "s", "", "Scope session memories to this session id")
	cmd.Flags().Bool("turn", false, "Player-turn mode (fewer results per kind)")
	cmd.Flags().Int("k", 0, "Results per kind (overrides the mode default)")
	cmd.Flags().StringP("format", "f", "text", "Output format: text or json")

	RootCmd.AddCommand(cmd)
}

func runContext(cmd *cobra.Command, args []string) {
	sessionID, _ := cmd.Flags().GetString("session")
	turn, _ := cmd.Flags().GetBool("turn")
	k, _ := cmd.Flags().GetInt("k")
	format, _ := cmd.Flags().GetString("format")

	req := recall.Request{
		Query:     strings.Join(args, " "),
		SessionID: sessionID,
		K:         k,
	}
	if turn {
		req.Mode = recall.ModeTurn
	}

	s, repo := openRepo(cmd)
	defer s.Close()

	agg := recall.New(repo,
		recall.WithSceneK(cfg.Recall.SceneK),
		recall.WithTurnK(cfg.Recall.TurnK),
		recall.WithTimeout(cfg.Recall.Timeout),
	)

	res, err := agg.Build(cmd.Context(), req)
	if err != nil {
		exitErr("context", err)
	}

	if format == "json" {
		printJSON(cmd, res)
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), recall.Render(res.Entries))
}
