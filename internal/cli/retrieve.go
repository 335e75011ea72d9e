package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/campaign-memory/internal/memory"
	"github.com/rcliao/campaign-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "retrieve <kind> <query>",
		Short: "Search memories of one kind by similarity",
		Long:  "Search one kind's memories by similarity. --id takes precedence over --name.",
		Args:  cobra.MinimumNArgs(2),
		Run:   runRetrieve,
	}

	cmd.Flags().String("id", "", "Only memories for this natural id")
	cmd.Flags().String("name", "", "Only memories for this entity name")
	cmd.Flags().Int("k", 0, "Max results (default: recall.scene_k)")
	cmd.Flags().Bool("vectors", false, "Include vectors in the output")

	RootCmd.AddCommand(cmd)
}

func runRetrieve(cmd *cobra.Command, args []string) {
	kind := parseKind(args[0])
	query := strings.Join(args[1:], " ")
	id, _ := cmd.Flags().GetString("id")
	name, _ := cmd.Flags().GetString("name")
	k, _ := cmd.Flags().GetInt("k")
	vectors, _ := cmd.Flags().GetBool("vectors")

	s, repo := openRepo(cmd)
	defer s.Close()

	hits, err := repo.Retrieve(cmd.Context(), kind, query, memory.FilterFrom(id, name), k)
	if err != nil {
		exitErr("retrieve", err)
	}
	if !vectors {
		for i := range hits {
			hits[i].Vector = nil
		}
	}
	if hits == nil {
		hits = []model.Hit{}
	}
	printJSON(cmd, hits)
}
