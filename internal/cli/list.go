package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/campaign-memory/internal/memory"
	"github.com/rcliao/campaign-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "List memories of one kind in insertion order",
		Args:  cobra.ExactArgs(1),
		Run:   runList,
	}

	cmd.Flags().String("id", "", "Only memories for this natural id")
	cmd.Flags().String("name", "", "Only memories for this entity name")
	cmd.Flags().IntP("limit", "l", 20, "Max results (0 for all)")
	cmd.Flags().Bool("ids-only", false, "Only output record ids")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	kind := parseKind(args[0])
	id, _ := cmd.Flags().GetString("id")
	name, _ := cmd.Flags().GetString("name")
	limit, _ := cmd.Flags().GetInt("limit")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	s, repo := openRepo(cmd)
	defer s.Close()

	records, err := repo.List(cmd.Context(), kind, memory.FilterFrom(id, name), limit)
	if err != nil {
		exitErr("list", err)
	}

	if idsOnly {
		for _, r := range records {
			fmt.Fprintln(cmd.OutOrStdout(), r.ID)
		}
		return
	}

	for i := range records {
		records[i].Vector = nil
	}
	if records == nil {
		records = []model.Record{}
	}
	printJSON(cmd, records)
}
