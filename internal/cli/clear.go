package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/campaign-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "clear <kind>...",
		Short: "Remove every memory of the given kinds",
		Long:  "Remove every memory in the named collections (sessions, npcs, locations, items). Irreversible.",
		Run:   runClear,
	}

	cmd.Flags().Bool("all", false, "Clear every collection")

	RootCmd.AddCommand(cmd)
}

func runClear(cmd *cobra.Command, args []string) {
	all, _ := cmd.Flags().GetBool("all")

	var kinds []model.Kind
	if all {
		kinds = model.Kinds
	} else {
		if len(args) == 0 {
			exitErr("clear", fmt.Errorf("name at least one kind or pass --all"))
		}
		for _, a := range args {
			kinds = append(kinds, parseKind(a))
		}
	}

	s := openStore(cmd)
	defer s.Close()

	for _, kind := range kinds {
		if err := s.Clear(cmd.Context(), kind); err != nil {
			exitErr("clear", err)
		}
	}

	printJSON(cmd, map[string]any{"ok": true, "cleared": kinds})
}
