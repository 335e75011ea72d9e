package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/campaign-memory/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "save <kind> [content]",
		Short: "Store a memory",
		Long: "Store a memory about a session, npc, location or item. " +
			"Content can be positional args or piped via stdin.",
		Args: cobra.MinimumNArgs(1),
		Run:  runSave,
	}

	cmd.Flags().String("id", "", "Natural id of the entity (required)")
	cmd.Flags().String("name", "", "Entity name (required except for sessions)")
	cmd.Flags().String("meta", "", "Extra JSON metadata")

	cmd.MarkFlagRequired("id")

	RootCmd.AddCommand(cmd)
}

func runSave(cmd *cobra.Command, args []string) {
	kind := parseKind(args[0])
	id, _ := cmd.Flags().GetString("id")
	name, _ := cmd.Flags().GetString("name")
	rawMeta, _ := cmd.Flags().GetString("meta")
	meta := parseMeta(rawMeta)

	content := strings.TrimSpace(readContent(args[1:]))
	if content == "" {
		exitErr("save", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	s, repo := openRepo(cmd)
	defer s.Close()

	recID, err := repo.Save(cmd.Context(), kind, memory.Entity{ID: id, Name: name}, content, meta)
	if err != nil {
		exitErr("save", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%q,"kind":%q}`+"\n", recID, kind)
}
