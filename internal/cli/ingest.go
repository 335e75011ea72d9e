package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/campaign-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ingest [text]",
		Short: "Split a narrative passage into session memories",
		Long:  "Split a long narrative passage into chunks and store each as a session memory. Text can be positional args or piped via stdin.",
		Run:   runIngest,
	}

	cmd.Flags().StringP("session", "s", "", "Session id (default: a new one)")
	cmd.Flags().String("meta", "", "Extra JSON metadata for every chunk")

	RootCmd.AddCommand(cmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	sessionID, _ := cmd.Flags().GetString("session")
	rawMeta, _ := cmd.Flags().GetString("meta")
	meta := parseMeta(rawMeta)
	if sessionID == "" {
		sessionID = model.NewSessionID()
	}

	text := readContent(args)

	s, repo := openRepo(cmd)
	defer s.Close()

	ids, err := repo.IngestSessionTranscript(cmd.Context(), sessionID, text, meta)
	if err != nil {
		exitErr("ingest", err)
	}

	printJSON(cmd, map[string]any{"ok": true, "session_id": sessionID, "ids": ids})
}
