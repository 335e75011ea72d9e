package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/campaign-memory/internal/model"
)

func init() {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Session helpers",
	}

	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Print a fresh session id",
		Run:   runSessionNew,
	}

	sessionCmd.AddCommand(newCmd)
	RootCmd.AddCommand(sessionCmd)
}

func runSessionNew(cmd *cobra.Command, args []string) {
	fmt.Fprintf(cmd.OutOrStdout(), `{"session_id":%q}`+"\n", model.NewSessionID())
}
