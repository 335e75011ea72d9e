package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rcliao/campaign-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show record counts and file sizes per collection",
		Long:  "Show record counts and on-disk size (database plus write-ahead log) for each collection, in priority order.",
		Run:   runStats,
	}

	cmd.Flags().String("kind", "", "Only show this kind")
	cmd.Flags().StringP("format", "f", "json", "Output format: json or text")

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	kindFlag, _ := cmd.Flags().GetString("kind")
	format, _ := cmd.Flags().GetString("format")

	s := openStore(cmd)
	defer s.Close()

	st, err := s.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}

	if kindFlag != "" {
		cs := st.Collection(parseKind(kindFlag))
		st = &store.Stats{Dir: st.Dir, Total: cs.Records, Collections: []store.CollectionStats{*cs}}
	}

	switch format {
	case "json":
		printJSON(cmd, st)
	case "text":
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KIND\tRECORDS\tBYTES")
		for _, cs := range st.Collections {
			fmt.Fprintf(w, "%s\t%d\t%d\n", cs.Kind, cs.Records, cs.SizeBytes)
		}
		fmt.Fprintf(w, "total\t%d\t\n", st.Total)
		w.Flush()
	default:
		exitErr("stats", fmt.Errorf("unknown format %q", format))
	}
}
