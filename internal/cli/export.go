package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/campaign-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export memories as JSON",
		Long:  "Export every memory, vectors included, as JSON or YAML. Restrict to one kind with --kind.",
		Run:   runExport,
	}

	cmd.Flags().String("kind", "", "Only export this kind")
	cmd.Flags().Bool("no-vectors", false, "Omit vectors; import will embed the text again")
	cmd.Flags().StringP("format", "f", "json", "Output format: json or yaml")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	kindFlag, _ := cmd.Flags().GetString("kind")
	noVectors, _ := cmd.Flags().GetBool("no-vectors")
	format, _ := cmd.Flags().GetString("format")

	var kind model.Kind
	if kindFlag != "" {
		kind = parseKind(kindFlag)
	}

	s := openStore(cmd)
	defer s.Close()

	records, err := s.Export(cmd.Context())
	if err != nil {
		exitErr("export", err)
	}

	out := []model.Record{}
	for _, r := range records {
		if kind != "" && r.Kind != kind {
			continue
		}
		if noVectors {
			r.Vector = nil
		}
		out = append(out, r)
	}

	switch format {
	case "json":
		printJSON(cmd, out)
	case "yaml":
		b, err := yaml.Marshal(out)
		if err != nil {
			exitErr("encode yaml", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(b))
	default:
		exitErr("export", fmt.Errorf("unknown format %q", format))
	}
}
