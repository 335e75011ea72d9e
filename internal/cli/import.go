package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/campaign-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import exported memories",
		Long: "Import memories from a file or stdin in the format produced by export. " +
			"Files ending in .yaml or .yml are read as YAML. Records get fresh ids.",
		Args: cobra.MaximumNArgs(1),
		Run:  runImport,
	}

	cmd.Flags().StringP("format", "f", "", "Input format: json or yaml (default: from file extension, else json)")

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	format, _ := cmd.Flags().GetString("format")

	var in io.Reader = os.Stdin
	if len(args) == 1 {
		if format == "" {
			switch filepath.Ext(args[0]) {
			case ".yaml", ".yml":
				format = "yaml"
			}
		}
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open file", err)
		}
		defer f.Close()
		in = f
	}

	data, err := io.ReadAll(in)
	if err != nil {
		exitErr("read input", err)
	}

	var records []model.Record
	switch format {
	case "", "json":
		if err := json.Unmarshal(data, &records); err != nil {
			exitErr("parse json", err)
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &records); err != nil {
			exitErr("parse yaml", err)
		}
	default:
		exitErr("import", fmt.Errorf("unknown format %q", format))
	}

	s := openStore(cmd)
	defer s.Close()

	imported, err := s.Import(cmd.Context(), records)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"imported":%d}`+"\n", imported)
}
