// Package cli implements the campaign-memory CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/campaign-memory/internal/config"
	"github.com/rcliao/campaign-memory/internal/embedding"
	"github.com/rcliao/campaign-memory/internal/logging"
	"github.com/rcliao/campaign-memory/internal/memory"
	"github.com/rcliao/campaign-memory/internal/model"
	"github.com/rcliao/campaign-memory/internal/store"
)

var (
	configPath   string
	dataDirFlag  string
	logLevelFlag string

	cfg *config.Config
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "campaign-memory",
	Short: "Persistent memory for a narrative game agent",
	Long: "Stores memories about sessions, NPCs, locations and items, and assembles " +
		"the most relevant ones into a context block for the narrator.",
	PersistentPreRun: loadConfig,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./config.yaml or ~/.config/campaign-memory/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&dataDirFlag, "data-dir", "d", "", "Data directory (default: $CAMPAIGN_MEMORY_DATA_DIR or ~/.campaign-memory)")
	RootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
}

func loadConfig(cmd *cobra.Command, args []string) {
	c, err := config.Load(configPath)
	if err != nil {
		exitErr("load config", err)
	}
	if dataDirFlag != "" {
		c.DataDir = dataDirFlag
	}
	if logLevelFlag != "" {
		c.LogLevel = logLevelFlag
	}
	cfg = c

	logger := logging.New(cfg.LogLevel, os.Stderr)
	logging.SetDefault(logger)
	cmd.SetContext(logging.With(cmd.Context(), logger))
}

func openStore(cmd *cobra.Command) *store.Store {
	emb, err := embedding.FromConfig(cmd.Context(), cfg.EmbeddingConfig())
	if err != nil {
		exitErr("create embedder", err)
	}
	s, err := store.Open(cfg.DataDir, emb)
	if err != nil {
		exitErr("open store", err)
	}
	return s
}

func openRepo(cmd *cobra.Command) (*store.Store, *memory.Repository) {
	s := openStore(cmd)
	return s, memory.New(s, memory.WithDefaultK(cfg.Recall.SceneK))
}

func parseKind(s string) model.Kind {
	kind, err := model.ParseKind(s)
	if err != nil {
		exitErr("parse kind", err)
	}
	return kind
}

// readContent returns the positional args joined, or stdin when it is piped.
func readContent(args []string) string {
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	stat, _ := os.Stdin.Stat()
	if stat != nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		return string(b)
	}
	return ""
}

func parseMeta(raw string) model.Metadata {
	if raw == "" {
		return nil
	}
	var meta model.Metadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		exitErr("parse meta", err)
	}
	return meta
}

func printJSON(cmd *cobra.Command, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
