package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/staybook/internal/paths"
	"github.com/mesh-intelligence/staybook/pkg/types"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize staybook configuration and storage",
		Long:  "Create the configuration and data directories, write a default config.yaml\nif none exists, then initialize the availability store.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd)
		},
	}
}

func (a *app) runInit(cmd *cobra.Command) error {
	if err := os.MkdirAll(a.configDir, 0o755); err != nil {
		return sysError("create config directory: %w", err)
	}

	path := paths.ConfigFile(a.configDir)
	_, exists, err := readConfigFile(path)
	if err != nil {
		return userError("%w", err)
	}
	if !exists {
		dataDir := ""
		if a.flags.dataDir != "" {
			if dataDir, err = filepath.Abs(a.flags.dataDir); err != nil {
				return sysError("resolve data dir: %w", err)
			}
		}
		data, err := defaultConfigYAML(dataDir)
		if err != nil {
			return sysError("%w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return sysError("write config: %w", err)
		}
		if a.v, err = loadConfig(a.configDir); err != nil {
			return sysError("%w", err)
		}
	}

	cfg, err := a.config()
	if err != nil {
		return err
	}
	if cfg.Backend == types.BackendSQLite {
		_, closeStore, err := a.openStore(cfg)
		if err != nil {
			return err
		}
		closeStore()
	}

	out := cmd.OutOrStdout()
	if a.flags.jsonMode {
		return printJSON(out, map[string]string{
			"config_dir": a.configDir,
			"data_dir":   cfg.DataDir,
			"backend":    cfg.Backend,
		})
	}
	fmt.Fprintln(out, "Staybook initialized successfully")
	fmt.Fprintf(out, "config: %s\ndata:   %s\n", path, cfg.DataDir)
	return nil
}
