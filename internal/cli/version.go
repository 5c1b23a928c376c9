package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/staybook/internal/paths"
	"github.com/mesh-intelligence/staybook/pkg/staybook"
	"github.com/mesh-intelligence/staybook/pkg/types"
)

// versionOutput is the JSON result of the version command.
type versionOutput struct {
	Version    string        `json:"version"`
	Revision   string        `json:"revision"`
	Module     string        `json:"module"`
	ConfigFile string        `json:"config_file,omitempty"`
	Config     *types.Config `json:"config,omitempty"`
	ConfigErr  string        `json:"config_error,omitempty"`
}

// newVersionCmd prints the build and, when it can be resolved, the
// effective configuration. A broken configuration is reported, not fatal.
func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the staybook version and effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := versionOutput{
				Version:  staybook.Version,
				Revision: staybook.Revision,
				Module:   staybook.ModulePath,
			}
			if err := a.setup(); err != nil {
				v.ConfigErr = err.Error()
			} else if cfg, err := a.config(); err != nil {
				v.ConfigErr = err.Error()
			} else {
				v.ConfigFile = paths.ConfigFile(a.configDir)
				v.Config = &cfg
			}

			out := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return printJSON(out, v)
			}
			fmt.Fprintf(out, "staybook v%s (%s)\nmodule: %s\n", v.Version, v.Revision, v.Module)
			if v.ConfigErr != "" {
				fmt.Fprintf(out, "config: %s\n", v.ConfigErr)
				return nil
			}
			submitURL := v.Config.SubmitURL
			if submitURL == "" {
				submitURL = "(not set)"
			}
			fmt.Fprintf(out, "config:      %s\nbackend:     %s\ndata:        %s\nsubmit_url:  %s\nauto_submit: %t\ntimeout:     %s\n",
				v.ConfigFile, v.Config.Backend, v.Config.DataDir, submitURL, v.Config.AutoSubmit, v.Config.RequestTimeout())
			return nil
		},
	}
}
