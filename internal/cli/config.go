package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/majinxin2003/IDArling/internal/config"
)

// ConfigResult is the output of config check.
type ConfigResult struct {
	Path   string        `json:"path,omitempty"`
	Config config.Config `json:"config"`
}

func (r ConfigResult) String() string {
	src := r.Path
	if src == "" {
		src = "defaults"
	}
	c := r.Config
	return fmt.Sprintf("%s: ok\n  user   %s (#%06x)\n  relay  %s (query timeout %s, queue %d)\n  log    %s/%s\n  store  *%s",
		src, c.User.Name, c.User.Color, c.Relay.URL, queryTimeout(c), c.Relay.SendQueue,
		c.Log.Level, c.Log.Format, c.Store.Suffix)
}

func queryTimeout(c config.Config) string {
	if c.Relay.QueryTimeout == 0 {
		return "none"
	}
	return c.Relay.QueryTimeout.String()
}

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Work with configuration files",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Load and validate a configuration file",
		Long: `Load a configuration file over the defaults and validate it.

Without a path, --config is checked, or the defaults when that is unset too.

Exit codes:
  0 - Configuration is valid
  1 - Configuration violates the schema
  2 - Command error (unreadable file, malformed YAML, etc.)`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.ConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			return runConfigCheck(rootOpts, path, cmd)
		},
	})
	return cmd
}

func runConfigCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	cfg, err := config.Load(path)
	if err != nil {
		_ = f.Error(ErrCodeInvalidConfig, err.Error(), nil)
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			return WrapExitError(ExitFailure, "invalid config", err)
		}
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return f.Success(ConfigResult{Path: path, Config: cfg})
}
