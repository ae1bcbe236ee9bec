package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/majinxin2003/IDArling/internal/relay"
)

// DatabasesResult is the output of the databases command.
type DatabasesResult struct {
	Relay     string           `json:"relay"`
	Project   string           `json:"project"`
	Databases []relay.Database `json:"databases"`
}

func (r DatabasesResult) String() string {
	if len(r.Databases) == 0 {
		return fmt.Sprintf("No databases registered for %s.", r.Project)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d database(s) in %s:", len(r.Databases), r.Project)
	for _, d := range r.Databases {
		fmt.Fprintf(&b, "\n  %s", d.Name)
		if d.Date != "" {
			fmt.Fprintf(&b, " (%s)", d.Date)
		}
	}
	return b.String()
}

// DatabasesOptions holds flags for the databases command.
type DatabasesOptions struct {
	*RootOptions
	URL     string
	Timeout time.Duration
}

// NewDatabasesCommand creates the databases command.
func NewDatabasesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DatabasesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "databases <project>",
		Short: "List the databases a relay has for a project",
		Long: `Connect to the relay and list the databases registered under a project.

Exit codes:
  0 - Success
  1 - The relay refused the query
  2 - Command error (relay unreachable, timeout, etc.)

Examples:
  idarling databases firmware
  idarling databases firmware --url ws://relay.local:31013 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDatabases(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "", "relay URL (overrides relay.url)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "give up after this long")

	return cmd
}

func runDatabases(opts *DatabasesOptions, project string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	url := cfg.Relay.URL
	if opts.URL != "" {
		url = opts.URL
	}
	f := opts.formatter(cmd)

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
	defer cancel()

	f.VerboseLog("Connecting to %s", url)
	client, err := relay.Dial(ctx, url,
		relay.WithQueryTimeout(cfg.Relay.QueryTimeout),
		relay.WithSendQueue(cfg.Relay.SendQueue),
		relay.WithLogger(opts.logger(cmd, cfg)),
	)
	if err != nil {
		_ = f.Error(ErrCodeRelay, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to connect to relay", err)
	}
	defer client.Close()

	dbs, err := client.ListDatabases(project).Wait(ctx)
	if err != nil {
		_ = f.Error(ErrCodeRelay, err.Error(), nil)
		var remote *relay.RemoteError
		if errors.As(err, &remote) {
			return WrapExitError(ExitFailure, "relay refused query", err)
		}
		return WrapExitError(ExitCommandError, "database query failed", err)
	}

	if dbs == nil {
		dbs = []relay.Database{}
	}
	return f.Success(DatabasesResult{Relay: url, Project: project, Databases: dbs})
}
