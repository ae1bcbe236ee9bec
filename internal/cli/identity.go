package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/majinxin2003/IDArling/internal/identity"
	"github.com/majinxin2003/IDArling/internal/store"
)

// IdentityResult is the output of the identity commands.
type IdentityResult struct {
	Document string `json:"document"`
	Sidecar  string `json:"sidecar"`
	identity.Identity
	Bound bool `json:"bound"`
}

func (r IdentityResult) String() string {
	if !r.Bound {
		return fmt.Sprintf("%s: not bound (%s)", r.Document, r.Identity)
	}
	return fmt.Sprintf("%s: %s", r.Document, r.Identity)
}

// NewIdentityCommand creates the identity command group.
func NewIdentityCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Inspect or edit a document's session identity",
		Long: `Inspect or edit the session identity stored in a document's sidecar.

The sidecar sits next to the document and is created on first use.

Exit codes:
  0 - Success
  1 - Stored identity is corrupt
  2 - Command error (invalid name, unreadable sidecar, etc.)`,
	}

	cmd.AddCommand(newIdentityShowCommand(rootOpts))
	cmd.AddCommand(newIdentityBindCommand(rootOpts))
	cmd.AddCommand(newIdentityClearCommand(rootOpts))
	return cmd
}

func newIdentityShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <document>",
		Short:         "Print the stored identity",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIdentityNode(rootOpts, cmd, args[0], func(st *store.Store, node *store.Node) error {
				id, err := identity.Load(cmd.Context(), node)
				if err != nil {
					return corruptIdentity(rootOpts.formatter(cmd), err)
				}
				return rootOpts.formatter(cmd).Success(identityResult(args[0], st, id))
			})
		},
	}
}

func newIdentityBindCommand(rootOpts *RootOptions) *cobra.Command {
	var tick uint64

	cmd := &cobra.Command{
		Use:   "bind <document> <project> <database>",
		Short: "Bind a document to a project and database",
		Long: `Bind a document to a project and database on the relay.

The stored tick is kept unless --tick is given. Names containing ".." are
rejected.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			document, project, database := args[0], args[1], args[2]
			f := rootOpts.formatter(cmd)

			next := identity.Identity{Project: project, Database: database, Tick: tick}
			if err := identity.Validate(next); err != nil {
				_ = f.Error(ErrCodeInvalidIdentity, err.Error(), nil)
				return WrapExitError(ExitCommandError, "invalid identity", err)
			}

			return withIdentityNode(rootOpts, cmd, document, func(st *store.Store, node *store.Node) error {
				ctx := cmd.Context()
				current, err := identity.Load(ctx, node)
				if err != nil {
					f.VerboseLog("Replacing unreadable identity: %v", err)
					if err := identity.Clear(ctx, node); err != nil {
						return WrapExitError(ExitCommandError, "failed to clear identity", err)
					}
				}
				if !cmd.Flags().Changed("tick") {
					next.Tick = current.Tick
				} else if next.Tick == 0 {
					// Save skips zero fields.
					if err := node.HashDel(ctx, identity.KeyTick); err != nil {
						return WrapExitError(ExitCommandError, "failed to reset tick", err)
					}
				}

				if err := identity.Save(ctx, node, next); err != nil {
					return WrapExitError(ExitCommandError, "failed to save identity", err)
				}
				f.VerboseLog("Bound %s in %s", next, st.Path())
				return f.Success(identityResult(document, st, next))
			})
		},
	}

	cmd.Flags().Uint64Var(&tick, "tick", 0, "reset the stored tick")
	return cmd
}

func newIdentityClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear <document>",
		Short:         "Remove the stored identity",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIdentityNode(rootOpts, cmd, args[0], func(st *store.Store, node *store.Node) error {
				if err := identity.Clear(cmd.Context(), node); err != nil {
					return WrapExitError(ExitCommandError, "failed to clear identity", err)
				}
				return rootOpts.formatter(cmd).Success(identityResult(args[0], st, identity.Identity{}))
			})
		},
	}
}

// withIdentityNode opens the document's sidecar for the duration of fn.
func withIdentityNode(opts *RootOptions, cmd *cobra.Command, document string, fn func(*store.Store, *store.Node) error) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	st, err := store.OpenDocument(cmd.Context(), document, cfg.Store.Suffix)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open sidecar", err)
	}
	defer st.Close()

	opts.formatter(cmd).VerboseLog("Opened %s", st.Path())
	return fn(st, st.Node(identity.NodeName))
}

func corruptIdentity(f *OutputFormatter, err error) error {
	var corrupt *identity.CorruptError
	if !errors.As(err, &corrupt) {
		return WrapExitError(ExitCommandError, "failed to read identity", err)
	}
	_ = f.Error(ErrCodeCorruptIdentity, err.Error(), map[string]string{
		"field": corrupt.Field,
		"value": corrupt.Value,
	})
	return WrapExitError(ExitFailure, "corrupt identity", err)
}

func identityResult(document string, st *store.Store, id identity.Identity) IdentityResult {
	return IdentityResult{Document: document, Sidecar: st.Path(), Identity: id, Bound: id.Bound()}
}
