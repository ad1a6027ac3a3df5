package cli

import (
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the import log",
		Long: `Show one line per committed import batch, in commit order.

Examples:
  crate history
  crate history --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			f := rootOpts.formatter(cmd)

			sess, err := openSession(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer sess.Close()

			batches, err := sess.store.Imports(ctx)
			if err != nil {
				return f.Fail(ExitFailure, "history failed", err)
			}
			return f.Success(batchList(batches))
		},
	}
}
