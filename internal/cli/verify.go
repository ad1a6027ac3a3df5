package cli

import (
	"github.com/spf13/cobra"
)

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the database for damage",
		Long: `Run SQLite's integrity check and confirm every declared index exists.

Exit codes:
  0 - Database is consistent
  1 - Damage found
  2 - Command error (database cannot be opened, etc.)`,
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

			if err := sess.store.Verify(ctx); err != nil {
				return f.Fail(ExitFailure, "verification failed", err)
			}
			return f.Success("ok")
		},
	}
}
