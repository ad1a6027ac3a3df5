package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/crate/internal/enumerator"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every stored album",
		Long: `List every stored album in insertion order.

Examples:
  crate list
  crate list --db ./music.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, cmd)
		},
	}
}

func runList(opts *RootOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := opts.formatter(cmd)

	sess, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer sess.Close()

	if opts.Format == "text" {
		if _, err := sess.enumerator(newTableConsumer(cmd.OutOrStdout())).Display(ctx); err != nil {
			return f.Fail(ExitFailure, "list failed", err)
		}
		return nil
	}

	var c enumerator.Collector
	if _, err := sess.enumerator(&c).Display(ctx); err != nil {
		return f.Fail(ExitFailure, "list failed", err)
	}
	return f.Success(append(recordList{}, c.Records...))
}
