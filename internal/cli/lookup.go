package cli

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/spf13/cobra"

	"github.com/roach88/crate/internal/store"
)

// LookupOptions holds flags for the lookup command.
type LookupOptions struct {
	*RootOptions
	Field string
	Value string
	From  string
	To    string
}

// NewLookupCommand creates the lookup command.
func NewLookupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LookupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Find albums through a secondary index",
		Long: `Find albums by exact value or by range through a declared index.

Ranges compare field text, so years and song counts order as strings.
Either bound of a range may be omitted.

Examples:
  crate lookup --field genre --value Jazz
  crate lookup --field year --from 1990 --to 1999
  crate lookup --field artist --from M --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Field, "field", "", "indexed field (required)")
	_ = cmd.MarkFlagRequired("field")
	cmd.Flags().StringVar(&opts.Value, "value", "", "exact value")
	cmd.Flags().StringVar(&opts.From, "from", "", "lower bound, inclusive")
	cmd.Flags().StringVar(&opts.To, "to", "", "upper bound, inclusive")
	cmd.MarkFlagsMutuallyExclusive("value", "from")
	cmd.MarkFlagsMutuallyExclusive("value", "to")

	return cmd
}

func runLookup(opts *LookupOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := opts.formatter(cmd)

	sess, err := openSession(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	var ids *roaring64.Bitmap
	if cmd.Flags().Changed("value") {
		ids, err = sess.store.Lookup(ctx, opts.Field, opts.Value)
	} else {
		ids, err = sess.store.LookupRange(ctx, opts.Field, opts.From, opts.To)
	}
	if errors.Is(err, store.ErrUnknownIndex) {
		return f.Fail(ExitCommandError, fmt.Sprintf("no index on field %q", opts.Field), err)
	}
	if err != nil {
		return f.Fail(ExitFailure, "lookup failed", err)
	}

	records, err := sess.store.Records(ctx, ids)
	if err != nil {
		return f.Fail(ExitFailure, "lookup failed", err)
	}
	return f.Success(recordList(records))
}
