package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/crate/internal/importer"
	"github.com/roach88/crate/internal/store"
	"github.com/roach88/crate/internal/telemetry"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Show bool // redisplay the collection after each commit
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import album documents",
		Long: `Import one or more XML album documents.

Each file is committed as one batch: either every album in it is stored,
or none is. All files are parsed before the first write, so a broken
document aborts the whole command with the catalogue unchanged.

Files ending in .gz or .zst are decompressed on the fly.

Examples:
  crate import albums.xml
  crate import --db ./music.db 2023.xml 2024.xml.gz
  crate import --show albums.xml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Show, "show", false, "list the collection after each import")

	return cmd
}

func runImport(opts *ImportOptions, paths []string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := opts.formatter(cmd)

	sess, err := openSession(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	reg := prometheus.NewRegistry()
	imOpts := []importer.Option{
		importer.WithLogger(sess.log),
		importer.WithMetrics(telemetry.NewMetrics(reg)),
	}
	if opts.Show && opts.Format == "text" {
		imOpts = append(imOpts, importer.WithListener(sess.enumerator(newTableConsumer(cmd.OutOrStdout()))))
	}
	im := importer.New(sess.store, imOpts...)

	results, importErr := im.ImportFiles(ctx, paths...)

	summary := importSummary{Batches: make([]store.Batch, 0, len(results))}
	for _, res := range results {
		summary.Batches = append(summary.Batches, res.Batch)
		summary.Records += res.Batch.Count
	}

	if samples, err := telemetry.Snapshot(reg); err == nil {
		for _, s := range samples {
			f.VerboseLog("%s %g", s.Name, s.Value)
		}
	}

	if importErr != nil {
		// Batches committed before a storage failure stay committed
		if len(summary.Batches) > 0 && opts.Format == "text" {
			_ = summary.RenderText(cmd.OutOrStdout())
		}
		return f.Fail(ExitFailure, "import failed", importErr)
	}
	return f.Success(summary)
}
