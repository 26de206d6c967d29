package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/preset"
)

// PresetsOptions holds flags for the presets command.
type PresetsOptions struct {
	*RootOptions
	Presets string
}

// NewPresetsCommand creates the presets command.
func NewPresetsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PresetsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List live-view presets",
		Long: `List the built-in live-view presets, plus any loaded with --presets.

A preset file is CUE. Each field under "preset" is one preset:

  preset: calm: {
      name:        "Calm"
      description: "Strong coupling, no noise"
      params: {N: 64, K: 3.0, sigma: 0.2}
  }

Omitted params take the schema defaults.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(opts.RootOptions, cmd.OutOrStdout())
			catalog, err := loadCatalog(opts.Presets)
			if err != nil {
				return out.fail(ExitCommandError, ErrCodePresets, "failed to load presets", err)
			}
			list := catalog.Presets()
			return out.Emit(list, func(w io.Writer) { writePresets(w, list) })
		},
	}

	cmd.Flags().StringVar(&opts.Presets, "presets", "", "CUE preset file or directory merged over the built-in presets")
	return cmd
}

func writePresets(w io.Writer, list []preset.Preset) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tNAME\tN\tK\tσ\tω0\tD\tβ\tfv\tρqp\tdt")
	for _, p := range list {
		a := p.Params
		fmt.Fprintf(tw, "%s\t%s\t%d\t%g\t%g\t%g\t%g\t%g\t%g\t%g\t%g\n",
			p.Key, p.Name, a.N, a.K, a.Sigma, a.Omega0, a.D, a.Beta, a.Fv, a.Rhoqp, a.Dt)
	}
	tw.Flush()
}
