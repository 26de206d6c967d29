package cli

import (
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/engine"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/watch"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Presets string
	Seed    uint64
	FPS     int
	Ticks   int // headless: advance this many ticks and print the final frame
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch [preset]",
		Short: "Live view of a synchronizing ensemble",
		Long: `Open a terminal view of a preset ensemble ticking in real time.

Keys: space pause, r reset, p randomize phases, n next preset, q quit.

With --ticks the view is skipped: the ensemble advances that many ticks
and the final frame is printed.

Examples:
  resona watch coherent
  resona watch --presets ./my-presets.cue calm
  resona watch chaos --ticks 3000 --seed 1 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := "coherent"
			if len(args) == 1 {
				key = args[0]
			}
			return runWatch(opts, key, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Presets, "presets", "", "CUE preset file or directory merged over the built-in presets")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "seed for reproducible ensembles")
	cmd.Flags().IntVar(&opts.FPS, "fps", 20, "frames (ticks) per second")
	cmd.Flags().IntVar(&opts.Ticks, "ticks", 0, "run headless for this many ticks")

	return cmd
}

// LiveResult is the output of a headless watch run.
type LiveResult struct {
	Preset string              `json:"preset"`
	Frame  engine.LiveSnapshot `json:"frame"`
}

func runWatch(opts *WatchOptions, key string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	catalog, err := loadCatalog(opts.Presets)
	if err != nil {
		return out.fail(ExitCommandError, ErrCodePresets, "failed to load presets", err)
	}
	p, err := catalog.Get(key)
	if err != nil {
		return out.fail(ExitCommandError, ErrCodePresets, "unknown preset", err)
	}

	var liveOpts []engine.LiveOption
	if cmd.Flags().Changed("seed") {
		liveOpts = append(liveOpts, engine.WithLiveSeed(opts.Seed))
	}
	live := engine.NewLive(p.Params, liveOpts...)

	if opts.Ticks > 0 {
		var frame engine.LiveSnapshot
		for i := 0; i < opts.Ticks; i++ {
			frame = live.Tick()
		}
		res := LiveResult{Preset: p.Key, Frame: frame}
		return out.Emit(res, func(w io.Writer) {
			fmt.Fprintf(w, "preset  %s (%s)\n", p.Name, p.Key)
			fmt.Fprintf(w, "ticks   %d  t=%.2f\n", frame.Ticks, frame.Time)
			fmt.Fprintf(w, "r=%.4f  ψ=%+.4f  C=%.4f  R=%.2f  W=%.4f\n",
				frame.Order, frame.Psi, frame.Coherence, frame.Resonance, frame.Wobble)
		})
	}

	if opts.FPS < 1 {
		return out.fail(ExitCommandError, ErrCodeParams, "--fps must be at least 1", nil)
	}
	model := watch.New(live, key, catalog).WithInterval(time.Second / time.Duration(opts.FPS))

	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
		tea.WithContext(cmd.Context()),
	)
	if _, err := program.Run(); err != nil {
		return WrapExitError(ExitFailure, "live view failed", err)
	}
	return nil
}
