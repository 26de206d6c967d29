package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/health"
)

// HealthOptions holds flags for the health command.
type HealthOptions struct {
	*RootOptions
	Disk   string
	Strict bool

	// Collector overrides the host probes (for testing).
	Collector *health.Collector
}

// NewHealthCommand creates the health command.
func NewHealthCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HealthOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Report host and process health",
		Long: `Report CPU, memory, disk, host uptime and process memory.

The state is "degraded" when a probe fails or a resource is above its
limit. With --strict a degraded state exits 1.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Disk, "disk", "/", "filesystem path to report disk usage for")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "exit 1 when degraded")

	return cmd
}

func runHealth(opts *HealthOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	c := opts.Collector
	if c == nil {
		c = health.NewCollector()
	}
	c.DiskPath = opts.Disk

	snap, err := c.Collect(cmd.Context())
	if err != nil {
		slog.Warn("health probes failed", "error", err)
	}

	text := func(w io.Writer) {
		fmt.Fprintf(w, "state    %s (%s)\n", snap.State, snap.Message)
		fmt.Fprintf(w, "cpu      %.1f%%\n", snap.CPUPercent)
		fmt.Fprintf(w, "memory   %.0f / %.0f MB (%.1f%%)\n", snap.MemoryUsedMB, snap.MemoryTotalMB, snap.MemoryPercent)
		fmt.Fprintf(w, "disk     %.1f / %.1f GB (%.1f%%) at %s\n", snap.DiskUsedGB, snap.DiskTotalGB, snap.DiskPercent, snap.DiskPath)
		fmt.Fprintf(w, "uptime   %ds\n", snap.HostUptimeSeconds)
		fmt.Fprintf(w, "process  pid %d  rss %.1f MB\n", snap.ProcessPID, snap.ProcessRSSMB)
	}

	if opts.Strict && snap.State != health.StateOK {
		if err := out.EmitFailure(snap, text); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "health degraded: "+snap.Message)
	}
	return out.Emit(snap, text)
}
