// Package health reports host and process resource usage for the resona
// health command.
package health

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// State is the overall health verdict.
type State string

const (
	StateOK       State = "ok"
	StateDegraded State = "degraded"
)

// Default degradation thresholds, in percent.
const (
	DefaultCPULimit    = 90.0
	DefaultMemoryLimit = 90.0
	DefaultDiskLimit   = 90.0
)

const (
	mb = 1 << 20
	gb = 1 << 30
)

// Snapshot is one health reading.
type Snapshot struct {
	State   State  `json:"state"`
	Message string `json:"message"`

	CPUPercent float64 `json:"cpu_pct"`

	MemoryUsedMB  float64 `json:"memory_used_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	MemoryPercent float64 `json:"memory_pct"`

	DiskPath    string  `json:"disk_path"`
	DiskUsedGB  float64 `json:"disk_used_gb"`
	DiskTotalGB float64 `json:"disk_total_gb"`
	DiskPercent float64 `json:"disk_pct"`

	HostUptimeSeconds uint64  `json:"host_uptime_seconds"`
	ProcessRSSMB      float64 `json:"process_rss_mb"`
	ProcessPID        int     `json:"process_pid"`

	CollectedAt time.Time `json:"collected_at"`
}

// Sources are the probes a Collector reads. Tests replace them.
type Sources struct {
	CPUPercent func(ctx context.Context) (float64, error)
	Memory     func(ctx context.Context) (used, total uint64, pct float64, err error)
	Disk       func(ctx context.Context, path string) (used, total uint64, pct float64, err error)
	Uptime     func(ctx context.Context) (uint64, error)
	ProcessRSS func(ctx context.Context, pid int) (uint64, error)
}

// SystemSources reads the running host through gopsutil.
func SystemSources() Sources {
	return Sources{
		CPUPercent: func(ctx context.Context) (float64, error) {
			usage, err := cpu.PercentWithContext(ctx, 0, false)
			if err != nil {
				return 0, err
			}
			if len(usage) == 0 {
				return 0, errors.New("no cpu usage reported")
			}
			return usage[0], nil
		},
		Memory: func(ctx context.Context) (uint64, uint64, float64, error) {
			vm, err := mem.VirtualMemoryWithContext(ctx)
			if err != nil {
				return 0, 0, 0, err
			}
			return vm.Used, vm.Total, vm.UsedPercent, nil
		},
		Disk: func(ctx context.Context, path string) (uint64, uint64, float64, error) {
			usage, err := disk.UsageWithContext(ctx, path)
			if err != nil {
				return 0, 0, 0, err
			}
			return usage.Used, usage.Total, usage.UsedPercent, nil
		},
		Uptime: host.UptimeWithContext,
		ProcessRSS: func(ctx context.Context, pid int) (uint64, error) {
			p, err := process.NewProcessWithContext(ctx, int32(pid))
			if err != nil {
				return 0, err
			}
			info, err := p.MemoryInfoWithContext(ctx)
			if err != nil {
				return 0, err
			}
			return info.RSS, nil
		},
	}
}

// Collector takes health readings.
type Collector struct {
	Sources  Sources
	DiskPath string

	CPULimit    float64
	MemoryLimit float64
	DiskLimit   float64

	Now func() time.Time
}

// NewCollector returns a Collector over SystemSources with default limits.
func NewCollector() *Collector {
	return &Collector{
		Sources:     SystemSources(),
		DiskPath:    "/",
		CPULimit:    DefaultCPULimit,
		MemoryLimit: DefaultMemoryLimit,
		DiskLimit:   DefaultDiskLimit,
		Now:         time.Now,
	}
}

// Collect takes a reading with NewCollector.
func Collect(ctx context.Context) (Snapshot, error) {
	return NewCollector().Collect(ctx)
}

// Collect reads every probe. A failing probe leaves its fields zero, marks
// the snapshot degraded and is included in the joined error; the snapshot
// is returned either way.
func (c *Collector) Collect(ctx context.Context) (Snapshot, error) {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	snap := Snapshot{
		DiskPath:    c.DiskPath,
		ProcessPID:  os.Getpid(),
		CollectedAt: now().UTC(),
	}

	var errs []error
	var problems []string

	if c.Sources.CPUPercent != nil {
		pct, err := c.Sources.CPUPercent(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("cpu: %w", err))
		} else {
			snap.CPUPercent = round1(pct)
			if pct > c.CPULimit {
				problems = append(problems, fmt.Sprintf("cpu at %.1f%%", pct))
			}
		}
	}

	if c.Sources.Memory != nil {
		used, total, pct, err := c.Sources.Memory(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("memory: %w", err))
		} else {
			snap.MemoryUsedMB = round1(float64(used) / mb)
			snap.MemoryTotalMB = round1(float64(total) / mb)
			snap.MemoryPercent = round1(pct)
			if pct > c.MemoryLimit {
				problems = append(problems, fmt.Sprintf("memory at %.1f%%", pct))
			}
		}
	}

	if c.Sources.Disk != nil {
		used, total, pct, err := c.Sources.Disk(ctx, c.DiskPath)
		if err != nil {
			errs = append(errs, fmt.Errorf("disk %s: %w", c.DiskPath, err))
		} else {
			snap.DiskUsedGB = round1(float64(used) / gb)
			snap.DiskTotalGB = round1(float64(total) / gb)
			snap.DiskPercent = round1(pct)
			if pct > c.DiskLimit {
				problems = append(problems, fmt.Sprintf("disk at %.1f%%", pct))
			}
		}
	}

	if c.Sources.Uptime != nil {
		up, err := c.Sources.Uptime(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("uptime: %w", err))
		} else {
			snap.HostUptimeSeconds = up
		}
	}

	if c.Sources.ProcessRSS != nil {
		rss, err := c.Sources.ProcessRSS(ctx, snap.ProcessPID)
		if err != nil {
			errs = append(errs, fmt.Errorf("process: %w", err))
		} else {
			snap.ProcessRSSMB = round1(float64(rss) / mb)
		}
	}

	switch {
	case len(errs) > 0:
		snap.State = StateDegraded
		snap.Message = fmt.Sprintf("%d probe(s) failed", len(errs))
	case len(problems) > 0:
		snap.State = StateDegraded
		snap.Message = problems[0]
		for _, p := range problems[1:] {
			snap.Message += ", " + p
		}
	default:
		snap.State = StateOK
		snap.Message = "all systems nominal"
	}

	return snap, errors.Join(errs...)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
