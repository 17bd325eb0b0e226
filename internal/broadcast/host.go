package broadcast

import (
	"context"
	"math"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostStats is the process host summary carried by the health channel.
// Fields that could not be read are left zero.
type HostStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	UptimeSeconds uint64  `json:"uptime_seconds"`
	Goroutines    int     `json:"goroutines"`
}

// CollectHostStats samples CPU, memory and uptime. The CPU figure covers
// the period since the previous call.
func CollectHostStats(ctx context.Context) HostStats {
	stats := HostStats{Goroutines: runtime.NumGoroutine()}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		stats.CPUPercent = round2(pct[0])
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.MemoryPercent = round2(vm.UsedPercent)
	}
	if up, err := host.UptimeWithContext(ctx); err == nil {
		stats.UptimeSeconds = up
	}
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
