package metrics

import (
	"context"
	"os"
	"time"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/shirou/gopsutil/v3/process"
)

// SampleProcess периодически пишет загрузку CPU и RSS текущего процесса до отмены ctx
func (m *Metrics) SampleProcess(ctx context.Context, every time.Duration) error {
	if m == nil {
		return nil
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if cpu, err := proc.CPUPercentWithContext(ctx); err == nil {
				m.processCPU.Set(cpu)
			} else {
				logging.Debug("Не удалось получить загрузку CPU: %v", err)
			}
			if mem, err := proc.MemoryInfoWithContext(ctx); err == nil {
				m.processRSSBytes.Set(float64(mem.RSS))
			}
		}
	}
}
