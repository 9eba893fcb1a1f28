package pipeline

import (
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/Asdafers/contenitzer-sub001/models"
)

// measureUsage snapshots the resource metrics recorded on a job row at
// terminal time. All values are best effort: a metric that cannot be read
// stays zero rather than failing the job.
func measureUsage(startedWall time.Time, workDir string, outputBytes int64) *models.ResourceUsage {
	usage := &models.ResourceUsage{
		GenerationTimeSec: time.Since(startedWall).Seconds(),
		DiskUsedBytes:     dirSize(workDir) + outputBytes,
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	usage.PeakMemoryBytes = memStats.Sys

	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err == nil {
		usage.CPUTimeSec = timevalSeconds(rusage.Utime) + timevalSeconds(rusage.Stime)
	}
	return usage
}

func timevalSeconds(tv syscall.Timeval) float64 {
	return float64(tv.Sec) + float64(tv.Usec)/1e6
}

func dirSize(dir string) int64 {
	var total int64
	_ = filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total
}
