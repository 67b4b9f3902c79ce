// Package sysinfo reports host and runtime figures for the dev server's
// system info route.
package sysinfo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Metrics is the system info payload
type Metrics struct {
	CPUCount       int     `json:"cpu_count"`
	Goroutines     int     `json:"goroutines"`
	GoVersion      string  `json:"go_version"`
	HeapAllocMB    float64 `json:"heap_alloc_mb"`
	MemoryTotalGB  float64 `json:"memory_total_gb"`
	MemoryUsedGB   float64 `json:"memory_used_gb"`
	MemoryFreeGB   float64 `json:"memory_free_gb"`
	DatabaseSizeMB float64 `json:"database_size_mb"`
}

// GetMetrics collects runtime figures plus host memory and the size of the
// database file. Host memory is Linux-only; elsewhere the memory fields stay
// zero and the error says why.
func GetMetrics(databasePath string) (Metrics, error) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	metrics := Metrics{
		CPUCount:    runtime.NumCPU(),
		Goroutines:  runtime.NumGoroutine(),
		GoVersion:   runtime.Version(),
		HeapAllocMB: float64(mem.HeapAlloc) / (1024 * 1024),
	}

	if info, err := os.Stat(databasePath); err == nil {
		metrics.DatabaseSizeMB = float64(info.Size()) / (1024 * 1024)
	}

	if err := getMemoryInfo(&metrics); err != nil {
		return metrics, fmt.Errorf("failed to get memory info: %w", err)
	}

	return metrics, nil
}

// getMemoryInfo reads memory information from /proc/meminfo
func getMemoryInfo(metrics *Metrics) error {
	file, err := os.Open("/proc/meminfo")
	if err != nil {
		return fmt.Errorf("failed to open /proc/meminfo: %w", err)
	}
	defer file.Close()

	total, available, err := parseMemInfo(file)
	if err != nil {
		return err
	}

	metrics.MemoryTotalGB = total
	metrics.MemoryFreeGB = available
	metrics.MemoryUsedGB = total - available
	return nil
}

// parseMemInfo returns MemTotal and MemAvailable in GB
func parseMemInfo(r io.Reader) (total, available float64, err error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}

		switch {
		case strings.HasPrefix(line, "MemTotal:"):
			total = value / (1024 * 1024) // KB to GB
		case strings.HasPrefix(line, "MemAvailable:"):
			available = value / (1024 * 1024)
		}
	}

	if err := scanner.Err(); err != nil {
		return 0, 0, fmt.Errorf("error reading meminfo: %w", err)
	}
	return total, available, nil
}
