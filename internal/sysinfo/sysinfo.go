// Package sysinfo describes the host a tour search ran on, so recorded
// runtimes can be compared across machines.
package sysinfo

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"
)

// Info saves the basic system information
type Info struct {
	Platform string `json:"platform"`
	CPU      string `json:"cpu"`
	Memory   string `json:"memory"`
	Cores    int    `json:"cores"`
}

var (
	once   sync.Once
	cached Info
)

// Collect returns the host description, probing the system on first use.
// Fields that cannot be read are left as "unknown".
func Collect() Info {
	once.Do(func() { cached = probe() })
	return cached
}

func probe() Info {
	info := Info{Platform: "unknown", CPU: "unknown", Memory: "unknown", Cores: runtime.NumCPU()}
	if hostStat, err := host.Info(); err == nil && hostStat.Platform != "" {
		info.Platform = hostStat.Platform
		if hostStat.PlatformVersion != "" {
			info.Platform += " " + hostStat.PlatformVersion
		}
	} else {
		info.Platform = runtime.GOOS
	}
	if cpuStat, err := cpu.Info(); err == nil && len(cpuStat) > 0 && cpuStat[0].ModelName != "" {
		info.CPU = cpuStat[0].ModelName
	}
	if vmStat, err := mem.VirtualMemory(); err == nil {
		info.Memory = fmt.Sprintf("%d GB", vmStat.Total/1024/1024/1024)
	}
	return info
}
