// Package status reports whether the web servers are running and how much
// memory they and the host use.
package status

import (
	"strings"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/Grazulex/servermark/internal/driver"
	"github.com/Grazulex/servermark/internal/executor"
)

// Server is the state of one backend.
type Server struct {
	Backend driver.Backend `json:"backend"`
	Active  bool           `json:"active"` // the registry's selected backend
	Unit    string         `json:"unit"`   // systemctl is-active output
	PIDs    []int32        `json:"pids"`
	RSS     uint64         `json:"rss_bytes"`
}

// Running reports whether any process of the backend is alive.
func (s Server) Running() bool {
	return len(s.PIDs) > 0
}

// Memory is host memory usage.
type Memory struct {
	Total       uint64  `json:"total_bytes"`
	Used        uint64  `json:"used_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

// Report is a full snapshot.
type Report struct {
	Servers []Server `json:"servers"`
	Memory  *Memory  `json:"memory,omitempty"`
}

type proc struct {
	pid  int32
	name string
	rss  uint64
}

// replaced in tests
var (
	listProcesses = func() ([]proc, error) {
		ps, err := process.Processes()
		if err != nil {
			return nil, err
		}
		out := make([]proc, 0, len(ps))
		for _, p := range ps {
			name, err := p.Name()
			if err != nil {
				continue
			}
			pr := proc{pid: p.Pid, name: name}
			if mi, err := p.MemoryInfo(); err == nil && mi != nil {
				pr.rss = mi.RSS
			}
			out = append(out, pr)
		}
		return out, nil
	}

	virtualMemory = func() (*Memory, error) {
		v, err := mem.VirtualMemory()
		if err != nil {
			return nil, err
		}
		return &Memory{Total: v.Total, Used: v.Used, UsedPercent: v.UsedPercent}, nil
	}
)

// Collector builds reports.
type Collector struct {
	exec executor.CommandExecutor
}

// NewCollector returns a Collector that queries systemd through exec.
func NewCollector(exec executor.CommandExecutor) *Collector {
	return &Collector{exec: exec}
}

// Snapshot inspects both backends. active marks the selected one.
func (c *Collector) Snapshot(active driver.Backend) (*Report, error) {
	procs, err := listProcesses()
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, b := range driver.Backends() {
		s := Server{Backend: b, Active: b == active, Unit: c.unitState(string(b)), PIDs: []int32{}}
		for _, p := range procs {
			if matches(p.name, b) {
				s.PIDs = append(s.PIDs, p.pid)
				s.RSS += p.rss
			}
		}
		report.Servers = append(report.Servers, s)
	}

	if m, err := virtualMemory(); err == nil {
		report.Memory = m
	}
	return report, nil
}

func (c *Collector) unitState(unit string) string {
	if c.exec == nil {
		return "unknown"
	}
	out, _ := c.exec.Execute("systemctl", "is-active", unit)
	state := strings.TrimSpace(string(out))
	if state == "" {
		return "unknown"
	}
	return state
}

// matches reports whether a process name belongs to backend b.
func matches(name string, b driver.Backend) bool {
	return name == string(b) || strings.HasPrefix(name, string(b)+":")
}
