package encoder

import (
	"sync"

	"github.com/shirou/gopsutil/v3/process"
)

// Usage is a resource sample of the running ffmpeg process.
type Usage struct {
	CPUPercent float64
	RSS        uint64
}

// usageSampler reads CPU and memory of one pid through gopsutil.
type usageSampler struct {
	mu   sync.RWMutex
	proc *process.Process
}

func (u *usageSampler) attach(pid int) error {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	u.mu.Lock()
	u.proc = proc
	u.mu.Unlock()
	return nil
}

func (u *usageSampler) detach() {
	u.mu.Lock()
	u.proc = nil
	u.mu.Unlock()
}

func (u *usageSampler) sample() Usage {
	u.mu.RLock()
	proc := u.proc
	u.mu.RUnlock()
	if proc == nil {
		return Usage{}
	}
	var usage Usage
	if pct, err := proc.CPUPercent(); err == nil {
		usage.CPUPercent = pct
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		usage.RSS = mem.RSS
	}
	return usage
}
