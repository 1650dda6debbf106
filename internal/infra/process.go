package infra

import (
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// ProcessManagerImpl implements domain.ProcessManager using gopsutil.
type ProcessManagerImpl struct{}

// NewProcessManager creates a new process manager.
func NewProcessManager() domain.ProcessManager {
	return &ProcessManagerImpl{}
}

// FindByName returns PIDs of processes named name (case-insensitive).
// Helper processes such as "Google Chrome Helper" do not match "Google Chrome".
func (pm *ProcessManagerImpl) FindByName(name string) ([]int, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	var found []int
	for _, p := range procs {
		pname, err := p.Name()
		if err != nil {
			continue // exited while listing
		}
		if strings.EqualFold(pname, name) {
			found = append(found, int(p.Pid))
		}
	}
	return found, nil
}

// NameOf returns the executable name of pid.
func (pm *ProcessManagerImpl) NameOf(pid int) (string, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", err
	}
	return p.Name()
}

// RunningBrowsers filters browsers down to those with a live process.
// A lookup error keeps the browser, so callers stay best-effort.
func RunningBrowsers(pm domain.ProcessManager, browsers []domain.Browser) []domain.Browser {
	var running []domain.Browser
	for _, b := range browsers {
		for _, name := range b.ProcessNames {
			pids, err := pm.FindByName(name)
			if err != nil || len(pids) > 0 {
				running = append(running, b)
				break
			}
		}
	}
	return running
}

// Ensure ProcessManagerImpl implements domain.ProcessManager.
var _ domain.ProcessManager = (*ProcessManagerImpl)(nil)
