package audio

import (
	"os"
	"sync"

	"github.com/airenas/meetscribe/internal/pkg/cmdapp"
	"github.com/hashicorp/go-reap"
)

// ReapChildren starts zombie reaping when running as PID 1, returns the lock for command runs
func ReapChildren() *sync.RWMutex {
	if os.Getpid() != 1 || !reap.IsSupported() {
		return nil
	}
	cmdapp.Log.Debug("Init children reaper")
	res := &sync.RWMutex{}
	pids := make(reap.PidCh, 1)
	go reap.ReapChildren(pids, nil, nil, res)
	go debugReap(pids)
	return res
}

func debugReap(pids reap.PidCh) {
	for pid := range pids {
		cmdapp.Log.Debugf("Reaped child process: %d", pid)
	}
}
