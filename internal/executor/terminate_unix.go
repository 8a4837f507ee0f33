//go:build !windows

package executor

import (
	"os"
	"syscall"
)

// terminate sends SIGTERM so the process can shut down cleanly.
func terminate(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}
