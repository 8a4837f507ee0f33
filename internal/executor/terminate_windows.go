//go:build windows

package executor

import "os"

// terminate ends the process. Windows has no deliverable SIGTERM, so this is
// TerminateProcess.
func terminate(p *os.Process) error {
	return p.Kill()
}
