//go:build windows

package executor

func waitForTerm() int { return 1 }
