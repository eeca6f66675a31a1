//go:build !windows

package supervisor

import "syscall"

// terminateTree asks the sidecar's process group to exit.
func terminateTree(pid int) error {
	return syscall.Kill(-pid, syscall.SIGTERM)
}

// killTree forcibly ends the sidecar's process group.
func killTree(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}
