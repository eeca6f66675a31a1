//go:build windows

package supervisor

import (
	"os/exec"
	"strconv"
)

// terminateTree ends the sidecar and its children. Windows has no process
// group signal, so taskkill walks the tree.
func terminateTree(pid int) error {
	return exec.Command("taskkill", "/PID", strconv.Itoa(pid), "/T", "/F").Run()
}

func killTree(pid int) error {
	return terminateTree(pid)
}
