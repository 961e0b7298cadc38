//go:build !windows

package process

import "os/exec"

// applyPlatformAttrs is a no-op outside Windows: there is no console
// subsystem to hide a child window from.
func applyPlatformAttrs(cmd *exec.Cmd, hideConsole bool) {}
