// Package adb is the ADB Facade: binary discovery, a typed command
// surface, and pure parsers for adb's text output.
//
// Grounded on the teacher's adb/adb.go plus
// original_source/src-tauri/src/adb/{client,command_builder,discovery}.rs.
package adb

import "fmt"

// Command is the typed surface of adb invocations the engine issues.
// Each constructor returns the argv tail (without the leading "-s
// <device>" target, which Builder prepends).
type Command struct {
	args []string
}

func Version() Command { return Command{[]string{"version"}} }

func Devices(long bool) Command {
	args := []string{"devices"}
	if long {
		args = append(args, "-l")
	}
	return Command{args}
}

func Shell(argv ...string) Command {
	return Command{append([]string{"shell"}, argv...)}
}

func Install(path string, reinstall bool) Command {
	args := []string{"install"}
	if reinstall {
		args = append(args, "-r")
	}
	return Command{append(args, path)}
}

func Uninstall(pkg string, keepData bool) Command {
	args := []string{"uninstall"}
	if keepData {
		args = append(args, "-k")
	}
	return Command{append(args, pkg)}
}

func Push(local, remote string) Command {
	return Command{[]string{"push", local, remote}}
}

func Pull(remote, local string) Command {
	return Command{[]string{"pull", remote, local}}
}

func Reboot(mode string) Command {
	args := []string{"reboot"}
	if mode != "" {
		args = append(args, mode)
	}
	return Command{args}
}

func StartServer() Command { return Command{[]string{"start-server"}} }
func KillServer() Command  { return Command{[]string{"kill-server"}} }

func GetProp(name string) Command {
	return Command{[]string{"shell", "getprop", name}}
}

func Forward(localPort int, remoteSocket string) Command {
	remote := fmt.Sprintf("localabstract:%s", remoteSocket)
	if len(remoteSocket) > 4 && remoteSocket[:4] == "tcp:" {
		remote = remoteSocket
	}
	return Command{[]string{"forward", fmt.Sprintf("tcp:%d", localPort), remote}}
}

func RemoveForward(localPort int) Command {
	return Command{[]string{"forward", "--remove", fmt.Sprintf("tcp:%d", localPort)}}
}

func RemoveAllForwards() Command {
	return Command{[]string{"forward", "--remove-all"}}
}

// Builder assembles a Command's argv, prepending "-s <device>" when a
// target device is set.
type Builder struct {
	deviceID string
}

func NewBuilder() Builder { return Builder{} }

func (b Builder) Target(deviceID string) Builder {
	b.deviceID = deviceID
	return b
}

func (b Builder) Build(cmd Command) []string {
	var args []string
	if b.deviceID != "" {
		args = append(args, "-s", b.deviceID)
	}
	return append(args, cmd.args...)
}
