//go:build windows

package main

import (
	"os"
	"os/exec"
)

// execCommand spawns argv as a child and relays its exit code: Windows has
// no process-image-replacement equivalent to POSIX exec available from Go.
func execCommand(argv []string) error {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		return err
	}
	os.Exit(0)
	return nil
}
