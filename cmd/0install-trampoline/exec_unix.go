//go:build !windows

package main

import (
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

// execCommand replaces the current process image, matching "execs the
// real command" literally: the trampoline never returns on success.
func execCommand(argv []string) error {
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return err
	}
	return unix.Exec(path, argv, os.Environ())
}
