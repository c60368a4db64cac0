//go:build !windows

package trampoline

import (
	"fmt"
	"os"

	"github.com/zeroinst/zerocore"
)

func executableName(name string) string { return name }

func markExecutable(path string) error {
	if err := os.Chmod(path, 0o755); err != nil {
		return zerocore.Errorf(zerocore.KindIO, "marking trampoline executable: %w", err)
	}
	return nil
}

// setRunEnv stores argv as a single shell-escaped string under
// ZEROINSTALL_RUNENV_<name>, per §6's POSIX form.
func setRunEnv(setenv func(name, value string), name string, argv []string) {
	setenv(fmt.Sprintf("ZEROINSTALL_RUNENV_%s", name), joinArgv(argv))
}

func resolveRunEnv(getenv func(name string) (string, bool), name string) ([]string, error) {
	v, ok := getenv(fmt.Sprintf("ZEROINSTALL_RUNENV_%s", name))
	if !ok {
		return nil, zerocore.Errorf(zerocore.KindNotFound, "ZEROINSTALL_RUNENV_%s is not set", name)
	}
	return splitArgv(v)
}
