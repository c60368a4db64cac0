//go:build windows

package trampoline

import (
	"fmt"

	"github.com/zeroinst/zerocore"
)

func executableName(name string) string { return name + ".exe" }

// Windows executables don't need a POSIX mode bit; the .exe extension and
// NTFS ACLs inherited from the template are sufficient.
func markExecutable(path string) error { return nil }

// setRunEnv stores the pair ZEROINSTALL_RUNENV_FILE_<name> /
// ZEROINSTALL_RUNENV_ARGS_<name>, per §6's Windows form.
func setRunEnv(setenv func(name, value string), name string, argv []string) {
	if len(argv) == 0 {
		setenv(fmt.Sprintf("ZEROINSTALL_RUNENV_FILE_%s", name), "")
		setenv(fmt.Sprintf("ZEROINSTALL_RUNENV_ARGS_%s", name), "")
		return
	}
	setenv(fmt.Sprintf("ZEROINSTALL_RUNENV_FILE_%s", name), argv[0])
	setenv(fmt.Sprintf("ZEROINSTALL_RUNENV_ARGS_%s", name), joinArgv(argv[1:]))
}

func resolveRunEnv(getenv func(name string) (string, bool), name string) ([]string, error) {
	file, ok := getenv(fmt.Sprintf("ZEROINSTALL_RUNENV_FILE_%s", name))
	if !ok {
		return nil, zerocore.Errorf(zerocore.KindNotFound, "ZEROINSTALL_RUNENV_FILE_%s is not set", name)
	}
	argsVal, _ := getenv(fmt.Sprintf("ZEROINSTALL_RUNENV_ARGS_%s", name))
	rest, err := splitArgv(argsVal)
	if err != nil {
		return nil, err
	}
	return append([]string{file}, rest...), nil
}
