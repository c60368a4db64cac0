// Command 0install-trampoline is the template binary §2 component 8
// deploys under a per-binding-name cache path. Invoked under any name, it
// reads the matching ZEROINSTALL_RUNENV_<name> variable (or the Windows
// FILE_/ARGS_ pair) and execs the recorded command line.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/zeroinst/zerocore/internal/trampoline"
)

func main() {
	name := filepath.Base(os.Args[0])
	name = trimExeSuffix(name)

	argv, err := trampoline.ResolveRunEnv(lookupEnv, name)
	if err != nil {
		log.Fatalf("0install-trampoline: %v", err)
	}
	if len(argv) == 0 {
		log.Fatalf("0install-trampoline: recorded command line for %q is empty", name)
	}
	fullArgv := append(argv, os.Args[1:]...)
	if err := execCommand(fullArgv); err != nil {
		fmt.Fprintf(os.Stderr, "0install-trampoline: exec %v: %v\n", fullArgv, err)
		os.Exit(1)
	}
}

func lookupEnv(name string) (string, bool) { return os.LookupEnv(name) }

func trimExeSuffix(name string) string {
	if len(name) > 4 && name[len(name)-4:] == ".exe" {
		return name[:len(name)-4]
	}
	return name
}
