// Package trampoline implements the run-environment trampoline: a tiny,
// per-OS executable deployed under a cache path that, when later invoked
// directly by some third party, reads a well-known environment variable
// and execs the real command (§2 component 8, §6 "Run-environment
// variables"). Deployment prefers a hardlink to a single template binary,
// falling back to a copy when hardlinking is unsupported across the
// target filesystem — the same fallback shape the teacher's package build
// pipeline uses when staging files into an output tree
// (internal/build/build.go's use of os.Link before os.Link).
package trampoline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/zeroinst/zerocore"
	"github.com/zeroinst/zerocore/internal/wordsplit"
)

// reservedName rejects binding names containing filesystem-reserved
// characters before they become a path component.
var reservedName = regexp.MustCompile(`[/\\:*?"<>|\x00]`)

// Deployer deploys trampoline executables under CacheRoot/executables/<name>.
// TemplatePath, when set, overrides the default lookup of the compiled
// 0install-trampoline binary — tests set it to a fake binary since no real
// sibling trampoline binary exists next to a go test binary.
type Deployer struct {
	CacheRoot    string
	TemplatePath func() (string, error)
}

// NewDeployer returns a Deployer rooted at cacheRoot.
func NewDeployer(cacheRoot string) *Deployer {
	return &Deployer{CacheRoot: cacheRoot}
}

// Deploy materializes the trampoline binary at CacheRoot/executables/<name>
// and returns its path. A deploy target already present is treated as
// success without being overwritten, per the "locked-in-use target is
// treated as success" failure-mode note.
func (d *Deployer) Deploy(ctx context.Context, name string) (string, error) {
	if name == "" || reservedName.MatchString(name) {
		return "", zerocore.Errorf(zerocore.KindInvalid, "executable binding name %q contains reserved characters", name)
	}
	if err := zerocore.CheckCanceled(ctx); err != nil {
		return "", err
	}

	dir := filepath.Join(d.CacheRoot, "executables", name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", zerocore.Errorf(zerocore.KindIO, "creating trampoline directory %q: %w", dir, err)
	}
	target := filepath.Join(dir, executableName(name))
	if _, err := os.Stat(target); err == nil {
		return target, nil
	}

	resolve := d.TemplatePath
	if resolve == nil {
		resolve = defaultTemplatePath
	}
	template, err := resolve()
	if err != nil {
		return "", err
	}
	if err := os.Link(template, target); err != nil {
		if copyErr := copyFile(template, target); copyErr != nil {
			return "", zerocore.Errorf(zerocore.KindIO, "deploying trampoline %q: %w", target, copyErr)
		}
	}
	if err := markExecutable(target); err != nil {
		return "", err
	}
	return target, nil
}

// defaultTemplatePath resolves the compiled cmd/0install-trampoline binary,
// installed alongside the running executable, as the trampoline template.
// It is a distinct artifact from whichever CLI binary is running (e.g.
// 0install-run): deploying 0install-run itself would give every trampoline
// that binary's flag-parsing main() instead of the argv0-dispatch/
// ZEROINSTALL_RUNENV_<name> resolution cmd/0install-trampoline implements.
func defaultTemplatePath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", zerocore.Errorf(zerocore.KindIO, "locating trampoline template: %w", err)
	}
	candidate := filepath.Join(filepath.Dir(exe), executableName("0install-trampoline"))
	if _, err := os.Stat(candidate); err != nil {
		return "", zerocore.Errorf(zerocore.KindNotFound, "trampoline template %q: %w", candidate, err)
	}
	return candidate, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

// SetRunEnv records argv as the run-environment entry for name through
// setenv, using the platform-appropriate variable shape from platform_windows.go /
// platform_other.go.
func SetRunEnv(setenv func(name, value string), name string, argv []string) {
	setRunEnv(setenv, name, argv)
}

// ResolveRunEnv is the trampoline binary's own half of the contract: given
// its own invocation name, read back the argv that SetRunEnv recorded.
func ResolveRunEnv(getenv func(name string) (string, bool), name string) (argv []string, err error) {
	return resolveRunEnv(getenv, name)
}

func joinArgv(argv []string) string { return wordsplit.Join(argv) }

func splitArgv(s string) ([]string, error) { return wordsplit.Split(s) }
