package strategy

import (
	"context"
	"errors"
	"os"
	"os/exec"

	"github.com/zeroinst/zerocore"
	"github.com/zeroinst/zerocore/internal/execctx"
	"github.com/zeroinst/zerocore/internal/trampoline"
)

// Native is the reference Strategy: paths map 1:1 onto the host
// filesystem and processes are launched directly via os/exec, mirroring
// the teacher's own direct exec.Command usage for build-time tool
// invocations (internal/build/build.go, fuse/server.go).
type Native struct {
	Trampolines *trampoline.Deployer
}

// NewNative returns a Native strategy whose trampolines are cached under
// cacheDir.
func NewNative(cacheDir string) *Native {
	return &Native{Trampolines: trampoline.NewDeployer(cacheDir)}
}

func (n *Native) NewContext(hostEnv map[string]string) *execctx.Context {
	return execctx.New(hostEnv)
}

func (n *Native) MapPath(storePath string) string { return storePath }

func (n *Native) DeployExecutable(ctx context.Context, name string) (string, error) {
	return n.Trampolines.Deploy(ctx, name)
}

func (n *Native) Finalize(ec *execctx.Context) *StartInfo {
	return &StartInfo{
		Filename:   ec.Filename,
		Argv:       append([]string(nil), ec.Argv...),
		Env:        ec.Env(),
		WorkingDir: ec.WorkingDir,
	}
}

func (n *Native) Start(ctx context.Context, si *StartInfo) error {
	cmd := exec.CommandContext(ctx, si.Filename, si.Argv...)
	cmd.Env = si.Env
	cmd.Dir = si.WorkingDir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return zerocore.Errorf(zerocore.KindNotFound, "launching %s: %w", si.Filename, err)
		}
		return zerocore.Errorf(zerocore.KindIO, "launching %s: %w", si.Filename, err)
	}
	return nil
}
