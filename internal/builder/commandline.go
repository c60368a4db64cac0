package builder

import (
	"context"
	"path/filepath"

	"github.com/zeroinst/zerocore"
	"github.com/zeroinst/zerocore/internal/selections"
)

// commandLine recursively assembles the raw (pre-expansion) argument list
// for cmdName on impl: applies the command's own bindings and
// dependencies, follows its runner chain, and appends its resolved path
// and arguments (§4.1 step 5). visiting guards against a cyclic runner
// chain; it is scoped to one top-level call (inject or deployTrampoline),
// not shared across the whole Builder.
func (b *Builder) commandLine(ctx context.Context, impl *selections.ImplementationSelection, cmdName string, visiting map[string]bool) ([]selections.ArgItem, error) {
	if err := zerocore.CheckCanceled(ctx); err != nil {
		return nil, err
	}
	key := string(impl.InterfaceURI) + "#" + cmdName
	if visiting[key] {
		return nil, zerocore.Errorf(zerocore.KindInvalid, "cyclic runner chain at %s command %q", impl.InterfaceURI, cmdName)
	}
	visiting[key] = true
	defer delete(visiting, key)

	cmd, ok := impl.Commands[cmdName]
	if !ok {
		return nil, zerocore.Errorf(zerocore.KindNotFound, "implementation %s has no command %q", impl.InterfaceURI, cmdName)
	}

	if !b.appliedContainers[cmd] {
		b.appliedContainers[cmd] = true
		if err := b.applyBindings(ctx, cmd.Bindings, impl); err != nil {
			return nil, err
		}
		if err := b.applyCommandDependencies(ctx, cmd); err != nil {
			return nil, err
		}
	}

	if cmd.WorkingDir != "" {
		root, err := b.implRoot(impl)
		if err != nil {
			return nil, err
		}
		if err := b.setWorkingDir(root, cmd.WorkingDir); err != nil {
			return nil, err
		}
	}

	var argv []selections.ArgItem
	if cmd.Runner != nil {
		runnerTarget, ok := b.sels.Lookup(cmd.Runner.InterfaceURI)
		if !ok {
			return nil, zerocore.Errorf(zerocore.KindInvalid, "runner interface %q has no selected implementation", cmd.Runner.InterfaceURI)
		}
		runnerCmd := cmd.Runner.Command
		if runnerCmd == "" {
			runnerCmd = "run"
		}
		runnerArgv, err := b.commandLine(ctx, runnerTarget, runnerCmd, visiting)
		if err != nil {
			return nil, err
		}
		argv = append(argv, runnerArgv...)
		argv = append(argv, cmd.Runner.Arguments...)
	}

	if cmd.Path != "" {
		if impl.IsPackageImplementation() {
			argv = append(argv, selections.Arg{Value: cmd.Path})
		} else {
			root, err := b.implRoot(impl)
			if err != nil {
				return nil, err
			}
			argv = append(argv, selections.Arg{Value: filepath.Join(root, filepath.FromSlash(cmd.Path))})
		}
	}
	argv = append(argv, cmd.Arguments...)
	return argv, nil
}

func (b *Builder) applyCommandDependencies(ctx context.Context, cmd *selections.Command) error {
	for i := range cmd.Dependencies {
		dep := &cmd.Dependencies[i]
		if b.appliedContainers[dep] {
			continue
		}
		b.appliedContainers[dep] = true
		target, ok := b.sels.Lookup(dep.InterfaceURI)
		if !ok {
			if dep.Importance == selections.Essential {
				return zerocore.Errorf(zerocore.KindInvalid, "essential dependency %q has no selected implementation", dep.InterfaceURI)
			}
			continue
		}
		if err := b.applyBindings(ctx, dep.Bindings, target); err != nil {
			return err
		}
	}
	return nil
}
