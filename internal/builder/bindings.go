package builder

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/zeroinst/zerocore"
	"github.com/zeroinst/zerocore/internal/execctx"
	"github.com/zeroinst/zerocore/internal/selections"
	"github.com/zeroinst/zerocore/internal/store"
)

// applySelectionBindings is the top-level pass over every selected
// implementation: each implementation's own bindings are applied against
// itself, and each of its dependencies' bindings are applied against the
// dependency's resolved implementation (§2 control flow, §8 "every
// BindingContainer of i exactly once").
func (b *Builder) applySelectionBindings(ctx context.Context) error {
	for _, impl := range b.sels.Implementations() {
		if err := zerocore.CheckCanceled(ctx); err != nil {
			return err
		}
		if !b.appliedContainers[impl] {
			b.appliedContainers[impl] = true
			if err := b.applyBindings(ctx, impl.Bindings, impl); err != nil {
				return err
			}
		}
		for i := range impl.Dependencies {
			dep := &impl.Dependencies[i]
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
	}
	return nil
}

// applyBindings applies each Binding in bindings, exposing target to the
// consumer being built. target.IsPackageImplementation suppresses
// environment and working-directory bindings (their store-relative paths
// are meaningless for an externally-managed implementation) but executable
// bindings still deploy trampolines, per §6's package sentinel note.
func (b *Builder) applyBindings(ctx context.Context, bindings []selections.Binding, target *selections.ImplementationSelection) error {
	for _, bind := range bindings {
		switch v := bind.(type) {
		case *selections.EnvironmentBinding:
			if target.IsPackageImplementation() {
				continue
			}
			root, err := b.implRoot(target)
			if err != nil {
				return err
			}
			if err := b.applyEnvironmentBinding(v, root); err != nil {
				return err
			}
		case *selections.WorkingDirBinding:
			if target.IsPackageImplementation() {
				continue
			}
			root, err := b.implRoot(target)
			if err != nil {
				return err
			}
			if err := b.setWorkingDir(root, v.Source); err != nil {
				return err
			}
		case *selections.ExecutableInVar:
			path, err := b.deployTrampoline(ctx, v.Name, target, v.Command)
			if err != nil {
				return err
			}
			b.ec.Setenv(v.Name, path)
		case *selections.ExecutableInPath:
			path, err := b.deployTrampoline(ctx, v.Name, target, v.Command)
			if err != nil {
				return err
			}
			b.prependPath(filepath.Dir(path))
		default:
			return zerocore.Errorf(zerocore.KindInvalid, "unknown binding type %T", bind)
		}
	}
	return nil
}

func (b *Builder) implRoot(impl *selections.ImplementationSelection) (string, error) {
	path, err := store.PathForSelection(b.store, impl, b.resolvePackage)
	if err != nil {
		return "", err
	}
	return b.strategy.MapPath(path), nil
}

// applyEnvironmentBinding implements the three combinator modes against
// root (the bound implementation's store path): prepend/append join the
// previous value with separator (defaulting to the platform path-list
// separator), replace discards it. Default seeds the variable only when it
// was previously unset on the host.
func (b *Builder) applyEnvironmentBinding(v *selections.EnvironmentBinding, root string) error {
	if v.Value != nil && v.Insert != nil {
		return zerocore.Errorf(zerocore.KindInvalid, "environment binding %q sets both value and insert", v.Name)
	}
	var newPart string
	switch {
	case v.Value != nil:
		newPart = *v.Value
	case v.Insert != nil:
		newPart = filepath.Join(root, filepath.FromSlash(*v.Insert))
	default:
		return zerocore.Errorf(zerocore.KindInvalid, "environment binding %q sets neither value nor insert", v.Name)
	}

	prev, exists := b.ec.Getenv(v.Name)
	if !exists && v.Default != nil {
		prev = *v.Default
		exists = true
	}

	sep := execctx.PathListSeparator()
	if v.Separator != nil {
		sep = *v.Separator
	}

	var final string
	switch v.Mode {
	case selections.ModeReplace, "":
		final = newPart
	case selections.ModePrepend:
		if exists && prev != "" {
			final = newPart + sep + prev
		} else {
			final = newPart
		}
	case selections.ModeAppend:
		if exists && prev != "" {
			final = prev + sep + newPart
		} else {
			final = newPart
		}
	default:
		return zerocore.Errorf(zerocore.KindInvalid, "environment binding %q has unknown mode %q", v.Name, v.Mode)
	}
	b.ec.Setenv(v.Name, final)
	return nil
}

func (b *Builder) prependPath(dir string) {
	name := execctx.PathVarName()
	prev, exists := b.ec.Getenv(name)
	if exists && prev != "" {
		b.ec.Setenv(name, dir+execctx.PathListSeparator()+prev)
	} else {
		b.ec.Setenv(name, dir)
	}
}

// setWorkingDir sets the execution context's working directory to
// source resolved under root. It fails if the directory was already set,
// or if source is absolute or has a ".." segment (with either "/" or "\"
// as the separator).
func (b *Builder) setWorkingDir(root, source string) error {
	if b.workingDirSet {
		return zerocore.Errorf(zerocore.KindInvalid, "working directory already set")
	}
	if filepath.IsAbs(source) || strings.HasPrefix(filepath.ToSlash(source), "/") {
		return zerocore.Errorf(zerocore.KindInvalid, "working-dir source %q must be relative", source)
	}
	for _, seg := range strings.FieldsFunc(source, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return zerocore.Errorf(zerocore.KindInvalid, "working-dir source %q contains a \"..\" segment", source)
		}
	}
	b.ec.WorkingDir = filepath.Join(root, filepath.FromSlash(source))
	b.workingDirSet = true
	return nil
}

// deployTrampoline deploys a run-environment trampoline named name via the
// active strategy and records a pending run-environment entry that, once
// expanded at finalization, execs command_line(target, command).
func (b *Builder) deployTrampoline(ctx context.Context, name string, target *selections.ImplementationSelection, command string) (string, error) {
	if command == "" {
		command = "run"
	}
	items, err := b.commandLine(ctx, target, command, map[string]bool{})
	if err != nil {
		return "", err
	}
	path, err := b.strategy.DeployExecutable(ctx, name)
	if err != nil {
		return "", err
	}
	b.pending = append(b.pending, pendingEntry{name: name, items: items})
	return path, nil
}
