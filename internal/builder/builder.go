// Package builder implements the Environment Builder (§4.1): the heart of
// the execution core. It walks a validated Selections document, applies
// every binding an implementation or command declares, recursively
// expands runner chains into a single argv, and produces a ready-to-launch
// process descriptor.
package builder

import (
	"context"
	"os"

	"github.com/zeroinst/zerocore"
	"github.com/zeroinst/zerocore/internal/execctx"
	"github.com/zeroinst/zerocore/internal/selections"
	"github.com/zeroinst/zerocore/internal/store"
	"github.com/zeroinst/zerocore/internal/strategy"
)

type state int

const (
	statePreInject state = iota
	statePostInject
	stateFinalized
)

// pendingEntry is one run-environment trampoline awaiting variable
// expansion at finalization time: the command line a deployed executable
// must exec when invoked under name.
type pendingEntry struct {
	name  string
	items []selections.ArgItem
}

// Builder is the mutable, single-use state machine that implements
// inject/add_wrapper/add_arguments/set_environment_variable/to_start_info/
// start. A Builder is constructed per Executor call and discarded after
// use; partial state on error is simply dropped with the Builder.
type Builder struct {
	sels     *selections.Selections
	strategy strategy.Strategy
	store    store.Store
	resolvePackage func(id string) (string, error)

	state state
	ec    *execctx.Context

	appliedContainers map[interface{}]bool // dedup: *ImplementationSelection / *Dependency / *Command

	wrapper      []string
	userArgs     []string
	mainArgv     []selections.ArgItem
	pending      []pendingEntry
	workingDirSet bool
}

// New returns a Builder over sels, using strategy for path mapping,
// trampoline deployment, and final launch, and st to resolve store paths.
// resolvePackage, if non-nil, resolves "package:"-prefixed implementation
// IDs to their externally-managed install path.
func New(sels *selections.Selections, strat strategy.Strategy, st store.Store, resolvePackage func(id string) (string, error)) *Builder {
	return &Builder{
		sels:              sels,
		strategy:          strat,
		store:             st,
		resolvePackage:    resolvePackage,
		appliedContainers: make(map[interface{}]bool),
	}
}

// Inject validates sels and applies every self-binding and dependency
// binding declared directly or transitively by the main command, then
// recursively assembles the main argv. It may be called exactly once;
// overrideMain, if non-empty, replaces the selections document's
// MainCommand.
func (b *Builder) Inject(ctx context.Context, overrideMain string) error {
	if b.state != statePreInject {
		return zerocore.Errorf(zerocore.KindInvalid, "inject called more than once")
	}
	if err := selections.Validate(b.sels); err != nil {
		return err
	}
	mainCmd := b.sels.MainCommand
	if overrideMain != "" {
		mainCmd = overrideMain
	}
	if mainCmd == "" {
		return zerocore.Errorf(zerocore.KindInvalid, "selections have no command to run")
	}
	if b.sels.Len() == 0 {
		return zerocore.Errorf(zerocore.KindInvalid, "selections list no implementations")
	}
	mainImpl, ok := b.sels.Main()
	if !ok {
		return zerocore.Errorf(zerocore.KindInvalid, "no implementation selected for main interface %q", b.sels.MainInterfaceURI)
	}

	if b.ec == nil {
		b.ec = b.strategy.NewContext(hostEnviron())
	}

	if err := b.applySelectionBindings(ctx); err != nil {
		return err
	}

	argv, err := b.commandLine(ctx, mainImpl, mainCmd, map[string]bool{})
	if err != nil {
		return err
	}
	b.mainArgv = argv
	b.state = statePostInject
	return nil
}

// AddWrapper parses s as a command line via the teacher-grounded
// wordsplit package; the result becomes the outermost executable, with
// the program argv appended after it.
func (b *Builder) AddWrapper(s string) error {
	words, err := splitWrapper(s)
	if err != nil {
		return err
	}
	b.wrapper = words
	return nil
}

// AddArguments appends user-supplied arguments after all runner and
// command arguments.
func (b *Builder) AddArguments(args []string) {
	b.userArgs = append(b.userArgs, args...)
}

// SetEnvironmentVariable overrides name, last-writer-wins, regardless of
// builder state.
func (b *Builder) SetEnvironmentVariable(name, value string) {
	if b.ec == nil {
		b.ec = b.strategy.NewContext(hostEnviron())
	}
	b.ec.Setenv(name, value)
}

func hostEnviron() map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				out[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return out
}
