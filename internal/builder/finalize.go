package builder

import (
	"context"

	"github.com/zeroinst/zerocore"
	"github.com/zeroinst/zerocore/internal/strategy"
	"github.com/zeroinst/zerocore/internal/trampoline"
)

// ToStartInfo finalizes pending run-environment bindings and performs
// variable substitution on the assembled argv (§4.1 step 6). It is
// idempotent only in the sense of returning an equivalent descriptor when
// no mutator has run between calls; calling it before Inject is an error.
func (b *Builder) ToStartInfo() (*strategy.StartInfo, error) {
	if b.state == statePreInject {
		return nil, zerocore.Errorf(zerocore.KindInvalid, "to_start_info called before inject")
	}

	env := b.ec.EnvMap()
	for _, p := range b.pending {
		argv, err := expandItems(p.items, env)
		if err != nil {
			return nil, err
		}
		trampoline.SetRunEnv(b.ec.Setenv, p.name, argv)
		env = b.ec.EnvMap()
	}

	assembled, err := expandItems(b.mainArgv, env)
	if err != nil {
		return nil, err
	}
	assembled = append(assembled, b.userArgs...)

	var filename string
	var args []string
	switch {
	case len(b.wrapper) > 0:
		filename = b.wrapper[0]
		args = append(append([]string{}, b.wrapper[1:]...), assembled...)
	case len(assembled) > 0:
		filename = assembled[0]
		args = assembled[1:]
	default:
		return nil, zerocore.Errorf(zerocore.KindInvalid, "assembled command line is empty")
	}

	b.ec.Filename = filename
	b.ec.Argv = args
	b.state = stateFinalized
	return b.strategy.Finalize(b.ec), nil
}

// Start finalizes (if needed) and launches the descriptor via the active
// strategy, surfacing a NotFound error if the file does not exist.
func (b *Builder) Start(ctx context.Context) error {
	si, err := b.ToStartInfo()
	if err != nil {
		return err
	}
	return b.strategy.Start(ctx, si)
}
