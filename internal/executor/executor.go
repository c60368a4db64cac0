// Package executor implements the thin façade (§2 component 10) that the
// CLI front-end drives: start(selections) and inject(selections,
// override_main?), hiding the Builder/Strategy/Store wiring from callers
// that just want a selections document turned into a running process.
package executor

import (
	"context"

	"github.com/zeroinst/zerocore/internal/builder"
	"github.com/zeroinst/zerocore/internal/selections"
	"github.com/zeroinst/zerocore/internal/store"
	"github.com/zeroinst/zerocore/internal/strategy"
)

// Executor binds one Strategy and one Store for its whole lifetime;
// swapping either mid-build is unsupported (§4.2).
type Executor struct {
	Strategy       strategy.Strategy
	Store          store.Store
	ResolvePackage func(id string) (string, error)
}

// New returns an Executor using the native strategy and disk store rooted
// at the default cache directory.
func New() *Executor {
	st := store.NewDisk()
	return &Executor{
		Strategy: strategy.NewNative(st.CacheRoot),
		Store:    st,
	}
}

// Inject validates sels, applies every binding, and assembles (but does
// not launch) the process descriptor, returning a Builder positioned to
// accept add_wrapper/add_arguments/set_environment_variable calls before
// Start or ToStartInfo.
func (e *Executor) Inject(ctx context.Context, sels *selections.Selections, overrideMain string) (*builder.Builder, error) {
	b := builder.New(sels, e.Strategy, e.Store, e.ResolvePackage)
	if err := b.Inject(ctx, overrideMain); err != nil {
		return nil, err
	}
	return b, nil
}

// Start is the common case: inject sels and launch its main command
// immediately, with no wrapper or extra arguments.
func (e *Executor) Start(ctx context.Context, sels *selections.Selections) error {
	b, err := e.Inject(ctx, sels, "")
	if err != nil {
		return err
	}
	return b.Start(ctx)
}
