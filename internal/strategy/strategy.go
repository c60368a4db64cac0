// Package strategy defines the capability set that parameterizes the
// Environment Builder (§4.2): the same selections traversal can target
// native execution, a container, or a compatibility layer by swapping the
// Strategy it is built with. Only the native strategy is implemented here;
// Docker, Wine, WSL, and Windows Sandbox are conformance-optional extension
// points left for a caller to supply.
package strategy

import (
	"context"

	"github.com/zeroinst/zerocore/internal/execctx"
)

// StartInfo is the frozen, ready-to-launch process descriptor produced by
// Strategy.Finalize: a filename, argv, environment, and working directory.
type StartInfo struct {
	Filename   string
	Argv       []string
	Env        []string
	WorkingDir string
}

// Strategy is the capability set that parameterizes the builder:
// create_context (NewContext), path_mapper (MapPath), deploy_executable,
// finalize_execution (Finalize), and start. Environment bindings are
// applied by the builder itself; there is no per-strategy
// apply_environment_binding hook. A Strategy is chosen once per Executor;
// swapping strategies mid-build is unsupported. Executor holds it in an
// exported field, which executor.New sets to the native strategy.
type Strategy interface {
	// NewContext returns a fresh ExecutionContext seeded from the host
	// environment.
	NewContext(hostEnv map[string]string) *execctx.Context

	// MapPath translates a store-relative implementation path into the
	// path form this strategy's target process will see. The native
	// strategy's mapper is the identity.
	MapPath(storePath string) string

	// DeployExecutable materializes a run-environment trampoline named
	// name at a strategy-chosen location, returning the path a binding
	// should point at. The argv it will read back at invocation time is
	// recorded separately as a pending run-environment entry.
	DeployExecutable(ctx context.Context, name string) (string, error)

	// Finalize freezes an ExecutionContext into a StartInfo ready for
	// Start.
	Finalize(ec *execctx.Context) *StartInfo

	// Start launches the StartInfo. The native strategy uses
	// os/exec.Cmd.Run, so it returns only after the process has exited.
	Start(ctx context.Context, si *StartInfo) error
}
