package builder

import (
	"context"
	"os"
	"reflect"
	"testing"

	"github.com/zeroinst/zerocore"
	"github.com/zeroinst/zerocore/internal/execctx"
	"github.com/zeroinst/zerocore/internal/selections"
	"github.com/zeroinst/zerocore/internal/strategy"
)

// fakeStore resolves every digest to a fixed path keyed by the digest
// value itself, so tests can stand up implementations without a real disk
// layout.
type fakeStore struct{}

func (fakeStore) PathFor(digests selections.ManifestDigest) (string, error) {
	_, v, ok := digests.Best()
	if !ok {
		return "", zerocore.Errorf(zerocore.KindNotFound, "no usable digest")
	}
	return "/store/" + v, nil
}

// fakeStrategy is strategy.Strategy with identity path mapping and a
// deploy counter, so builder tests never touch a real filesystem or
// process.
type fakeStrategy struct {
	deployed map[string]string
	started  *strategy.StartInfo
}

func newFakeStrategy() *fakeStrategy { return &fakeStrategy{deployed: map[string]string{}} }

func (f *fakeStrategy) NewContext(hostEnv map[string]string) *execctx.Context {
	return execctx.New(hostEnv)
}

func (f *fakeStrategy) MapPath(storePath string) string { return storePath }

func (f *fakeStrategy) DeployExecutable(ctx context.Context, name string) (string, error) {
	path := "/trampolines/" + name
	f.deployed[name] = path
	return path, nil
}

func (f *fakeStrategy) Finalize(ec *execctx.Context) *strategy.StartInfo {
	return &strategy.StartInfo{Filename: ec.Filename, Argv: ec.Argv, Env: ec.Env(), WorkingDir: ec.WorkingDir}
}

func (f *fakeStrategy) Start(ctx context.Context, si *strategy.StartInfo) error {
	f.started = si
	return nil
}

func impl(uri, digest string) *selections.ImplementationSelection {
	return &selections.ImplementationSelection{
		InterfaceURI: zerocore.InterfaceURI(uri),
		ID:           "sha256new=" + digest,
		Commands:     map[string]*selections.Command{},
		Digests:      selections.ManifestDigest{selections.SHA256New: digest},
	}
}

func newBuilder(sels *selections.Selections) (*Builder, *fakeStrategy) {
	strat := newFakeStrategy()
	return New(sels, strat, fakeStore{}, nil), strat
}

func TestSingleNativeProgram(t *testing.T) {
	main := impl("app", "aaa")
	main.Commands["run"] = &selections.Command{
		Name: "run",
		Path: "bin/app",
		Arguments: []selections.ArgItem{
			selections.Arg{Value: "--flag"},
		},
	}
	sels := selections.New("app", "run")
	sels.Add(main)

	b, strat := newBuilder(sels)
	if err := b.Inject(context.Background(), ""); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	si, err := b.ToStartInfo()
	if err != nil {
		t.Fatalf("ToStartInfo: %v", err)
	}
	wantFilename := "/store/aaa/bin/app"
	if si.Filename != wantFilename {
		t.Fatalf("Filename = %q, want %q", si.Filename, wantFilename)
	}
	if !reflect.DeepEqual(si.Argv, []string{"--flag"}) {
		t.Fatalf("Argv = %v, want [--flag]", si.Argv)
	}
	_ = strat
}

func TestEnvironmentBindingPrepend(t *testing.T) {
	insert := "lib/python"
	main := impl("app", "aaa")
	main.Commands["run"] = &selections.Command{Name: "run", Path: "bin/app"}
	main.Bindings = []selections.Binding{
		&selections.EnvironmentBinding{Name: "PYTHONPATH", Insert: &insert, Mode: selections.ModePrepend},
	}
	sels := selections.New("app", "run")
	sels.Add(main)

	b, _ := newBuilder(sels)
	if err := b.Inject(context.Background(), ""); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if v, ok := b.ec.Getenv("PYTHONPATH"); !ok || v != "/store/aaa/lib/python" {
		t.Fatalf("PYTHONPATH = %q, %v, want /store/aaa/lib/python", v, ok)
	}
}

func TestEnvironmentBindingConflictingValueAndInsertIsError(t *testing.T) {
	value := "literal"
	insert := "lib"
	main := impl("app", "aaa")
	main.Commands["run"] = &selections.Command{Name: "run", Path: "bin/app"}
	main.Bindings = []selections.Binding{
		&selections.EnvironmentBinding{Name: "X", Value: &value, Insert: &insert},
	}
	sels := selections.New("app", "run")
	sels.Add(main)

	b, _ := newBuilder(sels)
	if err := b.Inject(context.Background(), ""); err == nil {
		t.Fatal("Inject with conflicting value/insert returned nil error")
	}
}

func TestRunnerChain(t *testing.T) {
	python := impl("python", "ppp")
	python.Commands["run"] = &selections.Command{Name: "run", Path: "bin/python3"}

	app := impl("app", "aaa")
	app.Commands["run"] = &selections.Command{
		Name: "run",
		Path: "main.py",
		Runner: &selections.Runner{
			InterfaceURI: "python",
			Arguments:    []selections.ArgItem{selections.Arg{Value: "-u"}},
		},
	}

	sels := selections.New("app", "run")
	sels.Add(app)
	sels.Add(python)

	b, _ := newBuilder(sels)
	if err := b.Inject(context.Background(), ""); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	si, err := b.ToStartInfo()
	if err != nil {
		t.Fatalf("ToStartInfo: %v", err)
	}
	want := []string{"-u", "/store/aaa/main.py"}
	if si.Filename != "/store/ppp/bin/python3" || !reflect.DeepEqual(si.Argv, want) {
		t.Fatalf("Filename=%q Argv=%v, want /store/ppp/bin/python3 %v", si.Filename, si.Argv, want)
	}
}

func TestExecutableInPathDeploysTrampolineAndPrependsPath(t *testing.T) {
	main := impl("app", "aaa")
	main.Commands["run"] = &selections.Command{Name: "run", Path: "bin/app"}
	main.Bindings = []selections.Binding{
		&selections.ExecutableInPath{Name: "helper"},
	}
	sels := selections.New("app", "run")
	sels.Add(main)

	b, strat := newBuilder(sels)
	if err := b.Inject(context.Background(), ""); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if _, ok := strat.deployed["helper"]; !ok {
		t.Fatal("ExecutableInPath did not deploy a trampoline")
	}
	pathVar := execctx.PathVarName()
	want := "/trampolines"
	if host := os.Getenv(pathVar); host != "" {
		want += execctx.PathListSeparator() + host
	}
	v, ok := b.ec.Getenv(pathVar)
	if !ok || v != want {
		t.Fatalf("%s = %q, %v, want %q", pathVar, v, ok, want)
	}
}

func TestForEachArgsExpandsPerElement(t *testing.T) {
	main := impl("app", "aaa")
	main.Commands["run"] = &selections.Command{
		Name: "run",
		Path: "bin/app",
		Arguments: []selections.ArgItem{
			selections.ForEachArgs{
				ItemFrom: "COLORS",
				Args:     []selections.ArgItem{selections.Arg{Value: "--item=${item}"}},
			},
		},
	}
	sels := selections.New("app", "run")
	sels.Add(main)

	b, _ := newBuilder(sels)
	if err := b.Inject(context.Background(), ""); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	b.ec.Setenv("COLORS", "red:blue")
	si, err := b.ToStartInfo()
	if err != nil {
		t.Fatalf("ToStartInfo: %v", err)
	}
	want := []string{"--item=red", "--item=blue"}
	if !reflect.DeepEqual(si.Argv, want) {
		t.Fatalf("Argv = %v, want %v", si.Argv, want)
	}
	if _, ok := b.ec.Getenv("item"); ok {
		t.Fatal("ForEachArgs leaked \"item\" into the real environment")
	}
}

func TestMissingEssentialDependencyIsError(t *testing.T) {
	main := impl("app", "aaa")
	main.Commands["run"] = &selections.Command{Name: "run", Path: "bin/app"}
	main.Dependencies = []selections.Dependency{
		{InterfaceURI: "missing", Importance: selections.Essential},
	}
	sels := selections.New("app", "run")
	sels.Add(main)

	b, _ := newBuilder(sels)
	if err := b.Inject(context.Background(), ""); err == nil {
		t.Fatal("Inject with a missing essential dependency returned nil error")
	}
}

func TestUnsafeWorkingDirIsError(t *testing.T) {
	main := impl("app", "aaa")
	main.Commands["run"] = &selections.Command{Name: "run", Path: "bin/app", WorkingDir: "../escape"}
	sels := selections.New("app", "run")
	sels.Add(main)

	b, _ := newBuilder(sels)
	if err := b.Inject(context.Background(), ""); err == nil {
		t.Fatal("Inject with an escaping working directory returned nil error")
	}
}

func TestInjectCalledTwiceIsError(t *testing.T) {
	main := impl("app", "aaa")
	main.Commands["run"] = &selections.Command{Name: "run", Path: "bin/app"}
	sels := selections.New("app", "run")
	sels.Add(main)

	b, _ := newBuilder(sels)
	if err := b.Inject(context.Background(), ""); err != nil {
		t.Fatalf("first Inject: %v", err)
	}
	if err := b.Inject(context.Background(), ""); err == nil {
		t.Fatal("second Inject returned nil error")
	}
}
