package selections_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/zeroinst/zerocore"
	"github.com/zeroinst/zerocore/internal/selections"
)

const runnerDoc = `<?xml version="1.0"?>
<selections interface="https://example/app" command="run"
  xmlns="http://zero-install.sourceforge.net/2004/injector/interface">
  <selection interface="https://example/app" id="sha256new=abc" version="1.0">
    <command name="run" path="bin/app">
      <runner interface="https://example/python" command="run">
        <arg>-foo</arg>
      </runner>
    </command>
  </selection>
  <selection interface="https://example/python" id="sha256new=def" version="3.9">
    <command name="run" path="bin/python"/>
  </selection>
</selections>`

func TestReadRunnerChain(t *testing.T) {
	sels, err := selections.Read(strings.NewReader(runnerDoc))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := sels.MainInterfaceURI, zerocore.InterfaceURI("https://example/app"); got != want {
		t.Errorf("MainInterfaceURI = %q, want %q", got, want)
	}
	main, ok := sels.Main()
	if !ok {
		t.Fatal("main implementation not found")
	}
	cmd := main.Commands["run"]
	if cmd == nil {
		t.Fatal("run command missing")
	}
	if cmd.Runner == nil {
		t.Fatal("runner missing")
	}
	if got, want := cmd.Runner.InterfaceURI, zerocore.InterfaceURI("https://example/python"); got != want {
		t.Errorf("runner interface = %q, want %q", got, want)
	}
	want := []selections.ArgItem{selections.Arg{Value: "-foo"}}
	if diff := cmp.Diff(want, cmd.Runner.Arguments, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("runner args: diff (-want +got):\n%s", diff)
	}
}

func TestReadMissingEssentialDependencyIsInvalid(t *testing.T) {
	const doc = `<?xml version="1.0"?>
<selections interface="https://example/app" command="run">
  <selection interface="https://example/app" id="sha256new=abc" version="1.0">
    <requires interface="https://example/lib" importance="essential"/>
    <command name="run" path="bin/app"/>
  </selection>
</selections>`
	_, err := selections.Read(strings.NewReader(doc))
	if !zerocore.Is(err, zerocore.KindInvalid) {
		t.Fatalf("err = %v, want KindInvalid", err)
	}
}

func TestForEachParsing(t *testing.T) {
	const doc = `<?xml version="1.0"?>
<selections interface="https://example/app" command="run">
  <selection interface="https://example/app" id="sha256new=abc" version="1.0">
    <command name="run" path="bin/app">
      <arg>prefix</arg>
      <for-each item-from="CLASSPATH" separator=":">
        <arg>-cp</arg>
        <arg>${item}</arg>
      </for-each>
    </command>
  </selection>
</selections>`
	sels, err := selections.Read(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	main, _ := sels.Main()
	cmd := main.Commands["run"]
	sep := ":"
	want := []selections.ArgItem{
		selections.Arg{Value: "prefix"},
		selections.ForEachArgs{
			ItemFrom:  "CLASSPATH",
			Separator: &sep,
			Args: []selections.ArgItem{
				selections.Arg{Value: "-cp"},
				selections.Arg{Value: "${item}"},
			},
		},
	}
	if diff := cmp.Diff(want, cmd.Arguments, cmpopts.EquateEmpty(), cmp.Comparer(func(a, b *string) bool {
		if a == nil || b == nil {
			return a == b
		}
		return *a == *b
	})); diff != "" {
		t.Errorf("arguments: diff (-want +got):\n%s", diff)
	}
}

func TestBindingRoundTripsUnknownAttrsAndElements(t *testing.T) {
	const doc = `<?xml version="1.0"?>
<selections interface="https://example/app" command="run">
  <selection interface="https://example/app" id="sha256new=abc" version="1.0">
    <requires interface="https://example/lib" importance="essential">
      <environment name="PATH" insert="bin" mode="prepend" future-attr="kept">
        <version-constraint future="2.0"/>
      </environment>
    </requires>
    <command name="run" path="bin/app"/>
  </selection>
  <selection interface="https://example/lib" id="sha256new=def" version="1.0">
    <command name="run" path="bin/lib"/>
  </selection>
</selections>`
	sels, err := selections.Read(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	main, _ := sels.Main()
	deps := main.Dependencies
	if len(deps) != 1 || len(deps[0].Bindings) != 1 {
		t.Fatalf("unexpected dependency/binding shape: %#v", deps)
	}
	env, ok := deps[0].Bindings[0].(*selections.EnvironmentBinding)
	if !ok {
		t.Fatalf("binding = %#v, want *EnvironmentBinding", deps[0].Bindings[0])
	}
	if got, want := env.UnknownAttrs["future-attr"], "kept"; got != want {
		t.Errorf("UnknownAttrs[future-attr] = %q, want %q", got, want)
	}
	if len(env.UnknownElems) != 1 {
		t.Fatalf("UnknownElems = %#v, want one element", env.UnknownElems)
	}
	if got, want := env.UnknownElems[0].Name, "version-constraint"; got != want {
		t.Errorf("UnknownElems[0].Name = %q, want %q", got, want)
	}
	if got, want := env.UnknownElems[0].Attrs["future"], "2.0"; got != want {
		t.Errorf("UnknownElems[0].Attrs[future] = %q, want %q", got, want)
	}
}
