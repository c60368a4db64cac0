package trampoline

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// fakeTemplate writes a stand-in trampoline binary and returns a
// Deployer.TemplatePath resolver pointing at it, standing in for the real
// compiled cmd/0install-trampoline binary that defaultTemplatePath looks
// for alongside the running executable.
func fakeTemplate(t *testing.T) func() (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "0install-trampoline-fake")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("writing fake template: %v", err)
	}
	return func() (string, error) { return path, nil }
}

func TestDeployRejectsReservedNames(t *testing.T) {
	d := NewDeployer(t.TempDir())
	d.TemplatePath = fakeTemplate(t)
	if _, err := d.Deploy(context.Background(), "has/slash"); err == nil {
		t.Fatal("Deploy with a reserved character returned nil error")
	}
}

func TestDeployIsIdempotent(t *testing.T) {
	d := NewDeployer(t.TempDir())
	d.TemplatePath = fakeTemplate(t)
	first, err := d.Deploy(context.Background(), "python")
	if err != nil {
		t.Fatalf("first Deploy: %v", err)
	}
	if _, err := os.Stat(first); err != nil {
		t.Fatalf("deployed trampoline missing: %v", err)
	}

	second, err := d.Deploy(context.Background(), "python")
	if err != nil {
		t.Fatalf("second Deploy: %v", err)
	}
	if first != second {
		t.Fatalf("Deploy paths differ across calls: %q != %q", first, second)
	}
}

func TestDeployLayout(t *testing.T) {
	root := t.TempDir()
	d := NewDeployer(root)
	d.TemplatePath = fakeTemplate(t)
	target, err := d.Deploy(context.Background(), "ruby")
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	want := filepath.Join(root, "executables", "ruby", executableName("ruby"))
	if target != want {
		t.Fatalf("Deploy target = %q, want %q", target, want)
	}
}

// fakeEnv is the map-backed setenv/getenv pair SetRunEnv/ResolveRunEnv are
// defined against, standing in for execctx.Context.Setenv/Getenv.
type fakeEnv map[string]string

func (e fakeEnv) setenv(name, value string)            { e[name] = value }
func (e fakeEnv) getenv(name string) (string, bool)     { v, ok := e[name]; return v, ok }

func TestSetRunEnvResolveRunEnvRoundTrip(t *testing.T) {
	env := fakeEnv{}
	argv := []string{"/usr/bin/python3", "-u", "a script with spaces.py"}
	SetRunEnv(env.setenv, "python", argv)

	got, err := ResolveRunEnv(env.getenv, "python")
	if err != nil {
		t.Fatalf("ResolveRunEnv: %v", err)
	}
	if !reflect.DeepEqual(got, argv) {
		t.Fatalf("ResolveRunEnv = %#v, want %#v", got, argv)
	}
}

func TestResolveRunEnvMissingIsError(t *testing.T) {
	env := fakeEnv{}
	if _, err := ResolveRunEnv(env.getenv, "missing"); err == nil {
		t.Fatal("ResolveRunEnv for an unset name returned nil error")
	}
}

func TestDefaultTemplatePathMissingSiblingIsError(t *testing.T) {
	if _, err := defaultTemplatePath(); err == nil {
		t.Fatal("defaultTemplatePath returned nil error with no 0install-trampoline sibling of the test binary")
	}
}
