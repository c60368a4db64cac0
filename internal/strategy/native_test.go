package strategy

import (
	"context"
	"testing"

	"github.com/zeroinst/zerocore"
)

func TestNativeStartRunsTrueAndFalse(t *testing.T) {
	n := NewNative(t.TempDir())
	ec := n.NewContext(map[string]string{})
	ec.Filename = "/bin/true"

	si := n.Finalize(ec)
	if err := n.Start(context.Background(), si); err != nil {
		t.Fatalf("Start(/bin/true) = %v, want nil", err)
	}

	ec2 := n.NewContext(map[string]string{})
	ec2.Filename = "/bin/false"
	si2 := n.Finalize(ec2)
	err := n.Start(context.Background(), si2)
	if err == nil {
		t.Fatal("Start(/bin/false) = nil, want a non-nil error")
	}
	if zerocore.Is(err, zerocore.KindNotFound) {
		t.Fatalf("Start(/bin/false) classified as KindNotFound, want KindIO (it exists, just exits nonzero): %v", err)
	}
}

func TestNativeStartMissingExecutableIsKindNotFound(t *testing.T) {
	n := NewNative(t.TempDir())
	ec := n.NewContext(map[string]string{})
	ec.Filename = "/no/such/executable-zerocore-test"

	si := n.Finalize(ec)
	err := n.Start(context.Background(), si)
	if err == nil {
		t.Fatal("Start(missing executable) = nil, want a non-nil error")
	}
	if !zerocore.Is(err, zerocore.KindNotFound) {
		t.Fatalf("Start(missing executable) = %v, want KindNotFound", err)
	}
}

func TestNativeDeployExecutableReusesDeployer(t *testing.T) {
	n := NewNative(t.TempDir())
	path, err := n.DeployExecutable(context.Background(), "tool")
	if err != nil {
		t.Fatalf("DeployExecutable: %v", err)
	}
	if path == "" {
		t.Fatal("DeployExecutable returned an empty path")
	}
}
