package store

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/zeroinst/zerocore/internal/archive"
	"github.com/zeroinst/zerocore/internal/manifest"
	"github.com/zeroinst/zerocore/internal/selections"
)

type nopCloser struct{ io.Reader }

func (nopCloser) Close() error { return nil }

// TestArchiveRoundTrip extracts a small tar archive into a DiskBuilder,
// generates its manifest, and checks that the digest is stable and that
// the resulting tree is then resolvable through the Disk store exactly
// the way an injected selections document would expect (§8 "Archive
// round-trip").
func TestArchiveRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	tw.WriteHeader(&tar.Header{Name: "bin", Typeflag: tar.TypeDir, Mode: 0o755})
	tw.WriteHeader(&tar.Header{Name: "bin/tool", Typeflag: tar.TypeReg, Size: 5, Mode: 0o755})
	tw.Write([]byte("hello"))
	tw.WriteHeader(&tar.Header{Name: "bin/tool-link", Typeflag: tar.TypeSymlink, Linkname: "tool"})
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar writer: %v", err)
	}

	extractRoot := t.TempDir()
	e, err := archive.NewRegistry().New("application/x-tar", archive.Source{
		Reader: nopCloser{bytes.NewReader(buf.Bytes())},
	})
	if err != nil {
		t.Fatalf("constructing extractor: %v", err)
	}
	b := NewDiskBuilder(extractRoot)
	if err := e.Extract(context.Background(), b); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(extractRoot, "bin", "tool"))
	if err != nil || string(data) != "hello" {
		t.Fatalf("bin/tool contents = %q, %v, want \"hello\"", data, err)
	}
	target, err := os.Readlink(filepath.Join(extractRoot, "bin", "tool-link"))
	if err != nil || target != "tool" {
		t.Fatalf("bin/tool-link target = %q, %v, want \"tool\"", target, err)
	}

	m, err := manifest.Generate(extractRoot, selections.SHA256New)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	digest, err := m.Digest()
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if digest == "sha256new=" {
		t.Fatal("Digest returned an empty hash")
	}

	m2, err := manifest.Generate(extractRoot, selections.SHA256New)
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	digest2, err := m2.Digest()
	if err != nil {
		t.Fatalf("second Digest: %v", err)
	}
	if digest != digest2 {
		t.Fatalf("Digest is not stable across runs: %q != %q", digest, digest2)
	}

	storeRoot := t.TempDir()
	alg, value, ok := splitDigest(digest)
	if !ok {
		t.Fatalf("could not split digest %q", digest)
	}
	installed := filepath.Join(storeRoot, string(alg)+"="+value)
	if err := os.Rename(extractRoot, installed); err != nil {
		t.Fatalf("renaming into store layout: %v", err)
	}

	d := &Disk{CacheRoot: storeRoot}
	resolved, err := d.PathFor(selections.ManifestDigest{alg: value})
	if err != nil {
		t.Fatalf("PathFor: %v", err)
	}
	if resolved != installed {
		t.Fatalf("PathFor = %q, want %q", resolved, installed)
	}
}

func splitDigest(digest string) (selections.Algorithm, string, bool) {
	for i := 0; i < len(digest); i++ {
		if digest[i] == '=' {
			return selections.Algorithm(digest[:i]), digest[i+1:], true
		}
	}
	return "", "", false
}
