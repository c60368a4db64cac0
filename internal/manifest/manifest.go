// Package manifest computes the canonical, ordered listing of a materialized
// implementation tree and the content digests derived from it (§3, §8
// "Archive round-trip" of the execution core spec). The store layer does
// not call it: Disk.PathFor resolves a digest by directory name alone, and
// the execution core never recomputes a digest during normal injection.
package manifest

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/zeroinst/zerocore"
	"github.com/zeroinst/zerocore/internal/selections"
)

// Entry is one line of a Manifest: a file, executable, symlink, or
// directory record in the canonical format Zero Install has used since its
// "new" manifest algorithms (sha1new, sha256new).
type Entry struct {
	Kind  byte // 'F' regular file, 'X' executable file, 'S' symlink, 'D' directory
	Hash  string
	MTime int64
	Size  int64
	Path  string // slash-separated, rooted at "/"
}

// Manifest is the ordered list of Entry records extracted from a directory
// tree, in the order the digest hash is computed over.
type Manifest struct {
	Algorithm selections.Algorithm
	Entries   []Entry
}

func newHash(alg selections.Algorithm) (hash.Hash, error) {
	switch alg {
	case selections.SHA1New:
		return sha1.New(), nil
	case selections.SHA256, selections.SHA256New:
		return sha256.New(), nil
	default:
		return nil, zerocore.Errorf(zerocore.KindInvalid, "unsupported manifest algorithm %q", alg)
	}
}

// Generate walks root and produces its Manifest under alg. Directories are
// listed before their contents and symlinks/hardlinks are indistinguishable
// from regular files at this layer (a hardlinked file is just a file that
// happens to share inode data) — this matches the "directories before
// their contents; symlinks/hardlinks last" ordering guarantee from the
// archive Builder, since by the time Generate runs, extraction has already
// completed and the Builder's own ordering has already materialized the
// tree on disk.
func Generate(root string, alg selections.Algorithm) (*Manifest, error) {
	if _, err := newHash(alg); err != nil {
		return nil, err
	}

	var paths []string
	infoByPath := map[string]os.FileInfo{}
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return zerocore.Errorf(zerocore.KindIO, "walking %q: %w", root, err)
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = "/" + filepath.ToSlash(rel)
		paths = append(paths, rel)
		infoByPath[rel] = info
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	entries := make([]Entry, len(paths))
	g, gctx := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.NumCPU())
	for i, rel := range paths {
		i, rel := i, rel
		info := infoByPath[rel]
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			entry, err := buildEntry(root, rel, info, alg)
			if err != nil {
				return err
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Manifest{Algorithm: alg, Entries: entries}, nil
}

// buildEntry computes one path's Entry, hashing file and symlink-target
// content with a hash.Hash private to this goroutine — sha1.New/
// sha256.New instances are not safe for concurrent use, so Generate gives
// each in-flight path its own.
func buildEntry(root, rel string, info os.FileInfo, alg selections.Algorithm) (Entry, error) {
	full := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(rel, "/")))

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(full)
		if err != nil {
			return Entry{}, zerocore.Errorf(zerocore.KindIO, "reading symlink %q: %w", full, err)
		}
		h, _ := newHash(alg)
		digest, err := digestBytes(h, []byte(target))
		if err != nil {
			return Entry{}, err
		}
		return Entry{Kind: 'S', Hash: digest, Size: int64(len(target)), Path: rel}, nil
	case info.IsDir():
		return Entry{Kind: 'D', Path: rel}, nil
	default:
		f, err := os.Open(full)
		if err != nil {
			return Entry{}, zerocore.Errorf(zerocore.KindIO, "opening %q: %w", full, err)
		}
		h, _ := newHash(alg)
		digest, err := digestReader(h, f)
		f.Close()
		if err != nil {
			return Entry{}, err
		}
		kind := byte('F')
		if info.Mode()&0o111 != 0 {
			kind = 'X'
		}
		return Entry{
			Kind:  kind,
			Hash:  digest,
			MTime: info.ModTime().Unix(),
			Size:  info.Size(),
			Path:  rel,
		}, nil
	}
}

func digestBytes(h hash.Hash, b []byte) (string, error) {
	h.Reset()
	h.Write(b)
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func digestReader(h hash.Hash, r io.Reader) (string, error) {
	h.Reset()
	if _, err := io.Copy(h, r); err != nil {
		return "", zerocore.Errorf(zerocore.KindIO, "hashing file contents: %w", err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// Text renders m in the canonical line format the manifest digest is
// computed over: "<kind> <hash> <mtime> <size> <path>\n" for files and
// symlinks, "D <path>\n" for directories.
func (m *Manifest) Text() string {
	var b strings.Builder
	for _, e := range m.Entries {
		switch e.Kind {
		case 'D':
			fmt.Fprintf(&b, "D %s\n", e.Path)
		default:
			fmt.Fprintf(&b, "%c %s %d %d %s\n", e.Kind, e.Hash, e.MTime, e.Size, e.Path)
		}
	}
	return b.String()
}

// Digest computes the manifest digest: the algorithm's hash of m.Text(),
// hex-encoded, in the "<algorithm>=<hex>" form the store's on-disk layout
// and selections XML both use.
func (m *Manifest) Digest() (string, error) {
	h, err := newHash(m.Algorithm)
	if err != nil {
		return "", err
	}
	h.Reset()
	h.Write([]byte(m.Text()))
	return fmt.Sprintf("%s=%x", m.Algorithm, h.Sum(nil)), nil
}
