// Package store implements the implementation-store contract: mapping a
// manifest digest to the on-disk directory it was extracted into. The
// store's on-disk layout is explicitly out of scope for the execution
// core (see SPEC_FULL.md Non-goals); this package gives the builder a
// working default so the rest of the core is exercisable end to end.
package store

import (
	"os"
	"path/filepath"

	"github.com/zeroinst/zerocore"
	"github.com/zeroinst/zerocore/internal/selections"
)

// Root returns the implementation store's cache root, honoring
// $ZEROINSTALL_STORE the way the teacher's internal/env package honors
// $DISTRIROOT, and falling back to a per-user cache directory otherwise.
func Root() string {
	if v := os.Getenv("ZEROINSTALL_STORE"); v != "" {
		return v
	}
	return os.ExpandEnv("$HOME/.cache/0install.net/implementations")
}

// Store maps a digest to the directory an implementation was extracted
// into. Implementations are content-addressed: the same digest always
// resolves to the same (read-only) tree.
type Store interface {
	// PathFor returns the absolute path of the directory matching any of
	// digests, or a KindNotFound error if none is present.
	PathFor(digests selections.ManifestDigest) (string, error)
}

// Disk is the default Store: a flat directory of "<algorithm>=<value>"
// subdirectories under a cache root, mirroring how Zero Install actually
// lays out ~/.cache/0install.net/implementations.
type Disk struct {
	CacheRoot string
}

// NewDisk returns a Disk store rooted at Root().
func NewDisk() *Disk { return &Disk{CacheRoot: Root()} }

func (d *Disk) PathFor(digests selections.ManifestDigest) (string, error) {
	for _, alg := range []selections.Algorithm{selections.SHA256New, selections.SHA256, selections.SHA1New} {
		v, ok := digests[alg]
		if !ok || v == "" {
			continue
		}
		candidate := filepath.Join(d.CacheRoot, string(alg)+"="+v)
		if fi, err := os.Stat(candidate); err == nil && fi.IsDir() {
			return candidate, nil
		}
	}
	alg, v, ok := digests.Best()
	if !ok {
		return "", zerocore.Errorf(zerocore.KindNotFound, "implementation has no usable manifest digest")
	}
	return "", zerocore.Errorf(zerocore.KindNotFound, "implementation %s=%s not found in store %s", alg, v, d.CacheRoot)
}

// PathForSelection resolves impl's store path, special-casing externally
// managed package implementations (id "package:...") whose path is owned
// by the native package manager, not this store — callers must supply
// resolve for that case (e.g. by querying dpkg/rpm/pacman).
func PathForSelection(s Store, impl *selections.ImplementationSelection, resolvePackage func(id string) (string, error)) (string, error) {
	if impl.IsPackageImplementation() {
		if resolvePackage == nil {
			return "", zerocore.Errorf(zerocore.KindNotFound, "implementation %s is externally managed but no package resolver was supplied", impl.ID)
		}
		return resolvePackage(impl.ID)
	}
	return s.PathFor(impl.Digests)
}
