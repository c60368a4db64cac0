// Package archive implements the pluggable archive extraction pipeline:
// a registry of format-specific extractors feeding a path-normalizing
// Builder sink, with symlink/hardlink resolution deferred until the
// archive closes (§4.3 of the execution core spec).
package archive

import (
	"io"
	"time"
)

// Builder is the sink interface an Extractor drives while decoding an
// archive. Paths passed in have already been normalized by the extractor
// via Normalize: slash-separated and relative to the archive root (or to
// the sub-directory being extracted).
type Builder interface {
	AddDirectory(path string) error
	AddFile(path string, r io.Reader, mtime time.Time, executable bool) error
	AddSymlink(path, target string) error
	AddHardlink(path, existing string, executable bool) error
	Remove(path string) error
	TurnIntoSymlink(path string) error
	MarkAsExecutable(path string) error
}

// deferredLink is one symlink or hardlink operation an extractor defers
// until all regular entries have been materialized, so that hardlink
// targets are guaranteed to exist (§5 Ordering guarantees).
type deferredLink struct {
	isHardlink bool
	path       string
	target     string // symlink target, or existing-path for a hardlink
	executable bool
}

// LinkDeferrer wraps a Builder, buffering AddSymlink/AddHardlink calls and
// replaying them, in call order, only once Flush is invoked. Extractors
// for container formats that can present links before their targets
// (tar, zip) should route their symlink/hardlink calls through a
// LinkDeferrer instead of calling the underlying Builder directly.
type LinkDeferrer struct {
	Builder
	pending []deferredLink
}

// NewLinkDeferrer returns a LinkDeferrer wrapping b.
func NewLinkDeferrer(b Builder) *LinkDeferrer {
	return &LinkDeferrer{Builder: b}
}

func (d *LinkDeferrer) AddSymlink(path, target string) error {
	d.pending = append(d.pending, deferredLink{path: path, target: target})
	return nil
}

func (d *LinkDeferrer) AddHardlink(path, existing string, executable bool) error {
	d.pending = append(d.pending, deferredLink{isHardlink: true, path: path, target: existing, executable: executable})
	return nil
}

// Flush replays every buffered link operation, in insertion order, against
// the wrapped Builder.
func (d *LinkDeferrer) Flush() error {
	for _, l := range d.pending {
		var err error
		if l.isHardlink {
			err = d.Builder.AddHardlink(l.path, l.target, l.executable)
		} else {
			err = d.Builder.AddSymlink(l.path, l.target)
		}
		if err != nil {
			return err
		}
	}
	d.pending = nil
	return nil
}
