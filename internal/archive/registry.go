package archive

import (
	"context"
	"io"
	"runtime"

	"github.com/zeroinst/zerocore"
)

// Extractor decodes one archive, feeding normalized entries to a Builder.
// Extract must check ctx for cancellation at every entry boundary (§5).
type Extractor interface {
	Extract(ctx context.Context, b Builder) error
}

// Source is what a Factory needs to construct an Extractor: a byte
// stream, plus an optional filesystem path. Only the zip extractor reads
// Path, using that file instead of spooling Reader; the other file-backed
// extractors (7z, rpm, deb, cab, msi, dmg) always spool Reader via
// EnsureFile.
type Source struct {
	Reader io.ReadCloser
	Path   string // if set, the zip extractor reads this file directly
	SubDir string // only entries under this prefix are kept, see Normalize
}

// Factory constructs an Extractor bound to src.
type Factory func(src Source) (Extractor, error)

// Registry maps MIME type to an Extractor factory. It is a plain value,
// not a global: NewRegistry fills it with the standard set, and Register
// may add or overwrite entries afterwards. Access is not synchronized, so
// concurrent readers are safe only while no Register call runs.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a Registry pre-populated with every standard format
// (§4.3): zip, tar and its compressed variants, 7z, rar, cab, msi, dmg,
// rpm, deb, and ruby gem.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	registerStandardExtractors(r)
	return r
}

// Register adds or overwrites the factory for mimeType. Callers normally
// only need this for test doubles; production code uses NewRegistry's
// standard set.
func (r *Registry) Register(mimeType string, f Factory) {
	r.factories[mimeType] = f
}

// New constructs an Extractor for mimeType from src, or a
// KindPlatformUnsupported / KindInvalid error.
func (r *Registry) New(mimeType string, src Source) (Extractor, error) {
	f, ok := r.factories[mimeType]
	if !ok {
		return nil, zerocore.Errorf(zerocore.KindInvalid, "no extractor registered for MIME type %q", mimeType)
	}
	return f(src)
}

// registerStandardExtractors populates r with every format factory this
// package implements. It is split out from NewRegistry so tests can start
// from an empty Registry and register only the factories they need.
func registerStandardExtractors(r *Registry) {
	r.Register("application/x-tar", newTarExtractor)
	r.Register("application/x-compressed-tar", newGzipTarExtractor)
	r.Register("application/x-bzip-compressed-tar", newBzip2TarExtractor)
	r.Register("application/x-lzma-compressed-tar", newLzmaTarExtractor)
	r.Register("application/x-lzip-compressed-tar", newLzipTarExtractor)
	r.Register("application/x-xz-compressed-tar", newXzTarExtractor)
	r.Register("application/x-zstd-compressed-tar", newZstdTarExtractor)
	r.Register("application/zip", newZipExtractor)
	r.Register("application/x-rar-compressed", newRarExtractor)
	r.Register("application/x-7z-compressed", new7zExtractor)
	r.Register("application/x-rpm", newRPMExtractor)
	r.Register("application/x-deb", newDebExtractor)
	r.Register("application/x-ruby-gem", newGemExtractor)
	r.Register("application/vnd.ms-cab-compressed", newCabExtractor)
	r.Register("application/x-msi", newMSIExtractor)
	r.Register("application/x-apple-diskimage", newDMGExtractor)
}

func requirePlatform(goos, mimeType string) error {
	if runtime.GOOS != goos {
		return zerocore.Errorf(zerocore.KindPlatformUnsupported, "extractor for %q requires %s, running on %s", mimeType, goos, runtime.GOOS)
	}
	return nil
}
