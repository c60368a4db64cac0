package archive

import (
	"archive/zip"
	"context"
	"io"
	"os"

	"golang.org/x/exp/mmap"

	"github.com/zeroinst/zerocore"
)

// zipExtractor decodes a ZIP central directory, routing entries whose Unix
// host mode (stored in the external attributes, high 16 bits) marks them as
// a symlink through AddSymlink and everything else through AddFile, mirroring
// tarExtractor's use of a LinkDeferrer for ordering.
type zipExtractor struct {
	path   string // EnsureFile'd path; zip needs io.ReaderAt, not a stream
	owned  bool   // true if path is a temp file we must remove after use
	subDir string
}

func newZipExtractor(src Source) (Extractor, error) {
	if src.Path != "" {
		return &zipExtractor{path: src.Path, subDir: src.SubDir}, nil
	}
	path, owned, err := EnsureFile(src.Reader)
	if err != nil {
		return nil, err
	}
	return &zipExtractor{path: path, owned: owned, subDir: src.SubDir}, nil
}

const (
	unixModeExtraFieldShift = 16
	// Unix file type bits within the high word of ExternalAttrs, as written
	// by Info-ZIP and read by every other Unix zip implementation.
	unixModeMask   = 0xFFFF << unixModeExtraFieldShift
	unixSymlinkBit = 0xA000 << unixModeExtraFieldShift
)

func (e *zipExtractor) Extract(ctx context.Context, b Builder) error {
	// Central-directory random access goes through a memory-mapped view
	// of the file rather than os.File's pread syscalls. Entries are read
	// in a single pass over the central directory, which supplies both
	// each entry's content and the Unix mode bits checked below.
	ra, err := mmap.Open(e.path)
	if err != nil {
		return zerocore.Errorf(zerocore.KindArchiveInvalid, "memory-mapping zip archive: %w", err)
	}
	defer ra.Close()

	zr, err := zip.NewReader(ra, int64(ra.Len()))
	if err != nil {
		return zerocore.Errorf(zerocore.KindArchiveInvalid, "opening zip archive: %w", err)
	}

	deferred := NewLinkDeferrer(b)
	for _, f := range zr.File {
		if err := zerocore.CheckCanceled(ctx); err != nil {
			return err
		}
		path, keep, err := Normalize(f.Name, e.subDir)
		if err != nil {
			return err
		}
		if !keep {
			continue
		}

		mode := f.ExternalAttrs & unixModeMask
		isSymlink := mode == unixSymlinkBit
		executable := f.ExternalAttrs&(0o111<<unixModeExtraFieldShift) != 0

		if f.FileInfo().IsDir() {
			if err := deferred.AddDirectory(path); err != nil {
				return err
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return zerocore.Errorf(zerocore.KindArchiveInvalid, "opening zip entry %q: %w", f.Name, err)
		}
		if isSymlink {
			target, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return zerocore.Errorf(zerocore.KindArchiveInvalid, "reading symlink target for %q: %w", f.Name, err)
			}
			if err := deferred.AddSymlink(path, string(target)); err != nil {
				return err
			}
			continue
		}
		err = b.AddFile(path, rc, f.Modified, executable)
		rc.Close()
		if err != nil {
			return err
		}
	}
	if err := deferred.Flush(); err != nil {
		return err
	}
	if e.owned {
		return os.Remove(e.path)
	}
	return nil
}
