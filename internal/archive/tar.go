package archive

import (
	"archive/tar"
	"context"
	"io"

	"github.com/zeroinst/zerocore"
)

// tarExtractor decodes a POSIX tar stream, feeding the Builder in stream
// order for regular entries and deferring symlinks/hardlinks until every
// regular entry has been seen (§5 Ordering guarantees).
type tarExtractor struct {
	r      io.ReadCloser
	subDir string
}

func newTarExtractor(src Source) (Extractor, error) {
	return &tarExtractor{r: src.Reader, subDir: src.SubDir}, nil
}

func (e *tarExtractor) Extract(ctx context.Context, b Builder) error {
	defer e.r.Close()
	deferred := NewLinkDeferrer(b)
	tr := tar.NewReader(e.r)
	for {
		if err := zerocore.CheckCanceled(ctx); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return zerocore.Errorf(zerocore.KindArchiveInvalid, "reading tar entry: %w", err)
		}
		path, keep, err := Normalize(hdr.Name, e.subDir)
		if err != nil {
			return err
		}
		if !keep {
			continue
		}
		executable := hdr.Mode&0o111 != 0

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := deferred.AddDirectory(path); err != nil {
				return err
			}
		case tar.TypeReg, tar.TypeRegA:
			if err := deferred.AddFile(path, tr, hdr.ModTime, executable); err != nil {
				return err
			}
		case tar.TypeSymlink:
			// Symlink targets are passed through unnormalized: see
			// Normalize's doc comment on the target-normalization
			// asymmetry the original implementation preserves.
			if err := deferred.AddSymlink(path, hdr.Linkname); err != nil {
				return err
			}
		case tar.TypeLink:
			target, err := NormalizeHardlinkTarget(hdr.Linkname, e.subDir)
			if err != nil {
				return err
			}
			if err := deferred.AddHardlink(path, target, executable); err != nil {
				return err
			}
		default:
			// Device nodes, FIFOs, and other exotic tar entry types are
			// silently skipped: the execution core's store only ever
			// materializes regular files, directories, and links.
		}
	}
	return deferred.Flush()
}
