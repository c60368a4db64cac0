package archive

import (
	"context"
	"io"

	"github.com/nwaples/rardecode"
	"github.com/zeroinst/zerocore"
)

// rarExtractor decodes a RAR stream via rardecode, which only supports
// forward reading — unlike tarExtractor there is no separate symlink
// handling to defer, since RAR (unlike tar and zip) has no portable
// symlink entry type in the versions rardecode supports; every entry is
// either a directory or a regular file.
type rarExtractor struct {
	r      io.ReadCloser
	subDir string
}

func newRarExtractor(src Source) (Extractor, error) {
	return &rarExtractor{r: src.Reader, subDir: src.SubDir}, nil
}

func (e *rarExtractor) Extract(ctx context.Context, b Builder) error {
	defer e.r.Close()
	rr, err := rardecode.NewReader(e.r, "")
	if err != nil {
		return zerocore.Errorf(zerocore.KindArchiveInvalid, "opening rar archive: %w", err)
	}
	for {
		if err := zerocore.CheckCanceled(ctx); err != nil {
			return err
		}
		hdr, err := rr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return zerocore.Errorf(zerocore.KindArchiveInvalid, "reading rar entry: %w", err)
		}
		path, keep, err := Normalize(hdr.Name, e.subDir)
		if err != nil {
			return err
		}
		if !keep {
			continue
		}
		if hdr.IsDir {
			if err := b.AddDirectory(path); err != nil {
				return err
			}
			continue
		}
		executable := hdr.Mode()&0o111 != 0
		if err := b.AddFile(path, rr, hdr.ModificationTime, executable); err != nil {
			return err
		}
	}
}
