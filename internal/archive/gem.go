package archive

import (
	"archive/tar"
	"context"
	"io"

	"github.com/zeroinst/zerocore"
)

// gemExtractor decodes a RubyGems .gem package: an outer, uncompressed tar
// containing metadata.gz, data.tar.gz, and (for signed gems) checksums.yaml.gz.
// The execution core only materializes the contents of data.tar.gz; metadata
// and checksums are consumed by the package manager layer, not the installed
// tree.
type gemExtractor struct {
	r      io.ReadCloser
	subDir string
}

func newGemExtractor(src Source) (Extractor, error) {
	return &gemExtractor{r: src.Reader, subDir: src.SubDir}, nil
}

func (e *gemExtractor) Extract(ctx context.Context, b Builder) error {
	defer e.r.Close()
	outer := tar.NewReader(e.r)
	for {
		if err := zerocore.CheckCanceled(ctx); err != nil {
			return err
		}
		hdr, err := outer.Next()
		if err == io.EOF {
			return zerocore.Errorf(zerocore.KindArchiveInvalid, "gem archive has no data.tar.gz member")
		}
		if err != nil {
			return zerocore.Errorf(zerocore.KindArchiveInvalid, "reading gem outer tar: %w", err)
		}
		if hdr.Name != "data.tar.gz" {
			continue
		}
		inner, err := newGzipTarExtractor(Source{
			Reader: io.NopCloser(outer),
			SubDir: e.subDir,
		})
		if err != nil {
			return err
		}
		return inner.Extract(ctx, b)
	}
}
