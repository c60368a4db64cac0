package archive

import (
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/sorairolake/lzip-go"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
	"github.com/zeroinst/zerocore"
)

// decompressedTar wraps a decompressed byte stream as an io.ReadCloser
// that, on Close, releases both the decompressor (if it owns resources)
// and the original compressed source.
type decompressedTar struct {
	decoded io.Reader
	closers []func() error
}

func (d *decompressedTar) Read(p []byte) (int, error) { return d.decoded.Read(p) }

func (d *decompressedTar) Close() error {
	var first error
	for _, c := range d.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// newCompressedTarExtractor wraps src's compressed stream with decode,
// then delegates to the plain tar extractor. The teacher considered
// switching its squashfs-over-HTTP install path to
// "github.com/klauspost/pgzip" for faster gzip decoding but left it as a
// TODO (internal/install/install.go); this rewrite resolves that TODO by
// making pgzip the gzip decompressor here.
func newCompressedTarExtractor(src Source, decode func(io.Reader) (io.Reader, []func() error, error)) (Extractor, error) {
	decoded, closers, err := decode(src.Reader)
	if err != nil {
		src.Reader.Close()
		return nil, zerocore.Errorf(zerocore.KindArchiveInvalid, "opening compressed tar stream: %w", err)
	}
	closers = append(closers, src.Reader.Close)
	return newTarExtractor(Source{
		Reader: &decompressedTar{decoded: decoded, closers: closers},
		SubDir: src.SubDir,
	})
}

func newGzipTarExtractor(src Source) (Extractor, error) {
	return newCompressedTarExtractor(src, func(r io.Reader) (io.Reader, []func() error, error) {
		zr, err := pgzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, []func() error{zr.Close}, nil
	})
}

func newBzip2TarExtractor(src Source) (Extractor, error) {
	return newCompressedTarExtractor(src, func(r io.Reader) (io.Reader, []func() error, error) {
		zr, err := bzip2.NewReader(r, nil)
		if err != nil {
			return nil, nil, err
		}
		return zr, []func() error{zr.Close}, nil
	})
}

func newXzTarExtractor(src Source) (Extractor, error) {
	return newCompressedTarExtractor(src, func(r io.Reader) (io.Reader, []func() error, error) {
		zr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, nil, nil
	})
}

func newLzmaTarExtractor(src Source) (Extractor, error) {
	return newCompressedTarExtractor(src, func(r io.Reader) (io.Reader, []func() error, error) {
		zr, err := lzma.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, nil, nil
	})
}

func newLzipTarExtractor(src Source) (Extractor, error) {
	return newCompressedTarExtractor(src, func(r io.Reader) (io.Reader, []func() error, error) {
		zr, err := lzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, nil, nil
	})
}

func newZstdTarExtractor(src Source) (Extractor, error) {
	return newCompressedTarExtractor(src, func(r io.Reader) (io.Reader, []func() error, error) {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, []func() error{func() error { zr.Close(); return nil }}, nil
	})
}
