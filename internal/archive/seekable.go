package archive

import (
	"io"
	"os"

	"github.com/orcaman/writerseeker"
	"github.com/zeroinst/zerocore"
)

// seeker is the subset of io.Seeker extractors need to detect whether a
// stream is already randomly accessible.
type seeker interface {
	io.Reader
	io.Seeker
}

// EnsureSeekable returns r unchanged if it already supports io.Seeker
// (a *os.File, or anything satisfying seeker); otherwise it spools r into
// an in-memory WriterSeeker and returns a reader over the buffered copy.
// Extractors that only need random access for small headers (zip's central
// directory on a small archive) should prefer this over EnsureFile.
func EnsureSeekable(r io.ReadCloser) (io.ReadCloser, error) {
	if _, ok := r.(seeker); ok {
		return r, nil
	}
	defer r.Close()
	var ws writerseeker.WriterSeeker
	if _, err := io.Copy(&ws, r); err != nil {
		return nil, zerocore.Errorf(zerocore.KindArchiveInvalid, "buffering stream for random access: %w", err)
	}
	return io.NopCloser(ws.Reader()), nil
}

// EnsureFile exposes r as a path on disk, for extractors (zip, and every
// native-tool-shelled format) whose backend needs a real file rather than a
// stream. If r is already a *os.File, its Name() is reused directly and
// closing is left to the caller; otherwise r is spooled into a temp file,
// which the caller owns and must remove.
func EnsureFile(r io.ReadCloser) (path string, owned bool, err error) {
	if f, ok := r.(*os.File); ok {
		return f.Name(), false, nil
	}
	defer r.Close()
	tmp, err := os.CreateTemp("", "zerocore-archive-*")
	if err != nil {
		return "", false, zerocore.Errorf(zerocore.KindIO, "creating spool file: %w", err)
	}
	defer tmp.Close()
	if _, err := io.Copy(tmp, r); err != nil {
		os.Remove(tmp.Name())
		return "", false, zerocore.Errorf(zerocore.KindIO, "spooling stream to disk: %w", err)
	}
	return tmp.Name(), true, nil
}
