package archive

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cavaliercoder/go-cpio"
	"github.com/zeroinst/zerocore"
)

// shellExtractor runs an external program that unpacks an archive into a
// scratch directory, then walks that directory and feeds it to the Builder
// as plain files, directories, and symlinks. It is the fallback for every
// container format with no pure-Go decoder in the dependency graph,
// mirroring the teacher's own reliance on exec.Command for ar, tar, patch,
// gcc, objcopy, strip, and systemd-sysusers during package builds
// (internal/build/build.go).
type shellExtractor struct {
	path   string
	subDir string
	unpack func(ctx context.Context, archivePath, destDir string) error
}

func (e *shellExtractor) Extract(ctx context.Context, b Builder) error {
	dest, err := os.MkdirTemp("", "zerocore-unpack-*")
	if err != nil {
		return zerocore.Errorf(zerocore.KindIO, "creating scratch directory: %w", err)
	}
	defer os.RemoveAll(dest)

	if err := e.unpack(ctx, e.path, dest); err != nil {
		return err
	}
	return walkIntoBuilder(ctx, dest, e.subDir, b)
}

// walkIntoBuilder feeds every entry under root to b, after Normalize'ing
// paths relative to root and applying subDir filtering.
func walkIntoBuilder(ctx context.Context, root, subDir string, b Builder) error {
	deferred := NewLinkDeferrer(b)
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return zerocore.Errorf(zerocore.KindIO, "walking unpacked tree: %w", err)
		}
		if p == root {
			return nil
		}
		if cerr := zerocore.CheckCanceled(ctx); cerr != nil {
			return cerr
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		path, keep, err := Normalize(rel, subDir)
		if err != nil {
			return err
		}
		if !keep {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(p)
			if err != nil {
				return zerocore.Errorf(zerocore.KindIO, "reading symlink %q: %w", p, err)
			}
			return deferred.AddSymlink(path, target)
		case info.IsDir():
			return deferred.AddDirectory(path)
		default:
			f, err := os.Open(p)
			if err != nil {
				return zerocore.Errorf(zerocore.KindIO, "opening unpacked file %q: %w", p, err)
			}
			defer f.Close()
			executable := info.Mode()&0o111 != 0
			return b.AddFile(path, f, info.ModTime(), executable)
		}
	})
	if err != nil {
		return err
	}
	return deferred.Flush()
}

func runTool(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return zerocore.Errorf(zerocore.KindArchiveInvalid, "%s %v: %w: %s", name, args, err, stderr.String())
	}
	return nil
}

// new7zExtractor shells out to 7z or 7za, since no pure-Go 7-Zip decoder
// appears anywhere in the dependency graph.
func new7zExtractor(src Source) (Extractor, error) {
	path, owned, err := EnsureFile(src.Reader)
	if err != nil {
		return nil, err
	}
	return &shellExtractor{
		path:   path,
		subDir: src.SubDir,
		unpack: func(ctx context.Context, archivePath, destDir string) error {
			defer cleanupIfOwned(archivePath, owned)
			tool := "7z"
			if _, err := exec.LookPath(tool); err != nil {
				tool = "7za"
			}
			return runTool(ctx, tool, "x", "-y", "-o"+destDir, archivePath)
		},
	}, nil
}

// debExtractor extracts a Debian package's data member (data.tar.*) via
// "ar p", then delegates to the matching tar/compressed-tar extractor
// picked by the member's extension — the same nested-member pattern
// gem.go uses for data.tar.gz, rather than walking ar's flat output as
// opaque files.
type debExtractor struct {
	path   string
	owned  bool
	subDir string
}

func newDebExtractor(src Source) (Extractor, error) {
	path, owned, err := EnsureFile(src.Reader)
	if err != nil {
		return nil, err
	}
	return &debExtractor{path: path, owned: owned, subDir: src.SubDir}, nil
}

func (e *debExtractor) Extract(ctx context.Context, b Builder) error {
	defer cleanupIfOwned(e.path, e.owned)

	member, err := debDataMember(ctx, e.path)
	if err != nil {
		return err
	}
	factory, err := tarFactoryForMember(member)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "ar", "p", e.path, member)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	data, err := cmd.Output()
	if err != nil {
		return zerocore.Errorf(zerocore.KindArchiveInvalid, "ar p %s %s: %w: %s", e.path, member, err, stderr.String())
	}

	inner, err := factory(Source{Reader: io.NopCloser(bytes.NewReader(data)), SubDir: e.subDir})
	if err != nil {
		return err
	}
	return inner.Extract(ctx, b)
}

// debDataMember lists a .deb's ar members and returns the one named
// data.tar.*, whatever compression the package used.
func debDataMember(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, "ar", "t", path)
	out, err := cmd.Output()
	if err != nil {
		return "", zerocore.Errorf(zerocore.KindArchiveInvalid, "ar t %s: %w", path, err)
	}
	return pickDataMember(path, string(out))
}

// pickDataMember picks the data.tar.* line out of "ar t"'s listing. Split
// out of debDataMember so the parsing can be tested without an ar binary.
func pickDataMember(path, listing string) (string, error) {
	for _, line := range strings.Split(strings.TrimSpace(listing), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "data.tar") {
			return line, nil
		}
	}
	return "", zerocore.Errorf(zerocore.KindArchiveInvalid, "%s has no data.tar.* member", path)
}

// tarFactoryForMember picks the tar/compressed-tar factory matching a
// data.tar.* member's extension.
func tarFactoryForMember(member string) (Factory, error) {
	switch {
	case strings.HasSuffix(member, ".tar"):
		return newTarExtractor, nil
	case strings.HasSuffix(member, ".tar.gz"), strings.HasSuffix(member, ".tgz"):
		return newGzipTarExtractor, nil
	case strings.HasSuffix(member, ".tar.bz2"):
		return newBzip2TarExtractor, nil
	case strings.HasSuffix(member, ".tar.xz"):
		return newXzTarExtractor, nil
	case strings.HasSuffix(member, ".tar.lzma"):
		return newLzmaTarExtractor, nil
	case strings.HasSuffix(member, ".tar.lz"):
		return newLzipTarExtractor, nil
	case strings.HasSuffix(member, ".tar.zst"):
		return newZstdTarExtractor, nil
	default:
		return nil, zerocore.Errorf(zerocore.KindArchiveInvalid, "unrecognized data member compression: %q", member)
	}
}

// newRPMExtractor converts an RPM's cpio payload via rpm2cpio and decodes
// it with github.com/cavaliercoder/go-cpio, since the corpus has no pure-Go
// RPM header parser.
func newRPMExtractor(src Source) (Extractor, error) {
	path, owned, err := EnsureFile(src.Reader)
	if err != nil {
		return nil, err
	}
	return &shellExtractor{
		path:   path,
		subDir: src.SubDir,
		unpack: func(ctx context.Context, archivePath, destDir string) error {
			defer cleanupIfOwned(archivePath, owned)
			cmd := exec.CommandContext(ctx, "rpm2cpio", archivePath)
			out, err := cmd.Output()
			if err != nil {
				return zerocore.Errorf(zerocore.KindArchiveInvalid, "rpm2cpio %q: %w", archivePath, err)
			}
			cr := cpio.NewReader(bytes.NewReader(out))
			for {
				if cerr := zerocore.CheckCanceled(ctx); cerr != nil {
					return cerr
				}
				hdr, err := cr.Next()
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return zerocore.Errorf(zerocore.KindArchiveInvalid, "reading cpio entry: %w", err)
				}
				target := filepath.Join(destDir, filepath.FromSlash(hdr.Name))
				if err := materializeCpioEntry(hdr, cr, target); err != nil {
					return err
				}
			}
		},
	}, nil
}

func materializeCpioEntry(hdr *cpio.Header, r *cpio.Reader, target string) error {
	switch {
	case hdr.Mode.IsDir():
		return os.MkdirAll(target, 0o755)
	case hdr.Mode&cpio.TypeMask == cpio.TypeSymlink:
		buf := make([]byte, hdr.Size)
		if _, err := r.Read(buf); err != nil {
			return zerocore.Errorf(zerocore.KindArchiveInvalid, "reading symlink target: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.Symlink(string(buf), target)
	default:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode.Perm()))
		if err != nil {
			return zerocore.Errorf(zerocore.KindIO, "creating %q: %w", target, err)
		}
		defer f.Close()
		_, err = copyN(f, r, hdr.Size)
		return err
	}
}

func copyN(dst *os.File, src *cpio.Reader, n int64) (int64, error) {
	buf := make([]byte, 32*1024)
	var written int64
	for written < n {
		toRead := int64(len(buf))
		if remaining := n - written; remaining < toRead {
			toRead = remaining
		}
		nr, err := src.Read(buf[:toRead])
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, zerocore.Errorf(zerocore.KindIO, "writing extracted file: %w", werr)
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return written, zerocore.Errorf(zerocore.KindArchiveInvalid, "reading cpio payload: %w", err)
		}
	}
	return written, nil
}

// newCabExtractor shells out to the Windows expand.exe utility; no pure-Go
// Microsoft Cabinet decoder is present in the corpus, and expand.exe only
// exists on Windows.
func newCabExtractor(src Source) (Extractor, error) {
	if err := requirePlatform("windows", "application/vnd.ms-cab-compressed"); err != nil {
		return nil, err
	}
	path, owned, err := EnsureFile(src.Reader)
	if err != nil {
		return nil, err
	}
	return &shellExtractor{
		path:   path,
		subDir: src.SubDir,
		unpack: func(ctx context.Context, archivePath, destDir string) error {
			defer cleanupIfOwned(archivePath, owned)
			return runTool(ctx, "expand.exe", archivePath, "-F:*", destDir)
		},
	}, nil
}

// newMSIExtractor shells out to msiexec's administrative install mode,
// which expands an MSI's embedded cabinets without running installer
// actions. Windows-only, like newCabExtractor.
func newMSIExtractor(src Source) (Extractor, error) {
	if err := requirePlatform("windows", "application/x-msi"); err != nil {
		return nil, err
	}
	path, owned, err := EnsureFile(src.Reader)
	if err != nil {
		return nil, err
	}
	return &shellExtractor{
		path:   path,
		subDir: src.SubDir,
		unpack: func(ctx context.Context, archivePath, destDir string) error {
			defer cleanupIfOwned(archivePath, owned)
			return runTool(ctx, "msiexec", "/a", archivePath, "/qn", "TARGETDIR="+destDir)
		},
	}, nil
}

// newDMGExtractor shells out to hdiutil attach/detach. macOS-only: Apple
// disk images have no documented format the corpus's decoders cover.
func newDMGExtractor(src Source) (Extractor, error) {
	if err := requirePlatform("darwin", "application/x-apple-diskimage"); err != nil {
		return nil, err
	}
	path, owned, err := EnsureFile(src.Reader)
	if err != nil {
		return nil, err
	}
	return &shellExtractor{
		path:   path,
		subDir: src.SubDir,
		unpack: func(ctx context.Context, archivePath, destDir string) error {
			defer cleanupIfOwned(archivePath, owned)
			mountPoint, err := os.MkdirTemp("", "zerocore-dmg-mount-*")
			if err != nil {
				return zerocore.Errorf(zerocore.KindIO, "creating mount point: %w", err)
			}
			defer os.RemoveAll(mountPoint)
			if err := runTool(ctx, "hdiutil", "attach", "-nobrowse", "-mountpoint", mountPoint, archivePath); err != nil {
				return err
			}
			defer runTool(context.Background(), "hdiutil", "detach", mountPoint)
			return copyTree(mountPoint, destDir)
		},
	}, nil
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			link, err := os.Readlink(p)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		}
		in, err := os.Open(p)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = out.ReadFrom(in)
		return err
	})
}

func cleanupIfOwned(path string, owned bool) {
	if owned {
		os.Remove(path)
	}
}
