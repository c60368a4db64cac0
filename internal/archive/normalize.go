package archive

import (
	"path"
	"strings"

	"github.com/zeroinst/zerocore"
)

// Normalize converts an archive-native entry path into host-independent,
// slash-separated, root-relative form. If subDir is non-empty, only
// entries under it survive; the prefix (and a trailing slash) is stripped
// from the returned path. With an empty subDir, Normalize is idempotent:
// Normalize(Normalize(p, ""), "") == Normalize(p, ""). With a non-empty
// subDir it is not: the returned path no longer starts with subDir, so a
// second pass with the same subDir drops the entry.
//
// An entry that escapes the root — an absolute path after stripping, or a
// ".." component that climbs above the root — is rejected with a
// KindArchiveInvalid error. This check deliberately applies only to the
// entry's own path; whether it also applies to a symlink's *target* is an
// open question the original implementation leaves unresolved for
// symlinks (it does apply to hardlink targets) — this rewrite preserves
// that asymmetry rather than "fixing" it (see §9 Open Questions, (a)).
func Normalize(entryPath, subDir string) (normalized string, keep bool, err error) {
	p := filepath2slash(entryPath)
	p = strings.TrimPrefix(p, "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	if p == "." {
		return "", false, nil
	}
	p = path.Clean(p)
	if p == "." {
		return "", false, nil
	}

	if subDir != "" {
		sub := strings.Trim(filepath2slash(subDir), "/")
		switch {
		case p == sub:
			return "", false, nil
		case strings.HasPrefix(p, sub+"/"):
			p = strings.TrimPrefix(p, sub+"/")
		default:
			return "", false, nil
		}
	}

	if p == "" || p == "." {
		return "", false, nil
	}
	if strings.HasPrefix(p, "/") || p == ".." || strings.HasPrefix(p, "../") {
		return "", false, zerocore.Errorf(zerocore.KindArchiveInvalid, "entry %q escapes archive root", entryPath)
	}
	return p, true, nil
}

// NormalizeHardlinkTarget applies the same escape check Normalize does to
// a hardlink's target path (unlike symlink targets, which the original
// implementation leaves unvalidated — see Normalize's doc comment).
func NormalizeHardlinkTarget(target, subDir string) (string, error) {
	norm, keep, err := Normalize(target, subDir)
	if err != nil {
		return "", err
	}
	if !keep {
		return "", zerocore.Errorf(zerocore.KindArchiveInvalid, "hardlink target %q normalizes outside the archive sub-tree", target)
	}
	return norm, nil
}

func filepath2slash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
