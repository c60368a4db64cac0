//go:build !windows

package execctx

// normalizeKey is the identity on POSIX: every variable, including PATH,
// is case-sensitive.
func normalizeKey(name string) string { return name }

func pathVarName() string { return "PATH" }

func pathListSeparator() string { return ":" }
