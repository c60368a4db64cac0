// Package wordsplit implements the quote/backslash-aware command-line
// splitting add_wrapper needs to turn a user-supplied string into an
// argv, and the inverse joining the run-environment trampoline needs to
// pack an argv back into a single environment variable.
package wordsplit

import (
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/zeroinst/zerocore"
)

// Split parses s as a POSIX-ish shell command line, the way add_wrapper's
// argument is interpreted before becoming the outermost executable plus
// leading arguments.
func Split(s string) ([]string, error) {
	words, err := shellwords.Parse(s)
	if err != nil {
		return nil, zerocore.Errorf(zerocore.KindInvalid, "parsing wrapper command line %q: %w", s, err)
	}
	return words, nil
}

// Join quotes and space-joins words into a single string that Split
// reverses exactly. It is the encoding used when packing an argv into a
// ZEROINSTALL_RUNENV_<name> variable.
func Join(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = quote(w)
	}
	return strings.Join(quoted, " ")
}

func quote(w string) string {
	if w != "" && !strings.ContainsAny(w, " \t\n'\"\\$`") {
		return w
	}
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range w {
		if r == '\'' {
			b.WriteString(`'\''`)
		} else {
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
