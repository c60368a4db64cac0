package builder

import (
	"os"
	"strings"

	"github.com/zeroinst/zerocore"
	"github.com/zeroinst/zerocore/internal/execctx"
	"github.com/zeroinst/zerocore/internal/selections"
	"github.com/zeroinst/zerocore/internal/wordsplit"
)

func splitWrapper(s string) ([]string, error) {
	return wordsplit.Split(s)
}

// expandItems flattens a raw ArgItem tree into a final []string, applying
// $var / ${var} substitution against env and expanding ForEachArgs
// iterations (§4.1 step 7). env is never mutated; each ForEachArgs
// iteration binds "item" in a private overlay that reverts once the
// iteration returns, so "item" never leaks into the Builder's real
// environment.
func expandItems(items []selections.ArgItem, env map[string]string) ([]string, error) {
	var out []string
	for _, it := range items {
		switch v := it.(type) {
		case selections.Arg:
			out = append(out, expandVars(v.Value, env))
		case selections.ForEachArgs:
			sep := execctx.PathListSeparator()
			if v.Separator != nil {
				sep = *v.Separator
			}
			val := env[execctx.NormalizeKey(v.ItemFrom)]
			var parts []string
			if val != "" {
				parts = strings.Split(val, sep)
			}
			for _, part := range parts {
				overlay := make(map[string]string, len(env)+1)
				for k, vv := range env {
					overlay[k] = vv
				}
				overlay[execctx.NormalizeKey("item")] = part
				sub, err := expandItems(v.Args, overlay)
				if err != nil {
					return nil, err
				}
				out = append(out, sub...)
			}
		default:
			return nil, zerocore.Errorf(zerocore.KindInvalid, "unknown arg item type %T", it)
		}
	}
	return out, nil
}

// expandVars substitutes $var and ${var} references in s against env,
// using os.Expand: the execution core has no ecosystem templating
// dependency for POSIX-shell-style variable substitution, and os.Expand
// implements exactly that syntax.
func expandVars(s string, env map[string]string) string {
	return os.Expand(s, func(name string) string {
		return env[execctx.NormalizeKey(name)]
	})
}
