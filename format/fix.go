package format

import (
	"sort"
	"strings"

	"github.com/teamchong/codesift/core"
)

// RenderFix substitutes $NAME metavariable references in a fix template
// with the match's bound text. Longer names substitute first so $ARGS is
// not clobbered by $ARG. Unbound references stay literal.
func RenderFix(template string, bindings *core.Bindings) string {
	if bindings.Len() == 0 || !strings.Contains(template, "$") {
		return template
	}

	names := make([]core.Binding, 0, bindings.Len())
	for i := 0; i < bindings.Len(); i++ {
		names = append(names, bindings.At(i))
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i].Name) > len(names[j].Name) })

	out := template
	for _, b := range names {
		out = strings.ReplaceAll(out, "$"+b.Name, b.Text)
	}
	return out
}
