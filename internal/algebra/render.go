package algebra

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sean-lynch/cozo/internal/data"
)

// Render returns a stable indented text rendering of the plan tree, used
// by golden tests and the CLI plan command. The output is deterministic:
// set-typed fields are sorted before printing.
func Render(r Relation) string {
	var b strings.Builder
	render(&b, r, 0)
	return b.String()
}

func render(b *strings.Builder, r Relation, depth int) {
	indent := strings.Repeat("  ", depth)

	switch rel := r.(type) {
	case UnitRelation, *UnitRelation:
		fmt.Fprintf(b, "%sunit\n", indent)

	case *InlineFixedRelation:
		fmt.Fprintf(b, "%sfixed %s\n", indent, renderKeywords(rel.Bindings))
		for _, row := range rel.Data {
			vals := make([]string, len(row))
			for i, v := range row {
				vals[i] = data.RenderValue(v)
			}
			fmt.Fprintf(b, "%s  row [%s]\n", indent, strings.Join(vals, " "))
		}

	case *TripleRelation:
		fmt.Fprintf(b, "%striple %s %s @%d\n",
			indent,
			rel.Attr.Keyword,
			renderKeywords(rel.Bindings[:]),
			rel.Vld)

	case *InnerJoin:
		pairs := make([]string, len(rel.Joiner.LeftKeys))
		for i := range rel.Joiner.LeftKeys {
			pairs[i] = fmt.Sprintf("%s=%s", rel.Joiner.LeftKeys[i], rel.Joiner.RightKeys[i])
		}
		kind := "join"
		if len(pairs) == 0 {
			kind = "cross"
		}
		fmt.Fprintf(b, "%s%s [%s] drop %s\n",
			indent, kind, strings.Join(pairs, " "), renderSet(rel.ToEliminate))
		render(b, rel.Left, depth+1)
		render(b, rel.Right, depth+1)

	default:
		fmt.Fprintf(b, "%s!unknown %T\n", indent, r)
	}
}

func renderKeywords(kws []data.Keyword) string {
	parts := make([]string, len(kws))
	for i, kw := range kws {
		parts[i] = string(kw)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func renderSet(s KeywordSet) string {
	parts := make([]string, 0, len(s))
	for kw := range s {
		parts = append(parts, string(kw))
	}
	sort.Strings(parts)
	return "[" + strings.Join(parts, " ") + "]"
}
