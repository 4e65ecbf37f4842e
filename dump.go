package vkrg

import (
	"fmt"
	"io"
	"strings"
)

// DumpDot writes the baked graph as a graphviz digraph: passes, physical
// resources and the barriers between them, annotated with format, size and
// persistence. Purely diagnostic; baking never depends on it and a failed
// write harms nothing beyond the returned error.
//
//	dot -Tsvg baked.dot -o baked.svg
func (bg *BakedGraph) DumpDot(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "digraph baked_render_graph {\n")
	fmt.Fprintf(&b, " rankdir=LR;\n")

	for i, res := range bg.resources {
		label := fmt.Sprintf("res %d\\n%s\\nformat %d usage 0x%x", i, strings.Join(tagsToStrings(res.Aliases), ", "), res.Format, res.Usage)
		if res.IsBackbuffer {
			label += "\\n[backbuffer]"
		}
		fmt.Fprintf(&b, " res_%d [shape=oval label=\"%s\"]\n", i, label)
	}

	for pi := range bg.passes {
		pass := &bg.passes[pi]
		fmt.Fprintf(&b, " pass_%d [shape=rectangle color=orange style=filled label=\"%d - %s\"]\n",
			pi, pi, dotEscape(string(pass.Tag)))

		for _, binding := range pass.Bindings {
			edgeLabel := fmt.Sprintf("%s\\n%s\\nlayout %d", dotEscape(string(binding.Tag)), binding.Bind, binding.Layout)
			if binding.Bind.CanWrite() {
				fmt.Fprintf(&b, " pass_%d -> res_%d [label=\"%s\"]\n", pi, binding.Resource, edgeLabel)
			} else {
				fmt.Fprintf(&b, " res_%d -> pass_%d [label=\"%s\"]\n", binding.Resource, pi, edgeLabel)
			}
		}

		for bi, barrier := range pass.barriers {
			id := fmt.Sprintf("barrier_%d_%d", pi, bi)
			fmt.Fprintf(&b, " %s [shape=rectangle color=green style=filled label=\"res %d\\nlayout %d -> %d\\nstages 0x%x -> 0x%x\"]\n",
				id, barrier.Resource, barrier.OldLayout, barrier.NewLayout, barrier.SrcStage, barrier.DstStage)
			fmt.Fprintf(&b, " res_%d -> %s\n", barrier.Resource, id)
			fmt.Fprintf(&b, " %s -> pass_%d\n", id, pi)
		}
	}

	fmt.Fprintf(&b, "}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func tagsToStrings(tags []Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = dotEscape(string(t))
	}
	return out
}

// dotEscape sanitizes a tag for use in a dot label.
func dotEscape(s string) string {
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "_")
	return s
}
